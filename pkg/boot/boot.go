// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package boot drives the program-loading sequence of a coreboot image:
// romstage, ramstage, payload. Each step locates a program through the
// loader registry, materializes it into memory and hands control to it
// through the injected hooks.
package boot

import (
	"errors"
	"fmt"

	"github.com/linuxboot/progload/pkg/cbfs"
	"github.com/linuxboot/progload/pkg/log"
	"github.com/linuxboot/progload/pkg/prog"
	"github.com/linuxboot/progload/pkg/rdev"
	"github.com/linuxboot/progload/pkg/selfboot"
)

// DefaultPrefixes is the stage name prefix search order: the fallback
// partition wins over normal, matching what a fresh image boots.
var DefaultPrefixes = []string{"fallback", "normal"}

// Config carries everything a Flow needs. Image, ROM, Mem and Hooks are
// required; the rest have working defaults.
type Config struct {
	// Image is the parsed CBFS, ROM the flash device it came from.
	Image *cbfs.Image
	ROM   rdev.RegionDevice

	// Mem is the address space programs are loaded into.
	Mem *rdev.Mem

	// Hooks supply the platform and architecture halves of loading and
	// running. All four are required.
	Hooks *prog.Hooks

	// Policy, when set, can veto a program before any I/O happens.
	Policy prog.LocateHook

	// Check, when set, vetoes payload load destinations.
	Check selfboot.RangeCheck

	// Prefixes is the stage partition search order. Defaults to
	// DefaultPrefixes.
	Prefixes []string

	// Logger defaults to log.DefaultLogger.
	Logger log.Logger
}

// Flow is one pass through the boot sequence. It remembers which stage
// prefix won, so romstage and ramstage come from the same partition.
type Flow struct {
	cfg     Config
	locator *prog.Locator
	runner  *prog.Runner
	prefix  string
	payload *prog.Prog
}

// NewFlow validates cfg and returns a Flow ready to boot.
func NewFlow(cfg Config) (*Flow, error) {
	if cfg.Image == nil || cfg.ROM == nil {
		return nil, errors.New("boot: no image")
	}
	if cfg.Mem == nil {
		return nil, errors.New("boot: no memory")
	}
	runner, err := prog.NewRunner(cfg.Hooks)
	if err != nil {
		return nil, fmt.Errorf("boot: %w", err)
	}
	if len(cfg.Prefixes) == 0 {
		cfg.Prefixes = DefaultPrefixes
	}
	if cfg.Logger == nil {
		cfg.Logger = log.DefaultLogger
	}
	return &Flow{
		cfg:     cfg,
		locator: prog.NewLocator(cfg.Policy, NewCBFSLoader(cfg.Image, cfg.ROM)),
		runner:  runner,
	}, nil
}

// locateStage resolves a stage by trying the configured prefixes in
// order, until one locates. A policy denial is final: falling through
// to another partition would defeat the veto. The first failure is
// reported when no prefix works.
func (f *Flow) locateStage(t prog.Type, base string) (*prog.Prog, error) {
	prefixes := f.cfg.Prefixes
	if f.prefix != "" {
		prefixes = []string{f.prefix}
	}
	var first error
	for _, pre := range prefixes {
		p := prog.New(t, pre+"/"+base)
		err := f.locator.Locate(p)
		if err == nil {
			f.prefix = pre
			return p, nil
		}
		if errors.Is(err, prog.ErrPolicyDenied) {
			return nil, err
		}
		if first == nil {
			first = err
		}
	}
	return nil, first
}

// record returns the CBFS record a located program came from.
func (f *Flow) record(p *prog.Prog) (cbfs.Record, error) {
	rec, ok := f.cfg.Image.LookupType(p.Name(), p.CBFSType())
	if !ok {
		return nil, fmt.Errorf("%q: %w", p.Name(), cbfs.ErrNotFound)
	}
	return rec, nil
}

func (f *Flow) runStage(t prog.Type, base string) error {
	p, err := f.locateStage(t, base)
	if err != nil {
		return err
	}
	rec, err := f.record(p)
	if err != nil {
		return err
	}
	f.cfg.Logger.Infof("%s: %#x bytes in flash", p, p.Size())
	if err := LoadStage(p, rec, f.cfg.Mem, f.cfg.Hooks); err != nil {
		return err
	}
	entry, _ := p.Entry()
	f.cfg.Logger.Infof("%s: entry %#x", p, entry)
	return f.runner.Run(p)
}

// RunRomstage locates, loads and runs romstage.
func (f *Flow) RunRomstage() error {
	return f.runStage(prog.Romstage, "romstage")
}

// RunRamstage locates, loads and runs ramstage.
func (f *Flow) RunRamstage() error {
	return f.runStage(prog.Ramstage, "ramstage")
}

// LoadPayload locates the payload and places its segments into memory.
// Running it is a separate step, matching the pause firmware takes
// between loading the payload and deciding to hand over.
func (f *Flow) LoadPayload() error {
	p, err := f.locateStage(prog.Payload, "payload")
	if err != nil {
		return err
	}
	rec, err := f.record(p)
	if err != nil {
		return err
	}
	pr, ok := rec.(*cbfs.PayloadRecord)
	if !ok {
		return &prog.LoadError{Prog: p.Name(), Err: fmt.Errorf("%v file is not a payload", rec.GetFile().Type)}
	}
	f.cfg.Logger.Infof("%s: %#x bytes in flash", p, p.Size())
	if err := selfboot.Load(p, pr, f.cfg.Mem, f.cfg.Hooks, f.cfg.Check); err != nil {
		return err
	}
	f.payload = p
	return nil
}

// RunPayload hands control to the loaded payload.
func (f *Flow) RunPayload() error {
	if f.payload == nil {
		return fmt.Errorf("run payload: %w", prog.ErrInvalidEntryPoint)
	}
	entry, _ := f.payload.Entry()
	f.cfg.Logger.Infof("%s: entry %#x", f.payload, entry)
	return f.runner.Run(f.payload)
}

// Boot runs the whole sequence: romstage, ramstage, then the payload.
func (f *Flow) Boot() error {
	if err := f.RunRomstage(); err != nil {
		return err
	}
	if err := f.RunRamstage(); err != nil {
		return err
	}
	if err := f.LoadPayload(); err != nil {
		return err
	}
	return f.RunPayload()
}
