// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package prog models the boot programs a firmware hands control
// through: bootblock, the ro/rw stages, and the payload.
//
// A Prog starts as just a type and a name. A Locator binds it to the
// region holding its bytes, a loader materializes it into memory and
// sets its entry point, and a Runner transfers control to it. Platform
// and architecture specifics enter only through Hooks.
package prog

import (
	"fmt"

	"github.com/linuxboot/progload/pkg/cbfs"
	"github.com/linuxboot/progload/pkg/rdev"
)

// Type is the kind of boot program. It never changes after a Prog is
// created.
type Type int

const (
	Unknown Type = iota
	Bootblock
	Verstage
	Romstage
	Ramstage
	Refcode
	Payload
	BL31
	BL32
	Postcar
	OpenSBI
)

func (t Type) String() string {
	switch t {
	case Bootblock:
		return "bootblock"
	case Verstage:
		return "verstage"
	case Romstage:
		return "romstage"
	case Ramstage:
		return "ramstage"
	case Refcode:
		return "refcode"
	case Payload:
		return "payload"
	case BL31:
		return "bl31"
	case BL32:
		return "bl32"
	case Postcar:
		return "postcar"
	case OpenSBI:
		return "opensbi"
	}
	return "unknown"
}

// Prog describes one boot program.
//
// The backing region is the source of program content to load. After
// loading, it is rebound to the memory the program was placed in.
type Prog struct {
	typ      Type
	cbfsType cbfs.FileType
	name     string
	rdev     rdev.RegionDevice
	entry    uint64
	hasEntry bool
	arg      interface{}
}

// New returns a program of the given type and name, not yet located.
func New(t Type, name string) *Prog {
	return &Prog{typ: t, name: name}
}

func (p *Prog) Name() string {
	return p.name
}

func (p *Prog) Type() Type {
	return p.typ
}

// CBFSType is the file type the program was resolved from, when more
// than one blob kind can satisfy the same program type.
func (p *Prog) CBFSType() cbfs.FileType {
	return p.cbfsType
}

func (p *Prog) SetCBFSType(t cbfs.FileType) {
	p.cbfsType = t
}

// RDev returns the program's backing region, nil before a successful
// locate.
func (p *Prog) RDev() rdev.RegionDevice {
	return p.rdev
}

// SetRDev binds the program to rd, discarding any previous binding.
func (p *Prog) SetRDev(rd rdev.RegionDevice) {
	p.rdev = rd
}

// SetArea binds the program to size bytes of space starting at start,
// discarding any previous binding.
func (p *Prog) SetArea(space rdev.RegionDevice, start, size uint64) error {
	rd, err := rdev.Chain(space, start, size)
	if err != nil {
		return fmt.Errorf("set area of %s: %w", p, err)
	}
	p.rdev = rd
	return nil
}

// Size returns the backing region's size. Only valid for located or
// loaded programs.
func (p *Prog) Size() uint64 {
	if p.rdev == nil {
		return 0
	}
	return p.rdev.Size()
}

// Start maps the backing region. Only valid for located or loaded
// programs.
func (p *Prog) Start() ([]byte, error) {
	if p.rdev == nil {
		return nil, fmt.Errorf("%s is not located", p)
	}
	return p.rdev.Map()
}

// SetEntry records where control is transferred when the program runs,
// with an optional argument. It's up to the architecture to decide if
// the argument is passed.
func (p *Prog) SetEntry(entry uint64, arg interface{}) {
	p.entry = entry
	p.hasEntry = true
	p.arg = arg
}

func (p *Prog) SetArg(arg interface{}) {
	p.arg = arg
}

// Entry returns the program's entry point. It reports false until a
// load step has set one.
func (p *Prog) Entry() (uint64, bool) {
	return p.entry, p.hasEntry
}

func (p *Prog) Arg() interface{} {
	return p.arg
}

func (p *Prog) String() string {
	return fmt.Sprintf("%s %q", p.typ, p.name)
}
