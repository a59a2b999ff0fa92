// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package selfboot loads SELF payloads into memory.
//
// A SELF payload is a list of segments: code and data segments carry
// (possibly compressed) bytes and a load address, bss segments only a
// range to clear, and the entry segment names where control starts. All
// segments are validated before any byte is placed, so a bad payload
// never leaves memory half written.
package selfboot

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/linuxboot/progload/pkg/cbfs"
	"github.com/linuxboot/progload/pkg/log"
	"github.com/linuxboot/progload/pkg/prog"
	"github.com/linuxboot/progload/pkg/rdev"
)

// RangeCheck vetoes load destinations. Targets outside usable RAM (the
// firmware's own tables, MMIO holes) must be refused before the copy
// tramples them. A nil check admits the whole address space.
type RangeCheck func(start, size uint64) error

// segment is one materialization step derived from a payload header.
type segment struct {
	start uint64
	size  uint64
	data  []byte // nil for bss
}

// Load places the payload rec into mem, fires the segment-loaded hooks
// for every placed segment and sets p's entry point. On success p's
// backing region is rebound from the file bytes to the loaded extent.
func Load(p *prog.Prog, rec *cbfs.PayloadRecord, mem *rdev.Mem, hooks *prog.Hooks, check RangeCheck) error {
	if err := hooks.Validate(); err != nil {
		return &prog.LoadError{Prog: p.Name(), Err: err}
	}

	segs, entry, arg, err := plan(rec, mem.Size(), check)
	if err != nil {
		return &prog.LoadError{Prog: p.Name(), Err: err}
	}

	lo, hi := segs[0].start, segs[0].start+segs[0].size
	for n, s := range segs {
		if err := place(mem, s); err != nil {
			return &prog.LoadError{Prog: p.Name(), Err: err}
		}
		flags := 0
		if n == len(segs)-1 {
			flags |= prog.SegFinal
		}
		hooks.SegmentLoaded(s.start, s.size, flags)
		log.Infof("%s: segment %d at %#x, %#x bytes", p, n, s.start, s.size)
		if s.start < lo {
			lo = s.start
		}
		if s.start+s.size > hi {
			hi = s.start + s.size
		}
	}

	if err := p.SetArea(mem, lo, hi-lo); err != nil {
		return &prog.LoadError{Prog: p.Name(), Err: err}
	}
	p.SetEntry(entry, arg)
	return nil
}

// plan turns the payload headers into materialization steps, validating
// everything up front. All problems are reported at once.
func plan(rec *cbfs.PayloadRecord, memSize uint64, check RangeCheck) ([]segment, uint64, interface{}, error) {
	var (
		segs     []segment
		entry    uint64
		hasEntry bool
		arg      interface{}
		errs     *multierror.Error
	)

	for n, h := range rec.Segs {
		switch h.Type {
		case cbfs.SegCode, cbfs.SegData:
			data, err := rec.SegData(h)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("segment %d: %w", n, err))
				continue
			}
			if c, err := h.Compression.Compressor(); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("segment %d: %w", n, err))
				continue
			} else if c != nil {
				if data, err = c.Decode(data); err != nil {
					errs = multierror.Append(errs, fmt.Errorf("segment %d: %s: %w", n, c.Name(), err))
					continue
				}
			}
			size := uint64(len(data))
			if uint64(h.MemSize) > size {
				size = uint64(h.MemSize)
			}
			segs = append(segs, segment{start: h.LoadAddress, size: size, data: data})

		case cbfs.SegBSS:
			segs = append(segs, segment{start: h.LoadAddress, size: uint64(h.MemSize)})

		case cbfs.SegParams:
			if data, err := rec.SegData(h); err == nil && len(data) > 0 {
				arg = data
			}

		case cbfs.SegEntry:
			entry = h.LoadAddress
			hasEntry = true

		default:
			errs = multierror.Append(errs, fmt.Errorf("segment %d: unknown type %#x", n, uint32(h.Type)))
		}
	}

	if !hasEntry {
		errs = multierror.Append(errs, fmt.Errorf("payload has no entry segment"))
	}
	if len(segs) == 0 {
		errs = multierror.Append(errs, fmt.Errorf("payload has no loadable segment"))
	}

	for n, s := range segs {
		end := s.start + s.size
		if end < s.start || end > memSize {
			errs = multierror.Append(errs, fmt.Errorf("segment %d: [%#x, %#x) outside %#x byte memory", n, s.start, end, memSize))
			continue
		}
		if check != nil {
			if err := check(s.start, s.size); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("segment %d: %w", n, err))
			}
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, 0, nil, err
	}
	return segs, entry, arg, nil
}

// place copies a segment's bytes into memory, clearing the tail that
// has no file content (bss, or memsz larger than filesz).
func place(mem *rdev.Mem, s segment) error {
	if len(s.data) > 0 {
		if _, err := mem.WriteAt(s.data, int64(s.start)); err != nil {
			return err
		}
	}
	if tail := s.size - uint64(len(s.data)); tail > 0 {
		if _, err := mem.WriteAt(make([]byte, tail), int64(s.start)+int64(len(s.data))); err != nil {
			return err
		}
	}
	return nil
}
