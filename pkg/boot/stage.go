// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package boot

import (
	"fmt"

	"github.com/linuxboot/progload/pkg/cbfs"
	"github.com/linuxboot/progload/pkg/prog"
	"github.com/linuxboot/progload/pkg/rdev"
)

// LoadStage materializes a located stage into memory and sets the
// program's entry point. A stage is a single segment, so the
// segment-loaded hooks fire exactly once, with the final flag set.
//
// Both stage encodings are handled: the legacy one with a little-endian
// sub-header in front of the data, and the new-style one whose load
// information lives in a file attribute.
func LoadStage(p *prog.Prog, rec cbfs.Record, mem *rdev.Mem, hooks *prog.Hooks) error {
	if err := hooks.Validate(); err != nil {
		return &prog.LoadError{Prog: p.Name(), Err: err}
	}
	switch r := rec.(type) {
	case *cbfs.LegacyStageRecord:
		data := r.Data
		if c, err := r.StageHeader.Compression.Compressor(); err != nil {
			return &prog.LoadError{Prog: p.Name(), Err: err}
		} else if c != nil {
			if data, err = c.Decode(data); err != nil {
				return &prog.LoadError{Prog: p.Name(), Err: fmt.Errorf("%s: %w", c.Name(), err)}
			}
		}
		return placeStage(p, mem, hooks, r.StageHeader.LoadAddress, uint64(r.StageHeader.MemSize), r.StageHeader.Entry, data)

	case *cbfs.StageRecord:
		a := r.FileAttrStageHeader
		if a.Tag != cbfs.SHCB {
			return &prog.LoadError{Prog: p.Name(), Err: fmt.Errorf("stage has no stage header attribute")}
		}
		data, err := r.File.Decompress()
		if err != nil {
			return &prog.LoadError{Prog: p.Name(), Err: err}
		}
		return placeStage(p, mem, hooks, a.LoadAddress, uint64(a.MemSize), a.LoadAddress+uint64(a.EntryOffset), data)

	default:
		return &prog.LoadError{Prog: p.Name(), Err: fmt.Errorf("%v file is not a stage", rec.GetFile().Type)}
	}
}

func placeStage(p *prog.Prog, mem *rdev.Mem, hooks *prog.Hooks, load, memSize, entry uint64, data []byte) error {
	size := uint64(len(data))
	if memSize > size {
		size = memSize
	}
	end := load + size
	if end < load || end > mem.Size() {
		return &prog.LoadError{Prog: p.Name(), Err: fmt.Errorf("stage [%#x, %#x) outside %#x byte memory", load, end, mem.Size())}
	}
	if _, err := mem.WriteAt(data, int64(load)); err != nil {
		return &prog.LoadError{Prog: p.Name(), Err: err}
	}
	if tail := size - uint64(len(data)); tail > 0 {
		if _, err := mem.WriteAt(make([]byte, tail), int64(load)+int64(len(data))); err != nil {
			return &prog.LoadError{Prog: p.Name(), Err: err}
		}
	}
	hooks.SegmentLoaded(load, size, prog.SegFinal)

	if err := p.SetArea(mem, load, size); err != nil {
		return &prog.LoadError{Prog: p.Name(), Err: err}
	}
	p.SetEntry(entry, nil)
	return nil
}
