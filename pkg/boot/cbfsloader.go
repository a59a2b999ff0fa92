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

// CBFSLoader resolves programs out of a CBFS image. It binds a located
// program to the file's data span inside the ROM device, so the program
// reads its bytes from flash, not from a copy.
type CBFSLoader struct {
	image *cbfs.Image
	rom   rdev.RegionDevice
}

// NewCBFSLoader returns a loader over image, which was parsed from rom.
func NewCBFSLoader(image *cbfs.Image, rom rdev.RegionDevice) *CBFSLoader {
	return &CBFSLoader{image: image, rom: rom}
}

// Name implements prog.Loader.
func (l *CBFSLoader) Name() string {
	return "CBFS"
}

// IsActive implements prog.Loader. CBFS is the active medium whenever an
// image is attached.
func (l *CBFSLoader) IsActive(p *prog.Prog) (bool, error) {
	return l.image != nil && l.rom != nil, nil
}

// Locate implements prog.Loader. The program's CBFS type, when set,
// selects among same-named files of different kinds.
func (l *CBFSLoader) Locate(p *prog.Prog) error {
	var (
		rec cbfs.Record
		ok  bool
	)
	if t := p.CBFSType(); t != cbfs.TypeDeleted {
		rec, ok = l.image.LookupType(p.Name(), t)
	} else {
		rec, ok = l.image.Lookup(p.Name())
	}
	if !ok {
		return fmt.Errorf("%q: %w", p.Name(), cbfs.ErrNotFound)
	}
	f := rec.GetFile()
	off, size := f.DataRange()
	if err := p.SetArea(l.rom, uint64(l.image.Area.Offset)+uint64(off), uint64(size)); err != nil {
		return err
	}
	p.SetCBFSType(f.Type)
	return nil
}
