// Copyright 2018-2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cbfs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/linuxboot/progload/pkg/fmap"
)

// AreaName is the fmap area a CBFS lives in.
const AreaName = "COREBOOT"

// ErrNotFound is returned when a named file is not present in the image.
var ErrNotFound = errors.New("file not found in CBFS")

type SegReader struct {
	Type FileType
	New  func(f *File) (Record, error)
	Name string
}

var SegReaders = make(map[FileType]*SegReader)

func RegisterFileReader(f *SegReader) error {
	if r, ok := SegReaders[f.Type]; ok {
		return fmt.Errorf("RegisterFileType: Slot of %v is owned by %s, can't add %s", r.Type, r.Name, f.Name)
	}
	SegReaders[f.Type] = f
	Debug("Registered %v", f)
	return nil
}

// NewImage parses a full ROM image: it finds the fmap, locates the
// COREBOOT area and walks the CBFS records inside it. Unrecognized file
// types are kept as UnknownRecords rather than dropped, so the image
// listing always accounts for the whole area.
func NewImage(rs io.ReadSeeker) (*Image, error) {
	b, err := io.ReadAll(rs)
	if err != nil {
		return nil, fmt.Errorf("ReadAll: %v", err)
	}
	in := bytes.NewReader(b)
	f, m, err := fmap.Read(in)
	if err != nil {
		return nil, err
	}
	Debug("Fmap %v", f)
	var i = &Image{FMAP: f, FMAPMetadata: m, Data: b}
	for n, a := range f.Areas {
		Debug("Check %v", a.Name.String())
		if a.Name.String() == AreaName {
			i.Area = &f.Areas[n]
			break
		}
	}
	if i.Area == nil {
		return nil, fmt.Errorf("no CBFS in fmap")
	}
	r := io.NewSectionReader(in, int64(i.Area.Offset), int64(i.Area.Size))

	for off := int64(0); off < int64(i.Area.Size); {
		if _, err := r.Seek(off, io.SeekStart); err != nil {
			return nil, err
		}
		f, err := NewFile(r)
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			return i, nil
		}
		if err == CbfsHeaderMagicNotFound {
			// Free space between records, or trailing erased flash.
			off += 16
			continue
		}
		if err != nil {
			return nil, err
		}
		sr, ok := SegReaders[f.Type]
		if !ok {
			sr = &SegReader{Type: f.Type, Name: "CBFSUnknown", New: NewUnknownRecord}
		}
		Debug("Found a SegReader for this %d size section: %v", f.Size, f.Name)
		s, err := sr.New(f)
		if err != nil {
			return nil, err
		}
		if err := s.Read(bytes.NewReader(f.FData)); err != nil {
			return nil, fmt.Errorf("reading %#x byte subheader: %v", len(f.FData), err)
		}
		Debug("Segment was readable")
		i.Segs = append(i.Segs, s)
		end := int64(f.RecordStart + f.SubHeaderOffset + f.FileHeader.Size)
		// Force alignment.
		off = (end + 15) & (^15)
	}
	return i, nil
}

// Lookup returns the record with the given file name.
func (i *Image) Lookup(name string) (Record, bool) {
	for _, s := range i.Segs {
		if s.GetFile().Name == name {
			return s, true
		}
	}
	return nil, false
}

// LookupType returns the record with the given file name and type. It is
// for callers that must distinguish between same-named files of different
// kinds.
func (i *Image) LookupType(name string, t FileType) (Record, bool) {
	for _, s := range i.Segs {
		if s.GetFile().Name == name && s.GetFile().Type == t {
			return s, true
		}
	}
	return nil, false
}

type mImage struct {
	Segments []Record
}

func (i *Image) MarshalJSON() ([]byte, error) {
	return json.Marshal(mImage{Segments: i.Segs})
}

func (i *Image) String() string {
	var s = "FMAP REGIOName: COREBOOT\n"

	s += fmt.Sprintf("%-32s %-8s   %-24s %-8s   %-4s\n", "Name", "Offset", "Type", "Size", "Comp")
	for _, seg := range i.Segs {
		s = s + seg.String() + "\n"
	}
	return s
}

func (h *FileHeader) Deleted() bool {
	t := h.Type
	return t == TypeDeleted || t == TypeDeleted2
}
