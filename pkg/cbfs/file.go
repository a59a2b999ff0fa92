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
)

var CbfsHeaderMagicNotFound = errors.New("CBFS header magic doesn't match")

type mFile struct {
	Name        string
	Start       uint32
	Size        uint32
	Type        string
	Compression string
}

func (f *File) MarshalJSON() ([]byte, error) {
	return json.Marshal(mFile{
		Name:        f.Name,
		Start:       f.RecordStart,
		Size:        f.FileHeader.Size,
		Type:        f.FileHeader.Type.String(),
		Compression: f.Compression().String(),
	})
}

// NewFile reads in the CBFS file at current offset
// On success it seeks to the end of the file.
// On error the current offset within the ReadSeeker is undefined.
func NewFile(r io.ReadSeeker) (*File, error) {
	var f File
	off, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	f.RecordStart = uint32(off)

	err = Read(r, &f.FileHeader)
	if err != nil {
		return nil, err
	}
	if string(f.Magic[:]) != FileMagic {
		return nil, CbfsHeaderMagicNotFound
	}
	Debug("It is %v type %v", f, f.Type)

	Debug("Starting at %#02x", f.RecordStart)
	nameStart, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("Getting file offset for name: %v", err)
	}

	var nameSize uint32
	if f.AttrOffset == 0 {
		nameSize = f.SubHeaderOffset - (uint32(nameStart) - f.RecordStart)
	} else {
		nameSize = f.AttrOffset - (uint32(nameStart) - f.RecordStart)
	}
	if err := ReadName(r, &f, nameSize); err != nil {
		return nil, err
	}
	if err := ReadAttributes(r, &f); err != nil {
		return nil, err
	}
	if err := ReadData(r, &f); err != nil {
		return nil, err
	}

	return &f, nil
}

// ReadName reads the file name that follows the fixed CBFS file header.
func ReadName(r io.Reader, f *File, size uint32) error {
	b := make([]byte, size)
	n, err := r.Read(b)
	if err != nil {
		Debug("ReadName failed:%v", err)
		return err
	}
	fname := cleanString(string(b))
	Debug("ReadName gets '%s' (%#02x)", fname, b)
	if n != len(b) {
		err = fmt.Errorf("ReadName: got %d, want %d for name", n, len(b))
		Debug("ReadName short: %v", err)
		return err
	}
	// discard trailing NULLs
	z := bytes.Split(b, []byte{0})
	Debug("ReadName stripped: '%s'", z)
	f.Name = string(z[0])
	return nil
}

// ReadAttributes reads the raw extended attribute bytes, if any.
func ReadAttributes(r io.Reader, f *File) error {
	if f.AttrOffset == 0 {
		return nil
	}

	b := make([]byte, f.SubHeaderOffset-f.AttrOffset)
	n, err := r.Read(b)
	if err != nil {
		Debug("ReadAttributes failed:%v", err)
		return err
	}
	Debug("ReadAttributes gets %#02x", b)
	if n != len(b) {
		err = fmt.Errorf("ReadAttributes: got %d, want %d for attributes", n, len(b))
		Debug("ReadAttributes short: %v", err)
		return err
	}
	f.Attr = b
	return nil
}

// ReadData reads the file data.
func ReadData(r io.ReadSeeker, f *File) error {
	Debug("ReadData: Seek to %#x", int64(f.RecordStart+f.SubHeaderOffset))
	if _, err := r.Seek(int64(f.RecordStart+f.SubHeaderOffset), io.SeekStart); err != nil {
		return err
	}
	Debug("ReadData: read %#x", f.Size)
	b := make([]byte, f.Size)
	n, err := r.Read(b)
	if err != nil {
		Debug("ReadData failed:%v", err)
		return err
	}
	f.FData = b
	Debug("ReadData gets %#02x", n)
	return nil
}

// DataRange returns the span of the file's data, relative to the start of
// the CBFS area the file was read from.
func (f *File) DataRange() (offset, size uint32) {
	return f.RecordStart + f.SubHeaderOffset, f.FileHeader.Size
}

// attr walks the raw attribute bytes and returns the attribute with the
// given tag.
func (f *File) attr(tag Tag) ([]byte, bool) {
	b := f.Attr
	for len(b) >= 8 {
		t := Tag(Endian.Uint32(b))
		sz := Endian.Uint32(b[4:])
		if sz < 8 || uint32(len(b)) < sz {
			break
		}
		if t == tag {
			return b[:sz], true
		}
		b = b[sz:]
	}
	return nil, false
}

// CompressionAttr returns the file's compression attribute, if present.
func (f *File) CompressionAttr() (FileAttrCompression, bool) {
	var a FileAttrCompression
	b, ok := f.attr(Compressed)
	if !ok || uint32(len(b)) < 16 {
		return a, false
	}
	if err := Read(bytes.NewReader(b), &a); err != nil {
		return a, false
	}
	return a, true
}

// Compression returns the compression scheme the file's data is stored
// with. Files without a compression attribute are stored raw.
func (f *File) Compression() Compression {
	a, ok := f.CompressionAttr()
	if !ok {
		return None
	}
	return a.Compression
}

// StageAttr returns the file's stage header attribute, if present. Only
// new-style stages carry one.
func (f *File) StageAttr() (FileAttrStageHeader, bool) {
	var a FileAttrStageHeader
	b, ok := f.attr(SHCB)
	if !ok || uint32(len(b)) < 24 {
		return a, false
	}
	if err := Read(bytes.NewReader(b), &a); err != nil {
		return a, false
	}
	return a, true
}
