// Copyright 2017-2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fmap parses flash maps.
//
// The flash map ("__FMAP__") partitions a ROM image into named areas.
// Program loading only ever reads the map: it needs the area holding the
// CBFS to resolve programs out of, so the write paths of a full flash
// tool are not implemented here.
package fmap

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Signature of the fmap structure.
var Signature = []byte("__FMAP__")

// Flags which can be applied to Area.Flags.
const (
	FmapAreaStatic = 1 << iota
	FmapAreaCompressed
	FmapAreaReadOnly
)

// String wraps around byte array to give us more control over how strings
// are serialized.
type String struct {
	Value [32]uint8
}

func (s *String) String() string {
	return strings.TrimRight(string(s.Value[:]), "\x00")
}

// FMap structure serializable using encoding.Binary.
type FMap struct {
	Header
	Areas []Area
}

// Header describes the flash part.
type Header struct {
	Signature [8]uint8
	VerMajor  uint8
	VerMinor  uint8
	Base      uint64
	Size      uint32
	Name      String
	NAreas    uint16
}

// Area describes each area.
type Area struct {
	Offset uint32
	Size   uint32
	Name   String
	Flags  uint16
}

// Metadata contains additional data not part of the FMap.
type Metadata struct {
	Start uint64
}

func headerValid(h *Header) bool {
	if h.VerMajor != 1 {
		return false
	}
	// Check if some sensible value is used for the full flash size
	if h.Size == 0 {
		return false
	}

	// Name is specified to be null terminated single-word string without spaces
	return bytes.Contains(h.Name.Value[:], []byte("\x00"))
}

// FlagNames returns human readable representation of the flags.
func FlagNames(flags uint16) string {
	names := []string{}
	m := []struct {
		val  uint16
		name string
	}{
		{FmapAreaStatic, "STATIC"},
		{FmapAreaCompressed, "COMPRESSED"},
		{FmapAreaReadOnly, "READ_ONLY"},
	}
	for _, v := range m {
		if v.val&flags != 0 {
			names = append(names, v.name)
			flags -= v.val
		}
	}
	// Write a hex value for unknown flags.
	if flags != 0 || len(names) == 0 {
		names = append(names, fmt.Sprintf("%#x", flags))
	}
	return strings.Join(names, "|")
}

func readField(r io.Reader, data interface{}) error {
	// The flash map is stored little-endian regardless of the host.
	if err := binary.Read(r, binary.LittleEndian, data); err != nil {
		return errEOF
	}
	return nil
}

var errEOF = errors.New("unexpected EOF while parsing fmap")
var errSigNotFound = errors.New("cannot find FMAP signature")
var errMultipleFound = errors.New("found multiple fmap")

// Read an FMap into the data structure.
func Read(f io.Reader) (*FMap, *Metadata, error) {
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, err
	}

	// Loop over __FMAP__ occurrences until a valid header is found
	start := 0
	validFmaps := 0
	var fmap FMap
	var fmapMetadata Metadata
	for {
		if start >= len(data) {
			break
		}

		next := bytes.Index(data[start:], Signature)
		if next == -1 {
			break
		}
		start += next

		// Reader anchored to the start of the fmap
		r := bytes.NewReader(data[start:])

		// Read fields.
		var testFmap FMap
		if err := readField(r, &testFmap.Header); err != nil {
			return nil, nil, err
		}
		if !headerValid(&testFmap.Header) {
			start += len(Signature)
			continue
		}
		fmap = testFmap
		validFmaps++

		fmap.Areas = make([]Area, fmap.NAreas)
		if err := readField(r, &fmap.Areas); err != nil {
			return nil, nil, err
		}
		fmapMetadata = Metadata{
			Start: uint64(start),
		}
		start += len(Signature)
	}
	if validFmaps >= 2 {
		return nil, nil, errMultipleFound
	} else if validFmaps == 1 {
		return &fmap, &fmapMetadata, nil
	}
	return nil, nil, errSigNotFound
}

// IndexOfArea returns the index of an area in the fmap given its name. If
// no names match, -1 is returned.
func (f *FMap) IndexOfArea(name string) int {
	for i := 0; i < len(f.Areas); i++ {
		if f.Areas[i].Name.String() == name {
			return i
		}
	}
	return -1
}

// AreaByName returns the area with the given name.
func (f *FMap) AreaByName(name string) (*Area, error) {
	i := f.IndexOfArea(name)
	if i == -1 {
		return nil, fmt.Errorf("FMAP area %q not found", name)
	}
	return &f.Areas[i], nil
}

// ReadArea reads an area from the flash image as a byte array given its
// index.
func (f *FMap) ReadArea(r io.ReaderAt, i int) ([]byte, error) {
	if i < 0 || int(f.NAreas) <= i {
		return nil, fmt.Errorf("area index %d out of range", i)
	}
	buf := make([]byte, f.Areas[i].Size)
	_, err := r.ReadAt(buf, int64(f.Areas[i].Offset))
	return buf, err
}

// ReadAreaByName is the same as ReadArea but uses the area's name.
func (f *FMap) ReadAreaByName(r io.ReaderAt, name string) ([]byte, error) {
	i := f.IndexOfArea(name)
	if i == -1 {
		return nil, fmt.Errorf("FMAP area %q not found", name)
	}
	return f.ReadArea(r, i)
}
