// Copyright 2018-2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cbfs

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
)

func init() {
	if err := RegisterFileReader(&SegReader{Type: TypeSELF, Name: "Payload", New: NewPayloadRecord}); err != nil {
		log.Fatal(err)
	}
}

func NewPayloadRecord(f *File) (Record, error) {
	p := &PayloadRecord{File: *f}
	return p, nil
}

func (p *PayloadRecord) Read(in io.ReadSeeker) error {
	for {
		var h PayloadHeader
		if err := Read(in, &h); err != nil {
			Debug("PayloadHeader read: %v", err)
			return err
		}
		Debug("Got PayloadHeader %s", h.String())
		p.Segs = append(p.Segs, h)
		if h.Type == SegEntry {
			break
		}
	}
	// Segment Offset fields are relative to the start of the file data,
	// which FData holds in full; remember where the headers end.
	offset, err := in.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("finding location in stream: %v", err)
	}
	p.HdrSize = uint32(offset)
	return nil
}

// SegData returns the raw bytes of one segment, still compressed if the
// segment carries a compression scheme. Only code and data segments have
// bytes in the file; bss and entry segments do not.
func (p *PayloadRecord) SegData(h PayloadHeader) ([]byte, error) {
	if h.Size == 0 {
		return nil, nil
	}
	start := uint64(h.Offset)
	end := start + uint64(h.Size)
	if start < uint64(p.HdrSize) || end > uint64(len(p.FData)) {
		return nil, fmt.Errorf("segment [%#x, %#x) outside payload body [%#x, %#x)",
			start, end, p.HdrSize, len(p.FData))
	}
	return p.FData[start:end], nil
}

// struct for PayloadRecord marshalling
type mPayloadRecord struct {
	Name        string
	Start       uint32
	Size        uint32
	Type        string
	Segments    []PayloadHeader
	Compression string
}

func (r *PayloadRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(mPayloadRecord{
		Name:        r.Name,
		Start:       r.RecordStart,
		Size:        r.FileHeader.Size,
		Type:        r.FileHeader.Type.String(),
		Segments:    r.Segs,
		Compression: r.File.Compression().String(),
	})
}

func (r *PayloadRecord) String() string {
	s := recString(r.File.Name, r.RecordStart, r.Type.String(), r.Size, "none")
	for i, seg := range r.Segs {
		s += "\n"
		s += recString(fmt.Sprintf(" Seg #%d", i), seg.Offset, seg.Type.String(), seg.Size, seg.Compression.String())
	}
	return s
}

// struct for PayloadHeader marshalling
type mPayloadHeader struct {
	Type        string
	Compression string
	Offset      uint32
	LoadAddress uint64
	Size        uint32
	MemSize     uint32
}

func (h *PayloadHeader) MarshalJSON() ([]byte, error) {
	return json.Marshal(mPayloadHeader{
		Type:        h.Type.String(),
		Compression: h.Compression.String(),
		Offset:      h.Offset,
		LoadAddress: h.LoadAddress,
		Size:        h.Size,
		MemSize:     h.MemSize,
	})
}

func (h *PayloadHeader) String() string {
	return fmt.Sprintf("Type %#x Compression %#x Offset %#x LoadAddress %#x Size %#x MemSize %#x",
		h.Type,
		h.Compression,
		h.Offset,
		h.LoadAddress,
		h.Size,
		h.MemSize)
}

func (r *PayloadRecord) GetFile() *File {
	return &r.File
}
