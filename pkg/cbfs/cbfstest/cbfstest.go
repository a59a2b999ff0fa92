// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cbfstest assembles small CBFS images in memory. The package
// under test only ever reads images, so the write half of the format
// lives here, for tests and tooling that need a ROM to chew on.
package cbfstest

import (
	"bytes"
	"encoding/binary"

	"github.com/linuxboot/progload/pkg/cbfs"
	"github.com/linuxboot/progload/pkg/fmap"
)

// AreaOffset is where the COREBOOT area starts inside a built ROM.
const AreaOffset = 0x2000

const fmapOffset = 0x1000

// File describes one CBFS record to place in a built image.
type File struct {
	Name string
	Type cbfs.FileType
	// Attrs holds serialized extended attributes, typically from
	// CompressionAttr or StageAttr.
	Attrs []byte
	// Data holds the file data including any sub-header, typically from
	// LegacyStage or Payload.
	Data []byte
}

// Seg describes one SELF segment for Payload.
type Seg struct {
	Type        cbfs.SegmentType
	Compression cbfs.Compression
	LoadAddress uint64
	MemSize     uint32
	// Data is the segment's file content, already compressed if
	// Compression says so. Entry and bss segments carry none.
	Data []byte
}

// LegacyStage serializes a legacy stage sub-header followed by the stage
// data.
func LegacyStage(h cbfs.StageHeader, data []byte) []byte {
	h.Size = uint32(len(data))
	b := &bytes.Buffer{}
	if err := binary.Write(b, binary.LittleEndian, h); err != nil {
		panic(err)
	}
	b.Write(data)
	return b.Bytes()
}

// Payload serializes SELF segment headers followed by the segment bytes.
// Offsets are computed here; callers only describe the segments.
func Payload(segs []Seg) []byte {
	hdrLen := uint32(len(segs)) * 28
	var body bytes.Buffer
	hdrs := make([]cbfs.PayloadHeader, len(segs))
	for i, s := range segs {
		hdrs[i] = cbfs.PayloadHeader{
			Type:        s.Type,
			Compression: s.Compression,
			LoadAddress: s.LoadAddress,
			MemSize:     s.MemSize,
		}
		if len(s.Data) > 0 {
			hdrs[i].Offset = hdrLen + uint32(body.Len())
			hdrs[i].Size = uint32(len(s.Data))
			body.Write(s.Data)
		}
	}
	b := &bytes.Buffer{}
	for _, h := range hdrs {
		if err := binary.Write(b, cbfs.Endian, h); err != nil {
			panic(err)
		}
	}
	b.Write(body.Bytes())
	return b.Bytes()
}

// CompressionAttr serializes a compression attribute.
func CompressionAttr(c cbfs.Compression, decompressedSize uint32) []byte {
	b := &bytes.Buffer{}
	a := cbfs.FileAttrCompression{
		Tag:              cbfs.Compressed,
		Size:             16,
		Compression:      c,
		DecompressedSize: decompressedSize,
	}
	if err := binary.Write(b, cbfs.Endian, a); err != nil {
		panic(err)
	}
	return b.Bytes()
}

// StageAttr serializes a new-style stage header attribute.
func StageAttr(loadAddress uint64, entryOffset, memSize uint32) []byte {
	b := &bytes.Buffer{}
	a := cbfs.FileAttrStageHeader{
		Tag:         cbfs.SHCB,
		Size:        24,
		LoadAddress: loadAddress,
		EntryOffset: entryOffset,
		MemSize:     memSize,
	}
	if err := binary.Write(b, cbfs.Endian, a); err != nil {
		panic(err)
	}
	return b.Bytes()
}

// ROM builds a flash image of the given size: an fmap with a COREBOOT
// area, a master header record, then the given files in order.
func ROM(romSize uint32, files ...File) []byte {
	rom := bytes.Repeat([]byte{0xff}, int(romSize))

	writeFMap(rom, romSize)

	area := rom[AreaOffset:]
	off := uint32(0)

	master := &bytes.Buffer{}
	if err := binary.Write(master, cbfs.Endian, cbfs.MasterHeader{
		Magic:         cbfs.HeaderMagic,
		Version:       cbfs.HeaderVersion,
		RomSize:       romSize,
		Align:         cbfs.Alignment,
		Offset:        AreaOffset,
		Architecture:  cbfs.X86,
		BootBlockSize: 0,
	}); err != nil {
		panic(err)
	}
	all := append([]File{{
		Name: "cbfs master header",
		Type: cbfs.TypeMaster,
		Data: master.Bytes(),
	}}, files...)

	for _, f := range all {
		off = writeFile(area, off, f)
	}
	return rom
}

func writeFMap(rom []byte, romSize uint32) {
	var m fmap.FMap
	copy(m.Signature[:], fmap.Signature)
	m.VerMajor = 1
	m.Size = romSize
	copy(m.Name.Value[:], "FLASH")
	m.NAreas = 2

	areas := []fmap.Area{
		{Offset: fmapOffset, Size: 0x1000},
		{Offset: AreaOffset, Size: romSize - AreaOffset},
	}
	copy(areas[0].Name.Value[:], "FMAP")
	copy(areas[1].Name.Value[:], cbfs.AreaName)

	b := &bytes.Buffer{}
	if err := binary.Write(b, binary.LittleEndian, m.Header); err != nil {
		panic(err)
	}
	if err := binary.Write(b, binary.LittleEndian, areas); err != nil {
		panic(err)
	}
	copy(rom[fmapOffset:], b.Bytes())
}

func writeFile(area []byte, off uint32, f File) uint32 {
	// Name is NUL terminated and padded so the sub-header lands on a
	// 16-byte boundary relative to the record.
	nameLen := uint32(len(f.Name)) + 1
	for (cbfs.FileSize+nameLen)%16 != 0 {
		nameLen++
	}
	h := cbfs.FileHeader{
		Size:            uint32(len(f.Data)),
		Type:            f.Type,
		SubHeaderOffset: cbfs.FileSize + nameLen + uint32(len(f.Attrs)),
	}
	copy(h.Magic[:], cbfs.FileMagic)
	if len(f.Attrs) > 0 {
		h.AttrOffset = cbfs.FileSize + nameLen
	}

	b := &bytes.Buffer{}
	if err := binary.Write(b, cbfs.Endian, h); err != nil {
		panic(err)
	}
	name := make([]byte, nameLen)
	copy(name, f.Name)
	b.Write(name)
	b.Write(f.Attrs)
	b.Write(f.Data)

	copy(area[off:], b.Bytes())
	end := off + uint32(b.Len())
	return (end + 15) &^ 15
}
