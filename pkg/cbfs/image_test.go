// Copyright 2018-2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cbfs_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/linuxboot/progload/pkg/cbfs"
	"github.com/linuxboot/progload/pkg/cbfs/cbfstest"
)

func testROM(t *testing.T) []byte {
	t.Helper()
	return cbfstest.ROM(0x40000,
		cbfstest.File{
			Name: "fallback/romstage",
			Type: cbfs.TypeLegacyStage,
			Data: cbfstest.LegacyStage(cbfs.StageHeader{
				Compression: cbfs.None,
				Entry:       0x2000,
				LoadAddress: 0x2000,
				MemSize:     0x80,
			}, []byte("romstage-code")),
		},
		cbfstest.File{
			Name: "fallback/payload",
			Type: cbfs.TypeSELF,
			Data: cbfstest.Payload([]cbfstest.Seg{
				{Type: cbfs.SegCode, LoadAddress: 0x100000, MemSize: 4, Data: []byte("exec")},
				{Type: cbfs.SegEntry, LoadAddress: 0x100000},
			}),
		},
		cbfstest.File{
			Name: "config",
			Type: cbfs.TypeRaw,
			Data: []byte("CONFIG_PAYLOAD=y\n"),
		},
		cbfstest.File{
			Name: "fallback/bootblock",
			Type: cbfs.TypeBootBlock,
			Data: []byte{0xeb, 0xfe},
		},
	)
}

func TestReadImage(t *testing.T) {
	cbfs.Debug = t.Logf
	i, err := cbfs.NewImage(bytes.NewReader(testROM(t)))
	if err != nil {
		t.Fatal(err)
	}
	want := []struct {
		name string
		typ  cbfs.FileType
	}{
		{"cbfs master header", cbfs.TypeMaster},
		{"fallback/romstage", cbfs.TypeLegacyStage},
		{"fallback/payload", cbfs.TypeSELF},
		{"config", cbfs.TypeRaw},
		{"fallback/bootblock", cbfs.TypeBootBlock},
	}
	if len(i.Segs) != len(want) {
		t.Fatalf("got %d records, want %d:\n%s", len(i.Segs), len(want), i.String())
	}
	for n, w := range want {
		f := i.Segs[n].GetFile()
		if f.Name != w.name || f.Type != w.typ {
			t.Errorf("record %d: got %q/%v, want %q/%v", n, f.Name, f.Type, w.name, w.typ)
		}
	}
}

func TestBogusArchives(t *testing.T) {
	var tests = []struct {
		n    string
		r    io.ReadSeeker
		want string
	}{
		{"Short", bytes.NewReader([]byte("INUXARCHIV")), "cannot find FMAP signature"},
		{"Misaligned", bytes.NewReader([]byte("INUXARCHIVL")), "cannot find FMAP signature"},
	}

	for _, tc := range tests {
		t.Run(tc.n, func(t *testing.T) {
			_, err := cbfs.NewImage(tc.r)
			if err == nil {
				t.Errorf("got nil, want %v", tc.want)
				return
			}
			e := fmt.Sprintf("%v", err)
			if e != tc.want {
				t.Errorf("got %v, want %v", e, tc.want)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	i, err := cbfs.NewImage(bytes.NewReader(testROM(t)))
	if err != nil {
		t.Fatal(err)
	}
	r, ok := i.Lookup("fallback/romstage")
	if !ok {
		t.Fatal("fallback/romstage not found")
	}
	stage, ok := r.(*cbfs.LegacyStageRecord)
	if !ok {
		t.Fatalf("got %T, want *cbfs.LegacyStageRecord", r)
	}
	if stage.StageHeader.Entry != 0x2000 {
		t.Errorf("entry: got %#x, want 0x2000", stage.StageHeader.Entry)
	}
	if string(stage.Data) != "romstage-code" {
		t.Errorf("data: got %q", stage.Data)
	}

	if _, ok := i.Lookup("fallback/verstage"); ok {
		t.Error("lookup of absent file succeeded")
	}
	if _, ok := i.LookupType("fallback/romstage", cbfs.TypeSELF); ok {
		t.Error("lookup with wrong type succeeded")
	}
	if _, ok := i.LookupType("fallback/payload", cbfs.TypeSELF); !ok {
		t.Error("typed lookup of payload failed")
	}
}

func TestPayloadSegments(t *testing.T) {
	i, err := cbfs.NewImage(bytes.NewReader(testROM(t)))
	if err != nil {
		t.Fatal(err)
	}
	r, _ := i.Lookup("fallback/payload")
	p, ok := r.(*cbfs.PayloadRecord)
	if !ok {
		t.Fatalf("got %T, want *cbfs.PayloadRecord", r)
	}
	if len(p.Segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(p.Segs))
	}
	if p.Segs[0].Type != cbfs.SegCode || p.Segs[1].Type != cbfs.SegEntry {
		t.Errorf("segment types: %v, %v", p.Segs[0].Type, p.Segs[1].Type)
	}
	b, err := p.SegData(p.Segs[0])
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "exec" {
		t.Errorf("got %q, want %q", b, "exec")
	}

	bad := p.Segs[0]
	bad.Size = 1 << 30
	if _, err := p.SegData(bad); err == nil {
		t.Error("out of range segment read succeeded")
	}
}

func TestCompressionAttr(t *testing.T) {
	rom := cbfstest.ROM(0x10000,
		cbfstest.File{
			Name:  "compressed",
			Type:  cbfs.TypeRaw,
			Attrs: cbfstest.CompressionAttr(cbfs.LZ4, 123),
			Data:  []byte("not really compressed"),
		},
	)
	i, err := cbfs.NewImage(bytes.NewReader(rom))
	if err != nil {
		t.Fatal(err)
	}
	r, ok := i.Lookup("compressed")
	if !ok {
		t.Fatal("file not found")
	}
	f := r.GetFile()
	if f.Compression() != cbfs.LZ4 {
		t.Errorf("got %v, want lz4", f.Compression())
	}
	a, ok := f.CompressionAttr()
	if !ok || a.DecompressedSize != 123 {
		t.Errorf("attr: got %+v, ok=%v", a, ok)
	}
}

func TestStageAttr(t *testing.T) {
	rom := cbfstest.ROM(0x10000,
		cbfstest.File{
			Name:  "fallback/ramstage",
			Type:  cbfs.TypeStage,
			Attrs: cbfstest.StageAttr(0x400000, 0x40, 0x1000),
			Data:  []byte("ramstage-image"),
		},
	)
	i, err := cbfs.NewImage(bytes.NewReader(rom))
	if err != nil {
		t.Fatal(err)
	}
	r, _ := i.Lookup("fallback/ramstage")
	stage, ok := r.(*cbfs.StageRecord)
	if !ok {
		t.Fatalf("got %T, want *cbfs.StageRecord", r)
	}
	if stage.FileAttrStageHeader.LoadAddress != 0x400000 {
		t.Errorf("load address: got %#x", stage.FileAttrStageHeader.LoadAddress)
	}
	if stage.FileAttrStageHeader.EntryOffset != 0x40 {
		t.Errorf("entry offset: got %#x", stage.FileAttrStageHeader.EntryOffset)
	}
}

func TestStringer(t *testing.T) {
	i, err := cbfs.NewImage(bytes.NewReader(testROM(t)))
	if err != nil {
		t.Fatal(err)
	}
	s := i.String()
	if !strings.Contains(s, "fallback/romstage") {
		t.Errorf("listing misses romstage:\n%s", s)
	}
}

func TestMarshalJSON(t *testing.T) {
	i, err := cbfs.NewImage(bytes.NewReader(testROM(t)))
	if err != nil {
		t.Fatal(err)
	}
	j, err := json.Marshal(i)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(j), "fallback/payload") {
		t.Errorf("JSON misses payload: %s", j)
	}
}

func TestConflict(t *testing.T) {
	if err := cbfs.RegisterFileReader(&cbfs.SegReader{Type: cbfs.TypeMaster, Name: "CBFSRaw", New: nil}); err == nil {
		t.Fatalf("Registering conflicting entry for the master header, want error, got nil")
	}
}
