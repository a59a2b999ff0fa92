// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package boot_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxboot/progload/pkg/boot"
	"github.com/linuxboot/progload/pkg/cbfs"
	"github.com/linuxboot/progload/pkg/cbfs/cbfstest"
	"github.com/linuxboot/progload/pkg/compression"
	"github.com/linuxboot/progload/pkg/prog"
	"github.com/linuxboot/progload/pkg/rdev"
)

type event struct {
	kind  string // "seg" or "run"
	name  string
	start uint64
	size  uint64
	final bool
}

type recorder struct {
	events []event
}

func (r *recorder) hooks() *prog.Hooks {
	return &prog.Hooks{
		PlatformSegmentLoaded: func(start, size uint64, flags int) {
			r.events = append(r.events, event{kind: "seg", start: start, size: size, final: flags&prog.SegFinal != 0})
		},
		ArchSegmentLoaded: func(start, size uint64, flags int) {},
		PlatformProgRun:   func(p *prog.Prog) {},
		ArchProgRun: func(p *prog.Prog) {
			r.events = append(r.events, event{kind: "run", name: p.Name()})
		},
	}
}

func (r *recorder) runs() []string {
	var names []string
	for _, e := range r.events {
		if e.kind == "run" {
			names = append(names, e.name)
		}
	}
	return names
}

var (
	romstageCode = bytes.Repeat([]byte{0x11}, 0x40)
	ramstageCode = bytes.Repeat([]byte{0x22}, 0x80)
	payloadCode  = bytes.Repeat([]byte{0x33}, 0x20)
)

func stageFiles(prefix string) []cbfstest.File {
	return []cbfstest.File{
		{
			Name: prefix + "/romstage",
			Type: cbfs.TypeLegacyStage,
			Data: cbfstest.LegacyStage(cbfs.StageHeader{
				Entry:       0x1000,
				LoadAddress: 0x1000,
				MemSize:     uint32(len(romstageCode)),
			}, romstageCode),
		},
		{
			Name:  prefix + "/ramstage",
			Type:  cbfs.TypeStage,
			Attrs: cbfstest.StageAttr(0x2000, 0x10, uint32(len(ramstageCode))),
			Data:  ramstageCode,
		},
		{
			Name: prefix + "/payload",
			Type: cbfs.TypeSELF,
			Data: cbfstest.Payload([]cbfstest.Seg{
				{Type: cbfs.SegCode, LoadAddress: 0x4000, Data: payloadCode},
				{Type: cbfs.SegBSS, LoadAddress: 0x4100, MemSize: 0x20},
				{Type: cbfs.SegEntry, LoadAddress: 0x4000},
			}),
		},
	}
}

func newFlow(t *testing.T, cfg boot.Config, files ...cbfstest.File) (*boot.Flow, *rdev.Mem) {
	t.Helper()
	rom := cbfstest.ROM(0x10000, files...)
	image, err := cbfs.NewImage(bytes.NewReader(rom))
	require.NoError(t, err)

	cfg.Image = image
	cfg.ROM = rdev.FromBytes(rom)
	if cfg.Mem == nil {
		cfg.Mem = rdev.NewMem(0x8000)
	}
	f, err := boot.NewFlow(cfg)
	require.NoError(t, err)
	return f, cfg.Mem
}

func TestBootSequence(t *testing.T) {
	rec := &recorder{}
	f, mem := newFlow(t, boot.Config{Hooks: rec.hooks()}, stageFiles("fallback")...)

	require.NoError(t, f.Boot())
	assert.Equal(t, []string{"fallback/romstage", "fallback/ramstage", "fallback/payload"}, rec.runs())

	b, _ := mem.Map()
	assert.Equal(t, romstageCode, b[0x1000:0x1000+len(romstageCode)])
	assert.Equal(t, ramstageCode, b[0x2000:0x2000+len(ramstageCode)])
	assert.Equal(t, payloadCode, b[0x4000:0x4000+len(payloadCode)])
	assert.Equal(t, make([]byte, 0x20), b[0x4100:0x4120])
}

func TestStageSegmentIsFinal(t *testing.T) {
	rec := &recorder{}
	f, _ := newFlow(t, boot.Config{Hooks: rec.hooks()}, stageFiles("fallback")...)

	require.NoError(t, f.RunRomstage())
	// A stage is one segment, loaded with the final flag in one call.
	require.Len(t, rec.events, 2)
	assert.Equal(t, event{kind: "seg", start: 0x1000, size: uint64(len(romstageCode)), final: true}, rec.events[0])
	assert.Equal(t, "run", rec.events[1].kind)
}

func TestNewStyleStageEntry(t *testing.T) {
	rec := &recorder{}
	f, _ := newFlow(t, boot.Config{Hooks: rec.hooks()}, stageFiles("fallback")...)

	require.NoError(t, f.RunRomstage())
	require.NoError(t, f.RunRamstage())
	// Entry is load address plus the attribute's entry offset; the run
	// event proves the entry point was accepted.
	assert.Contains(t, rec.runs(), "fallback/ramstage")
}

func TestCompressedStage(t *testing.T) {
	plain := bytes.Repeat([]byte("stage"), 100)
	packed, err := (&compression.LZ4{}).Encode(plain)
	require.NoError(t, err)

	rec := &recorder{}
	f, mem := newFlow(t, boot.Config{Hooks: rec.hooks()}, cbfstest.File{
		Name: "fallback/romstage",
		Type: cbfs.TypeLegacyStage,
		Data: cbfstest.LegacyStage(cbfs.StageHeader{
			Compression: cbfs.LZ4,
			Entry:       0x1000,
			LoadAddress: 0x1000,
			MemSize:     uint32(len(plain)),
		}, packed),
	})

	require.NoError(t, f.RunRomstage())
	b, _ := mem.Map()
	assert.Equal(t, plain, b[0x1000:0x1000+len(plain)])
}

func TestPrefixFallback(t *testing.T) {
	// Only the normal partition exists; fallback must be skipped and the
	// choice must stick for later stages.
	rec := &recorder{}
	f, _ := newFlow(t, boot.Config{Hooks: rec.hooks()}, stageFiles("normal")...)

	require.NoError(t, f.RunRomstage())
	require.NoError(t, f.RunRamstage())
	assert.Equal(t, []string{"normal/romstage", "normal/ramstage"}, rec.runs())
}

func TestPolicyDeniedIsFinal(t *testing.T) {
	// Both partitions carry a romstage, but a denial must not fall
	// through to the other prefix.
	rec := &recorder{}
	files := append(stageFiles("fallback"), stageFiles("normal")...)
	f, mem := newFlow(t, boot.Config{
		Hooks: rec.hooks(),
		Policy: func(t prog.Type, name string) bool {
			return t != prog.Romstage
		},
	}, files...)

	err := f.RunRomstage()
	require.ErrorIs(t, err, prog.ErrPolicyDenied)
	assert.Empty(t, rec.events)
	b, _ := mem.Map()
	assert.Equal(t, make([]byte, 0x8000), b)
}

func TestMissingStage(t *testing.T) {
	rec := &recorder{}
	f, _ := newFlow(t, boot.Config{Hooks: rec.hooks()}, stageFiles("fallback")[1:]...)

	err := f.RunRomstage()
	require.ErrorIs(t, err, cbfs.ErrNotFound)
	assert.Empty(t, rec.runs())
}

func TestRunPayloadBeforeLoad(t *testing.T) {
	rec := &recorder{}
	f, _ := newFlow(t, boot.Config{Hooks: rec.hooks()}, stageFiles("fallback")...)

	err := f.RunPayload()
	require.ErrorIs(t, err, prog.ErrInvalidEntryPoint)
}

func TestWrongTypeForPayload(t *testing.T) {
	rec := &recorder{}
	f, _ := newFlow(t, boot.Config{Hooks: rec.hooks()}, cbfstest.File{
		Name: "fallback/payload",
		Type: cbfs.TypeRaw,
		Data: []byte("not a payload"),
	})

	err := f.LoadPayload()
	require.Error(t, err)
	var le *prog.LoadError
	require.ErrorAs(t, err, &le)
	assert.Contains(t, err.Error(), "not a payload")
}

func TestLoadStageRejectsRaw(t *testing.T) {
	rec := &recorder{}
	rom := cbfstest.ROM(0x10000, cbfstest.File{
		Name: "config",
		Type: cbfs.TypeRaw,
		Data: []byte("x"),
	})
	image, err := cbfs.NewImage(bytes.NewReader(rom))
	require.NoError(t, err)
	r, ok := image.Lookup("config")
	require.True(t, ok)

	p := prog.New(prog.Romstage, "config")
	err = boot.LoadStage(p, r, rdev.NewMem(0x100), rec.hooks())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a stage")
}

func TestNewFlowValidation(t *testing.T) {
	_, err := boot.NewFlow(boot.Config{})
	require.Error(t, err)

	rec := &recorder{}
	rom := cbfstest.ROM(0x10000)
	image, err := cbfs.NewImage(bytes.NewReader(rom))
	require.NoError(t, err)

	_, err = boot.NewFlow(boot.Config{Image: image, ROM: rdev.FromBytes(rom), Mem: rdev.NewMem(0x100)})
	require.Error(t, err, "missing hooks must be refused")

	_, err = boot.NewFlow(boot.Config{Image: image, ROM: rdev.FromBytes(rom), Mem: rdev.NewMem(0x100), Hooks: rec.hooks()})
	require.NoError(t, err)
}
