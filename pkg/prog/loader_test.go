// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package prog_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxboot/progload/pkg/prog"
	"github.com/linuxboot/progload/pkg/rdev"
)

// fakeLoader records every call made to it.
type fakeLoader struct {
	name      string
	active    bool
	activeErr error
	locateErr error
	region    rdev.RegionDevice

	isActiveCalls int
	locateCalls   int
}

func (l *fakeLoader) Name() string {
	return l.name
}

func (l *fakeLoader) IsActive(p *prog.Prog) (bool, error) {
	l.isActiveCalls++
	return l.active, l.activeErr
}

func (l *fakeLoader) Locate(p *prog.Prog) error {
	l.locateCalls++
	if l.locateErr != nil {
		return l.locateErr
	}
	p.SetRDev(l.region)
	return nil
}

func TestLocateFirstActiveLoaderWins(t *testing.T) {
	region := rdev.FromBytes([]byte("payload-bytes"))
	a := &fakeLoader{name: "A", active: false}
	b := &fakeLoader{name: "B", active: true, region: region}
	l := prog.NewLocator(nil, a, b)

	p := prog.New(prog.Payload, "p")
	require.NoError(t, l.Locate(p))

	assert.Equal(t, 1, a.isActiveCalls)
	assert.Zero(t, a.locateCalls, "inactive loader's Locate must never be called")
	assert.Equal(t, 1, b.locateCalls)
	assert.Same(t, rdev.RegionDevice(region), p.RDev())
}

func TestLocatePolicyDenied(t *testing.T) {
	recorder := &fakeLoader{name: "CBFS", active: true}
	deny := func(typ prog.Type, name string) bool { return typ != prog.Verstage }
	l := prog.NewLocator(deny, recorder)

	p := prog.New(prog.Verstage, "fallback/verstage")
	err := l.Locate(p)
	require.ErrorIs(t, err, prog.ErrPolicyDenied)

	assert.Zero(t, recorder.isActiveCalls, "no loader may be consulted after a policy denial")
	assert.Zero(t, recorder.locateCalls)
	assert.Nil(t, p.RDev(), "no region may be set on a denied locate")

	allowed := prog.New(prog.Romstage, "fallback/romstage")
	require.NoError(t, l.Locate(allowed))
}

func TestLocateNoActiveLoader(t *testing.T) {
	a := &fakeLoader{name: "A", active: false}
	b := &fakeLoader{name: "B", active: false}
	l := prog.NewLocator(nil, a, b)

	p := prog.New(prog.Ramstage, "fallback/ramstage")
	err := l.Locate(p)
	require.ErrorIs(t, err, prog.ErrNoActiveLoader)
	assert.Nil(t, p.RDev())
	assert.Zero(t, a.locateCalls)
	assert.Zero(t, b.locateCalls)
}

func TestLocateNoLoadersAtAll(t *testing.T) {
	l := prog.NewLocator(nil)
	err := l.Locate(prog.New(prog.Payload, "p"))
	require.ErrorIs(t, err, prog.ErrNoActiveLoader)
}

func TestLocateIsActiveErrorsAreReported(t *testing.T) {
	broken := &fakeLoader{name: "flaky", activeErr: errors.New("SPI timeout")}
	l := prog.NewLocator(nil, broken)

	err := l.Locate(prog.New(prog.Payload, "p"))
	require.ErrorIs(t, err, prog.ErrNoActiveLoader)
	assert.Contains(t, err.Error(), "SPI timeout")
	assert.Contains(t, err.Error(), "flaky")
}

func TestLocateFailureIsAuthoritative(t *testing.T) {
	failing := &fakeLoader{name: "A", active: true, locateErr: errors.New("no such file")}
	fallback := &fakeLoader{name: "B", active: true, region: rdev.FromBytes([]byte("x"))}
	l := prog.NewLocator(nil, failing, fallback)

	p := prog.New(prog.Payload, "p")
	err := l.Locate(p)

	var le *prog.LocateError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "A", le.Loader)
	assert.Zero(t, fallback.locateCalls, "locate must not fall through past the active loader")
	assert.Nil(t, p.RDev(), "failed locate must leave the region unbound")
}

func TestLocateFailureKeepsPreviousRegion(t *testing.T) {
	region := rdev.FromBytes([]byte("old"))
	failing := &fakeLoader{name: "A", active: true, locateErr: errors.New("gone")}
	l := prog.NewLocator(nil, failing)

	p := prog.New(prog.Payload, "p")
	p.SetRDev(region)
	require.Error(t, l.Locate(p))
	assert.Same(t, rdev.RegionDevice(region), p.RDev(), "failed locate must not disturb an existing binding")
}

func TestTypeImmutable(t *testing.T) {
	p := prog.New(prog.Romstage, "fallback/romstage")
	p.SetEntry(0x1000, nil)
	p.SetArg("argv")
	p.SetRDev(rdev.FromBytes([]byte("data")))
	assert.Equal(t, prog.Romstage, p.Type())
	assert.Equal(t, "fallback/romstage", p.Name())
}

func TestProgAccessors(t *testing.T) {
	p := prog.New(prog.Payload, "fallback/payload")

	_, ok := p.Entry()
	assert.False(t, ok, "entry must be absent before load")
	assert.Zero(t, p.Size())
	_, err := p.Start()
	assert.Error(t, err)

	mem := rdev.NewMem(0x1000)
	require.NoError(t, p.SetArea(mem, 0x100, 0x80))
	assert.EqualValues(t, 0x80, p.Size())

	require.Error(t, p.SetArea(mem, 0x1000, 1), "area past the device must be refused")

	p.SetEntry(0x100, "cmdline")
	entry, ok := p.Entry()
	require.True(t, ok)
	assert.EqualValues(t, 0x100, entry)
	assert.Equal(t, "cmdline", p.Arg())
}
