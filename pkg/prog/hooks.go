// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package prog

import (
	"github.com/hashicorp/go-multierror"
)

const (
	// SegFinal marks the last segment of a program load. Hooks can use
	// it to defer expensive cache maintenance until the whole program
	// is in place.
	SegFinal = 1 << 0
)

// Hooks are the platform (SoC/chipset) and architecture extension
// points of the load and run steps. On real firmware these resolve at
// link time per target; here they are injected, and every field is
// required — Validate refuses a partial set.
type Hooks struct {
	// PlatformSegmentLoaded and ArchSegmentLoaded are called, in that
	// order, for each segment of a program loaded. The platform goes
	// first so memory-type setup for a range precedes the architecture
	// cache maintenance touching the same range.
	PlatformSegmentLoaded func(start, size uint64, flags int)
	ArchSegmentLoaded     func(start, size uint64, flags int)

	// PlatformProgRun is called right before control moves to a
	// program, for anything special the platform needs beyond the
	// architecture code.
	PlatformProgRun func(p *Prog)

	// ArchProgRun transfers control to the program. For terminal
	// program types it does not return.
	ArchProgRun func(p *Prog)
}

// Validate reports the missing hooks, all of them at once.
func (h *Hooks) Validate() error {
	var errs *multierror.Error
	for _, m := range []struct {
		name string
		set  bool
	}{
		{"PlatformSegmentLoaded", h.PlatformSegmentLoaded != nil},
		{"ArchSegmentLoaded", h.ArchSegmentLoaded != nil},
		{"PlatformProgRun", h.PlatformProgRun != nil},
		{"ArchProgRun", h.ArchProgRun != nil},
	} {
		if !m.set {
			errs = multierror.Append(errs, &MissingHookError{Hook: m.name})
		}
	}
	return errs.ErrorOrNil()
}

// SegmentLoaded performs the proper dispatch sequence for one loaded
// segment. Rely on it rather than calling the two hooks directly.
func (h *Hooks) SegmentLoaded(start, size uint64, flags int) {
	h.PlatformSegmentLoaded(start, size, flags)
	h.ArchSegmentLoaded(start, size, flags)
}

// MissingHookError reports a required hook left unset.
type MissingHookError struct {
	Hook string
}

func (e *MissingHookError) Error() string {
	return "required hook " + e.Hook + " is not set"
}
