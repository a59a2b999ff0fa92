// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package prog

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Loader resolves program content for one boot medium. Loaders own no
// mutable state; the Locator asks each in turn.
type Loader interface {
	Name() string

	// IsActive reports whether this loader serves the current boot
	// medium and state.
	IsActive(p *Prog) (bool, error)

	// Locate finds the file data for p and binds p's backing region to
	// it. On failure p must be left unchanged.
	Locate(p *Prog) error
}

// LocateHook inspects a program before any loader is consulted. Only the
// type and name are populated at that point. Returning false prohibits
// further progress, so surrounding policy (verified boot, for one) can
// veto a program before any I/O happens.
type LocateHook func(t Type, name string) bool

// Locator resolves programs to their backing regions by trying loaders
// in registration order.
type Locator struct {
	hook    LocateHook
	loaders []Loader
}

// NewLocator returns a Locator consulting hook first and then the given
// loaders, in order. A nil hook allows everything.
func NewLocator(hook LocateHook, loaders ...Loader) *Locator {
	return &Locator{hook: hook, loaders: loaders}
}

// Locate binds p to the region holding its bytes.
//
// The first loader whose IsActive reports true is authoritative: its
// Locate result is final and later loaders are not consulted. Boot
// media don't overlap, so a program absent from the active medium is
// absent, full stop.
func (l *Locator) Locate(p *Prog) error {
	if l.hook != nil && !l.hook(p.Type(), p.Name()) {
		return fmt.Errorf("locate %s: %w", p, ErrPolicyDenied)
	}

	var errs *multierror.Error
	for _, ld := range l.loaders {
		active, err := ld.IsActive(p)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", ld.Name(), err))
			continue
		}
		if !active {
			continue
		}
		if err := ld.Locate(p); err != nil {
			return &LocateError{Loader: ld.Name(), Prog: p.Name(), Err: err}
		}
		return nil
	}
	if err := errs.ErrorOrNil(); err != nil {
		return fmt.Errorf("locate %s: %w: %v", p, ErrNoActiveLoader, err)
	}
	return fmt.Errorf("locate %s: %w", p, ErrNoActiveLoader)
}
