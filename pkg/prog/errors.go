// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package prog

import (
	"errors"
	"fmt"
)

var (
	// ErrPolicyDenied means the locate hook vetoed resolution before
	// any loader was consulted.
	ErrPolicyDenied = errors.New("denied by locate policy")

	// ErrNoActiveLoader means no registered loader claimed the current
	// boot medium. A caller that requires the program treats this as
	// fatal to the boot flow.
	ErrNoActiveLoader = errors.New("no active program loader")

	// ErrInvalidEntryPoint means Run was called on a program that was
	// never loaded. This is a contract violation, not a boot-medium
	// condition, and callers halt on it.
	ErrInvalidEntryPoint = errors.New("program has no entry point")
)

// LocateError reports that the active loader failed to find a program.
type LocateError struct {
	Loader string
	Prog   string
	Err    error
}

func (e *LocateError) Error() string {
	return fmt.Sprintf("loader %s: locate %q: %v", e.Loader, e.Prog, e.Err)
}

func (e *LocateError) Unwrap() error {
	return e.Err
}

// LoadError reports that a located program could not be materialized in
// memory.
type LoadError struct {
	Prog string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %q: %v", e.Prog, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
