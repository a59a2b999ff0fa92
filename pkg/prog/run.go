// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package prog

import (
	"errors"
	"fmt"
)

// Runner transfers control to loaded programs. It is a pure dispatch
// point: it mutates no program state.
type Runner struct {
	hooks *Hooks
}

// NewRunner returns a Runner using the given hooks.
func NewRunner(hooks *Hooks) (*Runner, error) {
	if hooks == nil {
		return nil, errors.New("runner: nil hooks")
	}
	if err := hooks.Validate(); err != nil {
		return nil, fmt.Errorf("runner: %w", err)
	}
	return &Runner{hooks: hooks}, nil
}

// Run hands control to p: the platform pre-run hook first, then the
// architecture transfer of control. Whether Run returns is up to the
// architecture hook; for terminal programs it does not.
func (r *Runner) Run(p *Prog) error {
	if _, ok := p.Entry(); !ok {
		return fmt.Errorf("run %s: %w", p, ErrInvalidEntryPoint)
	}
	r.hooks.PlatformProgRun(p)
	r.hooks.ArchProgRun(p)
	return nil
}
