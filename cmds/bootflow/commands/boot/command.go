// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package boot

import (
	"fmt"
	"os"

	"github.com/linuxboot/progload/cmds/bootflow/commands"
	bootpkg "github.com/linuxboot/progload/pkg/boot"
	"github.com/linuxboot/progload/pkg/cbfs"
	"github.com/linuxboot/progload/pkg/prog"
	"github.com/linuxboot/progload/pkg/rdev"
)

var _ commands.Command = (*Command)(nil)

type Command struct {
	ROMPath     string  `short:"f" long:"rom" description:"path to coreboot ROM image" required:"true"`
	MemSize     *uint64 `long:"memsize" description:"memory size in bytes (default 64 MiB)"`
	PayloadOnly *bool   `long:"payload-only" description:"skip the stages and load only the payload"`
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "simulates the boot sequence of a ROM image"
}

// LongDescription explains what this verb does (without limitation in amount of lines)
func (cmd *Command) LongDescription() string {
	return ""
}

// Execute is the main function here. It is responsible to
// start the execution of the command.
//
// `args` are the arguments left unused by verb itself and options.
func (cmd *Command) Execute(args []string) error {
	if len(args) != 0 {
		return commands.ErrArgs{Err: fmt.Errorf("there are extra arguments")}
	}

	memSize := uint64(64 * 1024 * 1024)
	if cmd.MemSize != nil {
		memSize = *cmd.MemSize
	}

	image, err := cbfs.Open(cmd.ROMPath)
	if err != nil {
		return fmt.Errorf("unable to open the ROM image file '%s': %w", cmd.ROMPath, err)
	}

	hooks := &prog.Hooks{
		PlatformSegmentLoaded: func(start, size uint64, flags int) {
			fmt.Fprintf(os.Stdout, "loaded [%#x, %#x)\n", start, start+size)
		},
		ArchSegmentLoaded: func(start, size uint64, flags int) {},
		PlatformProgRun:   func(p *prog.Prog) {},
		ArchProgRun: func(p *prog.Prog) {
			entry, _ := p.Entry()
			fmt.Fprintf(os.Stdout, "running %s at %#x\n", p, entry)
		},
	}

	flow, err := bootpkg.NewFlow(bootpkg.Config{
		Image: image,
		ROM:   rdev.FromBytes(image.Data),
		Mem:   rdev.NewMem(memSize),
		Hooks: hooks,
	})
	if err != nil {
		return err
	}

	if cmd.PayloadOnly != nil && *cmd.PayloadOnly {
		if err := flow.LoadPayload(); err != nil {
			return err
		}
		return flow.RunPayload()
	}
	return flow.Boot()
}
