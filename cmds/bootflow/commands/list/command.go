// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package list

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/linuxboot/progload/cmds/bootflow/commands"
	"github.com/linuxboot/progload/pkg/cbfs"
)

var _ commands.Command = (*Command)(nil)

type Command struct {
	ROMPath string  `short:"f" long:"rom" description:"path to coreboot ROM image" required:"true"`
	Format  *string `long:"format" description:"output format [text, json]"`
}

type Format int

const (
	FormatUndefined = Format(iota)
	FormatText
	FormatJSON
)

func ParseFormat(s string) Format {
	switch strings.Trim(strings.ToLower(s), " ") {
	case "text":
		return FormatText
	case "json":
		return FormatJSON
	}
	return FormatUndefined
}

// ShortDescription explains what this command does in one line
func (cmd *Command) ShortDescription() string {
	return "prints the CBFS contents of a ROM image"
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

	format := FormatText
	if cmd.Format != nil {
		format = ParseFormat(*cmd.Format)
		if format == FormatUndefined {
			return commands.ErrArgs{Err: fmt.Errorf("unknown format '%s'", *cmd.Format)}
		}
	}

	image, err := cbfs.Open(cmd.ROMPath)
	if err != nil {
		return fmt.Errorf("unable to open the ROM image file '%s': %w", cmd.ROMPath, err)
	}

	switch format {
	case FormatJSON:
		b, err := json.MarshalIndent(image, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%s\n", b)
	default:
		fmt.Fprintf(os.Stdout, "%s", image.String())
	}
	return nil
}
