// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// bootflow walks the program-loading sequence of a coreboot ROM image.
//
// Synopsis:
//
//	bootflow list -f ROM [--format=json]
//	bootflow boot -f ROM [--memsize N] [--payload-only]
//
// An example:
//
//	bootflow list -f coreboot.rom
//	bootflow boot -f coreboot.rom --payload-only
//
// Description:
//
//	list: Print the CBFS contents
//	boot: Locate, load and "run" romstage, ramstage and the payload,
//	      narrating each step
package main

import (
	"log"

	"github.com/jessevdk/go-flags"

	"github.com/linuxboot/progload/cmds/bootflow/commands"
	"github.com/linuxboot/progload/cmds/bootflow/commands/boot"
	"github.com/linuxboot/progload/cmds/bootflow/commands/list"
)

var (
	knownCommands = map[string]commands.Command{
		"list": &list.Command{},
		"boot": &boot.Command{},
	}
)

func main() {
	flagsParser := flags.NewParser(nil, flags.Default)
	for commandName, command := range knownCommands {
		_, err := flagsParser.AddCommand(commandName, command.ShortDescription(), command.LongDescription(), command)
		if err != nil {
			panic(err)
		}
	}

	// parse arguments and execute the appropriate command
	if _, err := flagsParser.Parse(); err != nil {
		log.Fatal(err)
	}
}
