// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// progload inspects coreboot images and simulates their boot sequence.
//
// Synopsis:
//
//	progload [-d] ROM list
//	progload [-d] ROM json
//	progload [-d] [-z] ROM extract DIR
//	progload [-d] ROM boot
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/klauspost/compress/zstd"
	flag "github.com/spf13/pflag"

	"github.com/linuxboot/progload/pkg/boot"
	"github.com/linuxboot/progload/pkg/cbfs"
	"github.com/linuxboot/progload/pkg/prog"
	"github.com/linuxboot/progload/pkg/rdev"
)

var (
	debug    = flag.BoolP("debug", "d", false, "enable debug prints")
	zstdOut  = flag.BoolP("zstd", "z", false, "zstd-compress extracted files")
	memSize  = flag.Uint64P("memsize", "m", 64*1024*1024, "memory size for the boot command")
	errUsage = errors.New("usage: progload ROM {list,json,extract DIR,boot}")

	errMissingDirectory = errors.New("extract needs a directory argument")
)

func main() {
	flag.Parse()

	if err := run(os.Stdout, *debug, flag.Args()); err != nil {
		log.Fatal(err)
	}
}

func run(stdout io.Writer, debug bool, args []string) error {
	if debug {
		cbfs.Debug = log.Printf
	}

	if len(args) < 2 {
		return errUsage
	}

	i, err := cbfs.Open(args[0])
	if err != nil {
		return err
	}

	switch args[1] {
	case "list":
		return list(stdout, i)
	case "json":
		j, err := json.MarshalIndent(i, "  ", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s\n", string(j))
		return nil
	case "extract":
		if len(args) < 3 {
			return errMissingDirectory
		}
		return extract(stdout, i, args[2], *zstdOut)
	case "boot":
		return simulate(stdout, i)
	default:
		return errUsage
	}
}

func list(stdout io.Writer, i *cbfs.Image) error {
	t := table.NewWriter()
	t.SetOutputMirror(stdout)
	t.SetTitle("CBFS in %s area", cbfs.AreaName)
	t.AppendHeader(table.Row{"Name", "Offset", "Type", "Size", "Comp"})
	for _, s := range i.Segs {
		f := s.GetFile()
		off, size := f.DataRange()
		t.AppendRow([]interface{}{
			f.Name,
			fmt.Sprintf("%#x", off),
			f.Type,
			humanize.IBytes(uint64(size)),
			f.Compression(),
		})
	}
	t.Render()
	return nil
}

func extract(stdout io.Writer, i *cbfs.Image, dir string, compress bool) error {
	for _, s := range i.Segs {
		f := s.GetFile()
		if f.Name == "" || f.Deleted() {
			continue
		}
		data, err := f.Decompress()
		if err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}

		name := filepath.Join(dir, filepath.FromSlash(f.Name))
		if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
			return err
		}
		if compress {
			data, err = zstdEncode(data)
			if err != nil {
				return fmt.Errorf("%s: %w", f.Name, err)
			}
			name += ".zst"
		}
		if err := os.WriteFile(name, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s: %s\n", name, humanize.IBytes(uint64(len(data))))
	}
	return nil
}

func zstdEncode(data []byte) ([]byte, error) {
	w, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer w.Close()
	return w.EncodeAll(data, nil), nil
}

// simulate drives the boot sequence with hooks that narrate instead of
// touching hardware.
func simulate(stdout io.Writer, i *cbfs.Image) error {
	rom := rdev.FromBytes(i.Data)
	hooks := &prog.Hooks{
		PlatformSegmentLoaded: func(start, size uint64, flags int) {
			final := ""
			if flags&prog.SegFinal != 0 {
				final = " (final)"
			}
			fmt.Fprintf(stdout, "loaded [%#x, %#x)%s\n", start, start+size, final)
		},
		ArchSegmentLoaded: func(start, size uint64, flags int) {},
		PlatformProgRun:   func(p *prog.Prog) {},
		ArchProgRun: func(p *prog.Prog) {
			entry, _ := p.Entry()
			fmt.Fprintf(stdout, "running %s at %#x\n", p, entry)
		},
	}
	f, err := boot.NewFlow(boot.Config{
		Image: i,
		ROM:   rom,
		Mem:   rdev.NewMem(*memSize),
		Hooks: hooks,
	})
	if err != nil {
		return err
	}
	return f.Boot()
}
