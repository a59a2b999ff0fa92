// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rdev

import (
	"fmt"
	"io"

	"github.com/xaionaro-go/bytesextra"
)

// Mem is a byte-backed flat address space. It stands in for the primary
// addressable memory space that programs are loaded into, and doubles as
// a device over ROM content read into memory.
type Mem struct {
	data []byte
}

// NewMem returns a zero-filled address space of the given size.
func NewMem(size uint64) *Mem {
	return &Mem{data: make([]byte, size)}
}

// FromBytes returns a device backed directly by b. The device aliases b;
// it does not copy.
func FromBytes(b []byte) *Mem {
	return &Mem{data: b}
}

// Size implements RegionDevice.
func (m *Mem) Size() uint64 {
	return uint64(len(m.data))
}

// Map implements RegionDevice. The returned slice aliases the backing
// store.
func (m *Mem) Map() ([]byte, error) {
	return m.data, nil
}

// ReadWriteSeeker returns seekable access to the backing store, for
// callers that parse or assemble binary structures in place.
func (m *Mem) ReadWriteSeeker() io.ReadWriteSeeker {
	return bytesextra.NewReadWriteSeeker(m.data)
}

// ReadAt implements io.ReaderAt.
func (m *Mem) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(m.data)) {
		return 0, fmt.Errorf("read at %#x in %#x byte device: %w", off, len(m.data), ErrOutOfRange)
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements io.WriterAt. Writes past the end of the device fail
// without partial effect.
func (m *Mem) WriteAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	if off < 0 || end < off || end > int64(len(m.data)) {
		return 0, fmt.Errorf("write [%#x, %#x) in %#x byte device: %w", off, end, len(m.data), ErrOutOfRange)
	}
	return copy(m.data[off:], p), nil
}
