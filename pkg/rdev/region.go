// Copyright 2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rdev models addressable spans of memory or storage content.
//
// A RegionDevice is the source or destination of program bytes: a flash
// image, the primary memory address space, or a sub-span chained off
// either. Chaining never copies; a chained device is a window into its
// parent.
package rdev

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is returned when a requested span does not fit inside
// its parent device.
var ErrOutOfRange = errors.New("region out of range")

// RegionDevice is an addressable, sizeable span of memory or storage
// content.
type RegionDevice interface {
	// Size returns the number of addressable bytes in the device.
	Size() uint64

	// Map returns the device's entire content. For byte-backed devices
	// the returned slice aliases the backing store, so writes through
	// it are visible to other users of the device.
	Map() ([]byte, error)
}

// Chain returns a RegionDevice covering size bytes of parent starting at
// offset. The result is a view: it holds no data of its own.
func Chain(parent RegionDevice, offset, size uint64) (RegionDevice, error) {
	end := offset + size
	if end < offset || end > parent.Size() {
		return nil, fmt.Errorf("chain [%#x, %#x) in %#x byte device: %w",
			offset, end, parent.Size(), ErrOutOfRange)
	}
	return &span{parent: parent, offset: offset, size: size}, nil
}

type span struct {
	parent RegionDevice
	offset uint64
	size   uint64
}

func (s *span) Size() uint64 {
	return s.size
}

func (s *span) Map() ([]byte, error) {
	b, err := s.parent.Map()
	if err != nil {
		return nil, err
	}
	return b[s.offset : s.offset+s.size], nil
}

func (s *span) String() string {
	return fmt.Sprintf(`{"Offset":"%#x", "Size":"%#x"}`, s.offset, s.size)
}
