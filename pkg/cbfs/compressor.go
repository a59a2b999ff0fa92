package cbfs

import (
	"fmt"

	"github.com/linuxboot/progload/pkg/compression"
)

// Compressor returns the codec for a CBFS compression scheme. None has
// no codec and returns nil.
func (c Compression) Compressor() (compression.Compressor, error) {
	switch c {
	case None:
		return nil, nil
	case LZMA:
		return &compression.LZMA{}, nil
	case LZ4:
		return &compression.LZ4{}, nil
	}
	return nil, fmt.Errorf("unsupported compression scheme %v", uint32(c))
}

// Decompress returns the file data of f, decoded if f carries a
// compression attribute.
func (f *File) Decompress() ([]byte, error) {
	c, err := f.Compression().Compressor()
	if err != nil {
		return nil, err
	}
	if c == nil {
		return f.FData, nil
	}
	return c.Decode(f.FData)
}
