package cbfs

import (
	"io"
)

// UnknownRecord is the fallback for file types with no registered reader.
// The bytes are preserved so listing and extraction still work.

func NewUnknownRecord(f *File) (Record, error) {
	r := &UnknownRecord{File: *f}
	return r, nil
}

func (r *UnknownRecord) Read(in io.ReadSeeker) error {
	return nil
}

func (r *UnknownRecord) String() string {
	return recString(r.File.Name, r.RecordStart, r.Type.String(), r.Size, "none")
}

func (r *UnknownRecord) GetFile() *File {
	return &r.File
}
