package cbfs

import (
	"io"
	"log"
)

// Raw covers every blob kind the loader treats as opaque bytes: proper
// raw files plus the reference code and table blobs (FSP, microcode,
// SPD and friends).
func init() {
	for _, t := range []FileType{TypeRaw, TypeFSP, TypeMicroCode, TypeSPD, TypeMRC, TypeMRCCache, TypeCMOS, TypeCMOSLayout} {
		if err := RegisterFileReader(&SegReader{Type: t, Name: "CBFSRaw", New: NewRawRecord}); err != nil {
			log.Fatal(err)
		}
	}
}

func NewRawRecord(f *File) (Record, error) {
	r := &RawRecord{File: *f}
	return r, nil
}

func (r *RawRecord) Read(in io.ReadSeeker) error {
	return nil
}

func (r *RawRecord) String() string {
	return recString(r.File.Name, r.RecordStart, r.Type.String(), r.Size, r.File.Compression().String())
}

func (r *RawRecord) GetFile() *File {
	return &r.File
}
