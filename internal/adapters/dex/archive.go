package dex

import (
	"archive/zip"
	"io"
	"time"

	"go.trai.ch/zerr"
)

// Entry is one file of a per-class DEX archive.
type Entry struct {
	// Name is the archive path, e.g. "com/x/Foo.dex".
	Name string
	Data []byte
}

// archiveTime is stamped on every entry so that archives are reproducible.
var archiveTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// WriteArchive writes entries, in the given order, as a ZIP archive.
func WriteArchive(w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)
	for _, e := range entries {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.Name,
			Method:   zip.Deflate,
			Modified: archiveTime,
		})
		if err != nil {
			return zerr.With(zerr.Wrap(err, "failed to add archive entry"), "entry", e.Name)
		}
		if _, err := fw.Write(e.Data); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to write archive entry"), "entry", e.Name)
		}
	}
	if err := zw.Close(); err != nil {
		return zerr.Wrap(err, "failed to finish archive")
	}
	return nil
}
