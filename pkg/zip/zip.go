package zip

import (
	"archive/zip"
	"fmt"
	"io"
	"time"
)

type Entry struct {
	Filename string
	Modified time.Time
	Data     []byte
}

// Write streams entries into a zip archive on w.
func Write(w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)
	for _, entry := range entries {
		hdr := &zip.FileHeader{Name: entry.Filename, Method: zip.Deflate, Modified: entry.Modified}
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("zip header %s: %w", entry.Filename, err)
		}
		if _, err := fw.Write(entry.Data); err != nil {
			return fmt.Errorf("zip write %s: %w", entry.Filename, err)
		}
	}
	return zw.Close()
}
