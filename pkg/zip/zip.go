// Package zip builds in-memory zip archives for backup exports.
package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// Entry is one file to include in an archive.
type Entry struct {
	Name string
	Data []byte
}

// Build assembles the entries into a single zip archive.
func Build(entries []Entry) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("zip: entry without a name")
		}
		w, err := zw.Create(e.Name)
		if err != nil {
			return nil, fmt.Errorf("zip: create %s: %w", e.Name, err)
		}
		if _, err := w.Write(e.Data); err != nil {
			return nil, fmt.Errorf("zip: write %s: %w", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}
