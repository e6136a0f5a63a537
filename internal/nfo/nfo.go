// Package nfo reads and writes musicvideo.nfo sidecar files, the XML
// metadata format media centers pick up next to a video file.
package nfo

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MusicVideo is the sidecar document for one music video.
type MusicVideo struct {
	XMLName  xml.Name `xml:"musicvideo"`
	Title    string   `xml:"title"`
	Artist   string   `xml:"artist"`
	Year     int      `xml:"year,omitempty"`
	Director string   `xml:"director,omitempty"`
	Source   string   `xml:"source,omitempty"`
	IMVDbID  int      `xml:"imvdbid,omitempty"`
}

// SidecarPath returns the .nfo path that pairs with a video file path.
func SidecarPath(videoPath string) string {
	ext := filepath.Ext(videoPath)
	return strings.TrimSuffix(videoPath, ext) + ".nfo"
}

// Write serializes mv to path, overwriting any existing sidecar.
func Write(path string, mv *MusicVideo) error {
	if mv == nil {
		return errors.New("nfo: document is required")
	}
	if mv.Title == "" || mv.Artist == "" {
		return errors.New("nfo: title and artist are required")
	}
	data, err := xml.MarshalIndent(mv, "", "  ")
	if err != nil {
		return fmt.Errorf("nfo: marshal: %w", err)
	}
	out := append([]byte(xml.Header), data...)
	out = append(out, '\n')
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("nfo: write sidecar: %w", err)
	}
	return nil
}

// Read parses the sidecar at path.
func Read(path string) (*MusicVideo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("nfo: read sidecar: %w", err)
	}
	var mv MusicVideo
	if err := xml.Unmarshal(data, &mv); err != nil {
		return nil, fmt.Errorf("nfo: parse sidecar: %w", err)
	}
	return &mv, nil
}
