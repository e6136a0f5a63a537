package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// asciiFold decomposes accented characters and strips the combining
// marks, so "Björk" becomes "Bjork" in file names.
var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Library lays imported videos out as Artist/Artist - Title.ext under a
// single root directory, the layout media centers expect for music
// videos.
type Library struct {
	root string
}

// NewLibrary initializes the library root.
func NewLibrary(root string) (*Library, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("storage: library root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure library root: %w", err)
	}
	return &Library{root: root}, nil
}

// Root returns the library root directory.
func (l *Library) Root() string { return l.root }

// PathFor computes the destination path for a video file.
func (l *Library) PathFor(artist, title, ext string) (string, error) {
	artistSeg := SanitizeSegment(artist)
	titleSeg := SanitizeSegment(title)
	if artistSeg == "" || titleSeg == "" {
		return "", fmt.Errorf("storage: cannot derive library path from artist %q title %q", artist, title)
	}
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		ext = "mp4"
	}
	name := fmt.Sprintf("%s - %s.%s", artistSeg, titleSeg, ext)
	return filepath.Join(l.root, artistSeg, name), nil
}

// Place moves a downloaded temp file into its library location and
// returns the final path. The move is a rename when source and library
// share a filesystem, otherwise a copy followed by removal of the
// source.
func (l *Library) Place(tempPath, artist, title string) (string, error) {
	ext := filepath.Ext(tempPath)
	dest, err := l.PathFor(artist, title, ext)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("storage: ensure artist directory: %w", err)
	}
	if err := os.Rename(tempPath, dest); err == nil {
		return dest, nil
	}
	if err := copyFile(tempPath, dest); err != nil {
		return "", err
	}
	if err := os.Remove(tempPath); err != nil {
		return "", fmt.Errorf("storage: remove temp file: %w", err)
	}
	return dest, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("storage: open source: %w", err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("storage: create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("storage: copy: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("storage: close destination: %w", err)
	}
	return nil
}

// SanitizeSegment turns free-form artist or title text into a single
// safe path segment: diacritics folded, reserved characters replaced,
// whitespace collapsed.
func SanitizeSegment(s string) string {
	if folded, _, err := transform.String(asciiFold, s); err == nil {
		s = folded
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' ||
			r == '"' || r == '<' || r == '>' || r == '|':
			b.WriteRune('_')
		case unicode.IsControl(r):
			// skip
		default:
			b.WriteRune(r)
		}
	}
	out := strings.Join(strings.Fields(b.String()), " ")
	out = strings.Trim(out, ". ")
	return out
}
