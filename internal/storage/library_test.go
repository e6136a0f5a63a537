package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeSegment(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "Daft Punk", want: "Daft Punk"},
		{name: "diacritics folded", in: "Björk", want: "Bjork"},
		{name: "reserved characters", in: "AC/DC: Live?", want: "AC_DC_ Live_"},
		{name: "whitespace collapsed", in: "  The   Knife ", want: "The Knife"},
		{name: "trailing dots trimmed", in: "B.Y.O.B.", want: "B.Y.O.B"},
		{name: "empty", in: "   ", want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSegment(tc.in); got != tc.want {
				t.Fatalf("SanitizeSegment(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestLibraryPathFor(t *testing.T) {
	lib, err := NewLibrary(t.TempDir())
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}
	got, err := lib.PathFor("Röyksopp", "What Else Is There?", ".webm")
	if err != nil {
		t.Fatalf("PathFor: %v", err)
	}
	want := filepath.Join(lib.Root(), "Royksopp", "Royksopp - What Else Is There_.webm")
	if got != want {
		t.Fatalf("PathFor = %q, want %q", got, want)
	}
}

func TestLibraryPathForRejectsEmptySegments(t *testing.T) {
	lib, err := NewLibrary(t.TempDir())
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}
	if _, err := lib.PathFor("   ", "Song", "mp4"); err == nil {
		t.Fatal("PathFor with blank artist succeeded, want error")
	}
}

func TestLibraryPlaceMovesFile(t *testing.T) {
	lib, err := NewLibrary(t.TempDir())
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}
	temp := filepath.Join(t.TempDir(), "download.mp4")
	if err := os.WriteFile(temp, []byte("video bytes"), 0o644); err != nil {
		t.Fatalf("write temp: %v", err)
	}

	dest, err := lib.Place(temp, "M83", "Midnight City")
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if _, err := os.Stat(temp); !os.IsNotExist(err) {
		t.Fatalf("temp file still exists after Place: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read placed file: %v", err)
	}
	if string(data) != "video bytes" {
		t.Fatalf("placed file content = %q", data)
	}
	if !strings.HasSuffix(dest, filepath.Join("M83", "M83 - Midnight City.mp4")) {
		t.Fatalf("unexpected destination %q", dest)
	}
}

func TestFileStoreWriteSanitizesKeys(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	path, err := store.Write(ctx, "exports/snapshot.json", []byte("{}"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.HasPrefix(path, store.BasePath()) {
		t.Fatalf("written path %q escapes base %q", path, store.BasePath())
	}

	if _, err := store.Write(ctx, "../escape.json", []byte("{}")); err == nil {
		t.Fatal("Write with traversal key succeeded, want error")
	}
	if _, err := store.Write(ctx, "  ", []byte("{}")); err == nil {
		t.Fatal("Write with blank key succeeded, want error")
	}
}
