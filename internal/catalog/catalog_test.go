package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dcheno/flickrup/internal/shared"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
}

func TestListCandidates(t *testing.T) {
	t.Run("filters and sorts", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, "a.jpg", ".hidden.jpg", "notes.txt", "b.PNG")

		got, err := ListCandidates(dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{
			filepath.Join(dir, "a.jpg"),
			filepath.Join(dir, "b.PNG"),
		}
		if len(got) != len(want) {
			t.Fatalf("expected %d candidates, got %d: %v", len(want), len(got), got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("candidate %d: expected %s, got %s", i, want[i], got[i])
			}
		}
	})

	t.Run("accepts all supported extensions case-insensitively", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, "a.jpg", "b.JPEG", "c.png", "d.GIF", "e.tif", "f.TIFF")

		got, err := ListCandidates(dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 6 {
			t.Errorf("expected 6 candidates, got %d: %v", len(got), got)
		}
	})

	t.Run("skips directories", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.Mkdir(filepath.Join(dir, "nested.jpg"), 0755); err != nil {
			t.Fatalf("failed to create directory: %v", err)
		}
		writeFiles(t, dir, "real.jpg")

		got, err := ListCandidates(dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || filepath.Base(got[0]) != "real.jpg" {
			t.Errorf("expected only real.jpg, got %v", got)
		}
	})

	t.Run("follows symlinks to regular files", func(t *testing.T) {
		photoDir := t.TempDir()
		writeFiles(t, photoDir, "orig.jpg")

		dir := t.TempDir()
		if err := os.Symlink(filepath.Join(photoDir, "orig.jpg"), filepath.Join(dir, "linked.jpg")); err != nil {
			t.Fatalf("failed to create symlink: %v", err)
		}
		if err := os.Symlink(photoDir, filepath.Join(dir, "subdir.jpg")); err != nil {
			t.Fatalf("failed to create directory symlink: %v", err)
		}
		if err := os.Symlink(filepath.Join(photoDir, "gone.jpg"), filepath.Join(dir, "broken.jpg")); err != nil {
			t.Fatalf("failed to create broken symlink: %v", err)
		}

		got, err := ListCandidates(dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || filepath.Base(got[0]) != "linked.jpg" {
			t.Errorf("expected only linked.jpg, got %v", got)
		}
	})

	t.Run("empty directory", func(t *testing.T) {
		got, err := ListCandidates(t.TempDir())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected no candidates, got %v", got)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := ListCandidates(filepath.Join(t.TempDir(), "nope"))
		if !errors.Is(err, shared.ErrDirectoryNotFound) {
			t.Errorf("expected ErrDirectoryNotFound, got %v", err)
		}
	})
}

func TestTitle(t *testing.T) {
	if got := Title("/photos/2026/IMG_0001.jpg"); got != "IMG_0001.jpg" {
		t.Errorf("expected IMG_0001.jpg, got %s", got)
	}
}
