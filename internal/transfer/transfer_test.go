package transfer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestUniqueName(t *testing.T) {
	name := UniqueName("veo_video", ".mp4")
	if !strings.HasPrefix(name, "veo_video_") {
		t.Fatalf("name %q missing prefix", name)
	}
	if !strings.HasSuffix(name, ".mp4") {
		t.Fatalf("name %q missing extension", name)
	}

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		n := UniqueName("x", ".bin")
		if seen[n] {
			t.Fatalf("UniqueName produced duplicate %q", n)
		}
		seen[n] = true
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path, err := Save(dir, "images", "cat.png", []byte("payload"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if path != filepath.Join(dir, "images", "cat.png") {
		t.Fatalf("unexpected path %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("read back %q, want payload", data)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scratch.bin")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	Remove(path)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("file still exists after Remove")
	}

	// Removing again (and removing nothing) must not panic or log fatally.
	Remove(path)
	Remove("")
}
