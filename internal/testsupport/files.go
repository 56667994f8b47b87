package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteMedia creates a placeholder media file of size bytes at path, creating
// parent directories. Stages only check existence, so the content is filler.
func WriteMedia(t testing.TB, path string, size int) string {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	data := make([]byte, size)
	copy(data, "\x00\x00\x00\x18ftypM4A ")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
