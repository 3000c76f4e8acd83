package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFixture writes data under dir/name, creating parent directories, and
// returns the full path.
func WriteFixture(t testing.TB, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// PNGBytes returns a minimal valid PNG header followed by padding, enough for
// content sniffing to report image/png.
func PNGBytes(size int) []byte {
	header := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	if size < len(header) {
		size = len(header)
	}
	out := make([]byte, size)
	copy(out, header)
	return out
}
