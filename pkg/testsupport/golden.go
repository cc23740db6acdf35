package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// UpdateGoldensEnv rewrites golden files instead of comparing when set.
const UpdateGoldensEnv = "UPDATE_GOLDENS"

// GoldenPath returns testdata/<name>.golden relative to the test package.
func GoldenPath(name string) string {
	return filepath.Join("testdata", name+".golden")
}

// AssertGolden compares markup with the golden file at path, ignoring leading
// and trailing whitespace.
func AssertGolden(t testing.TB, path, markup string) {
	t.Helper()
	got := strings.TrimSpace(markup)
	if os.Getenv(UpdateGoldensEnv) != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("golden dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(got+"\n"), 0o644); err != nil {
			t.Fatalf("write golden: %v", err)
		}
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden %s: %v (run with %s=1 to create it)", path, err, UpdateGoldensEnv)
	}
	if diff := cmp.Diff(strings.TrimSpace(string(data)), got); diff != "" {
		t.Fatalf("%s mismatch (-golden +got):\n%s", path, diff)
	}
}
