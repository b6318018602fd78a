package bootstrap

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPrependLocalBinAddsExistingDirOnce(t *testing.T) {
	home := t.TempDir()
	binDir := localBinDir(home)
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	t.Setenv("PATH", "/usr/bin")

	if err := prependLocalBin(home); err != nil {
		t.Fatalf("prependLocalBin() error = %v", err)
	}
	if err := prependLocalBin(home); err != nil {
		t.Fatalf("second prependLocalBin() error = %v", err)
	}

	want := binDir + string(os.PathListSeparator) + "/usr/bin"
	if got := os.Getenv("PATH"); got != want {
		t.Fatalf("PATH = %q, want %q", got, want)
	}
}

func TestPrependLocalBinIgnoresMissingDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("PATH", "/usr/bin")

	if err := prependLocalBin(home); err != nil {
		t.Fatalf("prependLocalBin() error = %v", err)
	}
	if got := os.Getenv("PATH"); strings.Contains(got, filepath.Join(home, ".whisper-transcriber")) {
		t.Fatalf("PATH should be untouched, got %q", got)
	}
	if _, err := os.Stat(localBinDir(home)); !os.IsNotExist(err) {
		t.Fatalf("bin dir must not be created, stat err = %v", err)
	}
}
