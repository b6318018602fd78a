package bootstrap

import (
	"os"
	"path/filepath"
)

// prependLocalBin puts ~/.whisper-transcriber/bin ahead of PATH so a
// user-installed whisper-cli or ffmpeg there wins over system copies.
// Missing directories are left alone.
func prependLocalBin(homeDir string) error {
	binDir := localBinDir(homeDir)
	info, err := os.Stat(binDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if !info.IsDir() {
		return nil
	}

	current := os.Getenv("PATH")
	for _, entry := range filepath.SplitList(current) {
		if filepath.Clean(entry) == filepath.Clean(binDir) {
			return nil
		}
	}

	if current == "" {
		return os.Setenv("PATH", binDir)
	}
	return os.Setenv("PATH", binDir+string(os.PathListSeparator)+current)
}

func localBinDir(homeDir string) string {
	return filepath.Join(homeDir, ".whisper-transcriber", "bin")
}
