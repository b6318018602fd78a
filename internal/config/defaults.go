package config

import (
	"os"
	"path/filepath"
	"strings"

	"whisper-transcriber/internal/domain"
)

const appDirName = ".whisper-transcriber"

// DefaultSettings returns baseline local configuration for first launch.
// OutputDir stays empty so transcripts land in the working directory.
func DefaultSettings() domain.Settings {
	return domain.Settings{
		ModelDir:    filepath.Join(homeDir(), appDirName, "models"),
		FFmpegPath:  "ffmpeg",
		WhisperPath: "whisper-cli",
		Language:    "auto",
	}
}

// DefaultPath is the config file location under the user's home directory.
func DefaultPath() string {
	return filepath.Join(homeDir(), appDirName, "config.json")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// expandHome resolves a leading "~/" against the user's home directory.
func expandHome(path string) string {
	if path == "~" {
		return homeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}
