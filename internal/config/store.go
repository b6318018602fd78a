package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"whisper-transcriber/internal/domain"
)

// Store loads app settings. The app never writes configuration back.
type Store interface {
	Load() (domain.Settings, error)
}

// JSONStore reads settings from a single JSON file on disk.
type JSONStore struct {
	path string
}

// NewJSONStore creates a JSON-backed settings store.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Path returns the backing file location.
func (s *JSONStore) Path() string {
	return s.path
}

// Load reads settings from disk or returns defaults when missing.
// Fields absent from the file keep their default values.
func (s *JSONStore) Load() (domain.Settings, error) {
	cfg := DefaultSettings()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return domain.Settings{}, err
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return domain.Settings{}, fmt.Errorf("parse %s: %w", s.path, err)
	}

	return normalize(cfg), nil
}

// normalize restores defaults for values an explicit empty string would blank out.
func normalize(cfg domain.Settings) domain.Settings {
	def := DefaultSettings()
	if strings.TrimSpace(cfg.ModelDir) == "" {
		cfg.ModelDir = def.ModelDir
	}
	if strings.TrimSpace(cfg.FFmpegPath) == "" {
		cfg.FFmpegPath = def.FFmpegPath
	}
	if strings.TrimSpace(cfg.WhisperPath) == "" {
		cfg.WhisperPath = def.WhisperPath
	}
	if strings.TrimSpace(cfg.Language) == "" {
		cfg.Language = def.Language
	}
	cfg.ModelDir = expandHome(cfg.ModelDir)
	cfg.OutputDir = expandHome(cfg.OutputDir)
	return cfg
}
