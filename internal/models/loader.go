package models

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"whisper-transcriber/internal/domain"
	"whisper-transcriber/internal/download"
	"whisper-transcriber/internal/whisper"
)

// FileLoader resolves catalog entries to weight files in a model directory,
// fetching missing weights before handing them to the engine.
type FileLoader struct {
	dir    string
	engine whisper.Loader
	fetch  func(ctx context.Context, opts download.Options) error
	stat   func(name string) (os.FileInfo, error)
	logger *zap.Logger
}

// NewFileLoader creates a loader rooted at modelDir.
func NewFileLoader(modelDir string, engine whisper.Loader, logger *zap.Logger) *FileLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileLoader{
		dir:    modelDir,
		engine: engine,
		fetch:  download.File,
		stat:   os.Stat,
		logger: logger,
	}
}

// Load makes sure the weights for opt are on disk and loads them.
func (l *FileLoader) Load(ctx context.Context, opt domain.ModelOption) (whisper.Model, error) {
	path, err := l.ensure(ctx, opt)
	if err != nil {
		return nil, err
	}

	model, err := l.engine.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load %s model: %w", opt.ID, err)
	}
	return model, nil
}

func (l *FileLoader) ensure(ctx context.Context, opt domain.ModelOption) (string, error) {
	if strings.TrimSpace(l.dir) == "" {
		return "", fmt.Errorf("model directory is not configured")
	}

	path := LocalPath(l.dir, opt)
	info, err := l.stat(path)
	if err == nil {
		if info.IsDir() {
			return "", fmt.Errorf("model path is a directory: %s", path)
		}
		return path, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("check model path: %w", err)
	}

	l.logger.Info("model not found, downloading", zap.String("model", opt.ID), zap.String("destination", path))
	if err := l.fetch(ctx, download.Options{
		URL:            opt.URL,
		Destination:    path,
		ExpectedSHA256: opt.SHA256,
		Logger:         l.logger,
	}); err != nil {
		return "", fmt.Errorf("download %s model: %w", opt.ID, err)
	}
	return path, nil
}
