package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"

	"whisper-transcriber/internal/domain"
)

// ErrUnknownModel is returned for labels or IDs outside the catalog.
var ErrUnknownModel = errors.New("unknown model")

var catalog = []domain.ModelOption{
	{
		Label:     "Tiny - ~1GB",
		ID:        "tiny",
		FileName:  "ggml-tiny.bin",
		URL:       "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny.bin",
		SHA256:    "be07e048e1e599ad46341c8d2a135645097a538221678b7acdd1b1919c6e1b21",
		SizeLabel: "~75 MB",
	},
	{
		Label:     "Base - ~1GB",
		ID:        "base",
		FileName:  "ggml-base.bin",
		URL:       "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.bin",
		SHA256:    "60ed5bc3dd14eea856493d334349b405782ddcaf0028d4b5df4088345fba2efe",
		SizeLabel: "~142 MB",
	},
	{
		Label:     "Small - ~2GB",
		ID:        "small",
		FileName:  "ggml-small.bin",
		URL:       "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-small.bin",
		SHA256:    "1be3a9b2063867b937e64e2ec7483364a79917e157fa98c5d94b5c1fffea987b",
		SizeLabel: "~466 MB",
	},
	{
		Label:     "Medium - ~5GB",
		ID:        "medium",
		FileName:  "ggml-medium.bin",
		URL:       "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-medium.bin",
		SHA256:    "6c14d5adee5f86394037b4e4e8b59f1673b6cee10e3cf0b11bbdbee79c156208",
		SizeLabel: "~1.5 GB",
	},
	{
		Label:     "Large - ~10GB",
		ID:        "large",
		FileName:  "ggml-large-v3.bin",
		URL:       "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v3.bin",
		SHA256:    "64d182b440b98d5203c4f9bd541544d84c605196c4f7b845dfa11fb23594d1e2",
		SizeLabel: "~2.9 GB",
	},
}

// Labels returns the display labels in catalog order.
func Labels() []string {
	return lo.Map(catalog, func(opt domain.ModelOption, _ int) string {
		return opt.Label
	})
}

// DefaultLabel is the selection made at startup.
func DefaultLabel() string {
	return catalog[0].Label
}

// Resolve maps a display label to its catalog entry.
func Resolve(label string) (domain.ModelOption, error) {
	want := strings.TrimSpace(label)
	opt, ok := lo.Find(catalog, func(opt domain.ModelOption) bool {
		return opt.Label == want
	})
	if !ok {
		return domain.ModelOption{}, fmt.Errorf("%w: %q", ErrUnknownModel, label)
	}
	return opt, nil
}

// LabelFor returns the display label for a model identifier.
func LabelFor(id string) (string, bool) {
	opt, ok := lo.Find(catalog, func(opt domain.ModelOption) bool {
		return opt.ID == id
	})
	return opt.Label, ok
}

// Options returns the catalog with download state resolved against modelDir.
func Options(modelDir string) []domain.ModelOption {
	models := make([]domain.ModelOption, len(catalog))
	copy(models, catalog)
	markDownloadedModels(models, modelDir)
	return models
}

// LocalPath is where the weights for opt live inside modelDir.
func LocalPath(modelDir string, opt domain.ModelOption) string {
	return filepath.Join(modelDir, opt.FileName)
}

func markDownloadedModels(models []domain.ModelOption, modelDir string) {
	if strings.TrimSpace(modelDir) == "" {
		return
	}
	for i := range models {
		candidate := LocalPath(modelDir, models[i])
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		models[i].Downloaded = true
		models[i].LocalPath = candidate
	}
}
