package diagnostics

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/samber/lo"

	"whisper-transcriber/internal/domain"
	"whisper-transcriber/internal/models"
	"whisper-transcriber/internal/whisper"
)

// Checker validates external tools and required filesystem paths.
type Checker struct {
	requireWhisper bool
	lookPath       func(string) (string, error)
	stat           func(string) (os.FileInfo, error)
	readDir        func(string) ([]os.DirEntry, error)
	mkdirAll       func(string, os.FileMode) error
	createTemp     func(string, string) (*os.File, error)
	remove         func(string) error
}

// NewChecker builds a checker using real OS dependencies.
// The whisper CLI is only checked when the build shells out to it.
func NewChecker() *Checker {
	return &Checker{
		requireWhisper: whisper.RequiresBinary,
		lookPath:       exec.LookPath,
		stat:           os.Stat,
		readDir:        os.ReadDir,
		mkdirAll:       os.MkdirAll,
		createTemp:     os.CreateTemp,
		remove:         os.Remove,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkTool("ffmpeg", settings.FFmpegPath),
	}
	if c.requireWhisper {
		items = append(items, c.checkTool("whisper", settings.WhisperPath))
	}
	items = append(items,
		c.checkModelDir(settings.ModelDir),
		c.checkOutputDir(settings.OutputDir),
	)

	hasFailures := lo.SomeBy(items, func(item domain.DiagnosticItem) bool {
		return item.Status == domain.DiagnosticStatusFail
	})

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkTool verifies a configured executable resolves via PATH or directly.
func (c *Checker) checkTool(id, binary string) domain.DiagnosticItem {
	if strings.TrimSpace(binary) == "" {
		binary = id
	}
	path, err := c.lookPath(binary)
	if err != nil {
		return domain.DiagnosticItem{
			ID:      "tool_" + id,
			Name:    binary,
			Status:  domain.DiagnosticStatusFail,
			Message: fmt.Sprintf("Tool not found: %s", binary),
			Hint:    "Install it and ensure the binary is available on PATH, or set its path in config.json.",
		}
	}

	return domain.DiagnosticItem{
		ID:      "tool_" + id,
		Name:    binary,
		Status:  domain.DiagnosticStatusPass,
		Message: fmt.Sprintf("Found at %s", path),
	}
}

// checkModelDir reports which catalog weights are already on disk.
// A missing directory is fine: weights download on first selection.
func (c *Checker) checkModelDir(modelDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "model_dir",
		Name: "Model directory",
	}

	if strings.TrimSpace(modelDir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Model directory is empty."
		item.Hint = "Set modelDir in config.json."
		return item
	}

	info, err := c.stat(modelDir)
	if err != nil {
		if IsNotExist(err) {
			item.Status = domain.DiagnosticStatusWarn
			item.Message = fmt.Sprintf("Model directory does not exist yet: %s", modelDir)
			item.Hint = "Models are downloaded here the first time they are selected."
			return item
		}
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot access model directory: %s", modelDir)
		item.Hint = "Check permissions for the model directory."
		return item
	}
	if !info.IsDir() {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Model path is not a directory: %s", modelDir)
		item.Hint = "Point modelDir at a directory."
		return item
	}

	entries, err := c.readDir(modelDir)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot read model directory: %s", modelDir)
		item.Hint = "Check permissions for the model directory."
		return item
	}

	known := lo.Map(models.Options(""), func(opt domain.ModelOption, _ int) string {
		return opt.FileName
	})
	found := lo.FilterMap(entries, func(entry os.DirEntry, _ int) (string, bool) {
		return entry.Name(), !entry.IsDir() && lo.Contains(known, entry.Name())
	})
	if len(found) == 0 {
		item.Status = domain.DiagnosticStatusWarn
		item.Message = fmt.Sprintf("No downloaded models in %s", modelDir)
		item.Hint = "The selected model will be downloaded before its first use."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Downloaded models: %s", strings.Join(found, ", "))
	return item
}

// checkOutputDir validates output directory existence and write access.
// An empty value means the process working directory.
func (c *Checker) checkOutputDir(outputDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "output_dir",
		Name: "Output directory",
	}

	dir := strings.TrimSpace(outputDir)
	label := dir
	if dir == "" {
		dir = "."
		label = "working directory"
	}

	if err := c.mkdirAll(dir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create output directory: %s", label)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(dir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Output directory is not writable: %s", label)
		item.Hint = "Choose a writable directory for transcript export."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", label)
	return item
}

// NewCheckerForTests creates checker with injectable dependencies.
func NewCheckerForTests(
	requireWhisper bool,
	lookPath func(string) (string, error),
	stat func(string) (os.FileInfo, error),
	readDir func(string) ([]os.DirEntry, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		requireWhisper: requireWhisper,
		lookPath:       lookPath,
		stat:           stat,
		readDir:        readDir,
		mkdirAll:       mkdirAll,
		createTemp:     createTemp,
		remove:         remove,
	}
}

// IsNotExist reports whether error represents file-not-found.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
