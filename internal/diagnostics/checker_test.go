package diagnostics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"whisper-transcriber/internal/domain"
)

func foundTools(name string) (string, error) { return "/usr/local/bin/" + name, nil }

// TestCheckerRunAllPass validates happy-path diagnostics report.
func TestCheckerRunAllPass(t *testing.T) {
	root := t.TempDir()
	modelDir := filepath.Join(root, "models")
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		t.Fatalf("mkdir models: %v", err)
	}
	modelFile := filepath.Join(modelDir, "ggml-base.bin")
	if err := os.WriteFile(modelFile, []byte("stub"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}

	outputDir := filepath.Join(root, "output")
	checker := NewCheckerForTests(
		true,
		foundTools,
		os.Stat,
		os.ReadDir,
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
	)

	report := checker.Run(domain.Settings{
		ModelDir:    modelDir,
		OutputDir:   outputDir,
		FFmpegPath:  "ffmpeg",
		WhisperPath: "whisper-cli",
		Language:    "auto",
	})

	if report.HasFailures {
		t.Fatalf("expected no failures, got %+v", report.Items)
	}
	assertStatusByID(t, report, "tool_whisper", domain.DiagnosticStatusPass)
	assertStatusByID(t, report, "model_dir", domain.DiagnosticStatusPass)
	if _, err := os.Stat(outputDir); err != nil {
		t.Fatalf("output dir should be created: %v", err)
	}
}

// TestCheckerRunMissingToolsAndPaths validates failure reporting.
func TestCheckerRunMissingToolsAndPaths(t *testing.T) {
	var looked []string
	checker := NewCheckerForTests(
		true,
		func(name string) (string, error) {
			looked = append(looked, name)
			return "", errors.New("not found")
		},
		os.Stat,
		os.ReadDir,
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
	)

	report := checker.Run(domain.Settings{
		ModelDir:    "",
		OutputDir:   t.TempDir(),
		FFmpegPath:  "/opt/ffmpeg/bin/ffmpeg",
		WhisperPath: "whisper-custom",
	})

	if !report.HasFailures {
		t.Fatal("expected failures")
	}

	assertStatusByID(t, report, "tool_ffmpeg", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "tool_whisper", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "model_dir", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "output_dir", domain.DiagnosticStatusPass)
	if strings.Join(looked, ",") != "/opt/ffmpeg/bin/ffmpeg,whisper-custom" {
		t.Fatalf("looked up = %v", looked)
	}
}

// TestCheckerRunSkipsWhisperForInProcessEngine validates the binding build.
func TestCheckerRunSkipsWhisperForInProcessEngine(t *testing.T) {
	checker := NewCheckerForTests(
		false,
		foundTools,
		os.Stat,
		os.ReadDir,
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
	)

	report := checker.Run(domain.Settings{
		ModelDir:  filepath.Join(t.TempDir(), "models"),
		OutputDir: t.TempDir(),
	})

	for _, item := range report.Items {
		if item.ID == "tool_whisper" {
			t.Fatalf("whisper tool should not be checked: %+v", item)
		}
	}
}

// TestCheckerRunMissingModelDirectoryWarns validates download-on-demand.
func TestCheckerRunMissingModelDirectoryWarns(t *testing.T) {
	checker := NewCheckerForTests(false, foundTools, os.Stat, os.ReadDir, os.MkdirAll, os.CreateTemp, os.Remove)
	report := checker.Run(domain.Settings{
		ModelDir:  filepath.Join(t.TempDir(), "models"),
		OutputDir: t.TempDir(),
	})

	if report.HasFailures {
		t.Fatalf("warnings must not count as failures: %+v", report.Items)
	}
	assertStatusByID(t, report, "model_dir", domain.DiagnosticStatusWarn)
}

// TestCheckerRunModelDirectoryWithoutModelFilesWarns validates model check.
func TestCheckerRunModelDirectoryWithoutModelFilesWarns(t *testing.T) {
	root := t.TempDir()
	modelDir := filepath.Join(root, "models")
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		t.Fatalf("mkdir models: %v", err)
	}
	if err := os.WriteFile(filepath.Join(modelDir, "other.bin"), []byte("not from the catalog"), 0o644); err != nil {
		t.Fatalf("write stray: %v", err)
	}

	checker := NewCheckerForTests(true, foundTools, os.Stat, os.ReadDir, os.MkdirAll, os.CreateTemp, os.Remove)
	report := checker.Run(domain.Settings{
		ModelDir:  modelDir,
		OutputDir: filepath.Join(root, "output"),
	})

	assertStatusByID(t, report, "model_dir", domain.DiagnosticStatusWarn)
}

// TestCheckerRunModelPathIsFileFails validates directory requirement.
func TestCheckerRunModelPathIsFileFails(t *testing.T) {
	root := t.TempDir()
	modelFile := filepath.Join(root, "ggml-base.bin")
	if err := os.WriteFile(modelFile, []byte("stub"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}

	checker := NewCheckerForTests(true, foundTools, os.Stat, os.ReadDir, os.MkdirAll, os.CreateTemp, os.Remove)
	report := checker.Run(domain.Settings{ModelDir: modelFile, OutputDir: root})

	assertStatusByID(t, report, "model_dir", domain.DiagnosticStatusFail)
}

// TestCheckerRunEmptyOutputDirUsesWorkingDirectory validates the default.
func TestCheckerRunEmptyOutputDirUsesWorkingDirectory(t *testing.T) {
	var checkedDir string
	checker := NewCheckerForTests(
		false,
		foundTools,
		os.Stat,
		os.ReadDir,
		func(string, os.FileMode) error { return nil },
		func(dir, pattern string) (*os.File, error) {
			checkedDir = dir
			return os.CreateTemp(t.TempDir(), pattern)
		},
		os.Remove,
	)

	report := checker.Run(domain.Settings{ModelDir: t.TempDir()})

	assertStatusByID(t, report, "output_dir", domain.DiagnosticStatusPass)
	if checkedDir != "." {
		t.Fatalf("checked dir = %q, want .", checkedDir)
	}
}

// assertStatusByID checks status for one diagnostic item by ID.
func assertStatusByID(t *testing.T, report domain.DiagnosticReport, id string, want domain.DiagnosticStatus) {
	t.Helper()
	for _, item := range report.Items {
		if item.ID == id {
			if item.Status != want {
				t.Fatalf("item %s: got %s, want %s", id, item.Status, want)
			}
			return
		}
	}
	t.Fatalf("diagnostic item not found: %s", id)
}
