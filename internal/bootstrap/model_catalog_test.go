package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"whisper-transcriber/internal/jobs"
)

// TestGetModelsMarksDownloadedFiles checks detection in the model directory.
func TestGetModelsMarksDownloadedFiles(t *testing.T) {
	modelDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(modelDir, "ggml-small.bin"), []byte("stub"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}

	app := newTestApp(t, newStubLoader(), &fakePipeline{}, newFakeShell(), t.TempDir())
	app.Settings.ModelDir = modelDir

	for _, opt := range app.GetModels() {
		wantDownloaded := opt.ID == "small"
		if opt.Downloaded != wantDownloaded {
			t.Fatalf("model %s downloaded = %v, want %v", opt.ID, opt.Downloaded, wantDownloaded)
		}
		if wantDownloaded && opt.LocalPath != filepath.Join(modelDir, "ggml-small.bin") {
			t.Fatalf("local path = %q", opt.LocalPath)
		}
	}
}

// TestSelectModelPublishesModelEvents checks load start and finish events.
func TestSelectModelPublishesModelEvents(t *testing.T) {
	app := newTestApp(t, newStubLoader(), &fakePipeline{}, newFakeShell(), t.TempDir())
	loadModel(t, app, "Small - ~2GB")

	var modelEvents int
	for _, event := range app.JobEvents(0) {
		if event.Type == jobs.EventTypeModel && event.ModelID == "small" {
			modelEvents++
		}
	}
	if modelEvents != 2 {
		t.Fatalf("model events = %d, want loading and loaded", modelEvents)
	}
}

// TestSelectModelSameLabelIsNoop checks reselecting the loaded model.
func TestSelectModelSameLabelIsNoop(t *testing.T) {
	loader := newStubLoader()
	app := newTestApp(t, loader, &fakePipeline{}, newFakeShell(), t.TempDir())
	loadModel(t, app, "Base - ~1GB")
	first := loader.model("base")

	loadModel(t, app, "Base - ~1GB")
	if loader.model("base") != first {
		t.Fatal("reselecting the loaded model should not reload it")
	}
	if first.closed.Load() != 0 {
		t.Fatal("loaded model must stay open")
	}
}
