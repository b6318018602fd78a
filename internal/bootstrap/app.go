package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"go.uber.org/zap"

	"whisper-transcriber/internal/config"
	"whisper-transcriber/internal/diagnostics"
	"whisper-transcriber/internal/domain"
	"whisper-transcriber/internal/jobs"
	"whisper-transcriber/internal/logging"
	"whisper-transcriber/internal/models"
	"whisper-transcriber/internal/transcribe"
	"whisper-transcriber/internal/whisper"
)

const uiStateEvent = "ui:state"

var errRuntimeNotReady = errors.New("runtime context is not initialized")

// App wires configuration, model selection, jobs, pipeline, and UI runtime callbacks.
type App struct {
	Settings domain.Settings
	Jobs     *jobs.Manager
	Pipeline pipelineRunner

	selector *models.Selector
	holder   *models.Holder
	checker  *diagnostics.Checker
	shell    shell
	runtime  *wailsShell
	assets   fs.FS
	logger   *zap.Logger
	events   *jobs.EventBus
	stat     func(name string) (os.FileInfo, error)
	// openFolder reveals a directory in the platform file manager.
	openFolder func(path string) error

	baseCtx context.Context
	cancel  context.CancelFunc
	jobsWG  sync.WaitGroup

	mu          sync.Mutex
	inputPath   string
	outputPath  string
	lastOutput  string
	inflight    *inflightJob
	diagnostics domain.DiagnosticReport
}

// pipelineRunner isolates the transcription pipeline behind an interface.
type pipelineRunner interface {
	Run(ctx context.Context, req transcribe.Request) (transcribe.Result, error)
}

// New builds the application with file settings and startup diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	store := config.NewJSONStore(config.DefaultPath())
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	logger, err := logging.New(logging.Options{Verbose: settings.Verbose, JSON: settings.JSONLogs})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		if err := prependLocalBin(homeDir); err != nil {
			logger.Warn("prepare local tool path", zap.Error(err))
		}
	}

	engine := whisper.NewLoader(whisper.Config{
		BinaryPath: settings.WhisperPath,
		Threads:    settings.Threads,
	}, logger.Named("whisper"))
	holder := models.NewHolder(logger.Named("models"))
	selector := models.NewSelector(
		models.NewFileLoader(settings.ModelDir, engine, logger.Named("models")),
		holder,
		logger.Named("models"),
	)

	rt := &wailsShell{}
	app := newApp(appDeps{
		settings: settings,
		pipeline: transcribe.NewPipeline(settings.FFmpegPath),
		selector: selector,
		holder:   holder,
		checker:  diagnostics.NewChecker(),
		shell:    rt,
		logger:   logger,
	})
	app.runtime = rt
	app.assets = assets

	logger.Info("settings loaded",
		zap.String("config", store.Path()),
		zap.String("modelDir", settings.ModelDir),
		zap.String("outputDir", settings.OutputDir),
		zap.String("language", settings.Language),
	)
	return app, nil
}

type appDeps struct {
	settings domain.Settings
	pipeline pipelineRunner
	selector *models.Selector
	holder   *models.Holder
	checker  *diagnostics.Checker
	shell    shell
	logger   *zap.Logger
}

func newApp(deps appDeps) *App {
	logger := deps.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		Settings: deps.settings,
		Jobs:     jobs.NewManager(),
		Pipeline: deps.pipeline,
		selector: deps.selector,
		holder:   deps.holder,
		checker:  deps.checker,
		shell:    deps.shell,
		logger:   logger,
		events:   jobs.NewEventBus(1000),
		stat:     os.Stat,
		baseCtx:  ctx,
		cancel:   cancel,

		openFolder: openInFileManager,
	}
	if app.checker != nil {
		app.diagnostics = app.checker.Run(app.Settings)
	}
	return app
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "Whisper Transcriber",
		Width:       defaultWindowWidth,
		Height:      defaultWindowHeight,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown:  a.Shutdown,
		Bind:        []interface{}{a},
	})
}

// Startup stores the Wails runtime context, reports failed dependency checks,
// and dispatches the default model load.
func (a *App) Startup(ctx context.Context) {
	if a.runtime != nil {
		a.runtime.attach(ctx)
	}
	a.reportDiagnosticFailures(a.GetDiagnostics())
	if _, err := a.SelectModel(models.DefaultLabel()); err != nil {
		a.logger.Error("select default model", zap.Error(err))
	}
}

// Shutdown stops subprocesses, waits for in-flight work, and releases the model.
func (a *App) Shutdown(context.Context) {
	a.cancel()
	a.jobsWG.Wait()
	a.selector.Wait()
	a.holder.Close()
	if a.runtime != nil {
		a.runtime.detach()
	}
	_ = a.logger.Sync()
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.diagnostics
}

// RefreshDiagnostics reruns dependency checks and reports any that still fail.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	if a.checker == nil {
		return domain.DiagnosticReport{}, fmt.Errorf("diagnostics are not configured")
	}
	report := a.checker.Run(a.Settings)

	a.mu.Lock()
	a.diagnostics = report
	a.mu.Unlock()

	a.reportDiagnosticFailures(report)
	return report, nil
}

// reportDiagnosticFailures shows failing checks so a missing tool is known
// before a job is started.
func (a *App) reportDiagnosticFailures(report domain.DiagnosticReport) {
	if !report.HasFailures {
		return
	}
	failed := lo.FilterMap(report.Items, func(item domain.DiagnosticItem, _ int) (string, bool) {
		if item.Status != domain.DiagnosticStatusFail {
			return "", false
		}
		line := item.Message
		if item.Hint != "" {
			line += "\n" + item.Hint
		}
		return line, true
	})
	a.logger.Warn("dependency checks failed", zap.Strings("checks", failed))
	a.shell.Error("Missing Dependencies", "Transcription will fail until these are fixed:\n\n"+strings.Join(failed, "\n\n"))
}

// SelectFile opens the audio file dialog and records the choice.
// Cancelling clears the selection.
func (a *App) SelectFile() (domain.UIState, error) {
	if a.Jobs.IsBusy() {
		return a.UIState(), jobs.ErrJobAlreadyRunning
	}

	path, err := a.shell.OpenAudioFile()
	if err != nil {
		return a.UIState(), fmt.Errorf("open file dialog: %w", err)
	}

	a.mu.Lock()
	a.inputPath = path
	a.outputPath = ""
	if path != "" {
		a.outputPath = transcribe.OutputPath(a.Settings.OutputDir, path)
	}
	a.mu.Unlock()

	if path != "" {
		a.logger.Info("file selected", zap.String("input", path))
	}

	state := a.UIState()
	a.fitWindow(state.StatusLabel)
	a.shell.Emit(uiStateEvent, state)
	return state, nil
}

// UIState returns the snapshot the frontend renders its controls from.
func (a *App) UIState() domain.UIState {
	a.mu.Lock()
	input := a.inputPath
	output := a.outputPath
	a.mu.Unlock()

	job := a.Jobs.Current()
	busy := a.Jobs.IsBusy()
	selected := a.selector.Selected()
	ready := a.selector.Ready()

	label := input
	if label == "" {
		label = "No file selected"
	}
	if a.Jobs.IsRunning() {
		label = "Transcribing..."
	}

	state := domain.UIState{
		ModelLabel:        selected.Label,
		ModelID:           selected.ID,
		ModelLoading:      a.selector.Loading(),
		ModelReady:        ready,
		InputPath:         input,
		StatusLabel:       label,
		FileSelectEnabled: !busy,
		TranscribeEnabled: !busy && ready,
		JobStatus:         job.Status,
	}
	if output != "" {
		state.OutputName = filepath.Base(output)
	}
	return state
}

// CurrentJob returns current job metadata and status.
func (a *App) CurrentJob() domain.Job {
	return a.Jobs.Current()
}

// JobEvents returns all events with sequence greater than sinceSeq.
func (a *App) JobEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// OpenOutputFolder opens the folder of the last transcript, or the output directory.
func (a *App) OpenOutputFolder() error {
	a.mu.Lock()
	target := a.lastOutput
	a.mu.Unlock()

	if target != "" {
		target = filepath.Dir(target)
	} else {
		target = strings.TrimSpace(a.Settings.OutputDir)
	}
	if target == "" {
		target = "."
	}

	abs, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}
	if _, err := a.stat(abs); err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}
	a.logger.Info("open output folder", zap.String("path", abs))
	return a.openFolder(abs)
}

// fitWindow widens the window for long labels and shrinks it back for short ones.
func (a *App) fitWindow(label string) {
	width, resize := windowWidthFor(label, a.shell.WindowWidth())
	if resize {
		a.shell.SetWindowWidth(width)
	}
}

// pushState emits the current UI snapshot.
func (a *App) pushState() {
	a.shell.Emit(uiStateEvent, a.UIState())
}

// publishStatus sends a normalized status event.
func (a *App) publishStatus(jobID string, status domain.JobStatus, message string) {
	a.publishEvent(jobs.Event{
		JobID:   jobID,
		Type:    jobs.EventTypeStatus,
		Status:  status,
		Message: message,
	})
}

// publishEvent stores event history and emits runtime push notifications.
func (a *App) publishEvent(event jobs.Event) {
	published := a.events.Publish(event)
	a.shell.Emit("job:event", published)
}

// openInFileManager launches the platform file explorer for the provided path.
func openInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	return nil
}
