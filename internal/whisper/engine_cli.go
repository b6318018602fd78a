//go:build !whisper_cpp

package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"whisper-transcriber/internal/command"
)

// RequiresBinary reports whether this build shells out to the whisper.cpp CLI.
const RequiresBinary = true

type cliLoader struct {
	cfg    Config
	runner command.Runner
	logger *zap.Logger
}

// NewLoader returns a loader backed by the whisper.cpp command-line tool.
func NewLoader(cfg Config, logger *zap.Logger) Loader {
	return newCLILoader(cfg, &command.ExecRunner{}, logger)
}

func newCLILoader(cfg Config, runner command.Runner, logger *zap.Logger) *cliLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.BinaryPath) == "" {
		cfg.BinaryPath = "whisper-cli"
	}
	return &cliLoader{cfg: cfg, runner: runner, logger: logger}
}

// Load validates the weight file. The CLI reads weights per invocation.
func (l *cliLoader) Load(ctx context.Context, modelPath string) (Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("load model: %s is a directory", modelPath)
	}

	l.logger.Info("whisper model ready", zap.String("model", modelPath), zap.String("engine", l.cfg.BinaryPath))
	return &cliModel{
		path:   modelPath,
		cfg:    l.cfg,
		runner: l.runner,
		logger: l.logger,
	}, nil
}

type cliModel struct {
	path   string
	cfg    Config
	runner command.Runner
	logger *zap.Logger
}

type cliOutput struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func (m *cliModel) Transcribe(ctx context.Context, audioPath string, opts Options) ([]Segment, error) {
	if strings.TrimSpace(audioPath) == "" {
		return nil, fmt.Errorf("audio path is required")
	}

	workDir, err := os.MkdirTemp("", "whisper-transcriber-cli-*")
	if err != nil {
		return nil, fmt.Errorf("create whisper workspace: %w", err)
	}
	defer os.RemoveAll(workDir)

	outBase := filepath.Join(workDir, "transcript")
	args := buildCLIArgs(m.path, audioPath, outBase, opts.Language, m.cfg.Threads)

	m.logger.Debug("running whisper engine", zap.String("engine", m.cfg.BinaryPath), zap.Strings("args", args))
	result, runErr := m.runner.Run(ctx, m.cfg.BinaryPath, args...)
	log := command.NewLog(m.cfg.BinaryPath, args, result)
	if runErr != nil {
		return nil, &CLIError{
			Message: "whisper.cpp transcription failed",
			Log:     log,
			Err:     runErr,
		}
	}

	data, err := os.ReadFile(outBase + ".json")
	if err != nil {
		return nil, &CLIError{
			Message: "whisper.cpp completed but JSON output is missing",
			Log:     log,
			Err:     err,
		}
	}

	segments, err := parseCLIOutput(data)
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		for _, seg := range segments {
			m.logger.Info("segment", zap.Duration("start", seg.Start), zap.Duration("end", seg.End), zap.String("text", seg.Text))
		}
	}
	return segments, nil
}

func (m *cliModel) Close() error { return nil }

func parseCLIOutput(data []byte) ([]Segment, error) {
	var out cliOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse whisper output: %w", err)
	}

	segments := make([]Segment, 0, len(out.Transcription))
	for _, item := range out.Transcription {
		segments = append(segments, Segment{
			Start: time.Duration(item.Offsets.From) * time.Millisecond,
			End:   time.Duration(item.Offsets.To) * time.Millisecond,
			Text:  item.Text,
		})
	}
	return segments, nil
}

// buildCLIArgs builds whisper.cpp args for JSON segment export.
func buildCLIArgs(modelPath, audioPath, outBase, language string, threads uint) []string {
	args := []string{
		"-m", modelPath,
		"-f", audioPath,
		"-oj",
		"-of", outBase,
		"-np",
	}
	if threads > 0 {
		args = append(args, "-t", strconv.FormatUint(uint64(threads), 10))
	}

	lang := normalizeLanguage(language)
	if lang == "" {
		lang = "auto"
	}
	return append(args, "-l", lang)
}
