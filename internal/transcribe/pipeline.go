package transcribe

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"whisper-transcriber/internal/command"
	"whisper-transcriber/internal/whisper"
)

const (
	StagePreprocessing = "preprocessing"
	StageTranscribing  = "transcribing"
	StageExporting     = "exporting"
)

// Request is the immutable description of one transcription job.
type Request struct {
	InputPath  string
	OutputPath string
	Model      whisper.Model
	Language   string
	Verbose    bool
	OnStage    func(stage string)
	OnLog      func(log command.Log)
}

// Result contains the written transcript path, its segments, and command logs.
type Result struct {
	OutputPath string
	Segments   []whisper.Segment
	Logs       []command.Log
}

// PipelineError is a stage-aware error with optional command context.
type PipelineError struct {
	Stage      string      `json:"stage"`
	Message    string      `json:"message"`
	CommandLog command.Log `json:"commandLog"`
	Err        error       `json:"-"`
}

// Error formats pipeline failures for logs and UI.
func (e *PipelineError) Error() string {
	if e == nil {
		return ""
	}
	if e.CommandLog.Command == "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}

	return fmt.Sprintf(
		"%s: %s (cmd=%s exit=%d)",
		e.Stage,
		e.Message,
		e.CommandLog.Command,
		e.CommandLog.ExitCode,
	)
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *PipelineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Pipeline converts media with ffmpeg, runs the model, and exports one line per segment.
type Pipeline struct {
	ffmpegPath string
	runner     command.Runner
	mkdirTemp  func(dir, pattern string) (string, error)
	removeAll  func(path string) error
	stat       func(name string) (os.FileInfo, error)
	mkdirAll   func(path string, perm os.FileMode) error
	create     func(name string) (*os.File, error)
}

// NewPipeline constructs the production pipeline with OS dependencies.
func NewPipeline(ffmpegPath string) *Pipeline {
	if strings.TrimSpace(ffmpegPath) == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Pipeline{
		ffmpegPath: ffmpegPath,
		runner:     &command.ExecRunner{},
		mkdirTemp:  os.MkdirTemp,
		removeAll:  os.RemoveAll,
		stat:       os.Stat,
		mkdirAll:   os.MkdirAll,
		create:     os.Create,
	}
}

// Run performs preprocessing, transcription, and transcript export.
// The output file is only touched after the model returns successfully.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.InputPath) == "" {
		return Result{}, &PipelineError{
			Stage:   StagePreprocessing,
			Message: "input media path is required",
		}
	}
	if _, err := p.stat(req.InputPath); err != nil {
		return Result{}, &PipelineError{
			Stage:   StagePreprocessing,
			Message: fmt.Sprintf("cannot access input media: %s", req.InputPath),
			Err:     err,
		}
	}
	if req.Model == nil {
		return Result{}, &PipelineError{
			Stage:   StageTranscribing,
			Message: "no model loaded",
		}
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return Result{}, &PipelineError{
			Stage:   StageExporting,
			Message: "output path is required",
		}
	}

	tempDir, err := p.mkdirTemp("", "whisper-transcriber-*")
	if err != nil {
		return Result{}, &PipelineError{
			Stage:   StagePreprocessing,
			Message: "failed to create temporary workspace",
			Err:     err,
		}
	}
	defer func() { _ = p.removeAll(tempDir) }()

	wavPath := filepath.Join(tempDir, "preprocessed-16k-mono.wav")
	emitStage(req.OnStage, StagePreprocessing)
	args := buildFFmpegArgs(req.InputPath, wavPath)

	cmdResult, runErr := p.runner.Run(ctx, p.ffmpegPath, args...)
	log := command.NewLog(p.ffmpegPath, args, cmdResult)
	emitLog(req.OnLog, log)
	if runErr != nil {
		return Result{}, &PipelineError{
			Stage:      StagePreprocessing,
			Message:    "ffmpeg audio conversion failed",
			CommandLog: log,
			Err:        runErr,
		}
	}
	if _, err := p.stat(wavPath); err != nil {
		return Result{}, &PipelineError{
			Stage:      StagePreprocessing,
			Message:    "ffmpeg completed but output file is missing",
			CommandLog: log,
			Err:        err,
		}
	}

	emitStage(req.OnStage, StageTranscribing)
	segments, err := req.Model.Transcribe(ctx, wavPath, whisper.Options{
		Language: req.Language,
		Verbose:  req.Verbose,
	})
	if err != nil {
		pErr := &PipelineError{
			Stage:   StageTranscribing,
			Message: "speech recognition failed",
			Err:     err,
		}
		var cliErr *whisper.CLIError
		if errors.As(err, &cliErr) {
			pErr.Message = cliErr.Message
			pErr.CommandLog = cliErr.Log
			emitLog(req.OnLog, cliErr.Log)
		}
		return Result{}, pErr
	}

	emitStage(req.OnStage, StageExporting)
	if dir := filepath.Dir(req.OutputPath); dir != "." {
		if err := p.mkdirAll(dir, 0o755); err != nil {
			return Result{}, &PipelineError{
				Stage:   StageExporting,
				Message: fmt.Sprintf("cannot create output directory: %s", dir),
				Err:     err,
			}
		}
	}
	if err := p.writeTranscript(req.OutputPath, segments); err != nil {
		return Result{}, &PipelineError{
			Stage:   StageExporting,
			Message: fmt.Sprintf("failed to write transcript file: %s", req.OutputPath),
			Err:     err,
		}
	}

	return Result{
		OutputPath: req.OutputPath,
		Segments:   segments,
		Logs:       []command.Log{log},
	}, nil
}

// writeTranscript truncates path and writes one line per segment.
func (p *Pipeline) writeTranscript(path string, segments []whisper.Segment) error {
	f, err := p.create(path)
	if err != nil {
		return err
	}
	if err := WriteSegments(f, segments); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// WriteSegments writes each segment's text verbatim followed by a newline.
func WriteSegments(w io.Writer, segments []whisper.Segment) error {
	bw := bufio.NewWriter(w)
	for _, seg := range segments {
		if _, err := bw.WriteString(seg.Text); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// emitStage forwards stage updates when callback is configured.
func emitStage(cb func(stage string), stage string) {
	if cb != nil {
		cb(stage)
	}
}

// emitLog forwards command logs when callback is configured.
func emitLog(cb func(log command.Log), log command.Log) {
	if cb != nil {
		cb(log)
	}
}

// buildFFmpegArgs builds preprocessing CLI args for mono 16k PCM WAV output.
func buildFFmpegArgs(inputPath, outPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		outPath,
	}
}

// OutputFileName replaces the extension of the input's last path segment with ".txt".
func OutputFileName(inputPath string) string {
	base := filepath.Base(inputPath)
	name := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "transcript"
	}
	return name + ".txt"
}

// OutputPath places the derived transcript name inside outputDir.
// An empty outputDir means the process working directory.
func OutputPath(outputDir, inputPath string) string {
	return filepath.Join(strings.TrimSpace(outputDir), OutputFileName(inputPath))
}

// NewPipelineForTests constructs a pipeline with injectable dependencies.
func NewPipelineForTests(
	ffmpegPath string,
	runner command.Runner,
	mkdirTemp func(dir, pattern string) (string, error),
	removeAll func(path string) error,
	stat func(name string) (os.FileInfo, error),
) *Pipeline {
	return &Pipeline{
		ffmpegPath: ffmpegPath,
		runner:     runner,
		mkdirTemp:  mkdirTemp,
		removeAll:  removeAll,
		stat:       stat,
		mkdirAll:   os.MkdirAll,
		create:     os.Create,
	}
}
