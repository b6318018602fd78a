package whisper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"whisper-transcriber/internal/command"
)

// Segment is one transcribed span of audio.
type Segment struct {
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
	Text  string        `json:"text"`
}

// Options tune a single Transcribe call.
type Options struct {
	Language string
	// Verbose logs each segment as it is decoded.
	Verbose bool
}

// Model is a loaded speech-recognition model.
// Implementations must tolerate Close racing with nothing: callers
// close only after every Transcribe has returned.
type Model interface {
	// Transcribe decodes a 16 kHz mono WAV file into ordered segments.
	Transcribe(ctx context.Context, audioPath string, opts Options) ([]Segment, error)
	Close() error
}

// Loader turns a model weight file into a ready Model.
type Loader interface {
	Load(ctx context.Context, modelPath string) (Model, error)
}

// Config configures the engine backing NewLoader.
type Config struct {
	// BinaryPath is the whisper.cpp CLI used by the default build.
	BinaryPath string
	Threads    uint
}

// CLIError is a whisper.cpp CLI failure with its command context.
type CLIError struct {
	Message string
	Log     command.Log
	Err     error
}

func (e *CLIError) Error() string {
	if e.Log.Command == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (cmd=%s exit=%d)", e.Message, e.Log.Command, e.Log.ExitCode)
}

func (e *CLIError) Unwrap() error { return e.Err }

// normalizeLanguage maps "auto" and empty language to no override.
func normalizeLanguage(raw string) string {
	lang := strings.TrimSpace(raw)
	if lang == "" || strings.EqualFold(lang, "auto") {
		return ""
	}
	return lang
}
