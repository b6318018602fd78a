//go:build whisper_cpp

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"

	whisperpkg "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"go.uber.org/zap"

	"whisper-transcriber/internal/audio"
)

// RequiresBinary reports whether this build shells out to the whisper.cpp CLI.
const RequiresBinary = false

type cppLoader struct {
	cfg    Config
	logger *zap.Logger
}

// NewLoader returns a loader backed by in-process whisper.cpp bindings.
func NewLoader(cfg Config, logger *zap.Logger) Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Threads == 0 {
		cfg.Threads = uint(runtime.NumCPU())
	}
	return &cppLoader{cfg: cfg, logger: logger}
}

// Load reads model weights into memory. This can take several seconds for large models.
func (l *cppLoader) Load(ctx context.Context, modelPath string) (Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := whisperpkg.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	l.logger.Info("whisper model loaded", zap.String("model", modelPath), zap.Uint("threads", l.cfg.Threads))
	return &cppModel{model: m, threads: l.cfg.Threads, logger: l.logger}, nil
}

type cppModel struct {
	mu      sync.Mutex // whisper.cpp contexts must not run concurrently on one model
	model   whisperpkg.Model
	threads uint
	logger  *zap.Logger
}

func (m *cppModel) Transcribe(ctx context.Context, audioPath string, opts Options) ([]Segment, error) {
	samples, err := audio.LoadMono16k(audioPath)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	wctx, err := m.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("create context: %w", err)
	}
	wctx.SetThreads(m.threads)
	lang := normalizeLanguage(opts.Language)
	if lang == "" {
		lang = "auto"
	}
	if err := wctx.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("set language %q: %w", lang, err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("process audio: %w", err)
	}

	var segments []Segment
	for {
		seg, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("next segment: %w", err)
		}

		out := Segment{Start: seg.Start, End: seg.End, Text: seg.Text}
		if opts.Verbose {
			m.logger.Info("segment", zap.Duration("start", out.Start), zap.Duration("end", out.End), zap.String("text", out.Text))
		}
		segments = append(segments, out)
	}
	return segments, nil
}

func (m *cppModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.model == nil {
		return nil
	}
	err := m.model.Close()
	m.model = nil
	return err
}
