package models

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"whisper-transcriber/internal/domain"
	"whisper-transcriber/internal/whisper"
)

// modelLoader produces a ready model for one catalog entry.
type modelLoader interface {
	Load(ctx context.Context, opt domain.ModelOption) (whisper.Model, error)
}

// LoadOutcome reports how one dispatched load settled.
type LoadOutcome struct {
	Label   string
	ModelID string
	Elapsed time.Duration
	Err     error
	// Superseded is set when a newer selection arrived while loading;
	// the loaded model was discarded.
	Superseded bool
}

// Selector loads models off the caller's goroutine. Only the most recent
// selection may install its model into the Holder.
type Selector struct {
	loader modelLoader
	holder *Holder
	logger *zap.Logger

	mu       sync.Mutex
	gen      uint64
	pending  bool
	selected domain.ModelOption
	// cancelLoad aborts the in-flight load, including any weight download.
	cancelLoad context.CancelFunc
	wg         sync.WaitGroup
}

// NewSelector wires a loader to the holder it fills.
func NewSelector(loader modelLoader, holder *Holder, logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{loader: loader, holder: holder, logger: logger}
}

// Select resolves label and dispatches a load when it differs from the
// loaded model. It reports whether a load was started. done, if set, runs
// on the loading goroutine once the load settles.
func (s *Selector) Select(ctx context.Context, label string, done func(LoadOutcome)) (bool, error) {
	opt, err := Resolve(label)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	if s.holder.CurrentID() == opt.ID {
		if s.pending {
			// invalidate the in-flight load; the loaded model already matches
			s.gen++
			s.pending = false
			s.abortLocked()
		}
		s.selected = opt
		s.mu.Unlock()
		return false, nil
	}
	if s.pending && s.selected.ID == opt.ID {
		s.mu.Unlock()
		return false, nil
	}

	s.abortLocked()
	loadCtx, cancel := context.WithCancel(ctx)
	s.gen++
	gen := s.gen
	s.pending = true
	s.selected = opt
	s.cancelLoad = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("loading model", zap.String("model", opt.ID), zap.String("label", opt.Label))
	go s.load(loadCtx, cancel, gen, opt, done)
	return true, nil
}

// abortLocked cancels the in-flight load, if any. s.mu must be held.
func (s *Selector) abortLocked() {
	if s.cancelLoad != nil {
		s.cancelLoad()
		s.cancelLoad = nil
	}
}

func (s *Selector) load(ctx context.Context, cancel context.CancelFunc, gen uint64, opt domain.ModelOption, done func(LoadOutcome)) {
	defer s.wg.Done()
	defer cancel()

	started := time.Now()
	model, err := s.loader.Load(ctx, opt)

	var retired *handle
	s.mu.Lock()
	stale := gen != s.gen
	if !stale {
		s.pending = false
		s.cancelLoad = nil
		if err == nil {
			retired = s.holder.install(opt.ID, model)
		} else if current, ok := LabelFor(s.holder.CurrentID()); ok {
			// fall back to the model that is still loaded
			s.selected, _ = Resolve(current)
		}
	}
	s.mu.Unlock()

	s.holder.closeHandle(retired)

	if stale && err == nil {
		if closeErr := model.Close(); closeErr != nil {
			s.logger.Warn("close superseded model", zap.String("model", opt.ID), zap.Error(closeErr))
		}
	}

	outcome := LoadOutcome{
		Label:      opt.Label,
		ModelID:    opt.ID,
		Elapsed:    time.Since(started),
		Err:        err,
		Superseded: stale,
	}
	switch {
	case stale:
		s.logger.Debug("model load superseded", zap.String("model", opt.ID))
	case err != nil:
		s.logger.Error("model load failed", zap.String("model", opt.ID), zap.Error(err))
	default:
		s.logger.Info("model loaded", zap.String("model", opt.ID), zap.Duration("elapsed", outcome.Elapsed))
	}

	if done != nil {
		done(outcome)
	}
}

// Loading reports whether the latest selection is still loading.
func (s *Selector) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Selected returns the latest effective selection.
func (s *Selector) Selected() domain.ModelOption {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Ready reports whether the selected model is loaded and nothing is pending.
func (s *Selector) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.pending && s.selected.ID != "" && s.holder.CurrentID() == s.selected.ID
}

// Wait blocks until every dispatched load has settled.
func (s *Selector) Wait() {
	s.wg.Wait()
}
