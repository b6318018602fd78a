package models

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"whisper-transcriber/internal/whisper"
)

// ErrNoModel is returned when no model has finished loading yet.
var ErrNoModel = errors.New("no model loaded")

// handle tracks how many leases still use one loaded model.
type handle struct {
	id      string
	model   whisper.Model
	refs    int
	retired bool
}

// Holder owns the currently loaded model. Replacing it retires the old
// model, which is closed as soon as its last lease is released.
type Holder struct {
	mu      sync.Mutex
	current *handle
	logger  *zap.Logger
}

// NewHolder creates an empty holder.
func NewHolder(logger *zap.Logger) *Holder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Holder{logger: logger}
}

// Lease pins a model for the duration of one job.
type Lease struct {
	ID    string
	Model whisper.Model

	once    sync.Once
	release func()
}

// Release unpins the model. Safe to call more than once.
func (l *Lease) Release() {
	if l == nil {
		return
	}
	l.once.Do(func() {
		if l.release != nil {
			l.release()
		}
	})
}

// Replace installs model under id, retiring the previous one.
func (h *Holder) Replace(id string, model whisper.Model) {
	h.closeHandle(h.install(id, model))
}

// install swaps in model and returns the retired handle when nothing leases
// it any more. The caller closes it, outside of any lock it holds.
func (h *Holder) install(id string, model whisper.Model) *handle {
	h.mu.Lock()
	defer h.mu.Unlock()

	old := h.current
	h.current = &handle{id: id, model: model}
	if old != nil && h.retireLocked(old) {
		return old
	}
	return nil
}

// Acquire leases the current model.
func (h *Holder) Acquire() (*Lease, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	hd := h.current
	if hd == nil {
		return nil, ErrNoModel
	}
	hd.refs++
	return &Lease{
		ID:    hd.id,
		Model: hd.model,
		release: func() {
			h.mu.Lock()
			hd.refs--
			closeNow := hd.retired && hd.refs == 0
			h.mu.Unlock()
			if closeNow {
				h.closeHandle(hd)
			}
		},
	}, nil
}

// CurrentID returns the identifier of the loaded model, or "".
func (h *Holder) CurrentID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		return ""
	}
	return h.current.id
}

// Close retires the current model. It is closed once no lease holds it.
func (h *Holder) Close() {
	h.mu.Lock()
	old := h.current
	h.current = nil
	closeOld := old != nil && h.retireLocked(old)
	h.mu.Unlock()

	if closeOld {
		h.closeHandle(old)
	}
}

// retireLocked marks hd retired and reports whether it can be closed now.
func (h *Holder) retireLocked(hd *handle) bool {
	hd.retired = true
	return hd.refs == 0
}

func (h *Holder) closeHandle(hd *handle) {
	if hd == nil {
		return
	}
	if err := hd.model.Close(); err != nil {
		h.logger.Warn("close model", zap.String("model", hd.id), zap.Error(err))
		return
	}
	h.logger.Debug("model released", zap.String("model", hd.id))
}
