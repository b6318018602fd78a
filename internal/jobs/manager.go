package jobs

import (
	"errors"
	"fmt"
	"sync"

	"whisper-transcriber/internal/domain"
)

// ErrJobAlreadyRunning is returned when reserving a second active job.
var ErrJobAlreadyRunning = errors.New("job already running")

// ErrNoReservedJob is returned when a job is started or released without a reservation.
var ErrNoReservedJob = errors.New("no reserved job")

// Manager is the single job slot and its state machine. Holding the slot
// (confirming or running) excludes every other job, independent of how
// the UI renders its controls.
type Manager struct {
	mu      sync.RWMutex
	current domain.Job
}

// NewManager creates a manager in idle state.
func NewManager() *Manager {
	return &Manager{
		current: domain.Job{
			Status: domain.JobStatusIdle,
		},
	}
}

// Reserve claims the slot for jobID while the user confirms the job.
func (m *Manager) Reserve(jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if isBusy(m.current.Status) {
		return ErrJobAlreadyRunning
	}

	m.current = domain.Job{
		ID:     jobID,
		Status: domain.JobStatusConfirming,
	}
	return nil
}

// Start moves the reserved job into preprocessing.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Status != domain.JobStatusConfirming {
		return ErrNoReservedJob
	}
	m.current.Status = domain.JobStatusPreprocessing
	return nil
}

// Release returns a reserved but never started job to idle.
func (m *Manager) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Status != domain.JobStatusConfirming {
		return ErrNoReservedJob
	}
	m.current = domain.Job{Status: domain.JobStatusIdle}
	return nil
}

// Transition validates and applies state transitions for current job.
func (m *Manager) Transition(status domain.JobStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.ID == "" && status != domain.JobStatusIdle {
		return fmt.Errorf("cannot transition without an active job")
	}
	if status == m.current.Status {
		return nil
	}
	if !isValidTransition(m.current.Status, status) {
		return fmt.Errorf("invalid transition: %s -> %s", m.current.Status, status)
	}

	m.current.Status = status
	return nil
}

// Current returns a snapshot of the current job.
func (m *Manager) Current() domain.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// IsBusy reports whether the slot is held.
func (m *Manager) IsBusy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return isBusy(m.current.Status)
}

// IsRunning reports whether the current state is an active pipeline stage.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return isRunning(m.current.Status)
}

func isBusy(status domain.JobStatus) bool {
	return status == domain.JobStatusConfirming || isRunning(status)
}

// isRunning checks if a status represents active pipeline execution.
func isRunning(status domain.JobStatus) bool {
	switch status {
	case domain.JobStatusPreprocessing, domain.JobStatusTranscribing, domain.JobStatusExporting:
		return true
	default:
		return false
	}
}

// isValidTransition enforces the allowed job state machine edges.
func isValidTransition(from, to domain.JobStatus) bool {
	switch from {
	case domain.JobStatusIdle, domain.JobStatusDone, domain.JobStatusFailed:
		return to == domain.JobStatusIdle
	case domain.JobStatusConfirming:
		return to == domain.JobStatusPreprocessing || to == domain.JobStatusIdle || to == domain.JobStatusFailed
	case domain.JobStatusPreprocessing:
		return to == domain.JobStatusTranscribing || to == domain.JobStatusFailed
	case domain.JobStatusTranscribing:
		return to == domain.JobStatusExporting || to == domain.JobStatusFailed
	case domain.JobStatusExporting:
		return to == domain.JobStatusDone || to == domain.JobStatusFailed
	default:
		return false
	}
}
