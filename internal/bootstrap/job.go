package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"whisper-transcriber/internal/command"
	"whisper-transcriber/internal/domain"
	"whisper-transcriber/internal/jobs"
	"whisper-transcriber/internal/models"
	"whisper-transcriber/internal/transcribe"
)

var (
	// ErrNoFileSelected is returned when Transcribe runs before a file is chosen.
	ErrNoFileSelected = errors.New("no file selected")
	// ErrModelNotReady is returned while the selected model is still loading.
	ErrModelNotReady = errors.New("model is not ready")
)

// jobRequest is everything the worker needs. It is never mutated after launch.
type jobRequest struct {
	ID         string
	ModelID    string
	InputPath  string
	OutputPath string
	Language   string
	Verbose    bool
}

// jobOutcome is the typed result the worker hands back.
type jobOutcome struct {
	Result transcribe.Result
	Err    error
}

// inflightJob is the controller's handle on the running worker.
type inflightJob struct {
	req  jobRequest
	done chan jobOutcome
}

// Transcribe validates the selection, confirms overwrites, and launches the worker.
// A declined overwrite returns the idle job and a nil error.
func (a *App) Transcribe() (domain.Job, error) {
	a.mu.Lock()
	input := a.inputPath
	output := a.outputPath
	a.mu.Unlock()

	if input == "" {
		a.shell.Error("Error", "No file selected")
		return domain.Job{}, ErrNoFileSelected
	}
	if !a.selector.Ready() {
		a.shell.Error("Error", "The selected model is still loading. Try again when it is ready.")
		return domain.Job{}, ErrModelNotReady
	}

	jobID := uuid.NewString()
	if err := a.Jobs.Reserve(jobID); err != nil {
		return a.Jobs.Current(), err
	}

	if _, err := a.stat(output); err == nil {
		name := filepath.Base(output)
		if !a.shell.Confirm("File Exists", fmt.Sprintf("The file %s already exists. Do you want to overwrite it?", name)) {
			_ = a.Jobs.Release()
			a.logger.Info("overwrite declined", zap.String("output", output))
			a.pushState()
			return a.Jobs.Current(), nil
		}
	}

	lease, err := a.holder.Acquire()
	if err == nil && lease.ID != a.selector.Selected().ID {
		lease.Release()
		err = ErrModelNotReady
	}
	if err != nil {
		return a.abortStart(jobID, err)
	}

	if err := a.Jobs.Start(); err != nil {
		lease.Release()
		return a.abortStart(jobID, err)
	}

	req := jobRequest{
		ID:         jobID,
		ModelID:    lease.ID,
		InputPath:  input,
		OutputPath: output,
		Language:   a.Settings.Language,
		Verbose:    a.Settings.Verbose,
	}
	job := &inflightJob{req: req, done: make(chan jobOutcome, 1)}

	a.mu.Lock()
	a.inflight = job
	a.mu.Unlock()

	a.logger.Info("transcription started",
		zap.String("job", jobID),
		zap.String("model", lease.ID),
		zap.String("input", input),
		zap.String("output", output),
	)
	a.publishStatus(jobID, domain.JobStatusPreprocessing, "Job started")
	a.pushState()
	a.shell.Info("Transcription Started", "Transcription started.\nYou will be notified when it is complete.")

	a.jobsWG.Add(2)
	go a.runJob(req, lease, job.done)
	go a.awaitJob(job)

	return a.Jobs.Current(), nil
}

// abortStart reports a failure that happened before the worker was launched.
func (a *App) abortStart(jobID string, err error) (domain.Job, error) {
	_ = a.Jobs.Transition(domain.JobStatusFailed)
	a.publishEvent(jobs.Event{
		JobID:   jobID,
		Type:    jobs.EventTypeError,
		Status:  domain.JobStatusFailed,
		Message: err.Error(),
	})
	a.logger.Error("transcription not started", zap.String("job", jobID), zap.Error(err))
	a.pushState()
	a.shell.Error("Error", "An error occurred during transcription.\n"+err.Error())
	return a.Jobs.Current(), err
}

// runJob executes the pipeline for req and always delivers exactly one outcome.
func (a *App) runJob(req jobRequest, lease *models.Lease, done chan<- jobOutcome) {
	defer a.jobsWG.Done()
	defer lease.Release()

	var outcome jobOutcome
	defer func() {
		if r := recover(); r != nil {
			outcome = jobOutcome{Err: fmt.Errorf("transcription worker panic: %v", r)}
		}
		done <- outcome
	}()

	outcome.Result, outcome.Err = a.Pipeline.Run(a.baseCtx, transcribe.Request{
		InputPath:  req.InputPath,
		OutputPath: req.OutputPath,
		Model:      lease.Model,
		Language:   req.Language,
		Verbose:    req.Verbose,
		OnStage: func(stage string) {
			status, ok := mapStageToStatus(stage)
			if !ok {
				return
			}
			if err := a.Jobs.Transition(status); err == nil {
				a.publishStatus(req.ID, status, "Running "+stage+" stage")
			}
		},
		OnLog: func(log command.Log) {
			a.publishEvent(jobs.Event{
				JobID:    req.ID,
				Type:     jobs.EventTypeLog,
				Message:  "Command completed",
				Command:  log.Command,
				Args:     log.Args,
				ExitCode: log.ExitCode,
				Stderr:   log.Stderr,
			})
		},
	})
}

// awaitJob receives the worker outcome and restores the UI.
func (a *App) awaitJob(job *inflightJob) {
	defer a.jobsWG.Done()

	outcome := <-job.done
	req := job.req

	if outcome.Err != nil {
		_ = a.Jobs.Transition(domain.JobStatusFailed)
		a.publishStatus(req.ID, domain.JobStatusFailed, "Job failed")
		a.publishEvent(jobs.Event{
			JobID:   req.ID,
			Type:    jobs.EventTypeError,
			Status:  domain.JobStatusFailed,
			Message: outcome.Err.Error(),
		})

		var pipelineErr *transcribe.PipelineError
		if errors.As(outcome.Err, &pipelineErr) && pipelineErr.CommandLog.Command != "" {
			a.publishEvent(jobs.Event{
				JobID:    req.ID,
				Type:     jobs.EventTypeLog,
				Message:  "Failed command",
				Command:  pipelineErr.CommandLog.Command,
				Args:     pipelineErr.CommandLog.Args,
				ExitCode: pipelineErr.CommandLog.ExitCode,
				Stderr:   pipelineErr.CommandLog.Stderr,
			})
		}
		a.logger.Error("transcription failed", zap.String("job", req.ID), zap.Error(outcome.Err))
	} else {
		_ = a.Jobs.Transition(domain.JobStatusDone)
		a.publishStatus(req.ID, domain.JobStatusDone, "Job completed")
		a.publishEvent(jobs.Event{
			JobID:        req.ID,
			Type:         jobs.EventTypeResult,
			Status:       domain.JobStatusDone,
			Message:      "Transcript exported",
			ModelID:      req.ModelID,
			OutputPath:   outcome.Result.OutputPath,
			SegmentCount: len(outcome.Result.Segments),
		})
		a.logger.Info("transcription complete",
			zap.String("job", req.ID),
			zap.String("output", outcome.Result.OutputPath),
			zap.Int("segments", len(outcome.Result.Segments)),
		)
	}

	a.mu.Lock()
	if a.inflight == job {
		a.inflight = nil
	}
	if outcome.Err == nil {
		a.lastOutput = req.OutputPath
	}
	a.mu.Unlock()

	a.pushState()
	if errors.Is(outcome.Err, context.Canceled) && a.baseCtx.Err() != nil {
		// app is shutting down
		return
	}
	if outcome.Err != nil {
		a.shell.Error("Error", "An error occurred during transcription.\n"+outcome.Err.Error())
		return
	}
	a.shell.Info("Transcription Complete", fmt.Sprintf("Transcription complete.\nFile saved as %s.", filepath.Base(req.OutputPath)))
}

// mapStageToStatus maps pipeline stage names to job statuses.
func mapStageToStatus(stage string) (domain.JobStatus, bool) {
	switch stage {
	case transcribe.StagePreprocessing:
		return domain.JobStatusPreprocessing, true
	case transcribe.StageTranscribing:
		return domain.JobStatusTranscribing, true
	case transcribe.StageExporting:
		return domain.JobStatusExporting, true
	default:
		return "", false
	}
}
