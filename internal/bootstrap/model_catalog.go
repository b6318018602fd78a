package bootstrap

import (
	"fmt"

	"go.uber.org/zap"

	"whisper-transcriber/internal/domain"
	"whisper-transcriber/internal/jobs"
	"whisper-transcriber/internal/models"
)

// ModelLabels returns the model combobox entries in catalog order.
func (a *App) ModelLabels() []string {
	return models.Labels()
}

// GetModels returns the catalog with download state for the configured model directory.
func (a *App) GetModels() []domain.ModelOption {
	return models.Options(a.Settings.ModelDir)
}

// SelectModel switches to the model behind label. Loading happens in the
// background; the frontend learns the result through ui:state.
func (a *App) SelectModel(label string) (domain.UIState, error) {
	started, err := a.selector.Select(a.baseCtx, label, a.onModelLoaded)
	if err != nil {
		return a.UIState(), err
	}
	if started {
		opt := a.selector.Selected()
		a.publishEvent(jobs.Event{
			Type:    jobs.EventTypeModel,
			ModelID: opt.ID,
			Message: "Loading " + opt.Label,
		})
	}

	state := a.UIState()
	a.shell.Emit(uiStateEvent, state)
	return state, nil
}

// onModelLoaded runs on the selector's loading goroutine.
func (a *App) onModelLoaded(outcome models.LoadOutcome) {
	if outcome.Superseded {
		a.pushState()
		return
	}

	if outcome.Err != nil {
		a.publishEvent(jobs.Event{
			Type:    jobs.EventTypeError,
			ModelID: outcome.ModelID,
			Message: outcome.Err.Error(),
		})
		a.pushState()
		if a.baseCtx.Err() == nil {
			a.shell.Error("Error", fmt.Sprintf("Failed to load model %s.\n%v", outcome.Label, outcome.Err))
		}
		return
	}

	a.logger.Info("model ready", zap.String("model", outcome.ModelID), zap.Duration("elapsed", outcome.Elapsed))
	a.publishEvent(jobs.Event{
		Type:    jobs.EventTypeModel,
		ModelID: outcome.ModelID,
		Message: outcome.Label + " loaded",
	})
	a.pushState()
}
