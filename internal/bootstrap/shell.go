package bootstrap

import (
	"context"
	"strings"
	"sync"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

var audioDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Audio files",
		Pattern:     "*.mp3;*.mp4;*.mpeg;*.mpga;*.m4a;*.wav;*.webm",
	},
}

// shell is the slice of the desktop runtime the controller talks to.
type shell interface {
	OpenAudioFile() (string, error)
	Confirm(title, message string) bool
	Info(title, message string)
	Error(title, message string)
	WindowWidth() int
	SetWindowWidth(width int)
	Emit(event string, payload any)
}

// wailsShell forwards to the Wails runtime once OnStartup has handed over a context.
// Calls before that are dropped.
type wailsShell struct {
	mu  sync.Mutex
	ctx context.Context
}

func (s *wailsShell) attach(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = ctx
}

func (s *wailsShell) detach() {
	s.attach(nil)
}

func (s *wailsShell) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func (s *wailsShell) OpenAudioFile() (string, error) {
	ctx := s.context()
	if ctx == nil {
		return "", errRuntimeNotReady
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select audio file",
		Filters: audioDialogFilter,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(path), nil
}

func (s *wailsShell) Confirm(title, message string) bool {
	ctx := s.context()
	if ctx == nil {
		return false
	}

	answer, err := wailsruntime.MessageDialog(ctx, wailsruntime.MessageDialogOptions{
		Type:          wailsruntime.QuestionDialog,
		Title:         title,
		Message:       message,
		Buttons:       []string{"Yes", "No"},
		DefaultButton: "No",
		CancelButton:  "No",
	})
	if err != nil {
		return false
	}
	return answer == "Yes"
}

func (s *wailsShell) Info(title, message string) {
	s.message(wailsruntime.MessageDialogOptions{
		Type:    wailsruntime.InfoDialog,
		Title:   title,
		Message: message,
	})
}

func (s *wailsShell) Error(title, message string) {
	s.message(wailsruntime.MessageDialogOptions{
		Type:    wailsruntime.ErrorDialog,
		Title:   title,
		Message: message,
	})
}

func (s *wailsShell) message(opts wailsruntime.MessageDialogOptions) {
	ctx := s.context()
	if ctx == nil {
		return
	}
	_, _ = wailsruntime.MessageDialog(ctx, opts)
}

func (s *wailsShell) WindowWidth() int {
	ctx := s.context()
	if ctx == nil {
		return defaultWindowWidth
	}
	width, _ := wailsruntime.WindowGetSize(ctx)
	return width
}

func (s *wailsShell) SetWindowWidth(width int) {
	ctx := s.context()
	if ctx == nil {
		return
	}
	_, height := wailsruntime.WindowGetSize(ctx)
	if height <= 0 {
		height = defaultWindowHeight
	}
	wailsruntime.WindowSetSize(ctx, width, height)
}

func (s *wailsShell) Emit(event string, payload any) {
	ctx := s.context()
	if ctx == nil {
		return
	}
	wailsruntime.EventsEmit(ctx, event, payload)
}
