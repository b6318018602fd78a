//go:build !whisper_cpp

package whisper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"whisper-transcriber/internal/command"
)

type fakeRunner struct {
	run func(ctx context.Context, name string, args ...string) (command.Result, error)
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (command.Result, error) {
	return f.run(ctx, name, args...)
}

func argValue(args []string, key string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == key {
			return args[i+1]
		}
	}
	return ""
}

const sampleJSON = `{
  "result": {"language": "en"},
  "transcription": [
    {"offsets": {"from": 0, "to": 2500}, "text": " Hello there."},
    {"offsets": {"from": 2500, "to": 4000}, "text": " General Kenobi."}
  ]
}`

func TestCLIModelTranscribeParsesSegmentsInOrder(t *testing.T) {
	t.Parallel()

	modelPath := filepath.Join(t.TempDir(), "ggml-base.bin")
	require.NoError(t, os.WriteFile(modelPath, []byte("weights"), 0o644))

	var gotName string
	var gotArgs []string
	runner := &fakeRunner{run: func(ctx context.Context, name string, args ...string) (command.Result, error) {
		gotName = name
		gotArgs = append([]string{}, args...)
		base := argValue(args, "-of")
		require.NoError(t, os.WriteFile(base+".json", []byte(sampleJSON), 0o644))
		return command.Result{}, nil
	}}

	loader := newCLILoader(Config{BinaryPath: "whisper-custom", Threads: 4}, runner, nil)
	model, err := loader.Load(context.Background(), modelPath)
	require.NoError(t, err)

	segments, err := model.Transcribe(context.Background(), "/tmp/audio.wav", Options{
		Language: "auto",
		Verbose:  true,
	})
	require.NoError(t, err)
	require.Equal(t, "whisper-custom", gotName)
	require.Equal(t, modelPath, argValue(gotArgs, "-m"))
	require.Equal(t, "/tmp/audio.wav", argValue(gotArgs, "-f"))
	require.Equal(t, "4", argValue(gotArgs, "-t"))
	require.Equal(t, "auto", argValue(gotArgs, "-l"))

	require.Len(t, segments, 2)
	require.Equal(t, " Hello there.", segments[0].Text)
	require.Equal(t, 2500*time.Millisecond, segments[0].End)
	require.Equal(t, " General Kenobi.", segments[1].Text)
	require.NoError(t, model.Close())
}

func TestCLIModelTranscribeReportsCommandFailure(t *testing.T) {
	t.Parallel()

	modelPath := filepath.Join(t.TempDir(), "ggml-tiny.bin")
	require.NoError(t, os.WriteFile(modelPath, []byte("weights"), 0o644))

	runner := &fakeRunner{run: func(ctx context.Context, name string, args ...string) (command.Result, error) {
		return command.Result{Stderr: "bad model", ExitCode: 1}, errors.New("exit status 1")
	}}

	model, err := newCLILoader(Config{}, runner, nil).Load(context.Background(), modelPath)
	require.NoError(t, err)

	_, err = model.Transcribe(context.Background(), "/tmp/audio.wav", Options{})
	var cliErr *CLIError
	require.ErrorAs(t, err, &cliErr)
	require.Equal(t, "whisper-cli", cliErr.Log.Command)
	require.Equal(t, 1, cliErr.Log.ExitCode)
	require.Equal(t, "bad model", cliErr.Log.Stderr)
}

func TestCLIModelTranscribeMissingOutput(t *testing.T) {
	t.Parallel()

	modelPath := filepath.Join(t.TempDir(), "ggml-tiny.bin")
	require.NoError(t, os.WriteFile(modelPath, []byte("weights"), 0o644))

	runner := &fakeRunner{run: func(ctx context.Context, name string, args ...string) (command.Result, error) {
		return command.Result{}, nil
	}}

	model, err := newCLILoader(Config{}, runner, nil).Load(context.Background(), modelPath)
	require.NoError(t, err)

	_, err = model.Transcribe(context.Background(), "/tmp/audio.wav", Options{})
	require.Error(t, err)
}

func TestCLILoaderRejectsMissingModel(t *testing.T) {
	t.Parallel()

	_, err := NewLoader(Config{}, nil).Load(context.Background(), filepath.Join(t.TempDir(), "nope.bin"))
	require.Error(t, err)
}

func TestBuildCLIArgsFixedLanguage(t *testing.T) {
	t.Parallel()

	args := buildCLIArgs("/m.bin", "/a.wav", "/out/base", "de", 0)
	require.Equal(t, "de", argValue(args, "-l"))
	require.NotContains(t, args, "-t")
	require.Contains(t, args, "-oj")
}

func TestParseCLIOutputRejectsInvalidJSON(t *testing.T) {
	t.Parallel()

	_, err := parseCLIOutput([]byte("{nope"))
	require.Error(t, err)
}
