package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileWritesVerifiedPayload(t *testing.T) {
	t.Parallel()

	payload := []byte("ggml-weights")
	sum := sha256.Sum256(payload)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	destination := filepath.Join(t.TempDir(), "models", "ggml-tiny.bin")
	err := File(context.Background(), Options{
		URL:            server.URL + "/ggml-tiny.bin",
		Destination:    destination,
		ExpectedSHA256: hex.EncodeToString(sum[:]),
		NoProgress:     true,
		Retries:        1,
	})
	require.NoError(t, err)

	onDisk, err := os.ReadFile(destination)
	require.NoError(t, err)
	require.Equal(t, payload, onDisk)
	leftovers, err := filepath.Glob(destination + ".*.part")
	require.NoError(t, err)
	require.Empty(t, leftovers)
}

func TestFileChecksumMismatchLeavesNoFile(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("tampered"))
	}))
	defer server.Close()

	destination := filepath.Join(t.TempDir(), "ggml-base.bin")
	err := File(context.Background(), Options{
		URL:            server.URL,
		Destination:    destination,
		ExpectedSHA256: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		NoProgress:     true,
		Retries:        1,
	})
	require.ErrorContains(t, err, "checksum mismatch")

	_, statErr := os.Stat(destination)
	require.True(t, os.IsNotExist(statErr))
}

func TestFileRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	destination := filepath.Join(t.TempDir(), "ggml-small.bin")
	err := File(context.Background(), Options{
		URL:         server.URL,
		Destination: destination,
		NoProgress:  true,
		Retries:     2,
	})
	require.NoError(t, err)
	require.EqualValues(t, 2, calls.Load())
}

func TestFileConcurrentFetchesOfSameDestination(t *testing.T) {
	t.Parallel()

	payload := []byte("ggml-weights")
	sum := sha256.Sum256(payload)

	var arrived sync.WaitGroup
	arrived.Add(2)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		arrived.Done()
		arrived.Wait()
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	destination := filepath.Join(t.TempDir(), "ggml-tiny.bin")
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			errs <- File(context.Background(), Options{
				URL:            server.URL,
				Destination:    destination,
				ExpectedSHA256: hex.EncodeToString(sum[:]),
				NoProgress:     true,
				Retries:        1,
			})
		}()
	}
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	onDisk, err := os.ReadFile(destination)
	require.NoError(t, err)
	require.Equal(t, payload, onDisk)
	leftovers, err := filepath.Glob(destination + ".*.part")
	require.NoError(t, err)
	require.Empty(t, leftovers)
}

func TestFileRequiresURLAndDestination(t *testing.T) {
	t.Parallel()

	require.Error(t, File(context.Background(), Options{Destination: "/tmp/x"}))
	require.Error(t, File(context.Background(), Options{URL: "http://example.invalid"}))
}
