package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWatcherConfig(t *testing.T, path, level string) {
	t.Helper()
	content := []byte("observability:\n  logging:\n    level: " + level + "\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))
}

func TestNewWatcher(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeWatcherConfig(t, path, "info")

	w, err := NewWatcher(path, func(*Config) {}, WithDebounceDelay(10*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	assert.Equal(t, path, w.path)
	assert.Equal(t, 10*time.Millisecond, w.debounceDelay)
	assert.Nil(t, w.GetLastConfig())
}

func TestWatcher_Start_InvalidConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeWatcherConfig(t, path, "shout")

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	assert.Error(t, w.Start(context.Background()))
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeWatcherConfig(t, path, "info")

	levels := make(chan string, 16)
	var reloadErrors atomic.Int32

	w, err := NewWatcher(path,
		func(cfg *Config) { levels <- cfg.Observability.Logging.Level },
		WithDebounceDelay(20*time.Millisecond),
		WithErrorCallback(func(error) { reloadErrors.Add(1) }),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() { _ = w.Stop() })

	assert.Equal(t, "info", w.GetLastConfig().Observability.Logging.Level)

	writeWatcherConfig(t, path, "debug")

	// A reload may observe the truncated file before the write completes.
	deadline := time.After(5 * time.Second)
	for reloaded := false; !reloaded; {
		select {
		case level := <-levels:
			reloaded = level == "debug"
		case <-deadline:
			t.Fatal("timed out waiting for reload")
		}
	}
	assert.Equal(t, "debug", w.GetLastConfig().Observability.Logging.Level)

	writeWatcherConfig(t, path, "shout")
	assert.Eventually(t, func() bool { return reloadErrors.Load() > 0 }, 5*time.Second, 10*time.Millisecond)
	assert.NotEqual(t, "shout", w.GetLastConfig().Observability.Logging.Level, "invalid reloads are rejected")
}

func TestWatcher_ReloadSkipsUnchangedContent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeWatcherConfig(t, path, "info")

	var calls atomic.Int32
	w, err := NewWatcher(path, func(*Config) { calls.Add(1) })
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	w.reload()
	assert.Equal(t, int32(1), calls.Load())

	w.reload()
	assert.Equal(t, int32(1), calls.Load(), "identical content is not reapplied")

	writeWatcherConfig(t, path, "warn")
	w.reload()
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "warn", w.GetLastConfig().Observability.Logging.Level)
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	t.Parallel()

	w, err := NewWatcher(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.NoError(t, err)

	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
