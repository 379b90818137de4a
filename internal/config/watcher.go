package config

import (
	"context"
	"crypto/sha256"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vyrodovalexey/productgw/internal/observability"
)

// ConfigCallback receives every configuration that was reloaded and
// validated successfully.
type ConfigCallback func(*Config)

// ErrorCallback receives reload and watch failures.
type ErrorCallback func(error)

// Watcher reloads the configuration file when it changes. Bursts of
// filesystem events are debounced, and a reload whose content hash is
// unchanged is skipped.
type Watcher struct {
	path          string
	fsw           *fsnotify.Watcher
	onChange      ConfigCallback
	onError       ErrorCallback
	logger        observability.Logger
	debounceDelay time.Duration

	mu      sync.RWMutex
	current *Config
	digest  [sha256.Size]byte
	cancel  context.CancelFunc
	done    chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounceDelay sets how long the file must stay quiet before it is
// reloaded.
func WithDebounceDelay(delay time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDelay = delay
	}
}

// WithLogger sets the watcher's logger.
func WithLogger(logger observability.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithErrorCallback sets the callback for failed reloads.
func WithErrorCallback(callback ErrorCallback) WatcherOption {
	return func(w *Watcher) {
		w.onError = callback
	}
}

// NewWatcher creates a watcher for the file at path. Nothing is read
// until Start.
func NewWatcher(path string, callback ConfigCallback, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:          absPath,
		fsw:           fsw,
		onChange:      callback,
		logger:        observability.NopLogger(),
		debounceDelay: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start loads the file and watches its directory until ctx is done or
// Stop is called. The directory is watched so that editors replacing
// the file atomically are noticed. Starting twice is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return nil
	}

	cfg, digest, err := w.load()
	if err != nil {
		return err
	}
	if err := w.fsw.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	w.current, w.digest = cfg, digest

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.run(ctx, w.done)

	w.logger.Info("watching configuration file", observability.String("path", w.path))
	return nil
}

// Stop ends watching and releases the underlying watcher. It is safe to
// call without Start and more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return w.fsw.Close()
}

// GetLastConfig returns the last configuration that loaded successfully,
// or nil before Start.
func (w *Watcher) GetLastConfig() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func (w *Watcher) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("config watcher stopped")
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("config file event",
				observability.String("op", event.Op.String()),
			)
			debounce.Reset(w.debounceDelay)

		case <-debounce.C:
			w.reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.fail(err)
		}
	}
}

// relevant reports whether event writes or recreates the watched file.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	return filepath.Clean(event.Name) == w.path &&
		event.Op&(fsnotify.Write|fsnotify.Create) != 0
}

func (w *Watcher) reload() {
	cfg, digest, err := w.load()
	if err != nil {
		w.fail(err)
		return
	}

	w.mu.Lock()
	unchanged := digest == w.digest
	if !unchanged {
		w.current, w.digest = cfg, digest
	}
	w.mu.Unlock()

	if unchanged {
		w.logger.Debug("configuration content unchanged, reload skipped")
		return
	}

	w.logger.Info("configuration reloaded", observability.String("path", w.path))
	if w.onChange != nil {
		w.onChange(cfg)
	}
}

func (w *Watcher) fail(err error) {
	w.logger.Error("configuration reload failed", observability.Error(err))
	if w.onError != nil {
		w.onError(err)
	}
}

// load reads, parses and validates the file and returns the digest of
// its raw content.
func (w *Watcher) load() (*Config, [sha256.Size]byte, error) {
	data, err := readConfigFile(w.path)
	if err != nil {
		return nil, [sha256.Size]byte{}, err
	}
	digest := sha256.Sum256(data)

	cfg, err := parseConfig(data)
	if err != nil {
		return nil, digest, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, digest, err
	}
	return cfg, digest, nil
}
