package main

import (
	"context"

	"github.com/vyrodovalexey/productgw/internal/config"
	"github.com/vyrodovalexey/productgw/internal/observability"
)

// startConfigWatcher watches the configuration file. A failure to watch
// is logged and the service keeps running without hot reload.
func startConfigWatcher(ctx context.Context, app *application, configPath string, logger observability.Logger) *config.Watcher {
	watcher, err := config.NewWatcher(configPath,
		func(newCfg *config.Config) { applyConfigChange(app, newCfg, logger) },
		config.WithLogger(logger),
		config.WithErrorCallback(func(err error) {
			logger.Error("configuration reload failed", observability.Error(err))
		}),
	)
	if err != nil {
		logger.Error("failed to create config watcher", observability.Error(err))
		return nil
	}

	if err := watcher.Start(ctx); err != nil {
		logger.Error("failed to start config watcher", observability.Error(err))
		return nil
	}

	logger.Info("config watcher started", observability.String("path", configPath))
	return watcher
}

// applyConfigChange applies the log level live and reports sections that
// only take effect after a restart.
func applyConfigChange(app *application, newCfg *config.Config, logger observability.Logger) {
	app.mu.Lock()
	oldCfg := app.config
	app.config = newCfg
	app.mu.Unlock()

	if newLevel := newCfg.Observability.Logging.Level; newLevel != oldCfg.Observability.Logging.Level {
		if err := logger.SetLevel(newLevel); err != nil {
			logger.Error("failed to apply log level", observability.Error(err))
		} else {
			logger.Info("log level changed", observability.String("level", newLevel))
		}
	}

	if sections := config.RestartRequired(oldCfg, newCfg); len(sections) > 0 {
		logger.Warn("configuration changes require a restart to take effect",
			observability.Any("sections", sections),
		)
	}
}
