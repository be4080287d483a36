// Package providers contains dependency injection providers for Bookwise.
package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/bookwise/bookwise/internal/config"
	"github.com/bookwise/bookwise/internal/logger"
)

// ProvideConfig provides the application configuration. Command-line
// overrides are read from the container when registered.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	overrides, err := do.Invoke[config.Overrides](i)
	if err != nil {
		overrides = config.Overrides{}
	}
	return config.LoadConfig(overrides)
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*slog.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Format:      cfg.Logger.Format,
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
	})

	log.Debug("configuration loaded",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.Storage.DataPath,
		"storage_backend", cfg.Storage.Backend,
		"search_enabled", cfg.Search.Enabled,
	)

	return log, nil
}
