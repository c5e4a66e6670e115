package commands

import (
	"context"
	"net/http"
	"time"

	"github.com/wolfeidau/uibundle/internal/config"
	"github.com/wolfeidau/uibundle/internal/logger"
	"github.com/wolfeidau/uibundle/internal/telemetry"
)

type Globals struct {
	Debug     bool
	Telemetry bool
	Version   string
}

// ConfigFlags selects the build configuration shared by every command.
type ConfigFlags struct {
	Config string `help:"path to a YAML build configuration, the built-in login UI configuration is used when empty" default:"" env:"UIBUNDLE_CONFIG"`
	Mode   string `help:"override the configured mode (development or production)" default:"" env:"UIBUNDLE_MODE"`
}

// load reads the configuration, applies the mode override and validates it.
func (f *ConfigFlags) load() (*config.Validated, error) {
	cfg := config.Default()
	if f.Config != "" {
		var err error
		if cfg, err = config.Load(f.Config); err != nil {
			return nil, err
		}
	}

	if f.Mode != "" {
		cfg.Mode = config.Mode(f.Mode)
	}

	return cfg.Validate()
}

// setup returns a context carrying the logger, and a shutdown func flushing telemetry.
func setup(ctx context.Context, globals *Globals) (context.Context, func()) {
	log := logger.Setup(globals.Debug)
	ctx = log.WithContext(ctx)

	if !globals.Telemetry {
		return ctx, func() {}
	}

	log.Info().Msg("Telemetry is enabled")
	shutdown, err := telemetry.InitTelemetry(ctx, "uibundle", globals.Version)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
		return ctx, func() {}
	}

	return ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown telemetry")
		}
	}
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}
