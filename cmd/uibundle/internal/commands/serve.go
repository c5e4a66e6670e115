package commands

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/wolfeidau/uibundle/internal/assets"
	"github.com/wolfeidau/uibundle/internal/devserver"
)

type ServeCmd struct {
	ConfigFlags `embed:""`

	Dir         string   `help:"directory to serve, defaults to devServer.contentBase" default:"" env:"UIBUNDLE_DIR"`
	Listen      string   `help:"HTTP server listen address, defaults to devServer.listen" default:"" env:"UIBUNDLE_LISTEN"`
	Prefix      string   `help:"path prefix stripped from requests, for example /ui/" default:"" env:"UIBUNDLE_PREFIX"`
	CORSOrigins []string `help:"allowed CORS origins" default:"" env:"UIBUNDLE_CORS_ORIGINS"`
	Build       bool     `help:"build before serving" default:"false" env:"UIBUNDLE_BUILD"`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, shutdown := setup(ctx, globals)
	defer shutdown()

	log := zerolog.Ctx(ctx)

	cfg, err := c.load()
	if err != nil {
		return err
	}

	if c.Build {
		if _, err := assets.New(cfg).Build(ctx); err != nil {
			return fmt.Errorf("build failed: %w", err)
		}
	}

	dev := cfg.DevServer()
	opts := devserver.Options{
		Dir:         cmp.Or(c.Dir, dev.ContentBase),
		Prefix:      cmp.Or(c.Prefix, dev.Prefix),
		CORSOrigins: nonEmpty(c.CORSOrigins),
	}

	handler, err := devserver.Handler(*log, opts)
	if err != nil {
		return err
	}

	srv := configureHTTPServer(cmp.Or(c.Listen, dev.Listen), handler)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("dir", opts.Dir).Str("prefix", opts.Prefix).Msg("Starting dev server")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down dev server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// nonEmpty drops the empty value kong produces for an unset list flag.
func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
