package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/wolfeidau/uibundle/internal/assets"
)

type BuildCmd struct {
	ConfigFlags `embed:""`
}

func (c *BuildCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, shutdown := setup(ctx, globals)
	defer shutdown()

	cfg, err := c.load()
	if err != nil {
		return err
	}

	manifest, err := assets.New(cfg).Build(ctx)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	zerolog.Ctx(ctx).Info().
		Str("hash", manifest.Hash).
		Strs("scripts", manifest.Scripts()).
		Strs("styles", manifest.Styles()).
		Str("output", cfg.OutputPath()).
		Msg("Assets written")

	return nil
}
