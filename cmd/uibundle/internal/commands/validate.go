package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

type ValidateCmd struct {
	ConfigFlags `embed:""`
}

// Run reports every violation at once rather than stopping at the first.
func (c *ValidateCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, shutdown := setup(ctx, globals)
	defer shutdown()

	cfg, err := c.load()
	if err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().
		Str("mode", string(cfg.Mode())).
		Str("entry", cfg.Entry()).
		Str("output", cfg.OutputPath()).
		Int("rules", len(cfg.Rules())).
		Msg("Configuration is valid")

	fmt.Println("configuration is valid")
	return nil
}
