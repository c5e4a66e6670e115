package main

import (
	"context"

	"github.com/alecthomas/kong"

	"github.com/wolfeidau/uibundle/cmd/uibundle/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Build     commands.BuildCmd    `cmd:"" help:"Build the configured entry into the output directory"`
		Validate  commands.ValidateCmd `cmd:"" help:"Validate a build configuration"`
		Serve     commands.ServeCmd    `cmd:"" help:"Serve the output directory"`
		Debug     bool                 `help:"Enable debug mode." env:"UIBUNDLE_DEBUG"`
		Telemetry bool                 `help:"Export traces and metrics over OTLP." env:"UIBUNDLE_TELEMETRY"`
		Version   kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("uibundle"),
		kong.Description("Bundle a browser UI with esbuild."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Telemetry: cli.Telemetry, Version: version})
	cmd.FatalIfErrorf(err)
}
