package cmd

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/rvsim/rvenv/rvenv/env"
)

func Render(ctx *cli.Context) error {
	l, err := loggerFromFlags(ctx)
	if err != nil {
		return err
	}
	cfg, err := LoadConfig(ctx)
	if err != nil {
		return err
	}
	out := ctx.Path(OutFlag.Name)
	if err := writeOutput(out, func(w io.Writer) error {
		return env.Render(w, cfg)
	}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	l.Info("wrote environment header", "out", out, "macros", len(cfg.Macros()))
	return nil
}

var RenderCommand = &cli.Command{
	Name:        "render",
	Usage:       "Render the test environment override header",
	Description: "Render the riscv-tests environment override header from the default environment, layer files and flags.",
	Action:      Render,
	Flags:       append([]cli.Flag{OutFlag, LogLevelFlag}, envFlags...),
}
