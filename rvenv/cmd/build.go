package cmd

import (
	"fmt"

	"github.com/pkg/profile"
	"github.com/urfave/cli/v2"

	"github.com/rvsim/rvenv/rvenv/suite"
)

func Build(ctx *cli.Context) error {
	if ctx.Bool(PProfCPUFlag.Name) {
		defer profile.Start(profile.NoShutdownHook, profile.ProfilePath("."), profile.CPUProfile).Stop()
	}
	l, err := loggerFromFlags(ctx)
	if err != nil {
		return err
	}
	cfg, err := LoadConfig(ctx)
	if err != nil {
		return err
	}
	features, err := suite.ParseFeatures(ctx.StringSlice(FeaturesFlag.Name))
	if err != nil {
		return err
	}

	tc := suite.DefaultToolchain()
	tc.Compiler = ctx.String(CompilerFlag.Name)
	tc.ISADir = ctx.Path(ISADirFlag.Name)
	tc.EnvDir = ctx.String(EnvDirFlag.Name)
	tc.LinkScript = ctx.String(LinkScriptFlag.Name)
	b := &suite.Builder{
		Toolchain: tc,
		OutDir:    ctx.Path(OutDirFlag.Name),
		Jobs:      ctx.Int(JobsFlag.Name),
		Log:       l,
	}

	tests := suite.ISATests.Select(features)
	l.Info("building ISA tests", "count", len(tests), "features", features.String(), "out", b.OutDir)
	if err := b.Build(ctx.Context, tests); err != nil {
		return err
	}
	results, err := b.CheckAll(ctx.Context, tests, cfg)
	if err != nil {
		return err
	}
	failed := suite.Failed(results)
	for _, res := range failed {
		l.Error("FAIL", "test", res.Test, "err", res.Err)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d test images failed the environment check", len(failed), len(results))
	}
	l.Info("all test images ok", "count", len(results))
	return nil
}

var BuildCommand = &cli.Command{
	Name:        "build",
	Usage:       "Build the riscv-tests ISA suite against the environment and check every image",
	Description: "Compile the ISA test manifest, selected by --features, with the RISC-V cross compiler, then check every image against the environment.",
	Action:      Build,
	Flags: append([]cli.Flag{
		LogLevelFlag,
		OutDirFlag,
		ISADirFlag,
		CompilerFlag,
		EnvDirFlag,
		LinkScriptFlag,
		FeaturesFlag,
		JobsFlag,
		PProfCPUFlag,
	}, envFlags...),
}
