package cmd

import (
	"fmt"

	"github.com/ethereum-optimism/optimism/op-service/jsonutil"
	"github.com/urfave/cli/v2"

	"github.com/rvsim/rvenv/rvenv/env"
)

// LoadConfig merges the default environment, the --config layer files in order,
// and finally the environment flags set on the command line.
func LoadConfig(ctx *cli.Context) (*env.Config, error) {
	layers := make([]*env.Layer, 0, len(ctx.StringSlice(ConfigFlag.Name))+1)
	for _, path := range ctx.StringSlice(ConfigFlag.Name) {
		l, err := jsonutil.LoadJSON[env.Layer](path)
		if err != nil {
			return nil, fmt.Errorf("failed to load environment layer %q: %w", path, err)
		}
		layers = append(layers, l)
	}
	layers = append(layers, flagLayer(ctx))
	cfg := env.Merge(env.Default(), layers...)
	if err := cfg.Check(); err != nil {
		return nil, fmt.Errorf("invalid environment config: %w", err)
	}
	return cfg, nil
}

func flagLayer(ctx *cli.Context) *env.Layer {
	var l env.Layer
	str := func(dst **string, name string) {
		if ctx.IsSet(name) {
			v := ctx.String(name)
			*dst = &v
		}
	}
	boolean := func(dst **bool, name string) {
		if ctx.IsSet(name) {
			v := ctx.Bool(name)
			*dst = &v
		}
	}
	str(&l.Guard, GuardFlag.Name)
	str(&l.BaseInclude, BaseIncludeFlag.Name)
	str(&l.Section, SectionFlag.Name)
	str(&l.EntrySymbol, EntryFlag.Name)
	str(&l.InitMacro, InitFlag.Name)
	str(&l.ExtraDataMacro, ExtraDataFlag.Name)
	str(&l.BeginSymbol, BeginSymbolFlag.Name)
	str(&l.EndSymbol, EndSymbolFlag.Name)
	if ctx.IsSet(AlignFlag.Name) {
		v := ctx.Uint(AlignFlag.Name)
		l.BeginAlign = &v
		l.EndAlign = &v
	}
	boolean(&l.EnableSupervisor, SupervisorFlag.Name)
	boolean(&l.EnableMachine, MachineFlag.Name)
	boolean(&l.FPEnable, FPFlag.Name)
	boolean(&l.MulticoreDisable, MulticoreDisableFlag.Name)
	return &l
}
