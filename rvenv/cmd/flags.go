package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/rvsim/rvenv/rvenv/suite"
)

var OutFilePerm = os.FileMode(0o644)

var (
	LogLevelFlag = &cli.StringFlag{
		Name:  "log.level",
		Usage: "Log level: debug, info, warn or error",
		Value: "info",
	}
	ConfigFlag = &cli.StringSliceFlag{
		Name:  "config",
		Usage: "JSON environment layer file, applied over the default environment. Repeatable, later files win.",
	}
	OutFlag = &cli.PathFlag{
		Name:  "out",
		Usage: "Output file, '-' for stdout, empty for no output",
		Value: "-",
	}
	JSONOutFlag = &cli.PathFlag{
		Name:  "json.out",
		Usage: "JSON report file, '-' for stdout, empty for no report",
	}
)

// Environment override flags. Only flags set on the command line form a layer.
var (
	GuardFlag = &cli.StringFlag{
		Name:  "env.guard",
		Usage: "Include guard macro of the override header",
	}
	BaseIncludeFlag = &cli.StringFlag{
		Name:  "env.base-include",
		Usage: "Path of the base riscv-tests environment header, as included by the override",
	}
	SectionFlag = &cli.StringFlag{
		Name:  "env.section",
		Usage: "Code section the entry point is placed in",
	}
	EntryFlag = &cli.StringFlag{
		Name:  "env.entry",
		Usage: "Entry point symbol",
	}
	InitFlag = &cli.StringFlag{
		Name:  "env.init",
		Usage: "Name of the externally defined init sequence run at the entry point",
	}
	ExtraDataFlag = &cli.StringFlag{
		Name:  "env.extra-data",
		Usage: "Name of the externally defined macro emitted before the signature region",
	}
	BeginSymbolFlag = &cli.StringFlag{
		Name:  "env.begin-signature",
		Usage: "Signature region begin symbol",
	}
	EndSymbolFlag = &cli.StringFlag{
		Name:  "env.end-signature",
		Usage: "Signature region end symbol",
	}
	AlignFlag = &cli.UintFlag{
		Name:  "env.align",
		Usage: ".align argument (power of two) of both signature markers",
	}
	SupervisorFlag = &cli.BoolFlag{
		Name:  "env.enable-supervisor",
		Usage: "Define RVTEST_ENABLE_SUPERVISOR empty",
	}
	MachineFlag = &cli.BoolFlag{
		Name:  "env.enable-machine",
		Usage: "Define RVTEST_ENABLE_MACHINE empty",
	}
	FPFlag = &cli.BoolFlag{
		Name:  "env.fp-enable",
		Usage: "Define RVTEST_FP_ENABLE empty",
	}
	MulticoreDisableFlag = &cli.BoolFlag{
		Name:  "env.multicore-disable",
		Usage: "Define RISCV_MULTICORE_DISABLE empty",
	}
)

var envFlags = []cli.Flag{
	ConfigFlag,
	GuardFlag,
	BaseIncludeFlag,
	SectionFlag,
	EntryFlag,
	InitFlag,
	ExtraDataFlag,
	BeginSymbolFlag,
	EndSymbolFlag,
	AlignFlag,
	SupervisorFlag,
	MachineFlag,
	FPFlag,
	MulticoreDisableFlag,
}

// Suite build flags.
var (
	OutDirFlag = &cli.PathFlag{
		Name:  "out-dir",
		Usage: "Directory the test images are written to",
		Value: "build/riscv-tests",
	}
	ISADirFlag = &cli.PathFlag{
		Name:  "isa-dir",
		Usage: "riscv-tests isa directory, the compiler runs in it",
		Value: suite.DefaultToolchain().ISADir,
	}
	CompilerFlag = &cli.StringFlag{
		Name:  "compiler",
		Usage: "RISC-V cross compiler",
		Value: suite.DefaultToolchain().Compiler,
	}
	EnvDirFlag = &cli.StringFlag{
		Name:  "env-dir",
		Usage: "Include dir of the override header, relative to the isa dir",
		Value: suite.DefaultToolchain().EnvDir,
	}
	LinkScriptFlag = &cli.StringFlag{
		Name:  "link-script",
		Usage: "Linker script, relative to the isa dir",
		Value: suite.DefaultToolchain().LinkScript,
	}
	FeaturesFlag = &cli.StringSliceFlag{
		Name:  "features",
		Usage: "Optional extensions the target implements: c, fd",
	}
	JobsFlag = &cli.IntFlag{
		Name:  "jobs",
		Usage: "Concurrent compiler processes, 0 for one per CPU",
	}
	PProfCPUFlag = &cli.BoolFlag{
		Name:  "pprof.cpu",
		Usage: "Enable pprof cpu profiling",
	}
)

func parseLogLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return log.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return lvl, nil
}

func loggerFromFlags(ctx *cli.Context) (log.Logger, error) {
	lvl, err := parseLogLevel(ctx.String(LogLevelFlag.Name))
	if err != nil {
		return nil, err
	}
	return Logger(ctx.App.ErrWriter, lvl), nil
}
