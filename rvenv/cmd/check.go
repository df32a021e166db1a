package cmd

import (
	"errors"
	"fmt"

	"github.com/ethereum-optimism/optimism/op-service/ioutil"
	"github.com/ethereum-optimism/optimism/op-service/jsonutil"
	"github.com/urfave/cli/v2"

	"github.com/rvsim/rvenv/rvenv/env"
	"github.com/rvsim/rvenv/rvenv/image"
)

// ImageResult is one entry of the check JSON report.
type ImageResult struct {
	Path   string        `json:"path"`
	Report *image.Report `json:"report,omitempty"`
	Error  string        `json:"error,omitempty"`
}

func Check(ctx *cli.Context) error {
	l, err := loggerFromFlags(ctx)
	if err != nil {
		return err
	}
	cfg, err := LoadConfig(ctx)
	if err != nil {
		return err
	}
	paths := ctx.Args().Slice()
	if len(paths) == 0 {
		return errors.New("no test images given")
	}
	var errs []error
	results := make([]ImageResult, 0, len(paths))
	for _, path := range paths {
		report, err := checkImage(path, cfg)
		if err != nil {
			l.Error("image check failed", "path", path, "err", err)
			errs = append(errs, err)
			results = append(results, ImageResult{Path: path, Error: err.Error()})
			continue
		}
		results = append(results, ImageResult{Path: path, Report: report})
		l.Info("image ok",
			"path", path,
			"entry", HexU64(report.Entry),
			"begin", HexU64(report.Begin),
			"end", HexU64(report.End),
			"size", report.Size(),
		)
	}
	if err := jsonutil.WriteJSON(results, ioutil.ToStdOutOrFileOrNoop(ctx.Path(JSONOutFlag.Name), OutFilePerm)); err != nil {
		return fmt.Errorf("failed to write check report: %w", err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d images failed: %w", len(errs), len(paths), errors.Join(errs...))
	}
	return nil
}

func checkImage(path string, cfg *env.Config) (*image.Report, error) {
	f, err := image.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	report, err := image.CheckSymbols(f, cfg)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", path, err)
	}
	return report, nil
}

var CheckCommand = &cli.Command{
	Name:        "check",
	Usage:       "Check test images expose the environment's entry point and signature region",
	Description: "Check that every given ELF test image is a RISC-V executable with exactly one entry symbol and one aligned, ordered pair of signature markers.",
	ArgsUsage:   "<image> [image...]",
	Action:      Check,
	Flags:       append([]cli.Flag{JSONOutFlag, LogLevelFlag}, envFlags...),
}
