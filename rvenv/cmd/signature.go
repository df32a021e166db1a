package cmd

import (
	"errors"
	"fmt"

	"github.com/ethereum-optimism/optimism/op-service/ioutil"
	"github.com/ethereum-optimism/optimism/op-service/jsonutil"
	"github.com/urfave/cli/v2"

	"github.com/rvsim/rvenv/rvenv/image"
)

func Signature(ctx *cli.Context) error {
	l, err := loggerFromFlags(ctx)
	if err != nil {
		return err
	}
	cfg, err := LoadConfig(ctx)
	if err != nil {
		return err
	}
	if ctx.NArg() != 1 {
		return errors.New("expected exactly one test image")
	}
	path := ctx.Args().First()
	f, err := image.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	region, err := image.Signature(f, cfg)
	if err != nil {
		return fmt.Errorf("%q: %w", path, err)
	}

	if err := writeOutput(ctx.Path(OutFlag.Name), region.WriteWords); err != nil {
		return fmt.Errorf("failed to write signature: %w", err)
	}
	if err := jsonutil.WriteJSON(region, ioutil.ToStdOutOrFileOrNoop(ctx.Path(JSONOutFlag.Name), OutFilePerm)); err != nil {
		return fmt.Errorf("failed to write signature report: %w", err)
	}
	l.Info("signature region",
		"path", path,
		"begin", HexU64(region.Begin),
		"end", HexU64(region.End),
		"words", len(region.Words()),
		"digest", region.Digest,
	)
	return nil
}

var SignatureCommand = &cli.Command{
	Name:        "signature",
	Usage:       "Dump the signature region of a test image",
	Description: "Dump the bytes between the signature markers of a test image, one little endian word per line, as laid out in the image. --json.out also writes the region with its digest as JSON.",
	ArgsUsage:   "<image>",
	Action:      Signature,
	Flags:       append([]cli.Flag{OutFlag, JSONOutFlag, LogLevelFlag}, envFlags...),
}
