package suite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"

	"github.com/rvsim/rvenv/rvenv/env"
	"github.com/rvsim/rvenv/rvenv/image"
)

// Builder compiles tests into OutDir and checks the resulting images.
type Builder struct {
	Toolchain Toolchain
	OutDir    string
	// Jobs bounds the number of concurrent compiler processes, 0 means one per CPU.
	Jobs int
	// Log defaults to the root logger.
	Log log.Logger
}

func (b *Builder) logger() log.Logger {
	if b.Log == nil {
		return log.Root()
	}
	return b.Log
}

func (b *Builder) jobs() int {
	if b.Jobs > 0 {
		return b.Jobs
	}
	return runtime.NumCPU()
}

// Output is the path the built image of t is written to.
func (b *Builder) Output(t Test) (string, error) {
	return filepath.Abs(filepath.Join(b.OutDir, t.Binary()))
}

// Build compiles every test whose image does not exist yet.
// The first failure cancels the compilers still running.
func (b *Builder) Build(ctx context.Context, tests []Test) error {
	if err := os.MkdirAll(b.OutDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.jobs())
	for _, t := range tests {
		t := t
		g.Go(func() error {
			return b.build(ctx, t)
		})
	}
	return g.Wait()
}

func (b *Builder) build(ctx context.Context, t Test) error {
	out, err := b.Output(t)
	if err != nil {
		return err
	}
	if _, err := os.Stat(out); err == nil {
		b.logger().Debug("image exists, skipping", "test", t, "out", out)
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat %q: %w", out, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, b.Toolchain.Compiler, b.Toolchain.Args(t, out)...)
	cmd.Dir = b.Toolchain.ISADir
	var output bytes.Buffer
	lw := &LoggingWriter{Name: t.String(), Log: b.logger()}
	w := io.MultiWriter(&output, lw)
	cmd.Stdout = w
	cmd.Stderr = w

	b.logger().Info("building", "test", t, "cmd", cmd.String())
	err = cmd.Run()
	lw.Flush()
	if err != nil {
		// do not leave a partial image behind, it would be skipped next time
		_ = os.Remove(out)
		return fmt.Errorf("failed to build %s: %w\n%s", t, err, bytes.TrimSpace(output.Bytes()))
	}
	return nil
}

// Result is the check outcome of one built test image.
type Result struct {
	Test   Test
	Path   string
	Report *image.Report
	Err    error
}

// CheckAll checks the image of every test against cfg, in parallel.
// Check failures are reported per result; the error is only set when ctx ends.
func (b *Builder) CheckAll(ctx context.Context, tests []Test, cfg *env.Config) ([]Result, error) {
	results := make([]Result, len(tests))
	var g errgroup.Group
	g.SetLimit(b.jobs())
	for i, t := range tests {
		i, t := i, t
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = b.check(t, cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (b *Builder) check(t Test, cfg *env.Config) Result {
	res := Result{Test: t}
	res.Path, res.Err = b.Output(t)
	if res.Err != nil {
		return res
	}
	f, err := image.Open(res.Path)
	if err != nil {
		res.Err = err
		return res
	}
	defer f.Close()
	res.Report, res.Err = image.CheckSymbols(f, cfg)
	return res
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
