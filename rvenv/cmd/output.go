package cmd

import (
	"fmt"
	"io"

	"github.com/ethereum-optimism/optimism/op-service/ioutil"
)

// writeOutput streams write into an op-service output target: "-" for stdout,
// a file path for an atomically written file, empty for no output.
func writeOutput(path string, write func(w io.Writer) error) error {
	out, closer, abort, err := ioutil.ToStdOutOrFileOrNoop(path, OutFilePerm)()
	if err != nil {
		return fmt.Errorf("failed to open output %q: %w", path, err)
	}
	if out == nil {
		return nil
	}
	if err := write(out); err != nil {
		abort()
		return err
	}
	if err := closer.Close(); err != nil {
		return fmt.Errorf("failed to close output %q: %w", path, err)
	}
	return nil
}
