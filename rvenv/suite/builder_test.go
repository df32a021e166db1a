package suite

import (
	"context"
	"debug/elf"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/rvsim/rvenv/rvenv/image"
	"github.com/rvsim/rvenv/rvenv/image/elftest"
)

// fakeCompiler writes a script that copies the source file to the -o output,
// or fails for sources named fail.S.
func fakeCompiler(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake compiler needs a POSIX shell")
	}
	script := `#!/bin/sh
out=""
src=""
while [ $# -gt 0 ]; do
	case "$1" in
	-o) shift; out="$1" ;;
	-*) ;;
	*) src="$1" ;;
	esac
	shift
done
case "$src" in
*fail.S) echo "$src: undefined reference to init" >&2; exit 1 ;;
esac
cp "$src" "$out"
`
	path := filepath.Join(t.TempDir(), "fake-gcc")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

// isaDir lays out sources for the given tests, each one a valid test image.
func isaDir(t *testing.T, tests []Test) string {
	t.Helper()
	dir := t.TempDir()
	for _, test := range tests {
		src := filepath.Join(dir, filepath.FromSlash(test.Source()))
		require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o755))
		elftest.Default().WriteFile(t, src)
	}
	return dir
}

func testBuilder(t *testing.T, tests []Test) *Builder {
	tc := DefaultToolchain()
	tc.Compiler = fakeCompiler(t)
	tc.ISADir = isaDir(t, tests)
	return &Builder{
		Toolchain: tc,
		OutDir:    filepath.Join(t.TempDir(), "out"),
		Jobs:      2,
		Log:       log.NewLogger(log.LogfmtHandlerWithLevel(io.Discard, log.LevelDebug)),
	}
}

func TestBuild(t *testing.T) {
	tests := ISATests.Select(0)[:4]
	b := testBuilder(t, tests)
	require.NoError(t, b.Build(context.Background(), tests))

	for _, test := range tests {
		out, err := b.Output(test)
		require.NoError(t, err)
		f, err := elf.Open(out)
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}

	results, err := b.CheckAll(context.Background(), tests, nil)
	require.NoError(t, err)
	require.Len(t, results, len(tests))
	require.Empty(t, Failed(results))
	for i, res := range results {
		require.Equal(t, tests[i], res.Test)
		require.Equal(t, uint64(16), res.Report.Size())
	}
}

func TestBuildFailure(t *testing.T) {
	tests := []Test{{Set: "rv32ui", Name: "add"}, {Set: "rv32ui", Name: "fail"}}
	b := testBuilder(t, tests)
	err := b.Build(context.Background(), tests)
	require.ErrorContains(t, err, "failed to build rv32ui/fail")
	require.ErrorContains(t, err, "undefined reference to init")

	out, err := b.Output(tests[1])
	require.NoError(t, err)
	require.NoFileExists(t, out)
}

func TestBuildSkipsExisting(t *testing.T) {
	test := Test{Set: "rv32ui", Name: "fail"}
	b := testBuilder(t, []Test{test})
	require.NoError(t, os.MkdirAll(b.OutDir, 0o755))
	out, err := b.Output(test)
	require.NoError(t, err)
	elftest.Default().WriteFile(t, out)

	require.NoError(t, b.Build(context.Background(), []Test{test}), "existing image is not rebuilt")
}

func TestBuildCanceled(t *testing.T) {
	tests := ISATests.Select(0)[:2]
	b := testBuilder(t, tests)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, b.Build(ctx, tests), context.Canceled)
}

func TestCheckAll(t *testing.T) {
	tests := []Test{{Set: "rv32ui", Name: "add"}, {Set: "rv32ui", Name: "sub"}, {Set: "rv32ui", Name: "xor"}}
	b := testBuilder(t, nil)
	require.NoError(t, os.MkdirAll(b.OutDir, 0o755))

	out, err := b.Output(tests[0])
	require.NoError(t, err)
	elftest.Default().WriteFile(t, out)

	broken := elftest.Default()
	broken.Symbol("begin_signature").Value += 2
	out, err = b.Output(tests[1])
	require.NoError(t, err)
	broken.WriteFile(t, out)

	results, err := b.CheckAll(context.Background(), tests, nil)
	require.NoError(t, err)
	failed := Failed(results)
	require.Len(t, failed, 2)
	require.Equal(t, tests[1], failed[0].Test)
	require.ErrorIs(t, failed[0].Err, image.ErrMisaligned)
	require.Equal(t, tests[2], failed[1].Test)
	require.ErrorIs(t, failed[1].Err, os.ErrNotExist, "missing image")
}
