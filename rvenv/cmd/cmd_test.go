package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/ethereum-optimism/optimism/op-service/jsonutil"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/rvsim/rvenv/rvenv/env"
	"github.com/rvsim/rvenv/rvenv/image"
	"github.com/rvsim/rvenv/rvenv/image/elftest"
	"github.com/rvsim/rvenv/rvenv/suite"
)

func run(t *testing.T, args ...string) error {
	t.Helper()
	app := cli.NewApp()
	app.Name = "rvenv"
	app.Commands = []*cli.Command{RenderCommand, CheckCommand, SignatureCommand, BuildCommand}
	var stderr bytes.Buffer
	app.ErrWriter = &stderr
	err := app.Run(append([]string{"rvenv"}, args...))
	t.Logf("stderr:\n%s", stderr.String())
	return err
}

// render runs the render command with extra args into a temp file and returns the header.
func render(t *testing.T, args ...string) (string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "riscv_test.h")
	if err := run(t, append([]string{"render", "--out", path}, args...)...); err != nil {
		require.NoFileExists(t, path, "no header written on failure")
		return "", err
	}
	out, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(out), nil
}

func TestRender(t *testing.T) {
	expected, err := os.ReadFile("../env/testdata/env_custom.h")
	require.NoError(t, err)

	t.Run("default", func(t *testing.T) {
		out, err := render(t)
		require.NoError(t, err)
		require.Equal(t, string(expected), out)
	})

	t.Run("no output", func(t *testing.T) {
		require.NoError(t, run(t, "render", "--out", ""))
	})

	t.Run("flag disables feature", func(t *testing.T) {
		out, err := render(t, "--env.fp-enable=false")
		require.NoError(t, err)
		require.NotContains(t, out, "RVTEST_FP_ENABLE")
		require.Contains(t, out, "#define RVTEST_ENABLE_MACHINE\n")
	})

	t.Run("flags win over layer files", func(t *testing.T) {
		dir := t.TempDir()
		first := filepath.Join(dir, "first.json")
		second := filepath.Join(dir, "second.json")
		require.NoError(t, os.WriteFile(first, []byte(`{"entrySymbol":"boot","initMacro":"INIT_BOOT"}`), 0o644))
		require.NoError(t, os.WriteFile(second, []byte(`{"initMacro":"INIT_RESET"}`), 0o644))

		out, err := render(t, "--config", first, "--config", second)
		require.NoError(t, err)
		require.Contains(t, out, "boot:")
		require.Contains(t, out, "        INIT_RESET\n")

		out, err = render(t, "--config", first, "--env.entry", "reset")
		require.NoError(t, err)
		require.Contains(t, out, ".global reset;")
		require.NotContains(t, out, "boot")
	})

	t.Run("windows include path", func(t *testing.T) {
		out, err := render(t, "--env.base-include", `..\env\p\riscv_test.h`)
		require.NoError(t, err)
		require.Contains(t, out, `#include "..\env\p\riscv_test.h"`+"\n")
	})

	t.Run("missing init", func(t *testing.T) {
		_, err := render(t, "--env.init=")
		require.ErrorIs(t, err, env.ErrInvalidName)
	})

	t.Run("missing layer file", func(t *testing.T) {
		_, err := render(t, "--config", filepath.Join(t.TempDir(), "nope.json"))
		require.ErrorContains(t, err, "failed to load environment layer")
	})

	t.Run("bad log level", func(t *testing.T) {
		_, err := render(t, "--log.level", "loud")
		require.ErrorContains(t, err, "invalid log level")
	})
}

func TestCheck(t *testing.T) {
	good := elftest.Default().Write(t, "test-rv32ui-add")

	t.Run("ok", func(t *testing.T) {
		require.NoError(t, run(t, "check", good))
	})

	t.Run("failures", func(t *testing.T) {
		img := elftest.Default()
		img.Symbol("end_signature").Name = "tohost"
		broken := img.Write(t, "test-rv32ui-sub")
		reportPath := filepath.Join(t.TempDir(), "check.json")
		err := run(t, "check", "--json.out", reportPath, good, broken)
		require.ErrorIs(t, err, image.ErrMissingSymbol)
		require.ErrorContains(t, err, "1 of 2 images failed")

		results, err := jsonutil.LoadJSON[[]ImageResult](reportPath)
		require.NoError(t, err)
		require.Len(t, *results, 2)
		require.Equal(t, good, (*results)[0].Path)
		require.Equal(t, &image.Report{
			Entry: elftest.DefaultTextAddr,
			Begin: elftest.DefaultDataAddr,
			End:   elftest.DefaultDataAddr + 16,
		}, (*results)[0].Report)
		require.Empty(t, (*results)[0].Error)
		require.Equal(t, broken, (*results)[1].Path)
		require.Nil(t, (*results)[1].Report)
		require.Contains(t, (*results)[1].Error, "end_signature")
	})

	t.Run("configured entry", func(t *testing.T) {
		require.ErrorIs(t, run(t, "check", "--env.entry", "reset", good), image.ErrMissingSymbol)
	})

	t.Run("no images", func(t *testing.T) {
		require.ErrorContains(t, run(t, "check"), "no test images given")
	})
}

func TestSignature(t *testing.T) {
	path := elftest.Default().Write(t, "test-rv32ui-add")
	dir := t.TempDir()
	words := filepath.Join(dir, "add.signature")
	report := filepath.Join(dir, "add.json")

	require.NoError(t, run(t, "signature", "--out", words, "--json.out", report, path))
	got, err := os.ReadFile(words)
	require.NoError(t, err)
	require.Equal(t, "03020100\n07060504\n0b0a0908\n0f0e0d0c\n", string(got))

	region, err := jsonutil.LoadJSON[image.Region](report)
	require.NoError(t, err)
	require.Equal(t, uint64(elftest.DefaultDataAddr), region.Begin)
	require.Equal(t, uint64(elftest.DefaultDataAddr+16), region.End)
	require.Equal(t, hexutil.Bytes(elftest.Default().Data[:16]), region.Data)
	require.Equal(t, crypto.Keccak256Hash(region.Data), region.Digest)

	require.ErrorContains(t, run(t, "signature"), "expected exactly one test image")
}

func TestBuild(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake compiler needs a POSIX shell")
	}
	// the fake compiler copies a prebuilt image for every test
	dir := t.TempDir()
	prebuilt := elftest.Default().Write(t, "prebuilt")
	compiler := filepath.Join(dir, "fake-gcc")
	script := "#!/bin/sh\nwhile [ $# -gt 0 ]; do\n\tif [ \"$1\" = \"-o\" ]; then shift; cp \"" + prebuilt + "\" \"$1\"; fi\n\tshift\ndone\n"
	require.NoError(t, os.WriteFile(compiler, []byte(script), 0o755))
	outDir := filepath.Join(dir, "out")

	err := run(t, "build",
		"--compiler", compiler,
		"--isa-dir", dir,
		"--out-dir", outDir,
		"--jobs", "4",
	)
	require.NoError(t, err)
	for _, test := range suite.ISATests.Select(0) {
		require.FileExists(t, filepath.Join(outDir, test.Binary()))
	}
	require.NoFileExists(t, filepath.Join(outDir, "test-rv32uc-rvc"), "compressed tests need --features c")

	err = run(t, "build", "--compiler", compiler, "--isa-dir", dir, "--out-dir", outDir, "--features", "v")
	require.ErrorContains(t, err, `unknown feature "v"`)

	err = run(t, "build", "--compiler", compiler, "--isa-dir", dir, "--out-dir", outDir, "--env.begin-signature", "sig_begin")
	require.ErrorContains(t, err, "test images failed the environment check")
}
