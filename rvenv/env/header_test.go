package env

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderDefault(t *testing.T) {
	expected, err := os.ReadFile("testdata/env_custom.h")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, Default()))
	require.Equal(t, string(expected), buf.String())
}

func TestRenderDeterministic(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, Render(&a, Default()))
	require.NoError(t, Render(&b, Default()))
	require.Equal(t, a.Bytes(), b.Bytes())
}

func TestRenderGuarded(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, Default()))
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Equal(t, "#ifndef _ENV_CUSTOM_H", lines[0])
	require.Equal(t, "#define _ENV_CUSTOM_H", lines[1])
	require.Equal(t, "#endif", lines[len(lines)-1])

	// every definition is preceded by its #undef, so a second inclusion
	// is skipped by the guard and the first never redefines a live macro
	defines := 0
	for i, line := range lines[2 : len(lines)-1] {
		if name, ok := strings.CutPrefix(line, "#define "); ok {
			name = strings.TrimSpace(strings.TrimSuffix(name, "\\"))
			require.Equal(t, "#undef "+name, lines[2+i-1])
			defines++
		}
		require.NotContains(t, line, "#ifndef", "no nested guard")
	}
	require.Equal(t, 7, defines)
}

func TestRenderFlagsOff(t *testing.T) {
	cfg := Merge(Default(), &Layer{
		EnableSupervisor: ptr(false),
		EnableMachine:    ptr(false),
		FPEnable:         ptr(false),
		MulticoreDisable: ptr(false),
	})
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, cfg))
	out := buf.String()
	for _, name := range []string{"RVTEST_ENABLE_SUPERVISOR", "RVTEST_ENABLE_MACHINE", "RVTEST_FP_ENABLE", "RISCV_MULTICORE_DISABLE"} {
		require.NotContains(t, out, name)
	}
	require.Contains(t, out, "#define RVTEST_DATA_END")
}

func TestRenderCustomSection(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, Base()))
	require.Contains(t, buf.String(), "        .section .text.init;")
}

func TestRenderIncludeVerbatim(t *testing.T) {
	var buf bytes.Buffer
	cfg := Merge(Default(), &Layer{BaseInclude: ptr(`..\env\p\riscv_test.h`)})
	require.NoError(t, Render(&buf, cfg))
	require.Contains(t, buf.String(), "\n#include \"..\\env\\p\\riscv_test.h\"\n")
	require.NotContains(t, buf.String(), `\\`, "backslashes are not escaped")
}

func TestRenderInvalid(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, Merge(Default(), &Layer{InitMacro: ptr("")}))
	require.ErrorIs(t, err, ErrInvalidName)
	require.Zero(t, buf.Len(), "nothing written for invalid config")
}
