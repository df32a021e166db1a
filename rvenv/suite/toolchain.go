package suite

// Toolchain describes how a test source is compiled into an image.
// Paths are relative to ISADir, the directory the compiler runs in.
type Toolchain struct {
	Compiler   string
	March      string
	MABI       string
	ISADir     string
	EnvDir     string
	MacroDir   string
	LinkScript string
}

func DefaultToolchain() Toolchain {
	return Toolchain{
		Compiler:   "riscv32-none-elf-gcc",
		March:      "rv32g",
		MABI:       "ilp32",
		ISADir:     "vendor/riscv-tests/isa",
		EnvDir:     "./../../../tests/env",
		MacroDir:   "./macros/scalar",
		LinkScript: "./../../../tests/env/link.ld",
	}
}

// Args returns the compiler arguments that build t into out.
func (tc Toolchain) Args(t Test, out string) []string {
	return []string{
		"-static",
		"-march=" + tc.March,
		"-mabi=" + tc.MABI,
		"-nostdlib",
		"-nostartfiles",
		"-I" + tc.EnvDir,
		"-I" + tc.MacroDir,
		"-T" + tc.LinkScript,
		"-Wl,--no-warn-rwx-segments",
		"-o", out,
		t.Source(),
	}
}
