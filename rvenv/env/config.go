package env

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rvsim/rvenv/rvenv/riscv"
)

var (
	ErrInvalidName      = errors.New("invalid name")
	ErrDuplicateSymbol  = errors.New("duplicate global symbol")
	ErrInvalidAlignment = errors.New("invalid alignment")
)

var (
	macroName  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	symbolName = regexp.MustCompile(`^[A-Za-z_.$][A-Za-z0-9_.$]*$`)
)

// maxAlignLog2 bounds the .align argument to 32 KiB boundaries.
const maxAlignLog2 = 15

// Flags are presence-only switches. A set flag makes the override define the
// macro with an empty body, shadowing whatever the base environment expands it to.
type Flags struct {
	EnableSupervisor bool `json:"enableSupervisor"`
	EnableMachine    bool `json:"enableMachine"`
	FPEnable         bool `json:"fpEnable"`
	MulticoreDisable bool `json:"multicoreDisable"`
}

type CodeBegin struct {
	Section     string `json:"section"`
	EntrySymbol string `json:"entrySymbol"`
	InitMacro   string `json:"initMacro"`
}

type DataBegin struct {
	ExtraDataMacro string `json:"extraDataMacro"`
	// Align is the .align directive argument, a power of two exponent.
	Align       uint   `json:"align"`
	BeginSymbol string `json:"beginSymbol"`
}

// Alignment returns the byte alignment of the begin marker.
func (d DataBegin) Alignment() uint64 {
	return 1 << d.Align
}

type DataEnd struct {
	Align     uint   `json:"align"`
	EndSymbol string `json:"endSymbol"`
}

// Alignment returns the byte alignment of the end marker.
func (d DataEnd) Alignment() uint64 {
	return 1 << d.Align
}

// Config is the effective test environment: what every test binary that
// includes the override header gets as entry point, signature markers and flags.
type Config struct {
	Guard       string    `json:"guard"`
	BaseInclude string    `json:"baseInclude"`
	CodeBegin   CodeBegin `json:"codeBegin"`
	DataBegin   DataBegin `json:"dataBegin"`
	DataEnd     DataEnd   `json:"dataEnd"`
	Flags       Flags     `json:"flags"`
}

// Base returns the environment as the vendored riscv-tests "p" environment
// defines it, before any target override.
func Base() *Config {
	return &Config{
		Guard:       riscv.EnvGuard,
		BaseInclude: riscv.EnvBaseInclude,
		CodeBegin: CodeBegin{
			Section:     ".text.init",
			EntrySymbol: riscv.SymbolEntry,
			InitMacro:   riscv.MacroInit,
		},
		DataBegin: DataBegin{
			ExtraDataMacro: riscv.MacroExtraData,
			Align:          riscv.SignatureAlignLog2,
			BeginSymbol:    riscv.SymbolBeginSignature,
		},
		DataEnd: DataEnd{
			Align:     riscv.SignatureAlignLog2,
			EndSymbol: riscv.SymbolEndSignature,
		},
	}
}

// Override is the bare-metal target layer: plain .text entry and every
// base feature sequence replaced by an empty definition.
func Override() *Layer {
	return &Layer{
		Section:          ptr(".text"),
		EnableSupervisor: ptr(true),
		EnableMachine:    ptr(true),
		FPEnable:         ptr(true),
		MulticoreDisable: ptr(true),
	}
}

// Default is the base environment with the target override applied.
func Default() *Config {
	return Merge(Base(), Override())
}

// Clone returns an independent copy of the config.
func (c *Config) Clone() *Config {
	out := *c
	return &out
}

// Defined reports whether the override defines the named macro.
func (c *Config) Defined(name string) bool {
	for _, m := range c.Macros() {
		if m.Name == name {
			return true
		}
	}
	return false
}

// Check validates the config. The assembler would otherwise report these
// problems per test, or not at all for alignment.
func (c *Config) Check() error {
	macros := []struct {
		field, value string
	}{
		{"guard", c.Guard},
		{"init macro", c.CodeBegin.InitMacro},
		{"extra data macro", c.DataBegin.ExtraDataMacro},
	}
	for _, m := range macros {
		if !macroName.MatchString(m.value) {
			return fmt.Errorf("%w: %s %q", ErrInvalidName, m.field, m.value)
		}
	}
	if c.BaseInclude == "" {
		return fmt.Errorf("%w: empty base include", ErrInvalidName)
	}
	if strings.ContainsAny(c.BaseInclude, "\"\r\n\x00") {
		return fmt.Errorf("%w: base include %q cannot be quoted in #include", ErrInvalidName, c.BaseInclude)
	}
	if !symbolName.MatchString(c.CodeBegin.Section) || c.CodeBegin.Section[0] != '.' {
		return fmt.Errorf("%w: section %q", ErrInvalidName, c.CodeBegin.Section)
	}
	symbols := []struct {
		field, value string
	}{
		{"entry symbol", c.CodeBegin.EntrySymbol},
		{"begin symbol", c.DataBegin.BeginSymbol},
		{"end symbol", c.DataEnd.EndSymbol},
	}
	seen := make(map[string]string, len(symbols))
	for _, s := range symbols {
		if !symbolName.MatchString(s.value) {
			return fmt.Errorf("%w: %s %q", ErrInvalidName, s.field, s.value)
		}
		if other, ok := seen[s.value]; ok {
			return fmt.Errorf("%w: %s and %s are both %q", ErrDuplicateSymbol, other, s.field, s.value)
		}
		seen[s.value] = s.field
	}
	for _, a := range []struct {
		field string
		value uint
	}{
		{"begin", c.DataBegin.Align},
		{"end", c.DataEnd.Align},
	} {
		if a.value > maxAlignLog2 {
			return fmt.Errorf("%w: %s .align %d exceeds %d", ErrInvalidAlignment, a.field, a.value, maxAlignLog2)
		}
		if uint64(1)<<a.value < riscv.MinSignatureAlign {
			return fmt.Errorf("%w: %s .align %d is below %d bytes", ErrInvalidAlignment, a.field, a.value, riscv.MinSignatureAlign)
		}
	}
	return nil
}

// Alignment is the alignment both signature markers are guaranteed to have.
func (c *Config) Alignment() uint64 {
	return min(c.DataBegin.Alignment(), c.DataEnd.Alignment())
}

func ptr[T any](v T) *T {
	return &v
}
