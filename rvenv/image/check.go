package image

import (
	"debug/elf"
	"errors"
	"fmt"
	"strings"

	"github.com/rvsim/rvenv/rvenv/env"
	"github.com/rvsim/rvenv/rvenv/riscv"
)

var (
	ErrMissingSymbol   = errors.New("missing global symbol")
	ErrDuplicateSymbol = errors.New("duplicate global symbol")
	ErrMisaligned      = errors.New("misaligned signature marker")
	ErrRegionOrder     = errors.New("signature end precedes begin")
	ErrEntryMismatch   = errors.New("entry point is not the entry symbol")
)

// Report is the binary level contract of a test image.
type Report struct {
	Entry uint64 `json:"entry"`
	Begin uint64 `json:"beginSignature"`
	End   uint64 `json:"endSignature"`
}

// Size is the signature region length in bytes.
func (r *Report) Size() uint64 {
	return r.End - r.Begin
}

// CheckSymbols verifies f exposes exactly one entry symbol and one pair of
// signature markers, aligned and ordered, as the environment in cfg defines them.
// A nil cfg checks against the default environment.
func CheckSymbols(f *elf.File, cfg *env.Config) (*Report, error) {
	if cfg == nil {
		cfg = env.Default()
	}
	symbols, err := Symbols(f)
	if err != nil {
		return nil, err
	}
	unique := func(name string) (elf.Symbol, error) {
		found := symbols.Globals(name)
		switch len(found) {
		case 0:
			return elf.Symbol{}, fmt.Errorf("%w: %q", ErrMissingSymbol, name)
		case 1:
			return found[0], nil
		default:
			return elf.Symbol{}, fmt.Errorf("%w: %q defined %d times", ErrDuplicateSymbol, name, len(found))
		}
	}
	start, err := unique(cfg.CodeBegin.EntrySymbol)
	if err != nil {
		return nil, err
	}
	begin, err := unique(cfg.DataBegin.BeginSymbol)
	if err != nil {
		return nil, err
	}
	end, err := unique(cfg.DataEnd.EndSymbol)
	if err != nil {
		return nil, err
	}

	if f.Entry != start.Value {
		at := "no symbol"
		if names := symbols.At(f.Entry); len(names) > 0 {
			at = strings.Join(names, ", ")
		}
		return nil, fmt.Errorf("%w: entry %#x (%s), %s at %#x", ErrEntryMismatch, f.Entry, at, start.Name, start.Value)
	}
	for _, m := range []struct {
		sym   elf.Symbol
		align uint64
	}{
		{begin, cfg.DataBegin.Alignment()},
		{end, cfg.DataEnd.Alignment()},
	} {
		align := max(m.align, riscv.MinSignatureAlign)
		if m.sym.Value%align != 0 {
			return nil, fmt.Errorf("%w: %s at %#x is not %d byte aligned", ErrMisaligned, m.sym.Name, m.sym.Value, align)
		}
	}
	if end.Value < begin.Value {
		return nil, fmt.Errorf("%w: %s %#x < %s %#x", ErrRegionOrder, end.Name, end.Value, begin.Name, begin.Value)
	}
	return &Report{Entry: start.Value, Begin: begin.Value, End: end.Value}, nil
}
