package image

import (
	"debug/elf"
	"fmt"
	"sort"
)

type SortedSymbols []elf.Symbol

// At returns the names of the symbols whose value is exactly addr.
func (s SortedSymbols) At(addr uint64) []string {
	i := sort.Search(len(s), func(i int) bool {
		return s[i].Value >= addr
	})
	var out []string
	for ; i < len(s) && s[i].Value == addr; i++ {
		out = append(out, s[i].Name)
	}
	return out
}

// Globals returns the defined global symbols with the given name.
func (s SortedSymbols) Globals(name string) []elf.Symbol {
	var out []elf.Symbol
	for _, sym := range s {
		if sym.Name == name && elf.ST_BIND(sym.Info) == elf.STB_GLOBAL && sym.Section != elf.SHN_UNDEF {
			out = append(out, sym)
		}
	}
	return out
}

func Symbols(f *elf.File) (SortedSymbols, error) {
	symbols, err := f.Symbols()
	if err != nil {
		return nil, fmt.Errorf("failed to read symbols data: %w", err)
	}
	// assemblers emit symbols grouped by binding, not by address
	out := make(SortedSymbols, len(symbols))
	copy(out, symbols)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value < out[j].Value
	})
	return out, nil
}
