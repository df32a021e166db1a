package image

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/rvsim/rvenv/rvenv/riscv"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported executable format")
	ErrUnmapped          = errors.New("address range not mapped")
)

// Open opens an ELF test image and checks its format.
// The caller closes the returned file.
func Open(path string) (*elf.File, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file %q: %w", path, err)
	}
	if err := Inspect(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%q: %w", path, err)
	}
	return f, nil
}

// Inspect checks f is a little endian SYSV RISC-V executable,
// the only kind of image the test environment produces.
func Inspect(f *elf.File) error {
	switch {
	case f.Data != elf.ELFDATA2LSB:
		return fmt.Errorf("%w: byte order %s", ErrUnsupportedFormat, f.Data)
	case f.OSABI != elf.ELFOSABI_NONE:
		return fmt.Errorf("%w: OS ABI %s", ErrUnsupportedFormat, f.OSABI)
	case f.Type != elf.ET_EXEC:
		return fmt.Errorf("%w: type %s", ErrUnsupportedFormat, f.Type)
	case f.Machine != elf.EM_RISCV:
		return fmt.Errorf("%w: ELF is not RISC-V, but got %q", ErrUnsupportedFormat, f.Machine.String())
	}
	return nil
}

// Segment is a loaded program segment, zero filled up to its memory size.
type Segment struct {
	Addr uint64
	Data []byte
}

func (s *Segment) End() uint64 {
	return s.Addr + uint64(len(s.Data))
}

// Segments are sorted by address.
type Segments []Segment

// LoadSegments reads the loadable program segments of f.
func LoadSegments(f *elf.File) (Segments, error) {
	var out Segments
	for i, prog := range f.Progs {
		if prog.Type == riscv.PTRiscvAttributes {
			// not loaded into memory
			continue
		}
		if prog.Type != elf.PT_LOAD {
			continue
		}
		if prog.Memsz > 0 && prog.Vaddr+prog.Memsz <= prog.Vaddr {
			return nil, fmt.Errorf("program segment %d at %#x with mem size %d wraps the address space", i, prog.Vaddr, prog.Memsz)
		}
		r := io.Reader(io.NewSectionReader(prog, 0, int64(prog.Filesz)))
		if prog.Filesz != prog.Memsz {
			if prog.Filesz < prog.Memsz {
				r = io.MultiReader(r, bytes.NewReader(make([]byte, prog.Memsz-prog.Filesz)))
			} else {
				return nil, fmt.Errorf("invalid PT_LOAD program segment %d, file size (%d) > mem size (%d)", i, prog.Filesz, prog.Memsz)
			}
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read program segment %d: %w", i, err)
		}
		out = append(out, Segment{Addr: prog.Vaddr, Data: data})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Addr < out[j].Addr
	})
	for i := 1; i < len(out); i++ {
		if out[i].Addr < out[i-1].End() {
			return nil, fmt.Errorf("program segments at %#x and %#x overlap", out[i-1].Addr, out[i].Addr)
		}
	}
	return out, nil
}

// ReadRange copies n bytes starting at addr. The range may span adjacent segments
// but every byte of it must be mapped.
func (s Segments) ReadRange(addr, n uint64) ([]byte, error) {
	out := make([]byte, 0, n)
	end := addr + n
	if end < addr {
		return nil, fmt.Errorf("%w: range %#x+%d overflows", ErrUnmapped, addr, n)
	}
	for pos := addr; pos < end; {
		i := sort.Search(len(s), func(i int) bool {
			return s[i].End() > pos
		})
		if i == len(s) || s[i].Addr > pos {
			return nil, fmt.Errorf("%w: %#x", ErrUnmapped, pos)
		}
		seg := &s[i]
		chunk := min(seg.End(), end)
		out = append(out, seg.Data[pos-seg.Addr:chunk-seg.Addr]...)
		pos = chunk
	}
	return out, nil
}
