// Package elftest builds small RISC-V ELF32 executables for tests,
// laid out the way a riscv-tests image is: a .text segment holding the
// entry point and a .data segment holding the signature region.
package elftest

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// Symbol is a symbol table entry. Section is "text", "data" or "" (absolute).
type Symbol struct {
	Name    string
	Value   uint32
	Global  bool
	Section string
}

type Image struct {
	Entry   uint32
	Machine elf.Machine
	Type    elf.Type
	OSABI   elf.OSABI

	TextAddr uint32
	Text     []byte

	DataAddr uint32
	Data     []byte
	// DataMemsz extends the data segment past Data with zeroes when larger.
	DataMemsz uint32

	Symbols []Symbol
}

const (
	DefaultTextAddr = 0x1000_0000
	DefaultDataAddr = 0x1000_1000
)

// Default is a well formed image: _start at the start of .text and a 16 byte
// signature region at the start of .data.
func Default() *Image {
	data := make([]byte, 32)
	for i := range data {
		data[i] = byte(i)
	}
	return &Image{
		Entry:    DefaultTextAddr,
		Machine:  elf.EM_RISCV,
		Type:     elf.ET_EXEC,
		OSABI:    elf.ELFOSABI_NONE,
		TextAddr: DefaultTextAddr,
		// addi x0, x0, 0 ; ecall
		Text:     []byte{0x13, 0x00, 0x00, 0x00, 0x73, 0x00, 0x00, 0x00},
		DataAddr: DefaultDataAddr,
		Data:     data,
		Symbols: []Symbol{
			{Name: "_start", Value: DefaultTextAddr, Global: true, Section: "text"},
			{Name: "reset_vector", Value: DefaultTextAddr + 4, Section: "text"},
			{Name: "begin_signature", Value: DefaultDataAddr, Global: true, Section: "data"},
			{Name: "end_signature", Value: DefaultDataAddr + 16, Global: true, Section: "data"},
		},
	}
}

// Symbol returns the first symbol with the given name, or nil.
func (img *Image) Symbol(name string) *Symbol {
	for i := range img.Symbols {
		if img.Symbols[i].Name == name {
			return &img.Symbols[i]
		}
	}
	return nil
}

const (
	ehdrSize = 52
	phdrSize = 32
	shdrSize = 40
	symSize  = 16
)

// Section header indices.
const (
	shText = 1 + iota
	shData
	shSymtab
	shStrtab
	shShstrtab
	shCount
)

// Bytes encodes the image as a little endian ELF32 file.
func (img *Image) Bytes() []byte {
	le := binary.LittleEndian

	shstrtab := []byte("\x00.text\x00.data\x00.symtab\x00.strtab\x00.shstrtab\x00")
	nameOff := func(name string) uint32 {
		return uint32(bytes.Index(shstrtab, []byte("\x00"+name+"\x00")) + 1)
	}

	strtab := []byte{0}
	syms := []elf.Sym32{{}}
	locals := uint32(1)
	// locals first, as the ELF spec requires
	for _, global := range []bool{false, true} {
		for _, s := range img.Symbols {
			if s.Global != global {
				continue
			}
			bind, shndx := elf.STB_LOCAL, uint16(elf.SHN_ABS)
			if s.Global {
				bind = elf.STB_GLOBAL
			}
			switch s.Section {
			case "text":
				shndx = shText
			case "data":
				shndx = shData
			}
			syms = append(syms, elf.Sym32{
				Name:  uint32(len(strtab)),
				Value: s.Value,
				Info:  elf.ST_INFO(bind, elf.STT_NOTYPE),
				Shndx: shndx,
			})
			strtab = append(strtab, s.Name...)
			strtab = append(strtab, 0)
			if !global {
				locals++
			}
		}
	}

	textOff := uint32(ehdrSize + 2*phdrSize)
	dataOff := textOff + uint32(len(img.Text))
	symOff := dataOff + uint32(len(img.Data))
	strOff := symOff + uint32(len(syms)*symSize)
	shstrOff := strOff + uint32(len(strtab))
	shOff := shstrOff + uint32(len(shstrtab))

	dataMemsz := uint32(len(img.Data))
	if img.DataMemsz > dataMemsz {
		dataMemsz = img.DataMemsz
	}

	var buf bytes.Buffer
	hdr := elf.Header32{
		Type:      uint16(img.Type),
		Machine:   uint16(img.Machine),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     img.Entry,
		Phoff:     ehdrSize,
		Shoff:     shOff,
		Ehsize:    ehdrSize,
		Phentsize: phdrSize,
		Phnum:     2,
		Shentsize: shdrSize,
		Shnum:     shCount,
		Shstrndx:  shShstrtab,
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS32)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	hdr.Ident[elf.EI_OSABI] = byte(img.OSABI)
	must(binary.Write(&buf, le, &hdr))

	progs := []elf.Prog32{
		{
			Type: uint32(elf.PT_LOAD), Off: textOff, Vaddr: img.TextAddr, Paddr: img.TextAddr,
			Filesz: uint32(len(img.Text)), Memsz: uint32(len(img.Text)),
			Flags: uint32(elf.PF_R | elf.PF_X), Align: 4,
		},
		{
			Type: uint32(elf.PT_LOAD), Off: dataOff, Vaddr: img.DataAddr, Paddr: img.DataAddr,
			Filesz: uint32(len(img.Data)), Memsz: dataMemsz,
			Flags: uint32(elf.PF_R | elf.PF_W), Align: 4,
		},
	}
	must(binary.Write(&buf, le, progs))
	buf.Write(img.Text)
	buf.Write(img.Data)
	must(binary.Write(&buf, le, syms))
	buf.Write(strtab)
	buf.Write(shstrtab)

	sections := []elf.Section32{
		{},
		{
			Name: nameOff(".text"), Type: uint32(elf.SHT_PROGBITS),
			Flags: uint32(elf.SHF_ALLOC | elf.SHF_EXECINSTR),
			Addr:  img.TextAddr, Off: textOff, Size: uint32(len(img.Text)), Addralign: 4,
		},
		{
			Name: nameOff(".data"), Type: uint32(elf.SHT_PROGBITS),
			Flags: uint32(elf.SHF_ALLOC | elf.SHF_WRITE),
			Addr:  img.DataAddr, Off: dataOff, Size: uint32(len(img.Data)), Addralign: 4,
		},
		{
			Name: nameOff(".symtab"), Type: uint32(elf.SHT_SYMTAB),
			Off: symOff, Size: uint32(len(syms) * symSize),
			Link: shStrtab, Info: locals, Addralign: 4, Entsize: symSize,
		},
		{
			Name: nameOff(".strtab"), Type: uint32(elf.SHT_STRTAB),
			Off: strOff, Size: uint32(len(strtab)), Addralign: 1,
		},
		{
			Name: nameOff(".shstrtab"), Type: uint32(elf.SHT_STRTAB),
			Off: shstrOff, Size: uint32(len(shstrtab)), Addralign: 1,
		},
	}
	must(binary.Write(&buf, le, sections))
	return buf.Bytes()
}

// Write stores the image in a temp dir and returns its path.
func (img *Image) Write(t testing.TB, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	img.WriteFile(t, path)
	return path
}

// WriteFile stores the image at path.
func (img *Image) WriteFile(t testing.TB, path string) {
	t.Helper()
	if err := os.WriteFile(path, img.Bytes(), 0o644); err != nil {
		t.Fatalf("failed to write test image: %v", err)
	}
}

// Open parses the encoded image, closing it when the test ends.
func (img *Image) Open(t testing.TB) *elf.File {
	t.Helper()
	f, err := elf.NewFile(bytes.NewReader(img.Bytes()))
	if err != nil {
		t.Fatalf("failed to parse test image: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
