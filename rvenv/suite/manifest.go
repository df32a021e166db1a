package suite

import (
	"fmt"
	"strings"
)

// Feature gates ISA tests the target may not implement.
type Feature uint8

const (
	// FeatureC is the compressed instruction extension.
	FeatureC Feature = 1 << iota
	// FeatureFD is the single and double precision floating point extensions.
	FeatureFD
)

// ParseFeatures parses feature names such as "c" and "fd".
func ParseFeatures(names []string) (Feature, error) {
	var out Feature
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "c", "rv32c":
			out |= FeatureC
		case "fd", "rv32fd":
			out |= FeatureFD
		case "":
		default:
			return 0, fmt.Errorf("unknown feature %q", name)
		}
	}
	return out, nil
}

func (f Feature) String() string {
	var names []string
	if f&FeatureC != 0 {
		names = append(names, "c")
	}
	if f&FeatureFD != 0 {
		names = append(names, "fd")
	}
	return strings.Join(names, ",")
}

// Test is one riscv-tests ISA test program.
type Test struct {
	Set      string
	Name     string
	Requires Feature
}

// Source is the assembly source path, relative to the ISA tests dir.
func (t Test) Source() string {
	return fmt.Sprintf("%s/%s.S", t.Set, t.Name)
}

// Binary is the file name of the built test image.
func (t Test) Binary() string {
	return fmt.Sprintf("test-%s-%s", t.Set, t.Name)
}

func (t Test) String() string {
	return t.Set + "/" + t.Name
}

type Manifest []Test

// Select returns the tests whose required features are all enabled.
func (m Manifest) Select(enabled Feature) Manifest {
	var out Manifest
	for _, t := range m {
		if t.Requires&^enabled == 0 {
			out = append(out, t)
		}
	}
	return out
}

// ISATests are the rv32 riscv-tests programs built against the environment.
// rv32ud/move is not part of the suite.
var ISATests = Manifest{
	{"rv32uc", "rvc", FeatureC},

	{"rv32ui", "add", 0},
	{"rv32ui", "addi", 0},
	{"rv32ui", "and", 0},
	{"rv32ui", "andi", 0},
	{"rv32ui", "auipc", 0},
	{"rv32ui", "beq", 0},
	{"rv32ui", "bge", 0},
	{"rv32ui", "bgeu", 0},
	{"rv32ui", "blt", 0},
	{"rv32ui", "bltu", 0},
	{"rv32ui", "bne", 0},
	{"rv32ui", "fence_i", 0},
	{"rv32ui", "jal", 0},
	{"rv32ui", "jalr", 0},
	{"rv32ui", "lb", 0},
	{"rv32ui", "lbu", 0},
	{"rv32ui", "lh", 0},
	{"rv32ui", "lhu", 0},
	{"rv32ui", "lui", 0},
	{"rv32ui", "lw", 0},
	{"rv32ui", "or", 0},
	{"rv32ui", "ori", 0},
	{"rv32ui", "sb", 0},
	{"rv32ui", "sh", 0},
	{"rv32ui", "simple", 0},
	{"rv32ui", "sll", 0},
	{"rv32ui", "slli", 0},
	{"rv32ui", "slt", 0},
	{"rv32ui", "slti", 0},
	{"rv32ui", "sltiu", 0},
	{"rv32ui", "sltu", 0},
	{"rv32ui", "sra", 0},
	{"rv32ui", "srai", 0},
	{"rv32ui", "srl", 0},
	{"rv32ui", "srli", 0},
	{"rv32ui", "sub", 0},
	{"rv32ui", "sw", 0},
	{"rv32ui", "xor", 0},
	{"rv32ui", "xori", 0},

	{"rv32um", "div", 0},
	{"rv32um", "divu", 0},
	{"rv32um", "mul", 0},
	{"rv32um", "mulh", 0},
	{"rv32um", "mulhsu", 0},
	{"rv32um", "mulhu", 0},
	{"rv32um", "rem", 0},
	{"rv32um", "remu", 0},

	{"rv32ua", "amoadd_w", 0},
	{"rv32ua", "amoand_w", 0},
	{"rv32ua", "amomax_w", 0},
	{"rv32ua", "amomaxu_w", 0},
	{"rv32ua", "amomin_w", 0},
	{"rv32ua", "amominu_w", 0},
	{"rv32ua", "amoor_w", 0},
	{"rv32ua", "amoswap_w", 0},
	{"rv32ua", "amoxor_w", 0},
	{"rv32ua", "lrsc", 0},

	{"rv32uf", "fadd", FeatureFD},
	{"rv32uf", "fclass", FeatureFD},
	{"rv32uf", "fcmp", FeatureFD},
	{"rv32uf", "fcvt", FeatureFD},
	{"rv32uf", "fcvt_w", FeatureFD},
	{"rv32uf", "fdiv", FeatureFD},
	{"rv32uf", "fmadd", FeatureFD},
	{"rv32uf", "fmin", FeatureFD},
	{"rv32uf", "ldst", FeatureFD},
	{"rv32uf", "move", FeatureFD},
	{"rv32uf", "recoding", FeatureFD},

	{"rv32ud", "fadd", FeatureFD},
	{"rv32ud", "fclass", FeatureFD},
	{"rv32ud", "fcmp", FeatureFD},
	{"rv32ud", "fcvt", FeatureFD},
	{"rv32ud", "fcvt_w", FeatureFD},
	{"rv32ud", "fdiv", FeatureFD},
	{"rv32ud", "fmadd", FeatureFD},
	{"rv32ud", "fmin", FeatureFD},
	{"rv32ud", "ldst", FeatureFD},
	{"rv32ud", "recoding", FeatureFD},
}
