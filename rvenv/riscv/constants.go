package riscv

import "debug/elf"

const (
	MacroCodeBegin        = "RVTEST_CODE_BEGIN"
	MacroDataBegin        = "RVTEST_DATA_BEGIN"
	MacroDataEnd          = "RVTEST_DATA_END"
	MacroEnableSupervisor = "RVTEST_ENABLE_SUPERVISOR"
	MacroEnableMachine    = "RVTEST_ENABLE_MACHINE"
	MacroFPEnable         = "RVTEST_FP_ENABLE"
	MacroMulticoreDisable = "RISCV_MULTICORE_DISABLE"

	MacroInit      = "init"
	MacroExtraData = "EXTRA_DATA"

	SymbolEntry          = "_start"
	SymbolBeginSignature = "begin_signature"
	SymbolEndSignature   = "end_signature"

	EnvGuard       = "_ENV_CUSTOM_H"
	EnvBaseInclude = "../../vendor/riscv-tests/env/p/riscv_test.h"

	// SignatureAlignLog2 is the .align argument of the signature markers.
	// RISC-V assemblers treat it as a power of two, so markers land on 16 bytes.
	SignatureAlignLog2 = 4
	// MinSignatureAlign is the byte alignment signature checkers rely on.
	MinSignatureAlign = 4
)

// PTRiscvAttributes is the program type of the `.riscv.attributes` segment.
// RISC-V reuses the MIPS_ABIFLAGS value for it, and it has no memory size.
// See: https://github.com/riscv-non-isa/riscv-elf-psabi-doc/blob/master/riscv-elf.adoc#attributes
const PTRiscvAttributes = elf.ProgType(0x70000003)
