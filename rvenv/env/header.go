package env

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/rvsim/rvenv/rvenv/riscv"
)

// continuationColumn is where line continuation backslashes are aligned.
const continuationColumn = 72

// Macro is one preprocessor definition. Body lines are joined with line
// continuations; a macro with no body is a presence-only flag.
type Macro struct {
	Name string
	Body []string
}

// Macros returns the definitions the override header makes, in header order.
func (c *Config) Macros() []Macro {
	out := []Macro{
		{
			Name: riscv.MacroCodeBegin,
			Body: []string{
				"\t" + sectionDirective(c.CodeBegin.Section) + ";",
				"\t.global " + c.CodeBegin.EntrySymbol + ";",
				c.CodeBegin.EntrySymbol + ":",
				"\t" + c.CodeBegin.InitMacro,
			},
		},
		{
			Name: riscv.MacroDataBegin,
			Body: []string{
				"\t" + c.DataBegin.ExtraDataMacro,
				"\t" + alignedLabel(c.DataBegin.Align, c.DataBegin.BeginSymbol),
			},
		},
		{
			Name: riscv.MacroDataEnd,
			Body: []string{
				"\t" + alignedLabel(c.DataEnd.Align, c.DataEnd.EndSymbol),
			},
		},
	}
	for _, f := range []struct {
		name string
		on   bool
	}{
		{riscv.MacroEnableSupervisor, c.Flags.EnableSupervisor},
		{riscv.MacroEnableMachine, c.Flags.EnableMachine},
		{riscv.MacroFPEnable, c.Flags.FPEnable},
		{riscv.MacroMulticoreDisable, c.Flags.MulticoreDisable},
	} {
		if f.on {
			out = append(out, Macro{Name: f.name})
		}
	}
	return out
}

// sectionDirective uses the shorthand directive for the standard sections.
func sectionDirective(name string) string {
	switch name {
	case ".text", ".data", ".bss":
		return name
	default:
		return ".section " + name
	}
}

func alignedLabel(align uint, sym string) string {
	return fmt.Sprintf(".align %d; .global %s; %s:", align, sym, sym)
}

// Render writes the override header for cfg. The config is checked first,
// nothing is written for an invalid config.
func Render(w io.Writer, cfg *Config) error {
	if err := cfg.Check(); err != nil {
		return fmt.Errorf("invalid environment config: %w", err)
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "#ifndef %s\n#define %s\n\n", cfg.Guard, cfg.Guard)
	// C does not unescape include paths, Check rejects the ones that cannot be quoted
	fmt.Fprintf(bw, "#include \"%s\"\n\n", cfg.BaseInclude)
	for _, m := range cfg.Macros() {
		// always undefine: the base may or may not define the macro,
		// and #undef of an undefined name is a no-op.
		fmt.Fprintf(bw, "#undef %s\n", m.Name)
		head := "#define " + m.Name
		if len(m.Body) == 0 {
			fmt.Fprintf(bw, "%s\n\n", head)
			continue
		}
		writeContinued(bw, head)
		for i, line := range m.Body {
			if i == len(m.Body)-1 {
				fmt.Fprintf(bw, "%s\n", expandTabs(line))
			} else {
				writeContinued(bw, line)
			}
		}
		bw.WriteString("\n")
	}
	fmt.Fprintf(bw, "#endif\n")
	return bw.Flush()
}

func writeContinued(w *bufio.Writer, line string) {
	line = expandTabs(line)
	pad := continuationColumn - len(line)
	if pad < 1 {
		pad = 1
	}
	w.WriteString(line)
	w.WriteString(strings.Repeat(" ", pad))
	w.WriteString("\\\n")
}

func expandTabs(line string) string {
	return strings.ReplaceAll(line, "\t", "        ")
}
