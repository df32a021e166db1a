package env

// Layer is a partial Config. Nil fields are left to the layer below.
type Layer struct {
	Guard       *string `json:"guard,omitempty"`
	BaseInclude *string `json:"baseInclude,omitempty"`

	Section     *string `json:"section,omitempty"`
	EntrySymbol *string `json:"entrySymbol,omitempty"`
	InitMacro   *string `json:"initMacro,omitempty"`

	ExtraDataMacro *string `json:"extraDataMacro,omitempty"`
	BeginAlign     *uint   `json:"beginAlign,omitempty"`
	BeginSymbol    *string `json:"beginSymbol,omitempty"`

	EndAlign  *uint   `json:"endAlign,omitempty"`
	EndSymbol *string `json:"endSymbol,omitempty"`

	EnableSupervisor *bool `json:"enableSupervisor,omitempty"`
	EnableMachine    *bool `json:"enableMachine,omitempty"`
	FPEnable         *bool `json:"fpEnable,omitempty"`
	MulticoreDisable *bool `json:"multicoreDisable,omitempty"`
}

// Apply writes every field the layer sets over the config.
func (c *Config) Apply(l *Layer) {
	if l == nil {
		return
	}
	set(&c.Guard, l.Guard)
	set(&c.BaseInclude, l.BaseInclude)
	set(&c.CodeBegin.Section, l.Section)
	set(&c.CodeBegin.EntrySymbol, l.EntrySymbol)
	set(&c.CodeBegin.InitMacro, l.InitMacro)
	set(&c.DataBegin.ExtraDataMacro, l.ExtraDataMacro)
	set(&c.DataBegin.Align, l.BeginAlign)
	set(&c.DataBegin.BeginSymbol, l.BeginSymbol)
	set(&c.DataEnd.Align, l.EndAlign)
	set(&c.DataEnd.EndSymbol, l.EndSymbol)
	set(&c.Flags.EnableSupervisor, l.EnableSupervisor)
	set(&c.Flags.EnableMachine, l.EnableMachine)
	set(&c.Flags.FPEnable, l.FPEnable)
	set(&c.Flags.MulticoreDisable, l.MulticoreDisable)
}

// Merge applies the layers over a copy of base, in order. Later layers win.
func Merge(base *Config, layers ...*Layer) *Config {
	out := base.Clone()
	for _, l := range layers {
		out.Apply(l)
	}
	return out
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
