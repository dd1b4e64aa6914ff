package pythondecl

import (
	"fmt"
	"sort"
	"strings"
)

// Constant is a module or class level variable
type Constant struct {
	Name string
	Type Type
}

func (c *Constant) String() string {
	return fmt.Sprintf("%s = ...  # type: %s", c.Name, c.Type)
}

// ParamKind distinguishes ordinary parameters from *args and **kwargs
type ParamKind int

const (
	// Positional is an ordinary parameter
	Positional ParamKind = iota
	// Varargs is a *args parameter
	Varargs
	// Kwargs is a **kwargs parameter
	Kwargs
)

// Param is a function parameter; a nil Type renders the parameter bare
type Param struct {
	Name       string
	Kind       ParamKind
	Type       Type
	HasDefault bool
}

func (p *Param) String() string {
	var b strings.Builder
	switch p.Kind {
	case Varargs:
		b.WriteString("*")
	case Kwargs:
		b.WriteString("**")
	}
	b.WriteString(p.Name)
	if p.Type != nil {
		b.WriteString(": ")
		b.WriteString(p.Type.String())
	}
	if p.HasDefault {
		b.WriteString(" = ...")
	}
	return b.String()
}

// Function is a function or method declaration
type Function struct {
	Name   string
	Params []*Param
	Return Type
	Raises []Type
	// Diagnostics explain approximations made while inferring this function
	Diagnostics []string
}

func (f *Function) String() string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.String()
	}
	ret := f.Return
	if ret == nil {
		ret = Nothing{}
	}
	s := fmt.Sprintf("def %s(%s) -> %s", f.Name, strings.Join(params, ", "), ret)
	if len(f.Raises) > 0 {
		raises := make([]string, len(f.Raises))
		for i, r := range f.Raises {
			raises[i] = r.String()
		}
		sort.Strings(raises)
		s += " raises " + strings.Join(raises, ", ")
	}
	return s
}

// Class is a class declaration
type Class struct {
	Name    string
	Bases   []Type
	Attrs   []*Constant
	Methods []*Function
}

func (c *Class) String() string {
	var b strings.Builder
	b.WriteString("class " + c.Name)
	if len(c.Bases) > 0 {
		bases := make([]string, len(c.Bases))
		for i, base := range c.Bases {
			bases[i] = base.String()
		}
		b.WriteString("(" + strings.Join(bases, ", ") + ")")
	}
	b.WriteString(":\n")
	if len(c.Attrs) == 0 && len(c.Methods) == 0 {
		b.WriteString("    pass\n")
	}
	for _, a := range c.Attrs {
		b.WriteString("    " + a.String() + "\n")
	}
	for _, m := range c.Methods {
		b.WriteString("    " + m.String() + "\n")
	}
	return b.String()
}

// Module is the declaration tree of one analyzed module
type Module struct {
	Name      string
	Constants []*Constant
	Functions []*Function
	Classes   []*Class
	// Diagnostics that do not belong to a single function
	Diagnostics []string
}

// Sort puts every list of declarations in name order
func (m *Module) Sort() {
	sort.Slice(m.Constants, func(i, j int) bool { return m.Constants[i].Name < m.Constants[j].Name })
	sort.Slice(m.Functions, func(i, j int) bool { return m.Functions[i].Name < m.Functions[j].Name })
	sort.Slice(m.Classes, func(i, j int) bool { return m.Classes[i].Name < m.Classes[j].Name })
	for _, c := range m.Classes {
		sort.Slice(c.Attrs, func(i, j int) bool { return c.Attrs[i].Name < c.Attrs[j].Name })
		sort.Slice(c.Methods, func(i, j int) bool { return c.Methods[i].Name < c.Methods[j].Name })
	}
}

// Function finds a top level function by name
func (m *Module) Function(name string) (*Function, bool) {
	for _, f := range m.Functions {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Class finds a class by name
func (m *Module) Class(name string) (*Class, bool) {
	for _, c := range m.Classes {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// String renders the module as a stub: constants, then functions, then classes
func (m *Module) String() string {
	var b strings.Builder
	for _, c := range m.Constants {
		b.WriteString(c.String() + "\n")
	}
	if len(m.Constants) > 0 && len(m.Functions) > 0 {
		b.WriteString("\n")
	}
	for _, f := range m.Functions {
		b.WriteString(f.String() + "\n")
	}
	for _, c := range m.Classes {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(c.String())
	}
	return b.String()
}

// AllDiagnostics lists the diagnostics of the module and of every function in it,
// each prefixed by the declaration it belongs to
func (m *Module) AllDiagnostics() []string {
	out := append([]string(nil), m.Diagnostics...)
	add := func(prefix string, f *Function) {
		for _, d := range f.Diagnostics {
			out = append(out, prefix+f.Name+": "+d)
		}
	}
	for _, f := range m.Functions {
		add("", f)
	}
	for _, c := range m.Classes {
		for _, f := range c.Methods {
			add(c.Name+".", f)
		}
	}
	return out
}

// Equal compares two modules structurally, ignoring diagnostics
func Equal(a, b *Module) bool {
	return a.String() == b.String()
}
