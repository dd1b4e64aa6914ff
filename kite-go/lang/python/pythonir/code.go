// Package pythonir defines the instruction-level representation consumed by the
// type inference engine: code objects made of stack-machine instructions, the
// constants they refer to, and the control-flow graph derived from them.
package pythonir

import (
	"fmt"
	"strings"
)

// ConstKind categorizes constants
type ConstKind int

const (
	// NoneConst is the None singleton
	NoneConst ConstKind = iota
	// BoolConst is True or False
	BoolConst
	// IntConst is an integer literal
	IntConst
	// FloatConst is a floating point literal
	FloatConst
	// ComplexConst is an imaginary literal
	ComplexConst
	// StrConst is a string literal
	StrConst
	// BytesConst is a bytes literal
	BytesConst
	// TupleConst is a tuple of constants
	TupleConst
	// CodeConst is a nested code object (function or class body)
	CodeConst
)

var constKindNames = map[ConstKind]string{
	NoneConst:    "none",
	BoolConst:    "bool",
	IntConst:     "int",
	FloatConst:   "float",
	ComplexConst: "complex",
	StrConst:     "str",
	BytesConst:   "bytes",
	TupleConst:   "tuple",
	CodeConst:    "code",
}

func (k ConstKind) String() string {
	if s, ok := constKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ConstKind(%d)", int(k))
}

// Const is an entry in a code object's constant table
type Const struct {
	Kind ConstKind
	// Literal is the source text of scalar constants, used only for display
	Literal string
	// Elts holds the elements of a TupleConst
	Elts []Const
	// Code holds the code object of a CodeConst
	Code *Code
}

func (c Const) String() string {
	switch c.Kind {
	case NoneConst:
		return "None"
	case TupleConst:
		var parts []string
		for _, e := range c.Elts {
			parts = append(parts, e.String())
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case CodeConst:
		if c.Code == nil {
			return "<code>"
		}
		return fmt.Sprintf("<code %s>", c.Code.Name)
	}
	if c.Literal != "" {
		return c.Literal
	}
	return c.Kind.String()
}

// Instr is a single instruction
type Instr struct {
	Op Opcode
	// Arg is a constant index, an element count, or an absolute jump target
	Arg int
	// Name is a variable, attribute, operator or module name
	Name string
	// Names are the keyword names of a CALL_FUNCTION_KW, in stack order
	Names []string
	// Line is the source line, if known
	Line int
}

func (i Instr) String() string {
	switch {
	case i.Op == CallFunctionKw:
		return fmt.Sprintf("%s %d %s", i.Op, i.Arg, strings.Join(i.Names, ","))
	case i.Op == BuildClass:
		return fmt.Sprintf("%s %d %s", i.Op, i.Arg, i.Name)
	case i.Op.HasName():
		return fmt.Sprintf("%s %s", i.Op, i.Name)
	case i.Op.HasTarget(), i.Op == LoadConst, i.Op == BuildTuple, i.Op == BuildList, i.Op == BuildMap,
		i.Op == BuildSet, i.Op == CallFunction, i.Op == MakeFunction, i.Op == RaiseVarargs:
		return fmt.Sprintf("%s %d", i.Op, i.Arg)
	}
	return i.Op.String()
}

// Code is a code object: the body of a module, function or class
type Code struct {
	// Name is the qualified name, e.g. "f" or "A.method"
	Name string
	// Params are the positional parameter names, in order
	Params []string
	// Vararg and Kwarg name the *args and **kwargs parameters, if any
	Vararg string
	Kwarg  string
	Consts []Const
	Instrs []Instr
	// Filename is used only in diagnostics
	Filename string
	// FirstLine is the line of the definition
	FirstLine int
}

// ArgNames returns every parameter name, including *args and **kwargs
func (c *Code) ArgNames() []string {
	names := append([]string(nil), c.Params...)
	if c.Vararg != "" {
		names = append(names, c.Vararg)
	}
	if c.Kwarg != "" {
		names = append(names, c.Kwarg)
	}
	return names
}

// Children returns the code objects in c's constant table, recursively through tuples
func (c *Code) Children() []*Code {
	var out []*Code
	var visit func(cs []Const)
	visit = func(cs []Const) {
		for _, k := range cs {
			switch k.Kind {
			case CodeConst:
				if k.Code != nil {
					out = append(out, k.Code)
				}
			case TupleConst:
				visit(k.Elts)
			}
		}
	}
	visit(c.Consts)
	return out
}

// Disassemble renders the instructions one per line, prefixed by their index
func (c *Code) Disassemble() string {
	var b strings.Builder
	for i, instr := range c.Instrs {
		fmt.Fprintf(&b, "%4d %s\n", i, instr)
	}
	return b.String()
}

// Module is a unit of analysis: a named module and its top-level code
type Module struct {
	Name string
	Code *Code
}
