// Package pythonvalue defines the abstract values simulated by the inference
// engine, and the purely structural operations on them: union, equality,
// signature matching and type-variable substitution.
package pythonvalue

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonir"
)

// Kind categorizes values
type Kind int

const (
	// InstanceKind is an instance of a class
	InstanceKind Kind = iota
	// ClassKind is a class object
	ClassKind
	// FunctionKind is a function object
	FunctionKind
	// BoundMethodKind is a function bound to a receiver
	BoundMethodKind
	// ModuleKind is a module object
	ModuleKind
	// UnknownKind is a placeholder to be resolved by the solver
	UnknownKind
	// UnsolvableKind represents the absence of any information
	UnsolvableKind
	// UnionKind is a set of alternatives
	UnionKind
	// TypeVarKind is a type variable, which only occurs inside signatures
	TypeVarKind
)

func (k Kind) String() string {
	switch k {
	case InstanceKind:
		return "instance"
	case ClassKind:
		return "class"
	case FunctionKind:
		return "function"
	case BoundMethodKind:
		return "boundmethod"
	case ModuleKind:
		return "module"
	case UnknownKind:
		return "unknown"
	case UnsolvableKind:
		return "unsolvable"
	case UnionKind:
		return "union"
	case TypeVarKind:
		return "typevar"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is an abstract value. Values are immutable once constructed and may be
// shared freely. A nil Value is "nothing": the type of a value that cannot exist,
// such as the element type of an empty list.
type Value interface {
	Kind() Kind
	// Key is a canonical encoding: two values are equal iff their keys are equal
	Key() string
	String() string
}

// KeyOf is Key, extended to nil
func KeyOf(v Value) string {
	if v == nil {
		return "-"
	}
	return v.Key()
}

// StringOf is String, extended to nil
func StringOf(v Value) string {
	if v == nil {
		return "nothing"
	}
	return v.String()
}

// Equal determines whether two values are equal
func Equal(a, b Value) bool {
	return KeyOf(a) == KeyOf(b)
}

// SortByKey sorts values into canonical order
func SortByKey(vs []Value) {
	sort.Slice(vs, func(i, j int) bool { return KeyOf(vs[i]) < KeyOf(vs[j]) })
}

// --

// Instance is an instance of a class, with the class's type parameters bound
type Instance struct {
	Class *Class
	// Params[i] binds Class.TypeParams[i]; a nil entry is "nothing"
	Params []Value
}

// NewInstance creates an instance of c, widening parameters nested deeper than MaxDepth
func NewInstance(c *Class, params ...Value) Instance {
	var ps []Value
	for _, p := range params {
		if Depth(p) >= MaxDepth {
			p = Unsolvable{}
		}
		ps = append(ps, p)
	}
	return Instance{Class: c, Params: ps}
}

// Kind implements Value
func (v Instance) Kind() Kind { return InstanceKind }

// Key implements Value
func (v Instance) Key() string {
	if len(v.Params) == 0 {
		return "i:" + v.Class.QualName()
	}
	keys := make([]string, len(v.Params))
	for i, p := range v.Params {
		keys[i] = KeyOf(p)
	}
	return "i:" + v.Class.QualName() + "[" + strings.Join(keys, ",") + "]"
}

func (v Instance) String() string {
	if len(v.Params) == 0 {
		return v.Class.DisplayName()
	}
	parts := make([]string, len(v.Params))
	for i, p := range v.Params {
		parts[i] = StringOf(p)
	}
	return v.Class.DisplayName() + "[" + strings.Join(parts, ", ") + "]"
}

// Param returns the i-th type parameter, or nil
func (v Instance) Param(i int) Value {
	if i < len(v.Params) {
		return v.Params[i]
	}
	return nil
}

// --

// Function is a function object. Functions with a Code are interpreted by
// simulating their body; all others are described by their Signatures alone.
type Function struct {
	// Name is qualified by module and class, e.g. "builtins.str.join"
	Name       string
	Signatures []*Signature
	Code       *pythonir.Code
	// Owner is the class this function is a method of, if any
	Owner *Class
}

// Kind implements Value
func (f *Function) Kind() Kind { return FunctionKind }

// Key implements Value
func (f *Function) Key() string { return "f:" + f.Name }

func (f *Function) String() string { return "<function " + f.Name + ">" }

// Interpretable is true for functions whose body can be simulated
func (f *Function) Interpretable() bool { return f.Code != nil }

// --

// BoundMethod is the result of looking up a method on an instance
type BoundMethod struct {
	Self Value
	Func *Function
}

// Kind implements Value
func (m BoundMethod) Kind() Kind { return BoundMethodKind }

// Key implements Value
func (m BoundMethod) Key() string { return "m:" + m.Func.Name + "@" + KeyOf(m.Self) }

func (m BoundMethod) String() string { return "<bound method " + m.Func.Name + ">" }

// --

// Module is a module object
type Module struct {
	Name    string
	Members map[string]Value
}

// Kind implements Value
func (m *Module) Kind() Kind { return ModuleKind }

// Key implements Value
func (m *Module) Key() string { return "M:" + m.Name }

func (m *Module) String() string { return "<module " + m.Name + ">" }

// MemberNames returns the sorted member names
func (m *Module) MemberNames() []string {
	return sortedNames(m.Members)
}

// --

// Unknown is a placeholder for a value the simulation could not determine, such
// as a parameter of a function that is never called. IDs are unique within a run.
type Unknown struct {
	ID int
}

// Kind implements Value
func (u Unknown) Kind() Kind { return UnknownKind }

// Key implements Value
func (u Unknown) Key() string { return fmt.Sprintf("u:%08d", u.ID) }

func (u Unknown) String() string { return fmt.Sprintf("~unknown%d", u.ID) }

// --

// Unsolvable is the explicit absence of information: any value may occur
type Unsolvable struct{}

// Kind implements Value
func (Unsolvable) Kind() Kind { return UnsolvableKind }

// Key implements Value
func (Unsolvable) Key() string { return "?" }

func (Unsolvable) String() string { return "?" }

// --

// TypeVar is a type variable of a generic signature or class
type TypeVar struct {
	Name string
}

// Kind implements Value
func (t TypeVar) Kind() Kind { return TypeVarKind }

// Key implements Value
func (t TypeVar) Key() string { return "T:" + t.Name }

func (t TypeVar) String() string { return t.Name }

func sortedNames(m map[string]Value) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
