// Package pythonbinding tracks which abstract values a variable may hold at a
// program point, and where each of those values came from.
package pythonbinding

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonvalue"
)

// Origin instruction indexes that do not refer to a real instruction
const (
	// ParamInstr marks the binding of a parameter on function entry
	ParamInstr = -1
	// WidenInstr marks a binding introduced by widening at a loop header
	WidenInstr = -2
	// ImplicitInstr marks an exception assumed to be raised by an instruction
	// that has no declared exceptions
	ImplicitInstr = -3
)

// Origin is the program point that produced a binding
type Origin struct {
	// Unit names the code object being simulated
	Unit  string
	Instr int
}

func (o Origin) String() string {
	switch o.Instr {
	case ParamInstr:
		return o.Unit + ":param"
	case WidenInstr:
		return o.Unit + ":widen"
	case ImplicitInstr:
		return o.Unit + ":implicit"
	}
	return fmt.Sprintf("%s:%d", o.Unit, o.Instr)
}

func (o Origin) less(other Origin) bool {
	if o.Unit != other.Unit {
		return o.Unit < other.Unit
	}
	return o.Instr < other.Instr
}

// Binding is one value a variable may hold, with its provenance
type Binding struct {
	Value  pythonvalue.Value
	Origin Origin
}

func (b Binding) key() string {
	return pythonvalue.KeyOf(b.Value) + "@" + b.Origin.String()
}

// Variable is a set of bindings, in canonical order. Variables are immutable;
// every operation returns a new Variable.
type Variable struct {
	bindings []Binding
}

// NewVariable creates a variable holding the disjuncts of each value, all produced at origin
func NewVariable(origin Origin, values ...pythonvalue.Value) *Variable {
	var bs []Binding
	for _, v := range values {
		for _, d := range pythonvalue.Disjuncts(v) {
			bs = append(bs, Binding{Value: d, Origin: origin})
		}
	}
	return fromBindings(bs)
}

func fromBindings(bs []Binding) *Variable {
	seen := make(map[string]bool, len(bs))
	var out []Binding
	for _, b := range bs {
		k := b.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		ki, kj := pythonvalue.KeyOf(out[i].Value), pythonvalue.KeyOf(out[j].Value)
		if ki != kj {
			return ki < kj
		}
		return out[i].Origin.less(out[j].Origin)
	})
	return &Variable{bindings: out}
}

// Bindings returns the bindings in canonical order
func (v *Variable) Bindings() []Binding {
	if v == nil {
		return nil
	}
	return v.bindings
}

// Empty is true for a variable without bindings, which is only valid on an unreachable path
func (v *Variable) Empty() bool {
	return v == nil || len(v.bindings) == 0
}

// Values returns the distinct values of the bindings, sorted by key
func (v *Variable) Values() []pythonvalue.Value {
	if v == nil {
		return nil
	}
	var out []pythonvalue.Value
	var last string
	for i, b := range v.bindings {
		k := pythonvalue.KeyOf(b.Value)
		if i > 0 && k == last {
			continue
		}
		last = k
		out = append(out, b.Value)
	}
	return out
}

// Type is the union of the values of the variable
func (v *Variable) Type() pythonvalue.Value {
	return pythonvalue.Unite(v.Values()...)
}

// Union merges any number of variables
func Union(vs ...*Variable) *Variable {
	var bs []Binding
	for _, v := range vs {
		bs = append(bs, v.Bindings()...)
	}
	return fromBindings(bs)
}

// Equal compares the bindings of two variables
func (v *Variable) Equal(other *Variable) bool {
	a, b := v.Bindings(), other.Bindings()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].key() != b[i].key() {
			return false
		}
	}
	return true
}

// Filter returns the bindings for which keep is true
func (v *Variable) Filter(keep func(Binding) bool) *Variable {
	var bs []Binding
	for _, b := range v.Bindings() {
		if keep(b) {
			bs = append(bs, b)
		}
	}
	return &Variable{bindings: bs}
}

func (v *Variable) String() string {
	var parts []string
	for _, b := range v.Bindings() {
		parts = append(parts, pythonvalue.StringOf(b.Value)+"@"+b.Origin.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
