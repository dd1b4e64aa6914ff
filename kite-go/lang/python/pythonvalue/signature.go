package pythonvalue

import (
	"strings"
)

// Param is a formal parameter of a signature
type Param struct {
	Name string
	// Type is nil for a parameter without declared type
	Type       Value
	HasDefault bool
}

func (p Param) String() string {
	s := p.Name
	if p.Type != nil {
		s += ": " + p.Type.String()
	}
	if p.HasDefault {
		s += " = ..."
	}
	return s
}

// Signature describes one way of calling a function
type Signature struct {
	Params []Param
	Vararg *Param
	Kwarg  *Param
	// Return is nil for functions that never return
	Return Value
	Raises []Value
}

func (s *Signature) String() string {
	var parts []string
	for _, p := range s.Params {
		parts = append(parts, p.String())
	}
	if s.Vararg != nil {
		parts = append(parts, "*"+s.Vararg.String())
	}
	if s.Kwarg != nil {
		parts = append(parts, "**"+s.Kwarg.String())
	}
	out := "(" + strings.Join(parts, ", ") + ") -> " + StringOf(s.Return)
	if len(s.Raises) > 0 {
		var raises []string
		for _, r := range s.Raises {
			raises = append(raises, r.String())
		}
		out += " raises " + strings.Join(raises, ", ")
	}
	return out
}

// Keyword is a keyword argument
type Keyword struct {
	Name  string
	Value Value
}

// Args is a single combination of call arguments: one value per argument
type Args struct {
	Positional []Value
	Keywords   []Keyword
}

// Key encodes the argument values and keyword names
func (a Args) Key() string {
	parts := make([]string, 0, len(a.Positional)+len(a.Keywords))
	for _, v := range a.Positional {
		parts = append(parts, KeyOf(v))
	}
	for _, kw := range a.Keywords {
		parts = append(parts, kw.Name+"="+KeyOf(kw.Value))
	}
	return "(" + strings.Join(parts, ",") + ")"
}

func (a Args) String() string {
	parts := make([]string, 0, len(a.Positional)+len(a.Keywords))
	for _, v := range a.Positional {
		parts = append(parts, StringOf(v))
	}
	for _, kw := range a.Keywords {
		parts = append(parts, kw.Name+"="+StringOf(kw.Value))
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Prepend returns a copy of a with v as the first positional argument
func (a Args) Prepend(v Value) Args {
	return Args{
		Positional: append([]Value{v}, a.Positional...),
		Keywords:   a.Keywords,
	}
}

// Values returns every argument value, positional first
func (a Args) Values() []Value {
	out := append([]Value(nil), a.Positional...)
	for _, kw := range a.Keywords {
		out = append(out, kw.Value)
	}
	return out
}

// Subst binds type variable names to values
type Subst map[string]Value

// Copy returns an independent copy of s
func (s Subst) Copy() Subst {
	out := make(Subst, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// bind accumulates v into the binding of name
func (s Subst) bind(name string, v Value) {
	if old, ok := s[name]; ok {
		s[name] = Unite(old, v)
		return
	}
	s[name] = v
}

// ArgMatch is the result of matching one signature against arguments
type ArgMatch struct {
	Sig   *Signature
	Subst Subst
	// Bound[i] is the argument passed for Sig.Params[i], or nil if its default is used
	Bound []Value
	// Passed[i] is true when an argument was passed for Sig.Params[i]
	Passed []bool
	// Extra positional and keyword arguments collected by *args and **kwargs
	Varargs []Value
	Kwargs  []Keyword
}

// Return is the declared return type with type variables substituted
func (m *ArgMatch) Return() Value {
	return Substitute(m.Sig.Return, m.Subst)
}

// Raises are the declared exceptions with type variables substituted
func (m *ArgMatch) Raises() []Value {
	var out []Value
	for _, r := range m.Sig.Raises {
		out = append(out, Substitute(r, m.Subst))
	}
	return out
}

// MatchSignature matches args against sig. Type variables already bound in subst
// (e.g. from the receiver of a method) constrain the match; subst is not modified.
func MatchSignature(sig *Signature, args Args, subst Subst) (*ArgMatch, bool) {
	m, ok := bindArgs(sig, args)
	if !ok {
		return nil, false
	}
	m.Subst = subst.Copy()
	for i, p := range sig.Params {
		if m.Passed[i] && !Compatible(m.Bound[i], p.Type, m.Subst) {
			return nil, false
		}
	}
	if sig.Vararg != nil {
		for _, v := range m.Varargs {
			if !Compatible(v, sig.Vararg.Type, m.Subst) {
				return nil, false
			}
		}
	}
	if sig.Kwarg != nil {
		for _, kw := range m.Kwargs {
			if !Compatible(kw.Value, sig.Kwarg.Type, m.Subst) {
				return nil, false
			}
		}
	}
	return m, true
}

// bindArgs assigns arguments to parameters, checking arity and keyword names only
func bindArgs(sig *Signature, args Args) (*ArgMatch, bool) {
	m := &ArgMatch{
		Sig:    sig,
		Bound:  make([]Value, len(sig.Params)),
		Passed: make([]bool, len(sig.Params)),
	}
	for i, v := range args.Positional {
		if i < len(sig.Params) {
			m.Bound[i] = v
			m.Passed[i] = true
			continue
		}
		if sig.Vararg == nil {
			return nil, false
		}
		m.Varargs = append(m.Varargs, v)
	}
outer:
	for _, kw := range args.Keywords {
		for i, p := range sig.Params {
			if p.Name == kw.Name {
				if m.Passed[i] {
					return nil, false
				}
				m.Bound[i] = kw.Value
				m.Passed[i] = true
				continue outer
			}
		}
		if sig.Kwarg == nil {
			return nil, false
		}
		m.Kwargs = append(m.Kwargs, kw)
	}
	for i, p := range sig.Params {
		if !m.Passed[i] && !p.HasDefault {
			return nil, false
		}
	}
	return m, true
}

// Compatible reports whether arg may be passed where declared is expected,
// binding type variables of declared in subst as a side effect. Unknown and
// Unsolvable arguments are compatible with everything; the caller decides
// whether to record a constraint.
func Compatible(arg, declared Value, subst Subst) bool {
	switch d := declared.(type) {
	case nil, Unsolvable:
		return true
	case TypeVar:
		subst.bind(d.Name, arg)
		return true
	case Union:
		for _, m := range d.Members {
			trial := subst.Copy()
			if Compatible(arg, m, trial) {
				for k, v := range trial {
					subst[k] = v
				}
				return true
			}
		}
		return false
	}

	switch a := arg.(type) {
	case nil, Unknown, Unsolvable:
		return true
	case Union:
		for _, m := range a.Members {
			if !Compatible(m, declared, subst) {
				return false
			}
		}
		return true
	case Instance:
		d, ok := declared.(Instance)
		if !ok {
			return false
		}
		return instanceCompatible(a, d, subst)
	case *Class:
		return declaredIs(declared, "builtins.type", "builtins.object")
	case *Function, BoundMethod:
		return declaredIs(declared, "builtins.function", "builtins.object")
	case *Module:
		return declaredIs(declared, "builtins.module", "builtins.object")
	}
	return false
}

func declaredIs(declared Value, qualnames ...string) bool {
	d, ok := declared.(Instance)
	if !ok {
		return false
	}
	for _, q := range qualnames {
		if d.Class.QualName() == q {
			return true
		}
	}
	return false
}

func instanceCompatible(a, d Instance, subst Subst) bool {
	if a.Class == d.Class {
		for i, dp := range d.Params {
			ap := a.Param(i)
			if ap == nil {
				// nothing fits any parameter; leave type variables unbound
				continue
			}
			if !Compatible(ap, dp, subst) {
				return false
			}
		}
		return true
	}
	return a.Class.IsSubclass(d.Class) || Promotes(a.Class, d.Class)
}

// Substitute replaces the type variables in v by their bindings. Unbound type
// variables become Unsolvable.
func Substitute(v Value, subst Subst) Value {
	return Map(v, func(leaf Value) Value {
		if tv, ok := leaf.(TypeVar); ok {
			if b, ok := subst[tv.Name]; ok {
				return b
			}
			return Unsolvable{}
		}
		return leaf
	})
}

// ReceiverSubst binds the type parameters of a method's owner from the receiver
func ReceiverSubst(fn *Function, self Value) Subst {
	subst := make(Subst)
	inst, ok := self.(Instance)
	if !ok || fn.Owner == nil || inst.Class != fn.Owner {
		return subst
	}
	for i, tp := range fn.Owner.TypeParams {
		subst[tp] = inst.Param(i)
	}
	return subst
}

// Overloads matches args against each of fn's signatures, in declaration order
func Overloads(fn *Function, args Args, subst Subst) []*ArgMatch {
	var out []*ArgMatch
	for _, sig := range fn.Signatures {
		if m, ok := MatchSignature(sig, args, subst); ok {
			out = append(out, m)
		}
	}
	return out
}

// Generalize computes a single value standing for all of vs: the most derived
// class all of them are instances of, or Unsolvable if there is none.
func Generalize(vs []Value) Value {
	var insts []Instance
	for _, v := range vs {
		for _, d := range Disjuncts(v) {
			inst, ok := d.(Instance)
			if !ok {
				return Unsolvable{}
			}
			insts = append(insts, inst)
		}
	}
	if len(insts) == 0 {
		return nil
	}

	var lca *Class
	for _, candidate := range insts[0].Class.MRO() {
		all := true
		for _, inst := range insts[1:] {
			if !inst.Class.IsSubclass(candidate) {
				all = false
				break
			}
		}
		if all {
			lca = candidate
			break
		}
	}
	if lca == nil {
		return Unsolvable{}
	}
	if !lca.Generic() {
		return NewInstance(lca)
	}

	params := make([]Value, len(lca.TypeParams))
	for i := range params {
		var ps []Value
		for _, inst := range insts {
			if inst.Class != lca {
				ps = []Value{Unsolvable{}}
				break
			}
			ps = append(ps, inst.Param(i))
		}
		params[i] = Unite(ps...)
	}
	return NewInstance(lca, params...)
}

// LookupAttr looks up an attribute on a value using only the class hierarchy and
// module namespaces. Methods looked up on instances are bound to the instance.
func LookupAttr(v Value, name string) (Value, bool) {
	switch v := v.(type) {
	case Instance:
		attr, _, ok := v.Class.Lookup(name)
		if !ok {
			return nil, false
		}
		if fn, ok := attr.(*Function); ok {
			return BoundMethod{Self: v, Func: fn}, true
		}
		return attr, true
	case *Class:
		attr, _, ok := v.Lookup(name)
		return attr, ok
	case *Module:
		attr, ok := v.Members[name]
		return attr, ok
	case Unsolvable:
		return Unsolvable{}, true
	}
	return nil, false
}
