package pythonsolve

import (
	"sort"

	"github.com/kiteco/typeinfer/kite-go/lang/python/pythoncatalog"
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonvalue"
)

// Evaluator recomputes a derived unknown from the solved value of its parent.
// It returns false when the derivation cannot be evaluated on that value.
type Evaluator interface {
	Evaluate(d Derivation, parent pythonvalue.Value) (pythonvalue.Value, bool)
}

// Solution maps unknown IDs to the values they were solved to
type Solution map[int]pythonvalue.Value

// Apply replaces the solved unknowns occurring in v
func (s Solution) Apply(v pythonvalue.Value) pythonvalue.Value {
	if len(s) == 0 || !pythonvalue.ContainsUnknown(v) {
		return v
	}
	return pythonvalue.Map(v, func(leaf pythonvalue.Value) pythonvalue.Value {
		if u, ok := leaf.(pythonvalue.Unknown); ok {
			if sol, ok := s[u.ID]; ok {
				return sol
			}
		}
		return leaf
	})
}

func applyArgs(sol Solution, args pythonvalue.Args) pythonvalue.Args {
	out := pythonvalue.Args{}
	for _, v := range args.Positional {
		out.Positional = append(out.Positional, sol.Apply(v))
	}
	for _, kw := range args.Keywords {
		out.Keywords = append(out.Keywords, pythonvalue.Keyword{Name: kw.Name, Value: sol.Apply(kw.Value)})
	}
	return out
}

// rank of a candidate class; lower is better
type rank int

const (
	exactRank rank = iota
	genericRank
	duckRank
)

// Solver resolves unknowns against the classes of a catalog and of the analyzed code
type Solver struct {
	cat     pythoncatalog.Catalog
	store   *Store
	eval    Evaluator
	classes []*pythonvalue.Class
}

// NewSolver creates a solver. sources are the classes defined by the analyzed
// code; they are candidates alongside the catalog's classes. eval may be nil.
func NewSolver(cat pythoncatalog.Catalog, store *Store, eval Evaluator, sources []*pythonvalue.Class) *Solver {
	classes := append([]*pythonvalue.Class(nil), cat.Classes()...)
	classes = append(classes, sources...)
	sort.SliceStable(classes, func(i, j int) bool { return classes[i].QualName() < classes[j].QualName() })
	return &Solver{
		cat:     cat,
		store:   store,
		eval:    eval,
		classes: classes,
	}
}

// Solve solves each of unknowns, in ID order. Unknowns without any constraint
// are solved to Unsolvable.
func (s *Solver) Solve(unknowns []pythonvalue.Unknown) Solution {
	sorted := append([]pythonvalue.Unknown(nil), unknowns...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	sol := make(Solution)
	for _, u := range sorted {
		if _, done := sol[u.ID]; done {
			continue
		}
		if v, ok := s.derive(u, sol); ok {
			sol[u.ID] = v
			continue
		}
		sol[u.ID] = s.solve(u)
	}
	return sol
}

// derive evaluates the derivation of u on the solution of its parent
func (s *Solver) derive(u pythonvalue.Unknown, sol Solution) (pythonvalue.Value, bool) {
	if s.eval == nil {
		return nil, false
	}
	d, ok := s.store.Derivation(u)
	if !ok {
		return nil, false
	}
	parent, ok := sol[d.Parent.ID]
	if !ok {
		parent = s.solve(d.Parent)
		sol[d.Parent.ID] = parent
	}
	if parent == nil || parent.Kind() == pythonvalue.UnsolvableKind {
		return nil, false
	}
	d.Args = applyArgs(sol, d.Args)
	d.Other = sol.Apply(d.Other)
	v, ok := s.eval.Evaluate(d, parent)
	if !ok || v == nil {
		return nil, false
	}
	v = sol.Apply(v)
	if pythonvalue.ContainsUnknown(v) {
		return nil, false
	}
	return v, true
}

// solve finds the classes whose instances satisfy every constraint on u
func (s *Solver) solve(u pythonvalue.Unknown) pythonvalue.Value {
	constraints := s.store.Constraints(u)
	if len(constraints) == 0 {
		return pythonvalue.Unsolvable{}
	}

	best := duckRank + 1
	var winners []*pythonvalue.Class
	for _, c := range s.candidates(constraints) {
		inst := instanceOf(c)
		if !satisfiesAll(inst, constraints) {
			continue
		}
		r := rankOf(c, constraints)
		switch {
		case r < best:
			best = r
			winners = []*pythonvalue.Class{c}
		case r == best:
			winners = append(winners, c)
		}
	}
	if len(winners) == 0 {
		return pythonvalue.Unsolvable{}
	}

	var vs []pythonvalue.Value
	for _, c := range subsume(winners) {
		vs = append(vs, instanceOf(c))
	}
	return pythonvalue.Unite(vs...)
}

// candidates narrows the classes to consider using the attribute index when possible
func (s *Solver) candidates(constraints []Constraint) []*pythonvalue.Class {
	var attr string
	for _, c := range constraints {
		switch c := c.(type) {
		case AttributeConstraint:
			attr = c.Attr
		case OperatorConstraint:
			attr = c.Op
		case CallConstraint:
			attr = "__call__"
		}
		if attr != "" {
			break
		}
	}
	if attr == "" {
		return s.classes
	}

	indexed := make(map[*pythonvalue.Class]bool)
	for _, c := range s.cat.ClassesWithAttr(attr) {
		indexed[c] = true
	}
	var out []*pythonvalue.Class
	for _, c := range s.classes {
		if indexed[c] || c.Source {
			out = append(out, c)
		}
	}
	return out
}

// instanceOf is a representative instance of c with unknown type parameters
func instanceOf(c *pythonvalue.Class) pythonvalue.Instance {
	params := make([]pythonvalue.Value, len(c.TypeParams))
	for i := range params {
		params[i] = pythonvalue.Unsolvable{}
	}
	return pythonvalue.NewInstance(c, params...)
}

func satisfiesAll(inst pythonvalue.Instance, constraints []Constraint) bool {
	for _, c := range constraints {
		if !satisfies(inst, c) {
			return false
		}
	}
	return true
}

func satisfies(inst pythonvalue.Instance, c Constraint) bool {
	switch c := c.(type) {
	case AttributeConstraint:
		_, _, ok := inst.Class.Lookup(c.Attr)
		return ok
	case CallConstraint:
		_, _, ok := inst.Class.Lookup("__call__")
		return ok
	case OperatorConstraint:
		attr, _, ok := inst.Class.Lookup(c.Op)
		if !ok {
			return false
		}
		fn, ok := attr.(*pythonvalue.Function)
		if !ok {
			return false
		}
		args := pythonvalue.Args{Positional: []pythonvalue.Value{inst}}
		if c.Other != nil {
			args.Positional = append(args.Positional, c.Other)
		}
		return len(pythonvalue.Overloads(fn, args, pythonvalue.ReceiverSubst(fn, inst))) > 0
	case ArgumentConstraint:
		for _, e := range c.Expected {
			if pythonvalue.Compatible(inst, e, make(pythonvalue.Subst)) {
				return true
			}
		}
		return false
	}
	return false
}

// rankOf ranks a satisfying class: named outright by every argument
// constraint, then generic containers, then anything else with the right protocol
func rankOf(c *pythonvalue.Class, constraints []Constraint) rank {
	var args int
	exact := true
	for _, con := range constraints {
		ac, ok := con.(ArgumentConstraint)
		if !ok {
			continue
		}
		args++
		if !names(ac, c) {
			exact = false
		}
	}
	switch {
	case args > 0 && exact:
		return exactRank
	case c.Generic():
		return genericRank
	default:
		return duckRank
	}
}

// names reports whether c occurs literally among the alternatives of ac
func names(ac ArgumentConstraint, c *pythonvalue.Class) bool {
	for _, e := range ac.Expected {
		for _, d := range pythonvalue.Disjuncts(e) {
			if inst, ok := d.(pythonvalue.Instance); ok && inst.Class == c {
				return true
			}
		}
	}
	return false
}

// subsume drops classes that derive from another class in cs
func subsume(cs []*pythonvalue.Class) []*pythonvalue.Class {
	var out []*pythonvalue.Class
	for _, c := range cs {
		covered := false
		for _, other := range cs {
			if other != c && c.IsSubclass(other) {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, c)
		}
	}
	return out
}
