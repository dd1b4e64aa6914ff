package pythonsolve

import (
	"testing"

	"github.com/kiteco/typeinfer/kite-go/lang/python/pythoncatalog"
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonvalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func builtinClass(cat pythoncatalog.Catalog, name string) *pythonvalue.Class {
	cls, err := pythoncatalog.BuiltinClass(cat, name)
	if err != nil {
		panic(err)
	}
	return cls
}

func instance(cat pythoncatalog.Catalog, name string, params ...pythonvalue.Value) pythonvalue.Instance {
	return pythonvalue.NewInstance(builtinClass(cat, name), params...)
}

func solveOne(t *testing.T, cat pythoncatalog.Catalog, constraints ...Constraint) string {
	store := NewStore()
	u := pythonvalue.Unknown{ID: 1}
	for _, c := range constraints {
		store.Record(u, c)
	}
	store.Seal()
	sol := NewSolver(cat, store, nil, nil).Solve([]pythonvalue.Unknown{u})
	require.Contains(t, sol, 1)
	return pythonvalue.StringOf(sol[1])
}

func TestSolveUnconstrained(t *testing.T) {
	cat := pythoncatalog.Builtins()
	assert.Equal(t, "?", solveOne(t, cat))
}

func TestSolveAttribute(t *testing.T) {
	cat := pythoncatalog.Builtins()
	assert.Equal(t, "str", solveOne(t, cat, AttributeConstraint{Attr: "upper"}))
	assert.Equal(t, "iterator[?]", solveOne(t, cat, AttributeConstraint{Attr: "__next__"}))
	// bool is subsumed by int
	assert.Equal(t, "int", solveOne(t, cat, AttributeConstraint{Attr: "bit_length"}))
	assert.Equal(t, "?", solveOne(t, cat, AttributeConstraint{Attr: "frobnicate"}))
	// no class has both
	assert.Equal(t, "?", solveOne(t, cat, AttributeConstraint{Attr: "upper"}, AttributeConstraint{Attr: "append"}))
}

func TestSolveGenericBeforeDuck(t *testing.T) {
	cat := pythoncatalog.Builtins()
	got := solveOne(t, cat, AttributeConstraint{Attr: "__len__"})
	assert.Equal(t, "dict[?, ?] or list[?] or set[?] or tuple[?]", got)
}

func TestSolveOperator(t *testing.T) {
	cat := pythoncatalog.Builtins()
	got := solveOne(t, cat, OperatorConstraint{Op: "__add__", Other: instance(cat, "int")})
	assert.Equal(t, "complex or float or int", got)

	got = solveOne(t, cat, OperatorConstraint{Op: "__add__", Other: instance(cat, "str")})
	assert.Equal(t, "str", got)
}

func TestSolveArguments(t *testing.T) {
	cat := pythoncatalog.Builtins()
	integer, float, complex := instance(cat, "int"), instance(cat, "float"), instance(cat, "complex")

	// pow(x, y): every overload accepts x
	got := solveOne(t, cat, NewArgumentConstraint(
		integer,
		pythonvalue.Unite(integer, float),
		pythonvalue.Unite(integer, float, complex),
	))
	assert.Equal(t, "complex or float or int", got)

	assert.Equal(t, "object", solveOne(t, cat, NewArgumentConstraint(instance(cat, "object"))))

	// an attribute narrows a parameter that only had to be an object
	got = solveOne(t, cat,
		NewArgumentConstraint(instance(cat, "object")),
		AttributeConstraint{Attr: "upper"})
	assert.Equal(t, "str", got)
}

func TestSolveCall(t *testing.T) {
	cat := pythoncatalog.Builtins()
	got := solveOne(t, cat, CallConstraint{})
	assert.Equal(t, "function or type", got)
}

func TestSolveSourceClasses(t *testing.T) {
	cat := pythoncatalog.Builtins()
	object := builtinClass(cat, "object")
	duck := pythonvalue.NewClass("__main__", "Duck", object)
	duck.Source = true
	duck.Members["quack"] = &pythonvalue.Function{Name: "Duck.quack"}

	store := NewStore()
	u := pythonvalue.Unknown{ID: 3}
	store.Record(u, AttributeConstraint{Attr: "quack"})
	store.Seal()

	sol := NewSolver(cat, store, nil, []*pythonvalue.Class{duck}).Solve([]pythonvalue.Unknown{u})
	assert.Equal(t, "Duck", pythonvalue.StringOf(sol[3]))
}

type upperEvaluator struct {
	cat pythoncatalog.Catalog
}

func (e upperEvaluator) Evaluate(d Derivation, parent pythonvalue.Value) (pythonvalue.Value, bool) {
	switch d.Kind {
	case AttrOf:
		return pythonvalue.LookupAttr(parent, d.Attr)
	case CallOf:
		if m, ok := parent.(pythonvalue.BoundMethod); ok {
			matches := pythonvalue.Overloads(m.Func, d.Args.Prepend(m.Self), pythonvalue.ReceiverSubst(m.Func, m.Self))
			if len(matches) > 0 {
				return matches[0].Return(), true
			}
		}
	}
	return nil, false
}

func TestSolveDerived(t *testing.T) {
	cat := pythoncatalog.Builtins()
	store := NewStore()

	// y = x.upper; z = y()
	x, y, z := pythonvalue.Unknown{ID: 1}, pythonvalue.Unknown{ID: 2}, pythonvalue.Unknown{ID: 3}
	store.Record(x, AttributeConstraint{Attr: "upper"})
	store.Derive(y, Derivation{Kind: AttrOf, Parent: x, Attr: "upper"})
	store.Record(y, CallConstraint{})
	store.Derive(z, Derivation{Kind: CallOf, Parent: y})
	store.Seal()

	sol := NewSolver(cat, store, upperEvaluator{cat}, nil).Solve(store.Unknowns())
	assert.Equal(t, "str", pythonvalue.StringOf(sol[1]))
	assert.Equal(t, "<bound method builtins.str.upper>", pythonvalue.StringOf(sol[2]))
	assert.Equal(t, "str", pythonvalue.StringOf(sol[3]))

	assert.Equal(t, "list[str]", sol.Apply(instance(cat, "list", z)).String())

	// without an evaluator derived unknowns fall back to their own constraints
	sol = NewSolver(cat, store, nil, nil).Solve(store.Unknowns())
	assert.Equal(t, "function or type", pythonvalue.StringOf(sol[2]))
	assert.Equal(t, "?", pythonvalue.StringOf(sol[3]))
}

func TestStore(t *testing.T) {
	store := NewStore()
	u := pythonvalue.Unknown{ID: 7}
	assert.True(t, store.Record(u, AttributeConstraint{Attr: "a"}))
	assert.False(t, store.Record(u, AttributeConstraint{Attr: "a"}))
	assert.True(t, store.Record(u, AttributeConstraint{Attr: "b"}))
	assert.Len(t, store.Constraints(u), 2)

	store.Derive(pythonvalue.Unknown{ID: 2}, Derivation{Kind: AttrOf, Parent: u, Attr: "a"})
	assert.Equal(t, []pythonvalue.Unknown{{ID: 2}, {ID: 7}}, store.Unknowns())

	store.Seal()
	assert.True(t, store.Sealed())
	assert.Panics(t, func() { store.Record(u, AttributeConstraint{Attr: "c"}) })
}

func TestConstraintStrings(t *testing.T) {
	cat := pythoncatalog.Builtins()
	integer := instance(cat, "int")
	c := NewArgumentConstraint(integer, integer, instance(cat, "str"))
	assert.Len(t, c.Expected, 2)
	assert.Equal(t, "passed as int | str", c.String())
	assert.Equal(t, "supports __add__(int)", OperatorConstraint{Op: "__add__", Other: integer}.String())

	d := Derivation{Kind: CallOf, Parent: pythonvalue.Unknown{ID: 4}, Args: pythonvalue.Args{Positional: []pythonvalue.Value{integer}}}
	assert.Equal(t, "~unknown4(int)", d.String())
}
