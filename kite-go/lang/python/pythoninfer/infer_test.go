package pythoninfer

import (
	"strings"
	"testing"

	"github.com/kiteco/typeinfer/kite-go/lang/python/pythoncatalog"
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythondecl"
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonir"
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonvalue"
	"github.com/kiteco/typeinfer/kite-golib/errors"
	"github.com/kiteco/typeinfer/kite-golib/kitectx"
	"github.com/kiteco/typeinfer/kite-golib/rollbar"
	"github.com/kr/pretty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// moduleOf terminates the top level code built so far and wraps it in a module
func moduleOf(b *pythonir.Builder) *pythonir.Module {
	b.LoadConst(pythonir.None()).Op(pythonir.ReturnValue)
	return &pythonir.Module{Name: "test", Code: b.MustCode()}
}

func infer(t *testing.T, mod *pythonir.Module, opts Options) *pythondecl.Module {
	out, err := Infer(kitectx.Background(), mod, pythoncatalog.Builtins(), opts)
	require.NoError(t, err)
	require.NotNil(t, out)
	return out
}

func requireFunction(t *testing.T, out *pythondecl.Module, name string, expected string) *pythondecl.Function {
	fn, ok := out.Function(name)
	require.True(t, ok, "no function %s in\n%s", name, out)
	assert.Equal(t, expected, fn.String(), "%# v", pretty.Formatter(fn))
	return fn
}

func hasDiagnostic(diags []string, substr string) bool {
	for _, d := range diags {
		if strings.Contains(d, substr) {
			return true
		}
	}
	return false
}

// def f(x): return x
func identity() *pythonir.Code {
	return pythonir.NewBuilder("f", "x").
		Name(pythonir.LoadFast, "x").
		Op(pythonir.ReturnValue).
		MustCode()
}

func define(b *pythonir.Builder, name string, code *pythonir.Code) *pythonir.Builder {
	return b.Function(code, 0).Name(pythonir.StoreName, name)
}

func callName(b *pythonir.Builder, name string, args ...pythonir.Const) *pythonir.Builder {
	b.Name(pythonir.LoadName, name)
	for _, a := range args {
		b.LoadConst(a)
	}
	return b.Call(len(args))
}

func TestIdentity(t *testing.T) {
	b := define(pythonir.NewBuilder("<module>"), "f", identity())
	callName(b, "f", pythonir.Int("1")).Op(pythonir.PopTop)

	out := infer(t, moduleOf(b), DefaultOptions)
	requireFunction(t, out, "f", "def f(x: int) -> int")
	assert.Empty(t, out.AllDiagnostics())
}

func TestCallCombinations(t *testing.T) {
	b := define(pythonir.NewBuilder("<module>"), "f", identity())
	callName(b, "f", pythonir.Int("1")).Op(pythonir.PopTop)
	callName(b, "f", pythonir.Str("a")).Op(pythonir.PopTop)

	out := infer(t, moduleOf(b), DefaultOptions)
	requireFunction(t, out, "f", "def f(x: int or str) -> int or str")
}

func TestReturnedConstant(t *testing.T) {
	b := define(pythonir.NewBuilder("<module>"), "f", identity())
	callName(b, "f", pythonir.Float("1.5")).Name(pythonir.StoreName, "y")

	out := infer(t, moduleOf(b), DefaultOptions)
	assert.Equal(t, "y = ...  # type: float\n\ndef f(x: float) -> float\n", out.String())
}

func TestUncalled(t *testing.T) {
	mod := moduleOf(define(pythonir.NewBuilder("<module>"), "f", identity()))

	t.Run("deep", func(t *testing.T) {
		out := infer(t, mod, DefaultOptions)
		fn := requireFunction(t, out, "f", "def f(x) -> ?")
		assert.Empty(t, fn.Diagnostics)
	})

	t.Run("deep unsolved", func(t *testing.T) {
		opts := DefaultOptions
		opts.SolveUnknowns = false
		out := infer(t, mod, opts)
		requireFunction(t, out, "f", "def f(x: ~unknown1) -> ~unknown1")
	})

	t.Run("shallow", func(t *testing.T) {
		opts := DefaultOptions
		opts.Mode = Shallow
		out := infer(t, mod, opts)
		fn := requireFunction(t, out, "f", "def f(x) -> ?")
		assert.True(t, hasDiagnostic(fn.Diagnostics, "not analyzed"), "%v", fn.Diagnostics)
	})
}

func TestSolvedFromAttribute(t *testing.T) {
	// def f(s): return s.upper()
	f := pythonir.NewBuilder("f", "s").
		Name(pythonir.LoadFast, "s").
		Name(pythonir.LoadAttr, "upper").
		Call(0).
		Op(pythonir.ReturnValue).
		MustCode()

	out := infer(t, moduleOf(define(pythonir.NewBuilder("<module>"), "f", f)), DefaultOptions)
	requireFunction(t, out, "f", "def f(s: str) -> str")
}

func TestSolvedFromLibraryArgument(t *testing.T) {
	// def f(x): return isinstance(x, int)
	f := pythonir.NewBuilder("f", "x").
		Name(pythonir.LoadGlobal, "isinstance").
		Name(pythonir.LoadFast, "x").
		Name(pythonir.LoadGlobal, "int").
		Call(2).
		Op(pythonir.ReturnValue).
		MustCode()

	out := infer(t, moduleOf(define(pythonir.NewBuilder("<module>"), "f", f)), DefaultOptions)
	requireFunction(t, out, "f", "def f(x: object) -> bool")
}

func TestLibraryReturn(t *testing.T) {
	// def f(x): return repr(x)
	f := pythonir.NewBuilder("f", "x").
		Name(pythonir.LoadGlobal, "repr").
		Name(pythonir.LoadFast, "x").
		Call(1).
		Op(pythonir.ReturnValue).
		MustCode()

	b := define(pythonir.NewBuilder("<module>"), "f", f)
	callName(b, "f", pythonir.Int("1")).Op(pythonir.PopTop)
	callName(b, "f", pythonir.Float("2.0")).Op(pythonir.PopTop)
	callName(b, "f", pythonir.Str("s")).Op(pythonir.PopTop)

	out := infer(t, moduleOf(b), DefaultOptions)
	requireFunction(t, out, "f", "def f(x: float or int or str) -> str")
}

func TestRecursion(t *testing.T) {
	// def f(n):
	//     if n <= 1:
	//         return 1
	//     return n * f(n - 1)
	f := pythonir.NewBuilder("f", "n").
		Name(pythonir.LoadFast, "n").
		LoadConst(pythonir.Int("1")).
		Name(pythonir.CompareOp, "<=").
		Jump(pythonir.PopJumpIfFalse, "recurse").
		LoadConst(pythonir.Int("1")).
		Op(pythonir.ReturnValue).
		Label("recurse").
		Name(pythonir.LoadFast, "n").
		Name(pythonir.LoadGlobal, "f").
		Name(pythonir.LoadFast, "n").
		LoadConst(pythonir.Int("1")).
		Name(pythonir.BinaryOp, "-").
		Call(1).
		Name(pythonir.BinaryOp, "*").
		Op(pythonir.ReturnValue).
		MustCode()

	b := define(pythonir.NewBuilder("<module>"), "f", f)
	callName(b, "f", pythonir.Int("10")).Op(pythonir.PopTop)

	out := infer(t, moduleOf(b), DefaultOptions)
	requireFunction(t, out, "f", "def f(n: int) -> int")
}

func TestOverloadedMethod(t *testing.T) {
	// d = {"a": 1}
	// v = d.get("a")
	b := pythonir.NewBuilder("<module>").
		LoadConst(pythonir.Str("a")).
		LoadConst(pythonir.Int("1")).
		Arg(pythonir.BuildMap, 1).
		Name(pythonir.StoreName, "d").
		Name(pythonir.LoadName, "d").
		Name(pythonir.LoadAttr, "get").
		LoadConst(pythonir.Str("a")).
		Call(1).
		Name(pythonir.StoreName, "v")

	out := infer(t, moduleOf(b), DefaultOptions)
	assert.Equal(t, "d = ...  # type: dict[str, int]\nv = ...  # type: NoneType or int\n", out.String())
}

// divide builds def name(x): [try:] r = x / 0; return r [except: return "s"]
func divide(name string, handled bool) *pythonir.Code {
	b := pythonir.NewBuilder(name, "x")
	if handled {
		b.Jump(pythonir.SetupExcept, "handler")
	}
	b.Name(pythonir.LoadFast, "x").
		LoadConst(pythonir.Int("0")).
		Name(pythonir.BinaryOp, "/").
		Name(pythonir.StoreFast, "r")
	if handled {
		b.Op(pythonir.PopBlock)
	}
	b.Name(pythonir.LoadFast, "r").Op(pythonir.ReturnValue)
	if handled {
		b.Label("handler").
			Op(pythonir.PopTop).
			LoadConst(pythonir.Str("s")).
			Op(pythonir.ReturnValue)
	}
	return b.MustCode()
}

func TestExceptions(t *testing.T) {
	b := pythonir.NewBuilder("<module>")
	define(b, "f", divide("f", true))
	define(b, "g", divide("g", false))
	callName(b, "f", pythonir.Int("1")).Op(pythonir.PopTop)
	callName(b, "g", pythonir.Int("1")).Op(pythonir.PopTop)

	out := infer(t, moduleOf(b), DefaultOptions)
	requireFunction(t, out, "f", "def f(x: int) -> float or str")
	requireFunction(t, out, "g", "def g(x: int) -> float raises ZeroDivisionError")
}

func TestRaise(t *testing.T) {
	// def h(): raise ValueError
	h := pythonir.NewBuilder("h").
		Name(pythonir.LoadGlobal, "ValueError").
		Arg(pythonir.RaiseVarargs, 1).
		MustCode()

	out := infer(t, moduleOf(define(pythonir.NewBuilder("<module>"), "h", h)), DefaultOptions)
	requireFunction(t, out, "h", "def h() -> nothing raises ValueError")
}

func TestClass(t *testing.T) {
	// class A(object):
	//     def __init__(self, v): self.v = v
	//     def get(self): return self.v
	// a = A(1)
	// a.get()
	ctor := pythonir.NewBuilder("A.__init__", "self", "v").
		Name(pythonir.LoadFast, "v").
		Name(pythonir.LoadFast, "self").
		Name(pythonir.StoreAttr, "v").
		LoadConst(pythonir.None()).
		Op(pythonir.ReturnValue).
		MustCode()
	get := pythonir.NewBuilder("A.get", "self").
		Name(pythonir.LoadFast, "self").
		Name(pythonir.LoadAttr, "v").
		Op(pythonir.ReturnValue).
		MustCode()
	body := pythonir.NewBuilder("A")
	define(body, "__init__", ctor)
	define(body, "get", get)
	body.LoadConst(pythonir.None()).Op(pythonir.ReturnValue)

	b := pythonir.NewBuilder("<module>").
		Function(body.MustCode(), 0).
		Class("A", 0).
		Name(pythonir.StoreName, "A")
	callName(b, "A", pythonir.Int("1")).Name(pythonir.StoreName, "a")
	b.Name(pythonir.LoadName, "a").Name(pythonir.LoadAttr, "get").Call(0).Op(pythonir.PopTop)

	mod := moduleOf(b)

	expected := `a = ...  # type: A

class A(object):
    v = ...  # type: int
    def __init__(self, v: int) -> NoneType
    def get(self) -> int
`
	for _, mode := range []Mode{Deep, Shallow} {
		t.Run(mode.String(), func(t *testing.T) {
			opts := DefaultOptions
			opts.Mode = mode
			out := infer(t, mod, opts)
			assert.Equal(t, expected, out.String())
		})
	}
}

func TestClassBodyIsNotAFunction(t *testing.T) {
	// class A:
	//     def m(self, x): return x
	m := pythonir.NewBuilder("A.m", "self", "x").
		Name(pythonir.LoadFast, "x").
		Op(pythonir.ReturnValue).
		MustCode()
	body := pythonir.NewBuilder("A")
	define(body, "m", m)
	body.LoadConst(pythonir.None()).Op(pythonir.ReturnValue)

	b := pythonir.NewBuilder("<module>").
		Function(body.MustCode(), 0).
		Class("A", 0).
		Name(pythonir.StoreName, "A")
	mod := moduleOf(b)

	for _, mode := range []Mode{Deep, Shallow} {
		t.Run(mode.String(), func(t *testing.T) {
			opts := DefaultOptions
			opts.Mode = mode
			out := infer(t, mod, opts)

			_, ok := out.Function("A")
			assert.False(t, ok, "%s", out)
			assert.Empty(t, out.Functions)

			cls, ok := out.Class("A")
			require.True(t, ok, "%s", out)
			require.Len(t, cls.Methods, 1)
			assert.Equal(t, "m", cls.Methods[0].Name)
		})
	}
}

func TestImport(t *testing.T) {
	// import os
	// cwd = os.getcwd()
	b := pythonir.NewBuilder("<module>").
		Name(pythonir.ImportName, "os").
		Name(pythonir.StoreName, "os").
		Name(pythonir.LoadName, "os").
		Name(pythonir.LoadAttr, "getcwd").
		Call(0).
		Name(pythonir.StoreName, "cwd")

	out := infer(t, moduleOf(b), DefaultOptions)
	assert.Equal(t, "cwd = ...  # type: str\n", out.String())
}

func TestMissingModule(t *testing.T) {
	b := pythonir.NewBuilder("<module>").
		Name(pythonir.ImportName, "nosuchmodule").
		Name(pythonir.StoreName, "m")

	out := infer(t, moduleOf(b), DefaultOptions)
	assert.True(t, hasDiagnostic(out.Diagnostics, "module nosuchmodule not found"), "%v", out.Diagnostics)
}

func TestLoopWidening(t *testing.T) {
	// def f(c, x):
	//     while c:
	//         x = [x]
	//     return x
	f := pythonir.NewBuilder("f", "c", "x").
		Jump(pythonir.SetupLoop, "end").
		Label("loop").
		Name(pythonir.LoadFast, "c").
		Jump(pythonir.PopJumpIfFalse, "exit").
		Name(pythonir.LoadFast, "x").
		Arg(pythonir.BuildList, 1).
		Name(pythonir.StoreFast, "x").
		Jump(pythonir.JumpAbsolute, "loop").
		Label("exit").
		Op(pythonir.PopBlock).
		Label("end").
		Name(pythonir.LoadFast, "x").
		Op(pythonir.ReturnValue).
		MustCode()

	b := define(pythonir.NewBuilder("<module>"), "f", f)
	callName(b, "f", pythonir.Bool(true), pythonir.Int("1")).Op(pythonir.PopTop)

	opts := DefaultOptions
	opts.MaxLoopIterations = 2
	out := infer(t, moduleOf(b), opts)
	assert.True(t, hasDiagnostic(out.AllDiagnostics(), "loop did not converge"), "%v", out.AllDiagnostics())
}

func TestCombinationCap(t *testing.T) {
	// def g(c):
	//     if c:
	//         v = 1
	//     else:
	//         v = "s"
	//     return f(v)
	g := pythonir.NewBuilder("g", "c").
		Name(pythonir.LoadFast, "c").
		Jump(pythonir.PopJumpIfFalse, "else").
		LoadConst(pythonir.Int("1")).
		Name(pythonir.StoreFast, "v").
		Jump(pythonir.JumpForward, "join").
		Label("else").
		LoadConst(pythonir.Str("s")).
		Name(pythonir.StoreFast, "v").
		Label("join").
		Name(pythonir.LoadGlobal, "f").
		Name(pythonir.LoadFast, "v").
		Call(1).
		Op(pythonir.ReturnValue).
		MustCode()

	b := pythonir.NewBuilder("<module>")
	define(b, "f", identity())
	define(b, "g", g)
	callName(b, "g", pythonir.Bool(true)).Op(pythonir.PopTop)
	mod := moduleOf(b)

	out := infer(t, mod, DefaultOptions)
	requireFunction(t, out, "f", "def f(x: int or str) -> int or str")

	opts := DefaultOptions
	opts.MaxCombinations = 1
	out = infer(t, mod, opts)
	requireFunction(t, out, "f", "def f(x: object) -> object")
	fn := requireFunction(t, out, "g", "def g(c: bool) -> object")
	assert.True(t, hasDiagnostic(fn.Diagnostics, "more than 1 argument combinations"), "%v", fn.Diagnostics)
}

func TestUndefinedName(t *testing.T) {
	b := pythonir.NewBuilder("<module>").
		Name(pythonir.LoadName, "undefined").
		Name(pythonir.StoreName, "x")

	out := infer(t, moduleOf(b), DefaultOptions)
	assert.True(t, hasDiagnostic(out.Diagnostics, "name undefined is not defined"), "%v", out.Diagnostics)
	assert.Equal(t, "x = ...  # type: ?\n", out.String())
}

func TestDeterministic(t *testing.T) {
	b := pythonir.NewBuilder("<module>")
	define(b, "f", identity())
	define(b, "g", divide("g", false))
	callName(b, "f", pythonir.Str("a")).Op(pythonir.PopTop)
	callName(b, "f", pythonir.Int("1")).Op(pythonir.PopTop)
	mod := moduleOf(b)

	first := infer(t, mod, DefaultOptions)
	for i := 0; i < 5; i++ {
		assert.True(t, pythondecl.Equal(first, infer(t, mod, DefaultOptions)))
	}
}

func TestFixture(t *testing.T) {
	mod, err := pythonir.LoadFile("../pythonir/testdata/loop.yaml")
	require.NoError(t, err)

	out := infer(t, mod, DefaultOptions)
	_, ok := out.Function("total")
	assert.True(t, ok, "%s", out)
}

func TestMalformed(t *testing.T) {
	// a jump past the end of the code
	code := &pythonir.Code{
		Name:   "<module>",
		Instrs: []pythonir.Instr{{Op: pythonir.JumpAbsolute, Arg: 10}},
	}
	_, err := Infer(kitectx.Background(), &pythonir.Module{Name: "bad", Code: code}, pythoncatalog.Builtins(), DefaultOptions)
	require.Error(t, err)
	assert.Equal(t, pythonir.ErrMalformed, errors.Cause(err))
	assert.True(t, errors.Is(err, pythonir.ErrMalformed))
}

func TestInvalidOptions(t *testing.T) {
	opts := DefaultOptions
	opts.MaxCallDepth = 0
	_, err := Infer(kitectx.Background(), moduleOf(pythonir.NewBuilder("<module>")), pythoncatalog.Builtins(), opts)
	assert.Error(t, err)
}

func TestAbort(t *testing.T) {
	b := define(pythonir.NewBuilder("<module>"), "f", identity())
	callName(b, "f", pythonir.Int("1")).Op(pythonir.PopTop)
	mod := moduleOf(b)

	err := kitectx.Background().WithCancel(func(ctx kitectx.Context, cancel kitectx.CancelFunc) error {
		cancel()
		ctx.WaitExpiry(t)
		_, err := Infer(ctx, mod, pythoncatalog.Builtins(), DefaultOptions)
		return err
	})
	require.Error(t, err)
	var expired kitectx.ContextExpiredError
	assert.True(t, errors.As(err, &expired), "%v", err)
}

func TestMutualRecursion(t *testing.T) {
	// def f(n):
	//     if n:
	//         return g(n)
	//     return 0
	// def g(n):
	//     return f(n)
	f := pythonir.NewBuilder("f", "n").
		Name(pythonir.LoadFast, "n").
		Jump(pythonir.PopJumpIfFalse, "zero").
		Name(pythonir.LoadGlobal, "g").
		Name(pythonir.LoadFast, "n").
		Call(1).
		Op(pythonir.ReturnValue).
		Label("zero").
		LoadConst(pythonir.Int("0")).
		Op(pythonir.ReturnValue).
		MustCode()
	g := pythonir.NewBuilder("g", "n").
		Name(pythonir.LoadGlobal, "f").
		Name(pythonir.LoadFast, "n").
		Call(1).
		Op(pythonir.ReturnValue).
		MustCode()

	b := pythonir.NewBuilder("<module>")
	define(b, "f", f)
	define(b, "g", g)
	callName(b, "f", pythonir.Int("1")).Op(pythonir.PopTop)
	mod := moduleOf(b)

	for _, mode := range []Mode{Deep, Shallow} {
		t.Run(mode.String(), func(t *testing.T) {
			opts := DefaultOptions
			opts.Mode = mode
			out := infer(t, mod, opts)
			requireFunction(t, out, "f", "def f(n: int) -> int")
			requireFunction(t, out, "g", "def g(n: int) -> int")
		})
	}
}

func TestConditionalRecursion(t *testing.T) {
	// def f(n):
	//     return f(n - 1) if n else 0
	f := pythonir.NewBuilder("f", "n").
		Name(pythonir.LoadFast, "n").
		Jump(pythonir.PopJumpIfFalse, "else").
		Name(pythonir.LoadGlobal, "f").
		Name(pythonir.LoadFast, "n").
		LoadConst(pythonir.Int("1")).
		Name(pythonir.BinaryOp, "-").
		Call(1).
		Jump(pythonir.JumpForward, "end").
		Label("else").
		LoadConst(pythonir.Int("0")).
		Label("end").
		Op(pythonir.ReturnValue).
		MustCode()

	b := define(pythonir.NewBuilder("<module>"), "f", f)
	callName(b, "f", pythonir.Int("5")).Op(pythonir.PopTop)

	out := infer(t, moduleOf(b), DefaultOptions)
	requireFunction(t, out, "f", "def f(n: int) -> int")
}

func TestWiderArgumentsNeverNarrowReturn(t *testing.T) {
	// def f(x): return x + x
	double := func() *pythonir.Code {
		return pythonir.NewBuilder("f", "x").
			Name(pythonir.LoadFast, "x").
			Name(pythonir.LoadFast, "x").
			Name(pythonir.BinaryOp, "+").
			Op(pythonir.ReturnValue).
			MustCode()
	}

	returnOf := func(args ...pythonir.Const) []string {
		b := define(pythonir.NewBuilder("<module>"), "f", double())
		for _, a := range args {
			callName(b, "f", a).Op(pythonir.PopTop)
		}
		out := infer(t, moduleOf(b), DefaultOptions)
		fn, ok := out.Function("f")
		require.True(t, ok)
		return strings.Split(fn.Return.String(), " or ")
	}

	tcs := []struct {
		narrow []pythonir.Const
		wide   []pythonir.Const
	}{
		{[]pythonir.Const{pythonir.Int("1")}, []pythonir.Const{pythonir.Int("1"), pythonir.Str("a")}},
		{[]pythonir.Const{pythonir.Str("a")}, []pythonir.Const{pythonir.Str("a"), pythonir.Float("1.5")}},
		{[]pythonir.Const{pythonir.Int("1")}, []pythonir.Const{pythonir.Int("1"), pythonir.Float("1.5"), pythonir.Str("a")}},
	}
	for i, tc := range tcs {
		narrow, wide := returnOf(tc.narrow...), returnOf(tc.wide...)
		for _, n := range narrow {
			assert.Contains(t, wide, n, "case %d", i)
		}
	}
}

func TestIdenticalCallsShareRecord(t *testing.T) {
	b := define(pythonir.NewBuilder("<module>"), "f", identity())
	callName(b, "f", pythonir.Int("1")).Op(pythonir.PopTop)
	callName(b, "f", pythonir.Int("2")).Op(pythonir.PopTop)
	callName(b, "f", pythonir.Str("a")).Op(pythonir.PopTop)

	a, err := newAnalyzer(moduleOf(b), pythoncatalog.Builtins(), DefaultOptions)
	require.NoError(t, err)
	a.interpret(kitectx.Background())

	require.Len(t, a.funcOrder, 1)
	records := a.calls.recordsOf(a.funcOrder[0])
	require.Len(t, records, 2)
	assert.Equal(t, "int", pythonvalue.StringOf(records[0].ret))
	assert.Equal(t, "str", pythonvalue.StringOf(records[1].ret))
}

func TestInternalErrorScopedToFunction(t *testing.T) {
	rollbar.SetLogDisabled(true)
	defer rollbar.SetLogDisabled(false)

	bad := identity()
	g := pythonir.NewBuilder("g", "x").
		Name(pythonir.LoadFast, "x").
		Op(pythonir.ReturnValue).
		MustCode()

	b := pythonir.NewBuilder("<module>")
	define(b, "f", bad)
	define(b, "g", g)
	callName(b, "f", pythonir.Int("1")).Op(pythonir.PopTop)
	callName(b, "g", pythonir.Int("1")).Op(pythonir.PopTop)

	a, err := newAnalyzer(moduleOf(b), pythoncatalog.Builtins(), DefaultOptions)
	require.NoError(t, err)
	// a graph without blocks makes the simulation of f panic
	a.cfgs[bad] = &pythonir.CFG{Code: bad}
	a.interpret(kitectx.Background())
	out := a.declarations(nil)

	fn := requireFunction(t, out, "f", "def f(x) -> ?")
	assert.True(t, hasDiagnostic(fn.Diagnostics, "internal error"), "%v", fn.Diagnostics)
	requireFunction(t, out, "g", "def g(x: int) -> int")
	assert.Empty(t, out.Diagnostics)
}

func TestCalleeUnionWithinCap(t *testing.T) {
	// def g(c):
	//     if c:
	//         h = f
	//     else:
	//         h = k
	//     return h(1)
	g := pythonir.NewBuilder("g", "c").
		Name(pythonir.LoadFast, "c").
		Jump(pythonir.PopJumpIfFalse, "else").
		Name(pythonir.LoadGlobal, "f").
		Name(pythonir.StoreFast, "h").
		Jump(pythonir.JumpForward, "join").
		Label("else").
		Name(pythonir.LoadGlobal, "k").
		Name(pythonir.StoreFast, "h").
		Label("join").
		Name(pythonir.LoadFast, "h").
		LoadConst(pythonir.Int("1")).
		Call(1).
		Op(pythonir.ReturnValue).
		MustCode()
	k := pythonir.NewBuilder("k", "x").
		LoadConst(pythonir.Str("s")).
		Op(pythonir.ReturnValue).
		MustCode()

	b := pythonir.NewBuilder("<module>")
	define(b, "f", identity())
	define(b, "k", k)
	define(b, "g", g)
	callName(b, "g", pythonir.Bool(true)).Op(pythonir.PopTop)

	opts := DefaultOptions
	opts.MaxCombinations = 1
	out := infer(t, moduleOf(b), opts)
	fn := requireFunction(t, out, "g", "def g(c: bool) -> int or str")
	assert.False(t, hasDiagnostic(fn.Diagnostics, "argument combinations"), "%v", fn.Diagnostics)
	requireFunction(t, out, "f", "def f(x: int) -> int")
	requireFunction(t, out, "k", "def k(x: int) -> str")
}

func TestLibraryScenarios(t *testing.T) {
	// def f(x, y): return <name>(x, y)
	binary := func(name string) *pythonir.Code {
		return pythonir.NewBuilder("f", "x", "y").
			Name(pythonir.LoadGlobal, name).
			Name(pythonir.LoadFast, "x").
			Name(pythonir.LoadFast, "y").
			Call(2).
			Op(pythonir.ReturnValue).
			MustCode()
	}
	// def f(s): return eval(s)
	eval := pythonir.NewBuilder("f", "s").
		Name(pythonir.LoadGlobal, "eval").
		Name(pythonir.LoadFast, "s").
		Call(1).
		Op(pythonir.ReturnValue).
		MustCode()

	tcs := []struct {
		name   string
		code   *pythonir.Code
		args   []pythonir.Const
		result string
	}{
		{"pow literals", binary("pow"), []pythonir.Const{pythonir.Int("1"), pythonir.Int("-2")}, "float or int"},
		{"pow unknowns", binary("pow"), nil, "complex or float or int"},
		{"max unknowns", binary("max"), nil, "?"},
		{"max ints", binary("max"), []pythonir.Const{pythonir.Int("1"), pythonir.Int("2")}, "int"},
		{"eval", eval, []pythonir.Const{pythonir.Str("1 + 1")}, "?"},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			b := define(pythonir.NewBuilder("<module>"), "f", tc.code)
			if tc.args != nil {
				callName(b, "f", tc.args...).Op(pythonir.PopTop)
			}
			out := infer(t, moduleOf(b), DefaultOptions)
			fn, ok := out.Function("f")
			require.True(t, ok, "%s", out)
			assert.Equal(t, tc.result, fn.Return.String(), "%s", fn)
		})
	}
}
