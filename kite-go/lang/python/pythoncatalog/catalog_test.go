package pythoncatalog

import (
	"strings"
	"testing"

	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonvalue"
	"github.com/kiteco/typeinfer/kite-golib/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func builtinClass(t *testing.T, s Catalog, name string) *pythonvalue.Class {
	v, ok := s.Builtin(name)
	require.True(t, ok, "missing builtin %s", name)
	c, ok := v.(*pythonvalue.Class)
	require.True(t, ok, "%s is a %T", name, v)
	return c
}

func signatures(fn *pythonvalue.Function) []string {
	var out []string
	for _, sig := range fn.Signatures {
		out = append(out, sig.String())
	}
	return out
}

func TestBuiltins(t *testing.T) {
	s := Builtins()
	assert.Equal(t, []string{"builtins", "os", "os.path", "sys", "time"}, s.ModuleNames())

	object := builtinClass(t, s, "object")
	assert.Empty(t, object.Bases)

	boolean := builtinClass(t, s, "bool")
	var mro []string
	for _, c := range boolean.MRO() {
		mro = append(mro, c.Name)
	}
	assert.Equal(t, []string{"bool", "int", "object"}, mro)

	zde := builtinClass(t, s, "ZeroDivisionError")
	assert.True(t, zde.IsSubclass(builtinClass(t, s, "Exception")))

	list := builtinClass(t, s, "list")
	assert.Equal(t, []string{"T"}, list.TypeParams)

	pow, ok := s.Builtin("pow")
	require.True(t, ok)
	assert.Equal(t, []string{
		"(x: int, y: int) -> float or int",
		"(x: float or int, y: float or int) -> float",
		"(x: complex or float or int, y: complex or float or int) -> complex",
	}, signatures(pow.(*pythonvalue.Function)))

	get, _, ok := builtinClass(t, s, "dict").Lookup("get")
	require.True(t, ok)
	fn := get.(*pythonvalue.Function)
	assert.Equal(t, "builtins.dict.get", fn.Name)
	assert.Equal(t, "dict", fn.Owner.Name)
	assert.Equal(t, "(self, k: K) -> NoneType or V", fn.Signatures[0].String())

	sys, ok := s.Module("sys")
	require.True(t, ok)
	assert.Nil(t, sys.Members["exit"].(*pythonvalue.Function).Signatures[0].Return)
	assert.Equal(t, "list[str]", sys.Members["argv"].String())

	env, ok := s.Module("os")
	require.True(t, ok)
	assert.Equal(t, "dict[str, str]", env.Members["environ"].String())
}

func TestClassesWithAttr(t *testing.T) {
	s := Builtins()

	var names []string
	for _, c := range s.ClassesWithAttr("__next__") {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"iterator"}, names)

	// inherited attributes are indexed on subclasses too
	names = nil
	for _, c := range s.ClassesWithAttr("bit_length") {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"bool", "int"}, names)

	all := s.Classes()
	for i := 1; i < len(all); i++ {
		assert.True(t, all[i-1].QualName() < all[i].QualName())
	}
	assert.Len(t, s.ClassesWithAttr("__init__"), len(all))
}

func TestBuiltinClass(t *testing.T) {
	s := Builtins()

	cls, err := BuiltinClass(s, "int")
	require.NoError(t, err)
	assert.Equal(t, "int", cls.Name)

	_, err = BuiltinClass(s, "len")
	assert.EqualError(t, err, "builtin len is not a class")

	_, err = BuiltinClass(s, "nosuchclass")
	assert.EqualError(t, err, "catalog has no builtin class nosuchclass")
}

func TestLoadFile(t *testing.T) {
	s := Builtins()
	require.NoError(t, s.LoadFile("testdata/shapes.yaml"))

	mod, ok := s.Module("shapes")
	require.True(t, ok)
	assert.Equal(t, []string{"Bag", "ORIGIN", "Shape", "Square", "largest", "unit"}, mod.MemberNames())

	square := mod.Members["Square"].(*pythonvalue.Class)
	shape := mod.Members["Shape"].(*pythonvalue.Class)
	assert.True(t, square.IsSubclass(shape))
	assert.Equal(t, "shapes.Square", square.DisplayName())

	scale, owner, ok := square.Lookup("scale")
	require.True(t, ok)
	assert.Equal(t, shape, owner)
	assert.Equal(t, []string{"(self, factor: float or int) -> shapes.Shape"}, signatures(scale.(*pythonvalue.Function)))

	take := mod.Members["Bag"].(*pythonvalue.Class).Members["take"].(*pythonvalue.Function)
	assert.Equal(t, []string{"(self) -> T raises KeyError"}, signatures(take))

	largest := mod.Members["largest"].(*pythonvalue.Function)
	assert.Equal(t, []string{
		"(shapes: list[shapes.Shape]) -> shapes.Shape",
		"(*shapes: shapes.Shape) -> shapes.Shape",
	}, signatures(largest))

	var names []string
	for _, c := range s.ClassesWithAttr("area") {
		names = append(names, c.QualName())
	}
	assert.Equal(t, []string{"shapes.Shape", "shapes.Square"}, names)

	// a second module may refer to the first by qualified name
	err := s.LoadYAML(strings.NewReader(`
module: drawing
functions:
  draw: ["(s: shapes.Shape) -> NoneType"]
`))
	require.NoError(t, err)
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]string{
		"unknown type":   "module: m\nfunctions:\n  f: [\"(x: Frob) -> int\"]\n",
		"unknown base":   "module: m\nclasses:\n  - {name: A, bases: [Frob]}\n",
		"duplicate":      "module: m\nclasses:\n  - {name: A}\n  - {name: A}\n",
		"no module":      "functions:\n  f: [\"() -> int\"]\n",
		"no signatures":  "module: m\nfunctions:\n  f: []\n",
		"bad arity":      "module: m\nconstants:\n  x: dict[str]\n",
		"not generic":    "module: m\nconstants:\n  x: int[str]\n",
		"missing arrow":  "module: m\nfunctions:\n  f: [\"(x: int) int\"]\n",
		"trailing":       "module: m\nconstants:\n  x: int str\n",
		"bad default":    "module: m\nfunctions:\n  f: [\"(x = 1) -> int\"]\n",
		"already loaded": "module: builtins\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			err := Builtins().LoadYAML(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFiles(t *testing.T) {
	s := Builtins()
	err := s.LoadFiles("testdata/shapes.yaml", "testdata/missing.yaml", "testdata/shapes.yaml")
	require.Error(t, err)

	errs, ok := err.(errors.Errors)
	require.True(t, ok, "%T", err)
	assert.Equal(t, 2, errs.Len())

	_, ok = s.Module("shapes")
	assert.True(t, ok)

	assert.NoError(t, Builtins().LoadFiles())
}

func TestParseSignature(t *testing.T) {
	s := Builtins()
	resolve := func(name string) (pythonvalue.Value, error) {
		if looksLikeTypeVar(name) {
			return pythonvalue.TypeVar{Name: name}, nil
		}
		return pythonvalue.NewInstance(builtinClass(t, s, name)), nil
	}

	cases := []struct {
		src  string
		want string
	}{
		{"() -> int", "() -> int"},
		{"(x, *args, **kwargs) -> ?", "(x, *args, **kwargs) -> ?"},
		{"(x: list, y: str = ...) -> nothing", "(x: list[?], y: str = ...) -> nothing"},
		{"(d: dict[str, list[T]]) -> T or NoneType raises KeyError, ValueError",
			"(d: dict[str, list[T]]) -> NoneType or T raises KeyError, ValueError"},
	}
	for _, c := range cases {
		p, err := newParser(c.src, resolve)
		require.NoError(t, err)
		sig, err := p.parseSignature()
		require.NoError(t, err, c.src)
		assert.Equal(t, c.want, sig.String())
	}
}

func TestCachingCatalog(t *testing.T) {
	s := Builtins()
	c := NewCachingCatalog(s, 0)

	v, ok := c.Builtin("int")
	require.True(t, ok)
	again, _ := c.Builtin("int")
	assert.True(t, v == again)

	_, ok = c.Builtin("frobnicate")
	assert.False(t, ok)

	_, ok = c.Module("os.path")
	assert.True(t, ok)
	assert.Equal(t, s.ClassesWithAttr("__len__"), c.ClassesWithAttr("__len__"))
	assert.Equal(t, len(s.Classes()), len(c.Classes()))
}
