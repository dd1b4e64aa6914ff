package pythoninfer

import (
	"fmt"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonbinding"
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythoncatalog"
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonir"
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonsolve"
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonvalue"
	"github.com/kiteco/typeinfer/kite-golib/kitectx"
)

// size of the memo of library signature matches
const libraryMemoSize = 1 << 12

// funcInfo is everything known about one function defined in the analyzed code
type funcInfo struct {
	code *pythonir.Code
	fn   *pythonvalue.Function
	// parent is the code object the function is defined in
	parent *pythonir.Code
	// defaults[i] is the united default value of the i-th parameter with a default
	defaults []pythonvalue.Value
	owner    *pythonvalue.Class
	// classBody is set for the code of a class statement, which is run by
	// buildClass and never called
	classBody bool
	failed    bool
	diags     diagnostics
}

// name is the unqualified name of the function
func (f *funcInfo) name() string {
	name := f.code.Name
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// defaultFor returns the default value of parameter i
func (f *funcInfo) defaultFor(i int) pythonvalue.Value {
	first := len(f.code.Params) - len(f.defaults)
	if i < first || i-first >= len(f.defaults) {
		return nil
	}
	return f.defaults[i-first]
}

// classInfo is a class defined in the analyzed code
type classInfo struct {
	cls    *pythonvalue.Class
	body   *pythonir.Code
	parent *pythonir.Code
}

// siteKey identifies where an unknown was created, so that re-simulating the
// same instruction yields the same unknown
type siteKey struct {
	code  *pythonir.Code
	instr int
	what  string
}

// Analyzer holds the state of one inference run. It is not safe for concurrent use
// and must not be reused across runs.
type Analyzer struct {
	opts Options
	cat  pythoncatalog.Catalog
	mod  *pythonir.Module

	store *pythonsolve.Store
	calls *callCache

	lastUnknown int
	unknowns    map[siteKey]pythonvalue.Unknown

	funcs     map[*pythonir.Code]*funcInfo
	funcOrder []*funcInfo
	funcNames map[string]int

	classes    map[*pythonir.Code]*classInfo
	classOrder []*classInfo

	// instAttrs are the attributes assigned to instances of analyzed classes
	instAttrs map[*pythonvalue.Class]map[string]pythonvalue.Value
	globals   map[string]pythonvalue.Value
	// version is bumped whenever globals or instance attributes grow
	version int

	cfgs    map[*pythonir.Code]*pythonir.CFG
	library *lru.Cache

	diags diagnostics

	// well known builtin classes
	object, noneType, boolean, integer, float, complex, str, bytes *pythonvalue.Class
	tuple, list, dict, set, function, moduleType, typ, exception    *pythonvalue.Class
}

func newAnalyzer(mod *pythonir.Module, cat pythoncatalog.Catalog, opts Options) (*Analyzer, error) {
	library, err := lru.New(libraryMemoSize)
	if err != nil {
		return nil, err
	}
	a := &Analyzer{
		opts:      opts,
		cat:       cat,
		mod:       mod,
		store:     pythonsolve.NewStore(),
		calls:     newCallCache(),
		unknowns:  make(map[siteKey]pythonvalue.Unknown),
		funcs:     make(map[*pythonir.Code]*funcInfo),
		funcNames: make(map[string]int),
		classes:   make(map[*pythonir.Code]*classInfo),
		instAttrs: make(map[*pythonvalue.Class]map[string]pythonvalue.Value),
		globals:   make(map[string]pythonvalue.Value),
		cfgs:      make(map[*pythonir.Code]*pythonir.CFG),
		library:   library,
	}
	for _, c := range []struct {
		dst  **pythonvalue.Class
		name string
	}{
		{&a.object, "object"}, {&a.noneType, "NoneType"}, {&a.boolean, "bool"}, {&a.integer, "int"},
		{&a.float, "float"}, {&a.complex, "complex"}, {&a.str, "str"}, {&a.bytes, "bytes"},
		{&a.tuple, "tuple"}, {&a.list, "list"}, {&a.dict, "dict"}, {&a.set, "set"},
		{&a.function, "function"}, {&a.moduleType, "module"}, {&a.typ, "type"}, {&a.exception, "Exception"},
	} {
		cls, err := pythoncatalog.BuiltinClass(cat, c.name)
		if err != nil {
			return nil, err
		}
		*c.dst = cls
	}
	return a, nil
}

// cfg returns the (memoized) control flow graph of code
func (a *Analyzer) cfg(code *pythonir.Code) (*pythonir.CFG, error) {
	if g, ok := a.cfgs[code]; ok {
		return g, nil
	}
	g, err := pythonir.BuildCFG(code)
	if err != nil {
		return nil, err
	}
	a.cfgs[code] = g
	return g, nil
}

// unknownAt returns the unknown created at a site, creating it on first use
func (a *Analyzer) unknownAt(key siteKey) pythonvalue.Unknown {
	if u, ok := a.unknowns[key]; ok {
		return u
	}
	a.lastUnknown++
	u := pythonvalue.Unknown{ID: a.lastUnknown}
	a.unknowns[key] = u
	return u
}

// allUnknowns returns every unknown created in this run, in ID order
func (a *Analyzer) allUnknowns() []pythonvalue.Unknown {
	out := make([]pythonvalue.Unknown, 0, len(a.unknowns))
	for _, u := range a.unknowns {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// record adds a constraint unless the store has been sealed
func (a *Analyzer) record(u pythonvalue.Unknown, c pythonsolve.Constraint) {
	if !a.store.Sealed() {
		a.store.Record(u, c)
	}
}

// derived returns the unknown standing for an operation on the unknown parent
func (a *Analyzer) derived(code *pythonir.Code, instr int, d pythonsolve.Derivation) pythonvalue.Unknown {
	u := a.unknownAt(siteKey{code: code, instr: instr, what: d.Kind.String()})
	if !a.store.Sealed() && u.ID != d.Parent.ID {
		a.store.Derive(u, d)
	}
	return u
}

// functionFor returns the function value for a code object, creating it on first use
func (a *Analyzer) functionFor(code, parent *pythonir.Code) *funcInfo {
	if info, ok := a.funcs[code]; ok {
		return info
	}

	name := a.mod.Name + "." + code.Name
	if n := a.funcNames[name]; n > 0 {
		a.funcNames[name] = n + 1
		name = fmt.Sprintf("%s#%d", name, n+1)
	} else {
		a.funcNames[name] = 1
	}

	sig := &pythonvalue.Signature{}
	for _, p := range code.Params {
		sig.Params = append(sig.Params, pythonvalue.Param{Name: p})
	}
	if code.Vararg != "" {
		sig.Vararg = &pythonvalue.Param{Name: code.Vararg}
	}
	if code.Kwarg != "" {
		sig.Kwarg = &pythonvalue.Param{Name: code.Kwarg}
	}

	info := &funcInfo{
		code:   code,
		parent: parent,
		fn: &pythonvalue.Function{
			Name:       name,
			Signatures: []*pythonvalue.Signature{sig},
			Code:       code,
		},
	}
	a.funcs[code] = info
	a.funcOrder = append(a.funcOrder, info)
	return info
}

// setDefaults unites the default values of a MAKE_FUNCTION into the function's signature
func (a *Analyzer) setDefaults(info *funcInfo, defaults []pythonvalue.Value) {
	if len(defaults) > len(info.code.Params) {
		defaults = defaults[len(defaults)-len(info.code.Params):]
	}
	if len(info.defaults) < len(defaults) {
		grown := make([]pythonvalue.Value, len(defaults))
		copy(grown[len(defaults)-len(info.defaults):], info.defaults)
		info.defaults = grown
	}
	offset := len(info.defaults) - len(defaults)
	for i, d := range defaults {
		info.defaults[offset+i] = pythonvalue.Unite(info.defaults[offset+i], d)
	}
	sig := info.fn.Signatures[0]
	for i := len(sig.Params) - len(info.defaults); i < len(sig.Params); i++ {
		sig.Params[i].HasDefault = true
	}
}

// setGlobal unites v into a module level name
func (a *Analyzer) setGlobal(name string, v pythonvalue.Value) {
	old, ok := a.globals[name]
	merged := pythonvalue.Unite(old, v)
	if !ok || !pythonvalue.Equal(old, merged) {
		a.globals[name] = merged
		a.version++
	}
}

// setInstAttr unites v into an attribute of the instances of an analyzed class
func (a *Analyzer) setInstAttr(cls *pythonvalue.Class, name string, v pythonvalue.Value) {
	attrs := a.instAttrs[cls]
	if attrs == nil {
		attrs = make(map[string]pythonvalue.Value)
		a.instAttrs[cls] = attrs
	}
	old, ok := attrs[name]
	merged := pythonvalue.Unite(old, v)
	if !ok || !pythonvalue.Equal(old, merged) {
		attrs[name] = merged
		a.version++
	}
}

// setClassAttr unites v into an attribute of an analyzed class
func (a *Analyzer) setClassAttr(cls *pythonvalue.Class, name string, v pythonvalue.Value) {
	old, ok := cls.Members[name]
	merged := pythonvalue.Unite(old, v)
	if !ok || !pythonvalue.Equal(old, merged) {
		cls.Members[name] = merged
		a.version++
	}
}

// instAttr looks up an attribute assigned to instances of cls or of its bases
func (a *Analyzer) instAttr(cls *pythonvalue.Class, name string) (pythonvalue.Value, bool) {
	for _, k := range cls.MRO() {
		if v, ok := a.instAttrs[k][name]; ok {
			return v, true
		}
	}
	return nil, false
}

// sourceClasses returns the classes defined in the analyzed code, in definition order
func (a *Analyzer) sourceClasses() []*pythonvalue.Class {
	var out []*pythonvalue.Class
	for _, ci := range a.classOrder {
		out = append(out, ci.cls)
	}
	return out
}

// instance is a shorthand for an instance of a builtin class
func instance(c *pythonvalue.Class, params ...pythonvalue.Value) pythonvalue.Instance {
	return pythonvalue.NewInstance(c, params...)
}

// typeOf is the instance of the builtin class describing a non-instance value,
// used to look up attributes shared by all functions, classes or modules
func (a *Analyzer) typeOf(v pythonvalue.Value) (pythonvalue.Instance, bool) {
	switch v.(type) {
	case *pythonvalue.Function, pythonvalue.BoundMethod:
		return instance(a.function), true
	case *pythonvalue.Class:
		return instance(a.typ), true
	case *pythonvalue.Module:
		return instance(a.moduleType), true
	}
	return pythonvalue.Instance{}, false
}

// diagnostics is an ordered set of messages
type diagnostics struct {
	msgs []string
	seen map[string]bool
}

func (d *diagnostics) add(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if d.seen == nil {
		d.seen = make(map[string]bool)
	}
	if d.seen[msg] {
		return
	}
	d.seen[msg] = true
	d.msgs = append(d.msgs, msg)
}

// unitName is used in binding origins and log messages
func unitName(code *pythonir.Code) string {
	return code.Name
}

// paramOrigin is the origin of the initial bindings of a function's parameters
func paramOrigin(code *pythonir.Code) pythonbinding.Origin {
	return pythonbinding.Origin{Unit: unitName(code), Instr: pythonbinding.ParamInstr}
}

// callContext starts the simulation of a unit with a fresh call depth
func (a *Analyzer) callContext(ctx kitectx.Context, f func(kitectx.CallContext)) {
	ctx.WithCallLimit(a.opts.MaxCallDepth, func(cctx kitectx.CallContext) error {
		f(cctx)
		return nil
	})
}
