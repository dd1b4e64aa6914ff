package pythoninfer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonbinding"
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonir"
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonsolve"
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonvalue"
	"github.com/kiteco/typeinfer/kite-golib/kitectx"
	"github.com/kiteco/typeinfer/kite-golib/rollbar"
)

// callSite simulates a call instruction: every combination of callee and
// argument values is called separately and the results are united. The last
// len(names) arguments are passed by keyword. MaxCombinations bounds the
// argument tuples tried with each callee.
func (f *frame) callSite(callee *pythonbinding.Variable, args []*pythonbinding.Variable, names []string) pythonvalue.Value {
	callees := callee.Values()
	values := make([][]pythonvalue.Value, len(args))
	combinations := 1
	for i, arg := range args {
		values[i] = arg.Values()
		if combinations <= f.a.opts.MaxCombinations {
			combinations *= len(values[i])
		}
	}
	if combinations > f.a.opts.MaxCombinations {
		f.diagAt(f.instr, "more than %d argument combinations, arguments generalized", f.a.opts.MaxCombinations)
		for i, vs := range values {
			if len(vs) > 1 {
				values[i] = []pythonvalue.Value{pythonvalue.Generalize(vs)}
			}
		}
	}

	npos := len(args) - len(names)
	var results []pythonvalue.Value
	for _, c := range callees {
		forEachCombination(values, func(combo []pythonvalue.Value) {
			call := pythonvalue.Args{Positional: append([]pythonvalue.Value(nil), combo[:npos]...)}
			for j, name := range names {
				call.Keywords = append(call.Keywords, pythonvalue.Keyword{Name: name, Value: combo[npos+j]})
			}
			results = append(results, f.call(c, call))
		})
	}
	return pythonvalue.Unite(results...)
}

// forEachCombination enumerates the cartesian product of values in odometer
// order, the last position varying fastest. Nothing is enumerated if any
// position has no values.
func forEachCombination(values [][]pythonvalue.Value, fn func([]pythonvalue.Value)) {
	for _, vs := range values {
		if len(vs) == 0 {
			return
		}
	}
	idx := make([]int, len(values))
	combo := make([]pythonvalue.Value, len(values))
	for {
		for i, j := range idx {
			combo[i] = values[i][j]
		}
		fn(combo)

		pos := len(idx) - 1
		for ; pos >= 0; pos-- {
			idx[pos]++
			if idx[pos] < len(values[pos]) {
				break
			}
			idx[pos] = 0
		}
		if pos < 0 {
			return
		}
	}
}

// call simulates calling callee with a single combination of argument values
func (f *frame) call(callee pythonvalue.Value, args pythonvalue.Args) pythonvalue.Value {
	switch c := callee.(type) {
	case *pythonvalue.Function:
		if c.Interpretable() {
			return f.callInterpreted(f.a.functionFor(c.Code, nil), args)
		}
		return f.callLibrary(c, args, make(pythonvalue.Subst))

	case pythonvalue.BoundMethod:
		args = args.Prepend(c.Self)
		if c.Func.Interpretable() {
			return f.callInterpreted(f.a.functionFor(c.Func.Code, nil), args)
		}
		return f.callLibrary(c.Func, args, pythonvalue.ReceiverSubst(c.Func, c.Self))

	case *pythonvalue.Class:
		return f.instantiate(c, args)

	case pythonvalue.Unknown:
		f.a.record(c, pythonsolve.CallConstraint{Args: args})
		return f.a.derived(f.code, f.instr, pythonsolve.Derivation{Kind: pythonsolve.CallOf, Parent: c, Args: args})

	case pythonvalue.Unsolvable:
		return pythonvalue.Unsolvable{}

	case pythonvalue.Instance:
		if attr, ok := f.a.lookupAttr(c, "__call__"); ok {
			return f.call(attr, args)
		}
	}
	f.diagAt(f.instr, "%s is not callable", pythonvalue.StringOf(callee))
	f.raiseBuiltin("TypeError")
	return pythonvalue.Unsolvable{}
}

// matchLibrary matches args against the signatures of a catalog function,
// memoizing the result
func (a *Analyzer) matchLibrary(fn *pythonvalue.Function, args pythonvalue.Args, subst pythonvalue.Subst) []*pythonvalue.ArgMatch {
	key := fn.Key() + args.Key() + substKey(subst)
	if cached, ok := a.library.Get(key); ok {
		return cached.([]*pythonvalue.ArgMatch)
	}
	matches := pythonvalue.Overloads(fn, args, subst)
	a.library.Add(key, matches)
	return matches
}

func substKey(subst pythonvalue.Subst) string {
	names := make([]string, 0, len(subst))
	for name := range subst {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + pythonvalue.KeyOf(subst[name])
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// callLibrary calls a function described only by its signatures. With concrete
// arguments the first matching signature wins. When an argument is unknown every
// matching signature contributes, and the unknown is constrained to the types
// those signatures declare for it.
func (f *frame) callLibrary(fn *pythonvalue.Function, args pythonvalue.Args, subst pythonvalue.Subst) pythonvalue.Value {
	matches := f.a.matchLibrary(fn, args, subst)
	if len(matches) == 0 {
		f.diagAt(f.instr, "no signature of %s matches %s", fn.Name, args)
		f.raiseBuiltin("TypeError")
		return pythonvalue.Unsolvable{}
	}

	unknown := false
	for _, v := range args.Values() {
		if pythonvalue.ContainsUnknown(v) {
			unknown = true
			break
		}
	}
	if !unknown {
		m := matches[0]
		f.raise(m.Raises()...)
		return m.Return()
	}

	expected := make(map[int][]pythonvalue.Value)
	var unknowns []pythonvalue.Unknown
	expect := func(v, declared pythonvalue.Value) {
		u, ok := v.(pythonvalue.Unknown)
		if !ok {
			return
		}
		if _, seen := expected[u.ID]; !seen {
			unknowns = append(unknowns, u)
		}
		expected[u.ID] = append(expected[u.ID], f.a.expectedType(declared))
	}

	var results []pythonvalue.Value
	for _, m := range matches {
		for j, p := range m.Sig.Params {
			if m.Passed[j] {
				expect(m.Bound[j], p.Type)
			}
		}
		if m.Sig.Vararg != nil {
			for _, v := range m.Varargs {
				expect(v, m.Sig.Vararg.Type)
			}
		}
		if m.Sig.Kwarg != nil {
			for _, kw := range m.Kwargs {
				expect(kw.Value, m.Sig.Kwarg.Type)
			}
		}

		// a type variable bound to an unknown says nothing yet about the result
		solid := make(pythonvalue.Subst, len(m.Subst))
		for name, v := range m.Subst {
			if pythonvalue.ContainsUnknown(v) {
				v = pythonvalue.Unsolvable{}
			}
			solid[name] = v
		}
		results = append(results, pythonvalue.Substitute(m.Sig.Return, solid))
		for _, r := range m.Sig.Raises {
			f.raise(pythonvalue.Substitute(r, solid))
		}
	}
	for _, u := range unknowns {
		f.a.record(u, pythonsolve.NewArgumentConstraint(expected[u.ID]...))
	}
	return pythonvalue.Unite(results...)
}

// expectedType is the type an argument constraint requires for a declared
// parameter type: object for untyped and generic parameters, and the declared
// type with type variables left open otherwise
func (a *Analyzer) expectedType(declared pythonvalue.Value) pythonvalue.Value {
	switch declared.(type) {
	case nil, pythonvalue.TypeVar:
		return instance(a.object)
	}
	return pythonvalue.Substitute(declared, nil)
}

// instantiate calls a class
func (f *frame) instantiate(c *pythonvalue.Class, args pythonvalue.Args) pythonvalue.Value {
	if c == f.a.typ && len(args.Positional) == 1 && len(args.Keywords) == 0 {
		return f.a.classOf(args.Positional[0])
	}

	if c.Source {
		inst := instance(c)
		ctor, _, ok := c.Lookup("__init__")
		if fn, isFn := ctor.(*pythonvalue.Function); ok && isFn && fn.Interpretable() {
			if f.call(pythonvalue.BoundMethod{Self: inst, Func: fn}, args) == nil {
				return nil
			}
		}
		return inst
	}

	params := make([]pythonvalue.Value, len(c.TypeParams))
	ctor, _, ok := c.Lookup("__init__")
	fn, isFn := ctor.(*pythonvalue.Function)
	if !ok || !isFn {
		return instance(c, params...)
	}
	self := pythonvalue.Instance{Class: c}
	for _, tp := range c.TypeParams {
		self.Params = append(self.Params, pythonvalue.TypeVar{Name: tp})
	}
	matches := f.a.matchLibrary(fn, args.Prepend(self), make(pythonvalue.Subst))
	if len(matches) == 0 {
		f.diagAt(f.instr, "no signature of %s matches %s", c.DisplayName(), args)
		f.raiseBuiltin("TypeError")
		return instance(c, params...)
	}
	for i, tp := range c.TypeParams {
		params[i] = matches[0].Subst[tp]
	}
	f.raise(matches[0].Raises()...)
	return instance(c, params...)
}

// classOf is the result of type(v)
func (a *Analyzer) classOf(v pythonvalue.Value) pythonvalue.Value {
	var out []pythonvalue.Value
	for _, d := range pythonvalue.Disjuncts(v) {
		switch d := d.(type) {
		case pythonvalue.Instance:
			out = append(out, d.Class)
		case pythonvalue.Unknown, pythonvalue.Unsolvable:
			return pythonvalue.Unsolvable{}
		default:
			if inst, ok := a.typeOf(d); ok {
				out = append(out, inst.Class)
			}
		}
	}
	return pythonvalue.Unite(out...)
}

// buildClass creates the class for a class body, running the body the first
// time it is seen
func (f *frame) buildClass(name string, body *pythonir.Code, bases []*pythonvalue.Class) pythonvalue.Value {
	f.a.functionFor(body, f.code).classBody = true
	if ci, ok := f.a.classes[body]; ok {
		return ci.cls
	}
	if len(bases) == 0 {
		bases = []*pythonvalue.Class{f.a.object}
	}
	cls := pythonvalue.NewClass(f.a.mod.Name, name, bases...)
	cls.Source = true
	ci := &classInfo{cls: cls, body: body, parent: f.code}
	f.a.classes[body] = ci
	f.a.classOrder = append(f.a.classOrder, ci)

	g, err := f.a.cfg(body)
	if err != nil {
		f.diagAt(f.instr, "class %s: %v", name, err)
		return cls
	}
	fr := newFrame(f.a, f.ctx.Call(), classFrame, g, nil)
	fr.run(pythonbinding.NewState())
	for _, member := range sortedVars(fr.exitLocals) {
		v := member.v.Type()
		if fn, ok := v.(*pythonvalue.Function); ok && fn.Interpretable() {
			fn.Owner = cls
			f.a.functionFor(fn.Code, body).owner = cls
		}
		cls.Members[member.name] = v
	}
	return cls
}

type namedVar struct {
	name string
	v    *pythonbinding.Variable
}

func sortedVars(m map[string]*pythonbinding.Variable) []namedVar {
	out := make([]namedVar, 0, len(m))
	for name, v := range m {
		out = append(out, namedVar{name, v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// callInterpreted binds arguments to the parameters of an analyzed function and
// simulates its body
func (f *frame) callInterpreted(info *funcInfo, args pythonvalue.Args) pythonvalue.Value {
	m, ok := pythonvalue.MatchSignature(info.fn.Signatures[0], args, nil)
	if !ok {
		f.diagAt(f.instr, "arguments %s do not match %s%s", args, info.name(), info.fn.Signatures[0])
		f.raiseBuiltin("TypeError")
		return pythonvalue.Unsolvable{}
	}
	params := make([]pythonvalue.Value, 0, len(info.code.ArgNames()))
	for j := range info.code.Params {
		v := m.Bound[j]
		if !m.Passed[j] {
			v = info.defaultFor(j)
			if v == nil {
				v = pythonvalue.Unsolvable{}
			}
		}
		params = append(params, v)
	}
	if info.code.Vararg != "" {
		params = append(params, instance(f.a.tuple, pythonvalue.Unite(m.Varargs...)))
	}
	if info.code.Kwarg != "" {
		var vs []pythonvalue.Value
		for _, kw := range m.Kwargs {
			vs = append(vs, kw.Value)
		}
		params = append(params, instance(f.a.dict, instance(f.a.str), pythonvalue.Unite(vs...)))
	}

	ret, raises := f.a.invoke(f.ctx, info, params)
	f.raise(raises)
	return ret
}

// invoke simulates a function for one assignment of parameter values, through
// the call cache. A recursive call to a combination that is still being
// simulated returns what is known so far; the outer simulation is then repeated
// until its result no longer changes.
func (a *Analyzer) invoke(ctx kitectx.CallContext, info *funcInfo, params []pythonvalue.Value) (ret, raises pythonvalue.Value) {
	if rec, ok := a.calls.lookup(info, params); ok {
		if rec.running {
			a.calls.reenter(rec)
		}
		return rec.ret, rec.raises
	}
	if info.failed {
		return pythonvalue.Unsolvable{}, nil
	}
	if ctx.AtCallLimit() {
		info.diags.add("call depth limit of %d reached", a.opts.MaxCallDepth)
		return pythonvalue.Unsolvable{}, nil
	}

	rec := a.calls.start(info, params)
	defer func() {
		if r := recover(); r != nil {
			if kitectx.IsAbort(r) {
				panic(r)
			}
			rollbar.PanicRecovery(r, info.fn.Name)
			info.failed = true
			info.diags.add("internal error: %v", r)
			rec.running = false
			rec.ret = pythonvalue.Unsolvable{}
			rec.raises = nil
			ret, raises = rec.ret, rec.raises
		}
	}()

	for iter := 1; ; iter++ {
		if iter > 1 {
			a.calls.evictPartial(rec)
		}
		rec.reentered = false
		r, e := a.runFunction(ctx.Call(), info, params)
		r = pythonvalue.Unite(rec.ret, r)
		e = pythonvalue.Unite(rec.raises, e)
		changed := !pythonvalue.Equal(r, rec.ret) || !pythonvalue.Equal(e, rec.raises)
		rec.ret, rec.raises = r, e
		if !rec.reentered || !changed {
			break
		}
		if iter >= a.opts.MaxLoopIterations {
			info.diags.add("recursion did not converge after %d iterations", a.opts.MaxLoopIterations)
			break
		}
	}
	rec.running = false
	return rec.ret, rec.raises
}

// runFunction simulates the body of a function once
func (a *Analyzer) runFunction(ctx kitectx.CallContext, info *funcInfo, params []pythonvalue.Value) (ret, raises pythonvalue.Value) {
	g, err := a.cfg(info.code)
	if err != nil {
		panic(fmt.Sprintf("code of %s was not validated: %v", info.fn.Name, err))
	}
	state := pythonbinding.NewState()
	origin := paramOrigin(info.code)
	for j, name := range info.code.ArgNames() {
		state.Locals[name] = pythonbinding.NewVariable(origin, params[j])
	}
	fr := newFrame(a, ctx, functionFrame, g, info)
	fr.run(state)
	return fr.ret.Type(), fr.raises.Type()
}
