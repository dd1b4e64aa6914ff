package pythoninfer

import (
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonsolve"
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonvalue"
)

// evaluator recomputes derived unknowns for the solver once their parents are
// solved. It never simulates code: interpreted functions are only evaluated
// through calls that were already simulated.
type evaluator struct {
	a *Analyzer
}

// Evaluate implements pythonsolve.Evaluator
func (e evaluator) Evaluate(d pythonsolve.Derivation, parent pythonvalue.Value) (pythonvalue.Value, bool) {
	var out []pythonvalue.Value
	for _, p := range pythonvalue.Disjuncts(parent) {
		var v pythonvalue.Value
		var ok bool
		switch d.Kind {
		case pythonsolve.AttrOf:
			v, ok = e.a.lookupAttr(p, d.Attr)
		case pythonsolve.CallOf:
			v, ok = e.call(p, d.Args)
		case pythonsolve.OperatorOf:
			var attr pythonvalue.Value
			attr, ok = e.a.lookupAttr(p, d.Op)
			if ok {
				args := pythonvalue.Args{}
				if d.Other != nil {
					args.Positional = []pythonvalue.Value{d.Other}
				}
				v, ok = e.call(attr, args)
			}
		}
		if ok {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return pythonvalue.Unite(out...), true
}

func (e evaluator) call(callee pythonvalue.Value, args pythonvalue.Args) (pythonvalue.Value, bool) {
	switch c := callee.(type) {
	case *pythonvalue.Function:
		if c.Interpretable() {
			return e.interpreted(c, args)
		}
		return e.library(c, args, make(pythonvalue.Subst))
	case pythonvalue.BoundMethod:
		args = args.Prepend(c.Self)
		if c.Func.Interpretable() {
			return e.interpreted(c.Func, args)
		}
		return e.library(c.Func, args, pythonvalue.ReceiverSubst(c.Func, c.Self))
	case *pythonvalue.Class:
		if c == e.a.typ && len(args.Positional) == 1 {
			return e.a.classOf(args.Positional[0]), true
		}
		if c.Source || !c.Generic() {
			return instance(c), true
		}
		return nil, false
	case pythonvalue.Instance:
		if attr, ok := e.a.lookupAttr(c, "__call__"); ok {
			return e.call(attr, args)
		}
	case pythonvalue.Unsolvable:
		return pythonvalue.Unsolvable{}, true
	}
	return nil, false
}

func (e evaluator) library(fn *pythonvalue.Function, args pythonvalue.Args, subst pythonvalue.Subst) (pythonvalue.Value, bool) {
	matches := e.a.matchLibrary(fn, args, subst)
	if len(matches) == 0 {
		return nil, false
	}
	return matches[0].Return(), true
}

// interpreted looks up a finished call record for the arguments
func (e evaluator) interpreted(fn *pythonvalue.Function, args pythonvalue.Args) (pythonvalue.Value, bool) {
	info, ok := e.a.funcs[fn.Code]
	if !ok {
		return nil, false
	}
	m, ok := pythonvalue.MatchSignature(fn.Signatures[0], args, nil)
	if !ok || len(m.Varargs) > 0 || len(m.Kwargs) > 0 || info.code.Vararg != "" || info.code.Kwarg != "" {
		return nil, false
	}
	params := make([]pythonvalue.Value, len(info.code.Params))
	for j := range params {
		params[j] = m.Bound[j]
		if !m.Passed[j] {
			params[j] = info.defaultFor(j)
		}
	}
	rec, ok := e.a.calls.lookup(info, params)
	if !ok || rec.running {
		return nil, false
	}
	return rec.ret, rec.ret != nil
}
