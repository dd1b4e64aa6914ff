package pythoninfer

import (
	"strings"

	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonbinding"
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonir"
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonsolve"
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonvalue"
)

// special methods implementing binary operators
var binaryMethods = map[string]string{
	"+":  "__add__",
	"-":  "__sub__",
	"*":  "__mul__",
	"/":  "__truediv__",
	"//": "__floordiv__",
	"%":  "__mod__",
	"**": "__pow__",
	"<<": "__lshift__",
	">>": "__rshift__",
	"&":  "__and__",
	"|":  "__or__",
	"^":  "__xor__",
	"@":  "__matmul__",
}

var unaryMethods = map[string]string{
	"-": "__neg__",
	"+": "__pos__",
	"~": "__invert__",
}

// reflected returns the name of the reflected operand method, e.g. __radd__ for __add__
func reflected(method string) string {
	return "__r" + strings.TrimPrefix(method, "__")
}

// step simulates instruction i on state. It returns false when control does not
// fall through to the next instruction, either because the instruction
// transferred control itself or because the path turned out to be unreachable.
func (f *frame) step(i int, instr pythonir.Instr, s *pythonbinding.State) bool {
	switch instr.Op {
	case pythonir.Nop, pythonir.PopBlock:
		return true

	case pythonir.PopTop:
		_, ok := f.pop(s)
		return ok

	case pythonir.RotTwo:
		vs, ok := f.popN(s, 2)
		if !ok {
			return false
		}
		s.Push(vs[1])
		s.Push(vs[0])
		return true

	case pythonir.DupTop:
		v, ok := s.Top()
		if !ok {
			return f.underflow()
		}
		s.Push(v)
		return true

	case pythonir.LoadConst:
		return f.push(s, f.a.constValue(f.code.Consts[instr.Arg], f.code))

	case pythonir.LoadFast:
		v, ok := s.Locals[instr.Name]
		if !ok || v.Empty() {
			f.diagAt(i, "local variable %s referenced before assignment", instr.Name)
			return false
		}
		s.Push(v)
		return true

	case pythonir.StoreFast:
		v, ok := f.pop(s)
		if !ok {
			return false
		}
		s.Locals[instr.Name] = v
		return true

	case pythonir.DeleteFast:
		delete(s.Locals, instr.Name)
		return true

	case pythonir.LoadName, pythonir.LoadGlobal:
		return f.loadName(instr, s)

	case pythonir.StoreName, pythonir.StoreGlobal:
		v, ok := f.pop(s)
		if !ok {
			return false
		}
		if instr.Op == pythonir.StoreName || f.kind == moduleFrame {
			s.Locals[instr.Name] = v
		}
		if f.kind == moduleFrame || instr.Op == pythonir.StoreGlobal {
			f.a.setGlobal(instr.Name, v.Type())
		}
		return true

	case pythonir.LoadAttr:
		obj, ok := f.pop(s)
		if !ok {
			return false
		}
		var results []pythonvalue.Value
		for _, v := range obj.Values() {
			results = append(results, f.loadAttr(v, instr.Name))
		}
		return f.push(s, pythonvalue.Unite(results...))

	case pythonir.StoreAttr:
		vs, ok := f.popN(s, 2)
		if !ok {
			return false
		}
		value, obj := vs[0], vs[1]
		for _, o := range obj.Values() {
			f.storeAttr(o, instr.Name, value.Type())
		}
		return true

	case pythonir.BinaryOp, pythonir.InplaceOp:
		vs, ok := f.popN(s, 2)
		if !ok {
			return false
		}
		method, known := binaryMethods[instr.Name]
		if !known {
			f.diagAt(i, "unsupported operator %s", instr.Name)
			return f.push(s, pythonvalue.Unsolvable{})
		}
		var results []pythonvalue.Value
		for _, l := range vs[0].Values() {
			for _, r := range vs[1].Values() {
				results = append(results, f.binaryOp(instr.Name, method, l, r))
			}
		}
		return f.push(s, pythonvalue.Unite(results...))

	case pythonir.UnaryOp:
		v, ok := f.pop(s)
		if !ok {
			return false
		}
		if instr.Name == "not" {
			return f.push(s, instance(f.a.boolean))
		}
		method, known := unaryMethods[instr.Name]
		if !known {
			f.diagAt(i, "unsupported operator %s", instr.Name)
			return f.push(s, pythonvalue.Unsolvable{})
		}
		var results []pythonvalue.Value
		for _, operand := range v.Values() {
			res, ok := f.callMethod(operand, method)
			if !ok {
				f.diagAt(i, "bad operand type for unary %s: %s", instr.Name, pythonvalue.StringOf(operand))
				res = pythonvalue.Unsolvable{}
			}
			results = append(results, res)
		}
		return f.push(s, pythonvalue.Unite(results...))

	case pythonir.CompareOp:
		vs, ok := f.popN(s, 2)
		if !ok {
			return false
		}
		if instr.Name == "in" || instr.Name == "not in" {
			for _, container := range vs[1].Values() {
				if u, ok := container.(pythonvalue.Unknown); ok {
					f.a.record(u, pythonsolve.AttributeConstraint{Attr: "__contains__"})
				}
			}
		}
		return f.push(s, instance(f.a.boolean))

	case pythonir.BinarySubscr:
		vs, ok := f.popN(s, 2)
		if !ok {
			return false
		}
		var results []pythonvalue.Value
		for _, obj := range vs[0].Values() {
			for _, idx := range vs[1].Values() {
				res, ok := f.callMethod(obj, "__getitem__", idx)
				if !ok {
					f.diagAt(i, "%s is not subscriptable", pythonvalue.StringOf(obj))
					res = pythonvalue.Unsolvable{}
				}
				results = append(results, res)
			}
		}
		return f.push(s, pythonvalue.Unite(results...))

	case pythonir.StoreSubscr:
		vs, ok := f.popN(s, 3)
		if !ok {
			return false
		}
		value, obj, idx := vs[0], vs[1], vs[2]
		for _, o := range obj.Values() {
			for _, k := range idx.Values() {
				if _, ok := f.callMethod(o, "__setitem__", k, value.Type()); !ok {
					f.diagAt(i, "%s does not support item assignment", pythonvalue.StringOf(o))
				}
			}
		}
		return true

	case pythonir.BuildTuple, pythonir.BuildList, pythonir.BuildSet:
		vs, ok := f.popN(s, instr.Arg)
		if !ok {
			return false
		}
		cls := map[pythonir.Opcode]*pythonvalue.Class{
			pythonir.BuildTuple: f.a.tuple,
			pythonir.BuildList:  f.a.list,
			pythonir.BuildSet:   f.a.set,
		}[instr.Op]
		return f.push(s, instance(cls, pythonbinding.Union(vs...).Type()))

	case pythonir.BuildMap:
		vs, ok := f.popN(s, 2*instr.Arg)
		if !ok {
			return false
		}
		var keys, values []*pythonbinding.Variable
		for j := 0; j < len(vs); j += 2 {
			keys = append(keys, vs[j])
			values = append(values, vs[j+1])
		}
		return f.push(s, instance(f.a.dict, pythonbinding.Union(keys...).Type(), pythonbinding.Union(values...).Type()))

	case pythonir.CallFunction, pythonir.CallFunctionKw:
		vs, ok := f.popN(s, instr.Arg+1)
		if !ok {
			return false
		}
		return f.push(s, f.callSite(vs[0], vs[1:], instr.Names))

	case pythonir.MakeFunction:
		vs, ok := f.popN(s, instr.Arg+1)
		if !ok {
			return false
		}
		code := vs[instr.Arg]
		defaults := make([]pythonvalue.Value, instr.Arg)
		for j, d := range vs[:instr.Arg] {
			defaults[j] = d.Type()
		}
		for _, v := range code.Values() {
			fn, ok := v.(*pythonvalue.Function)
			if !ok || !fn.Interpretable() {
				continue
			}
			f.a.setDefaults(f.a.functionFor(fn.Code, f.code), defaults)
		}
		s.Push(code)
		return true

	case pythonir.BuildClass:
		vs, ok := f.popN(s, instr.Arg+1)
		if !ok {
			return false
		}
		body := vs[instr.Arg]
		var bases []*pythonvalue.Class
		for _, b := range vs[:instr.Arg] {
			for _, v := range b.Values() {
				if c, ok := v.(*pythonvalue.Class); ok {
					bases = append(bases, c)
				} else {
					f.diagAt(i, "base of class %s is not a class: %s", instr.Name, pythonvalue.StringOf(v))
				}
			}
		}
		var results []pythonvalue.Value
		for _, v := range body.Values() {
			fn, ok := v.(*pythonvalue.Function)
			if !ok || !fn.Interpretable() {
				continue
			}
			results = append(results, f.buildClass(instr.Name, fn.Code, bases))
		}
		return f.push(s, pythonvalue.Unite(results...))

	case pythonir.ImportName:
		if m, ok := f.a.cat.Module(instr.Name); ok {
			return f.push(s, m)
		}
		f.diagAt(i, "module %s not found", instr.Name)
		return f.push(s, pythonvalue.Unsolvable{})

	case pythonir.GetIter:
		v, ok := f.pop(s)
		if !ok {
			return false
		}
		var results []pythonvalue.Value
		for _, obj := range v.Values() {
			res, ok := f.callMethod(obj, "__iter__")
			if !ok {
				f.diagAt(i, "%s is not iterable", pythonvalue.StringOf(obj))
				res = pythonvalue.Unsolvable{}
			}
			results = append(results, res)
		}
		return f.push(s, pythonvalue.Unite(results...))

	case pythonir.ForIter:
		it, ok := s.Top()
		if !ok {
			return f.underflow()
		}
		exit := s.Clone()
		exit.Pop()
		f.flowTo(instr.Arg, exit)

		var results []pythonvalue.Value
		for _, v := range it.Values() {
			res, ok := f.callMethod(v, "__next__")
			if !ok {
				f.diagAt(i, "%s is not an iterator", pythonvalue.StringOf(v))
				res = pythonvalue.Unsolvable{}
			}
			results = append(results, res)
		}
		f.dropStopIteration()
		return f.push(s, pythonvalue.Unite(results...))

	case pythonir.JumpAbsolute, pythonir.JumpForward:
		f.flowTo(instr.Arg, s)
		return false

	case pythonir.PopJumpIfFalse, pythonir.PopJumpIfTrue:
		if _, ok := f.pop(s); !ok {
			return false
		}
		f.flowTo(instr.Arg, s.Clone())
		return true

	case pythonir.JumpIfFalseOrPop, pythonir.JumpIfTrueOrPop:
		f.flowTo(instr.Arg, s.Clone())
		_, ok := f.pop(s)
		return ok

	case pythonir.SetupLoop, pythonir.SetupExcept, pythonir.SetupFinally:
		f.setupDepth[i] = len(s.Stack)
		return true

	case pythonir.BreakLoop:
		region, ok := f.cfg.Loop(i)
		if !ok {
			return false
		}
		s.Truncate(f.setupDepth[region.Setup])
		f.flowTo(region.Target, s)
		return false

	case pythonir.EndFinally:
		v, ok := f.pop(s)
		if !ok {
			return false
		}
		none := v.Filter(func(b pythonbinding.Binding) bool { return f.isNone(b.Value) })
		f.reraise(v.Filter(func(b pythonbinding.Binding) bool { return !f.isNone(b.Value) }).Bindings())
		return !none.Empty()

	case pythonir.RaiseVarargs:
		if instr.Arg == 0 {
			f.raise(instance(f.a.exception))
			return false
		}
		v, ok := f.pop(s)
		if !ok {
			return false
		}
		for _, e := range v.Values() {
			f.raise(f.exceptionValue(e))
		}
		return false

	case pythonir.ReturnValue:
		v, ok := f.pop(s)
		if !ok {
			return false
		}
		f.returned(v, s)
		return false
	}

	f.diagAt(i, "unsupported instruction %s", instr.Op)
	return false
}

// push pushes v produced by the current instruction. A value of nothing means
// the instruction cannot complete, so the path ends.
func (f *frame) push(s *pythonbinding.State, v pythonvalue.Value) bool {
	if v == nil {
		return false
	}
	s.Push(pythonbinding.NewVariable(f.origin(), v))
	return true
}

func (f *frame) pop(s *pythonbinding.State) (*pythonbinding.Variable, bool) {
	v, ok := s.Pop()
	if !ok {
		return nil, f.underflow()
	}
	return v, true
}

func (f *frame) popN(s *pythonbinding.State, n int) ([]*pythonbinding.Variable, bool) {
	vs, ok := s.PopN(n)
	if !ok {
		return nil, f.underflow()
	}
	return vs, true
}

func (f *frame) underflow() bool {
	f.diagAt(f.instr, "value stack underflow at %s", f.code.Instrs[f.instr].Op)
	return false
}

// constValue is the abstract value of a constant of the code object parent
func (a *Analyzer) constValue(c pythonir.Const, parent *pythonir.Code) pythonvalue.Value {
	switch c.Kind {
	case pythonir.NoneConst:
		return instance(a.noneType)
	case pythonir.BoolConst:
		return instance(a.boolean)
	case pythonir.IntConst:
		return instance(a.integer)
	case pythonir.FloatConst:
		return instance(a.float)
	case pythonir.ComplexConst:
		return instance(a.complex)
	case pythonir.StrConst:
		return instance(a.str)
	case pythonir.BytesConst:
		return instance(a.bytes)
	case pythonir.TupleConst:
		elts := make([]pythonvalue.Value, len(c.Elts))
		for i, e := range c.Elts {
			elts[i] = a.constValue(e, parent)
		}
		return instance(a.tuple, pythonvalue.Unite(elts...))
	case pythonir.CodeConst:
		return a.functionFor(c.Code, parent).fn
	}
	return pythonvalue.Unsolvable{}
}

// loadName resolves LOAD_NAME and LOAD_GLOBAL: frame locals where they are
// visible, then module globals, then builtins
func (f *frame) loadName(instr pythonir.Instr, s *pythonbinding.State) bool {
	name := instr.Name
	if instr.Op == pythonir.LoadName || f.kind == moduleFrame {
		if v, ok := s.Locals[name]; ok && !v.Empty() {
			s.Push(v)
			return true
		}
	}
	if v, ok := f.a.globals[name]; ok {
		return f.push(s, v)
	}
	if v, ok := f.a.cat.Builtin(name); ok {
		return f.push(s, v)
	}
	f.diagAt(f.instr, "name %s is not defined", name)
	return f.push(s, pythonvalue.Unsolvable{})
}

// lookupAttr looks up an attribute without recording anything, preferring
// attributes assigned to instances of analyzed classes over class attributes
func (a *Analyzer) lookupAttr(v pythonvalue.Value, name string) (pythonvalue.Value, bool) {
	if inst, ok := v.(pythonvalue.Instance); ok {
		if attr, ok := a.instAttr(inst.Class, name); ok {
			return attr, true
		}
	}
	if attr, ok := pythonvalue.LookupAttr(v, name); ok {
		return attr, true
	}
	if inst, ok := a.typeOf(v); ok {
		return pythonvalue.LookupAttr(inst, name)
	}
	return nil, false
}

// loadAttr is the value of attribute name of v
func (f *frame) loadAttr(v pythonvalue.Value, name string) pythonvalue.Value {
	if u, ok := v.(pythonvalue.Unknown); ok {
		f.a.record(u, pythonsolve.AttributeConstraint{Attr: name})
		return f.a.derived(f.code, f.instr, pythonsolve.Derivation{Kind: pythonsolve.AttrOf, Parent: u, Attr: name})
	}
	attr, ok := f.a.lookupAttr(v, name)
	if !ok {
		f.diagAt(f.instr, "%s has no attribute %s", pythonvalue.StringOf(v), name)
		f.raiseBuiltin("AttributeError")
		return pythonvalue.Unsolvable{}
	}
	return attr
}

// storeAttr records an attribute assignment on v
func (f *frame) storeAttr(v pythonvalue.Value, name string, value pythonvalue.Value) {
	switch v := v.(type) {
	case pythonvalue.Unknown:
		f.a.record(v, pythonsolve.AttributeConstraint{Attr: name})
	case pythonvalue.Instance:
		if v.Class.Source {
			f.a.setInstAttr(v.Class, name, value)
		}
	case *pythonvalue.Class:
		if v.Source {
			f.a.setClassAttr(v, name, value)
		}
	}
}

// binaryOp applies the operator method to a left and right operand, falling back
// to the reflected method of the right operand
func (f *frame) binaryOp(op, method string, l, r pythonvalue.Value) pythonvalue.Value {
	if res, ok := f.callMethod(l, method, r); ok {
		return res
	}
	if _, unknown := r.(pythonvalue.Unknown); !unknown {
		if res, ok := f.callMethod(r, reflected(method), l); ok {
			return res
		}
	}
	f.diagAt(f.instr, "unsupported operand types for %s: %s and %s", op, pythonvalue.StringOf(l), pythonvalue.StringOf(r))
	f.raiseBuiltin("TypeError")
	return pythonvalue.Unsolvable{}
}

// callMethod invokes a special method on recv. On an unknown receiver it
// records the operation and returns a derived unknown. ok is false when recv
// has no such method or the method does not accept args.
func (f *frame) callMethod(recv pythonvalue.Value, method string, args ...pythonvalue.Value) (pythonvalue.Value, bool) {
	switch recv := recv.(type) {
	case pythonvalue.Unknown:
		var other pythonvalue.Value
		if len(args) > 0 {
			other = args[0]
		}
		f.a.record(recv, pythonsolve.OperatorConstraint{Op: method, Other: other})
		return f.a.derived(f.code, f.instr, pythonsolve.Derivation{
			Kind:   pythonsolve.OperatorOf,
			Parent: recv,
			Op:     method,
			Other:  other,
		}), true
	case pythonvalue.Unsolvable:
		return pythonvalue.Unsolvable{}, true
	}

	attr, ok := f.a.lookupAttr(recv, method)
	if !ok {
		return nil, false
	}
	callArgs := pythonvalue.Args{Positional: args}
	if fn, ok := attr.(pythonvalue.BoundMethod); ok && !fn.Func.Interpretable() {
		if len(f.a.matchLibrary(fn.Func, callArgs.Prepend(fn.Self), pythonvalue.ReceiverSubst(fn.Func, fn.Self))) == 0 {
			return nil, false
		}
	}
	return f.call(attr, callArgs), true
}

// exceptionValue is the exception raised by RAISE_VARARGS for v
func (f *frame) exceptionValue(v pythonvalue.Value) pythonvalue.Value {
	if c, ok := v.(*pythonvalue.Class); ok {
		return f.instantiate(c, pythonvalue.Args{})
	}
	return v
}

// raiseBuiltin raises an instance of a builtin exception class
func (f *frame) raiseBuiltin(name string) {
	if v, ok := f.a.cat.Builtin(name); ok {
		if c, ok := v.(*pythonvalue.Class); ok {
			f.raise(instance(c))
		}
	}
}

// dropStopIteration discards StopIteration raised by FOR_ITER, which ends the loop instead
func (f *frame) dropStopIteration() {
	var kept []pythonbinding.Binding
	for _, b := range f.raised {
		if inst, ok := b.Value.(pythonvalue.Instance); ok && inst.Class.Name == "StopIteration" && inst.Class.Module == "builtins" {
			continue
		}
		kept = append(kept, b)
	}
	f.raised = kept
}

func (f *frame) isNone(v pythonvalue.Value) bool {
	inst, ok := v.(pythonvalue.Instance)
	return ok && inst.Class == f.a.noneType
}
