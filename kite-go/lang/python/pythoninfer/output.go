package pythoninfer

import (
	"sort"
	"strings"

	"github.com/kiteco/typeinfer/kite-go/lang/python/pythondecl"
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonsolve"
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonvalue"
)

// declarations builds the declaration tree of the module from the call records,
// globals and classes, with solved unknowns substituted
func (a *Analyzer) declarations(sol pythonsolve.Solution) *pythondecl.Module {
	out := &pythondecl.Module{
		Name:        a.mod.Name,
		Diagnostics: append([]string(nil), a.diags.msgs...),
	}

	for _, info := range a.funcOrder {
		if info.parent == a.mod.Code && info.owner == nil && !info.classBody {
			out.Functions = append(out.Functions, a.functionDecl(info, sol))
		}
	}

	for _, ci := range a.classOrder {
		if ci.parent == a.mod.Code {
			out.Classes = append(out.Classes, a.classDecl(ci, sol))
		}
	}

	for _, name := range sortedValueNames(a.globals) {
		v := sol.Apply(a.globals[name])
		if hidden(name) || definition(v) {
			continue
		}
		out.Constants = append(out.Constants, &pythondecl.Constant{Name: name, Type: a.toType(v)})
	}

	out.Sort()
	return out
}

// hidden names are not declared
func hidden(name string) bool {
	return strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__")
}

// definition is true for values declared by other means than a constant:
// functions, classes and imported modules
func definition(v pythonvalue.Value) bool {
	for _, d := range pythonvalue.Disjuncts(v) {
		switch d.(type) {
		case *pythonvalue.Function, *pythonvalue.Class, *pythonvalue.Module:
			return true
		}
	}
	return false
}

func (a *Analyzer) functionDecl(info *funcInfo, sol pythonsolve.Solution) *pythondecl.Function {
	fd := &pythondecl.Function{
		Name:        info.name(),
		Diagnostics: append([]string(nil), info.diags.msgs...),
	}
	records := a.calls.recordsOf(info)
	if len(records) == 0 && !info.failed {
		fd.Diagnostics = append(fd.Diagnostics, "not analyzed: never called from the module's top level")
	}
	typed := len(records) > 0 && !info.failed

	sig := info.fn.Signatures[0]
	for j, name := range info.code.ArgNames() {
		p := &pythondecl.Param{Name: name}
		switch {
		case j < len(info.code.Params):
			p.HasDefault = sig.Params[j].HasDefault
		case name == info.code.Vararg:
			p.Kind = pythondecl.Varargs
		default:
			p.Kind = pythondecl.Kwargs
		}
		receiver := j == 0 && info.owner != nil
		if typed && p.Kind == pythondecl.Positional && !receiver {
			var vs []pythonvalue.Value
			for _, r := range records {
				vs = append(vs, sol.Apply(r.params[j]))
			}
			t := a.toType(pythonvalue.Unite(vs...))
			if _, any := t.(pythondecl.Anything); !any {
				p.Type = t
			}
		}
		fd.Params = append(fd.Params, p)
	}

	if !typed {
		fd.Return = pythondecl.Anything{}
		return fd
	}
	var rets, raises []pythonvalue.Value
	for _, r := range records {
		rets = append(rets, sol.Apply(r.ret))
		raises = append(raises, sol.Apply(r.raises))
	}
	fd.Return = a.toType(pythonvalue.Unite(rets...))

	seen := make(map[string]bool)
	for _, e := range pythonvalue.Disjuncts(pythonvalue.Unite(raises...)) {
		t := a.toType(e)
		if !seen[t.String()] {
			seen[t.String()] = true
			fd.Raises = append(fd.Raises, t)
		}
	}
	return fd
}

func (a *Analyzer) classDecl(ci *classInfo, sol pythonsolve.Solution) *pythondecl.Class {
	cd := &pythondecl.Class{Name: ci.cls.Name}
	for _, b := range ci.cls.Bases {
		cd.Bases = append(cd.Bases, pythondecl.Named{Name: b.DisplayName()})
	}

	attrs := make(map[string]pythonvalue.Value)
	for name, v := range ci.cls.Members {
		if fn, ok := v.(*pythonvalue.Function); ok && fn.Interpretable() {
			if info, ok := a.funcs[fn.Code]; ok && info.owner == ci.cls {
				cd.Methods = append(cd.Methods, a.functionDecl(info, sol))
				continue
			}
		}
		if !hidden(name) {
			attrs[name] = v
		}
	}
	for name, v := range a.instAttrs[ci.cls] {
		attrs[name] = pythonvalue.Unite(attrs[name], v)
	}
	for _, name := range sortedValueNames(attrs) {
		cd.Attrs = append(cd.Attrs, &pythondecl.Constant{Name: name, Type: a.toType(sol.Apply(attrs[name]))})
	}
	return cd
}

// toType converts a value to a declared type. Instances of the same class in a
// union are merged parameter by parameter.
func (a *Analyzer) toType(v pythonvalue.Value) pythondecl.Type {
	switch v := v.(type) {
	case nil:
		return pythondecl.Nothing{}
	case pythonvalue.Union:
		var order []*pythonvalue.Class
		merged := make(map[*pythonvalue.Class]pythonvalue.Instance)
		var types []pythondecl.Type
		for _, m := range v.Members {
			inst, ok := m.(pythonvalue.Instance)
			if !ok {
				types = append(types, a.toType(m))
				continue
			}
			prev, seen := merged[inst.Class]
			if !seen {
				order = append(order, inst.Class)
				merged[inst.Class] = inst
				continue
			}
			n := len(inst.Params)
			if len(prev.Params) > n {
				n = len(prev.Params)
			}
			params := make([]pythonvalue.Value, n)
			for i := range params {
				params[i] = pythonvalue.Unite(prev.Param(i), inst.Param(i))
			}
			merged[inst.Class] = pythonvalue.Instance{Class: inst.Class, Params: params}
		}
		for _, c := range order {
			types = append(types, a.toType(merged[c]))
		}
		return pythondecl.NewUnion(types...)
	case pythonvalue.Instance:
		t := pythondecl.Named{Name: v.Class.DisplayName()}
		for _, p := range v.Params {
			t.Params = append(t.Params, a.toType(p))
		}
		return t
	case pythonvalue.Unknown:
		return pythondecl.Unknown{Name: v.String()}
	case *pythonvalue.Class:
		return pythondecl.Named{Name: "type"}
	case *pythonvalue.Function, pythonvalue.BoundMethod:
		return pythondecl.Named{Name: "function"}
	case *pythonvalue.Module:
		return pythondecl.Named{Name: "module"}
	}
	return pythondecl.Anything{}
}

func sortedValueNames(m map[string]pythonvalue.Value) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
