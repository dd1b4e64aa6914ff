// Package pythoninfer infers the types of the functions, classes and variables
// of a module by abstractly interpreting its code. Calls are simulated for each
// combination of argument types; values the simulation cannot determine become
// unknowns that are resolved afterwards from the way they were used.
package pythoninfer

import (
	"time"

	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonbinding"
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythoncatalog"
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythondecl"
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonir"
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonsolve"
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonvalue"
	"github.com/kiteco/typeinfer/kite-golib/errors"
	"github.com/kiteco/typeinfer/kite-golib/kitectx"
	"github.com/kiteco/typeinfer/kite-golib/kitelog"
	"github.com/kiteco/typeinfer/kite-golib/rollbar"
)

// Infer computes the declarations of a module. Malformed code is reported as an
// error wrapping pythonir.ErrMalformed; every other problem is attached to the
// affected declaration as a diagnostic. If ctx expires, Infer aborts through
// ctx like any other kitectx computation.
func Infer(ctx kitectx.Context, mod *pythonir.Module, cat pythoncatalog.Catalog, opts Options) (*pythondecl.Module, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if mod == nil {
		return nil, errors.Errorf("nil module")
	}
	if err := pythonir.Validate(mod.Code); err != nil {
		return nil, errors.Wrapf(err, "module %s", mod.Name)
	}

	a, err := newAnalyzer(mod, cat, opts)
	if err != nil {
		return nil, err
	}

	logger := ctx.Logger
	if logger == nil {
		logger = kitelog.Discard
	}
	if opts.Verbose {
		logger = logger.WithDurations()
	}
	phase := func(name string, start time.Time) {
		if opts.Verbose {
			logger.Durations.Since(name, start)
		}
	}

	start := time.Now()
	rounds := a.interpret(ctx)
	phase("interpret", start)

	a.store.Seal()
	var sol pythonsolve.Solution
	if opts.SolveUnknowns {
		start = time.Now()
		solver := pythonsolve.NewSolver(cat, a.store, evaluator{a}, a.sourceClasses())
		sol = solver.Solve(a.allUnknowns())
		phase("solve", start)
	}

	start = time.Now()
	out := a.declarations(sol)
	phase("declarations", start)

	if opts.Verbose {
		logger.Printf("%s: %d rounds, %d functions, %d classes, %d unknowns, %d call records",
			mod.Name, rounds, len(a.funcOrder), len(a.classOrder), len(a.unknowns), len(a.calls.records))
		logger.Durations.Flush(logger)
	}
	return out, nil
}

// interpret simulates the module until module globals and instance attributes
// stop growing, returning the number of rounds
func (a *Analyzer) interpret(ctx kitectx.Context) int {
	var rounds int
	a.callContext(ctx, func(cctx kitectx.CallContext) {
		for rounds = 1; ; rounds++ {
			version := a.version
			a.calls = newCallCache()
			a.diags = diagnostics{}
			for _, info := range a.funcOrder {
				// a failed function is not simulated again, so it keeps its diagnostics
				if !info.failed {
					info.diags = diagnostics{}
				}
			}
			a.runModule(cctx)
			if a.opts.Mode == Deep {
				a.runUncalled(cctx)
			}
			if a.version == version {
				return
			}
			if rounds >= a.opts.MaxLoopIterations {
				a.diags.add("module globals did not converge after %d rounds", rounds)
				return
			}
		}
	})
	return rounds
}

// runModule simulates the module's top level code
func (a *Analyzer) runModule(ctx kitectx.CallContext) {
	defer func() {
		if r := recover(); r != nil {
			if kitectx.IsAbort(r) {
				panic(r)
			}
			rollbar.PanicRecovery(r, a.mod.Name)
			a.diags.add("internal error: %v", r)
			a.calls.abandon()
		}
	}()

	g, err := a.cfg(a.mod.Code)
	if err != nil {
		a.diags.add("%v", err)
		return
	}
	newFrame(a, ctx, moduleFrame, g, nil).run(pythonbinding.NewState())
}

// runUncalled simulates every function that was not reached from the top level,
// with unknown parameters. Methods get an instance of their class as receiver.
// Functions defined while doing so are visited too.
func (a *Analyzer) runUncalled(ctx kitectx.CallContext) {
	for i := 0; i < len(a.funcOrder); i++ {
		info := a.funcOrder[i]
		if info.classBody || info.failed || a.calls.called(info) {
			continue
		}
		a.invoke(ctx, info, a.entryParams(info))
	}
}

// entryParams are the parameter values a function is simulated with when it is
// never called
func (a *Analyzer) entryParams(info *funcInfo) []pythonvalue.Value {
	var params []pythonvalue.Value
	for j, name := range info.code.ArgNames() {
		if j == 0 && info.owner != nil && len(info.code.Params) > 0 {
			params = append(params, instance(info.owner))
			continue
		}
		u := a.unknownAt(siteKey{code: info.code, instr: pythonbinding.ParamInstr, what: "param:" + name})
		switch name {
		case info.code.Vararg:
			params = append(params, instance(a.tuple, u))
		case info.code.Kwarg:
			params = append(params, instance(a.dict, instance(a.str), u))
		default:
			params = append(params, u)
		}
	}
	return params
}
