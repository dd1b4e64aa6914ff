package pythoninfer

import (
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonbinding"
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonir"
	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonvalue"
	"github.com/kiteco/typeinfer/kite-golib/kitectx"
)

// frameKind distinguishes how names are resolved in a frame
type frameKind int

const (
	moduleFrame frameKind = iota
	functionFrame
	classFrame
)

// frame simulates one code object for one set of initial bindings, iterating
// over its basic blocks until the entry state of every block is stable
type frame struct {
	a    *Analyzer
	ctx  kitectx.CallContext
	kind frameKind
	code *pythonir.Code
	cfg  *pythonir.CFG
	// info is the function being simulated; nil for module and class bodies
	info *funcInfo

	entry   []*pythonbinding.State
	visits  []int
	pending []bool
	// setupDepth is the stack depth when each SETUP_* instruction ran
	setupDepth map[int]int

	ret    *pythonbinding.Variable
	raises *pythonbinding.Variable
	// locals united over every return point, kept for class bodies
	exitLocals map[string]*pythonbinding.Variable

	// the instruction being simulated and the exceptions it raised
	instr  int
	raised []pythonbinding.Binding
}

func newFrame(a *Analyzer, ctx kitectx.CallContext, kind frameKind, g *pythonir.CFG, info *funcInfo) *frame {
	return &frame{
		a:          a,
		ctx:        ctx,
		kind:       kind,
		code:       g.Code,
		cfg:        g,
		info:       info,
		entry:      make([]*pythonbinding.State, len(g.Blocks)),
		visits:     make([]int, len(g.Blocks)),
		pending:    make([]bool, len(g.Blocks)),
		setupDepth: make(map[int]int),
		exitLocals: make(map[string]*pythonbinding.Variable),
	}
}

// run simulates the code starting from the given state
func (f *frame) run(initial *pythonbinding.State) {
	f.entry[0] = initial
	f.pending[0] = true
	for {
		b, ok := f.next()
		if !ok {
			return
		}
		f.ctx.CheckAbort()
		f.runBlock(f.cfg.Blocks[b], f.entry[b].Clone())
	}
}

// next pops the pending block with the lowest index
func (f *frame) next() (int, bool) {
	for i, p := range f.pending {
		if p {
			f.pending[i] = false
			return i, true
		}
	}
	return 0, false
}

func (f *frame) runBlock(b *pythonir.Block, state *pythonbinding.State) {
	for i := b.Start; i < b.End; i++ {
		instr := f.code.Instrs[i]
		var before *pythonbinding.State
		if instr.Op.MayRaise() {
			before = state.Clone()
		}
		f.instr = i
		f.raised = nil

		live := f.step(i, instr, state)

		if before != nil {
			f.propagateRaise(i, instr, before)
		}
		if !live {
			return
		}
	}
	if b.End < len(f.code.Instrs) {
		f.flowTo(b.End, state)
	}
}

// origin is the origin of values produced by the current instruction
func (f *frame) origin() pythonbinding.Origin {
	return pythonbinding.Origin{Unit: unitName(f.code), Instr: f.instr}
}

// raise records exceptions raised by the current instruction
func (f *frame) raise(values ...pythonvalue.Value) {
	for _, v := range values {
		for _, d := range pythonvalue.Disjuncts(v) {
			f.raised = append(f.raised, pythonbinding.Binding{Value: d, Origin: f.origin()})
		}
	}
}

// reraise records exception bindings that keep their original origin
func (f *frame) reraise(bs []pythonbinding.Binding) {
	f.raised = append(f.raised, bs...)
}

// propagateRaise sends the exceptions raised at instruction i to the innermost
// handler, or records them as escaping the frame
func (f *frame) propagateRaise(i int, instr pythonir.Instr, before *pythonbinding.State) {
	raised := f.raised
	if len(raised) == 0 && instr.Op != pythonir.RaiseVarargs && instr.Op != pythonir.EndFinally {
		raised = []pythonbinding.Binding{{
			Value:  instance(f.a.exception),
			Origin: pythonbinding.Origin{Unit: unitName(f.code), Instr: pythonbinding.ImplicitInstr},
		}}
	}
	if len(raised) == 0 {
		return
	}
	vars := make([]*pythonbinding.Variable, len(raised))
	for j, b := range raised {
		vars[j] = pythonbinding.NewVariable(b.Origin, b.Value)
	}
	exc := pythonbinding.Union(vars...)

	region, ok := f.cfg.Handler(i)
	if !ok {
		escaping := exc.Filter(func(b pythonbinding.Binding) bool {
			return b.Origin.Instr != pythonbinding.ImplicitInstr
		})
		if !escaping.Empty() {
			f.raises = pythonbinding.Union(f.raises, escaping)
		}
		return
	}

	state := before
	depth, ok := f.setupDepth[region.Setup]
	if !ok {
		depth = len(state.Stack)
	}
	state.Truncate(depth)
	state.Push(exc)
	f.flowTo(region.Target, state)
}

// flowTo merges state into the entry state of the block starting at instruction target
func (f *frame) flowTo(target int, state *pythonbinding.State) {
	b := f.cfg.BlockOf(target)
	if f.entry[b.Index] == nil {
		f.entry[b.Index] = state.Clone()
		f.pending[b.Index] = true
		return
	}

	entry := f.entry[b.Index]
	var prev *pythonbinding.State
	if b.LoopHeader {
		prev = entry.Clone()
	}
	changed, err := entry.Merge(state)
	if err != nil {
		f.diag("block at instruction %d: %v", b.Start, err)
		return
	}
	if !changed {
		return
	}
	if b.LoopHeader {
		f.visits[b.Index]++
		if f.visits[b.Index] > f.a.opts.MaxLoopIterations {
			entry.Widen(prev, pythonbinding.Origin{Unit: unitName(f.code), Instr: pythonbinding.WidenInstr})
			f.diagAt(b.Start, "loop did not converge after %d iterations, widened", f.a.opts.MaxLoopIterations)
			if entry.Equal(prev) {
				return
			}
		}
	}
	f.pending[b.Index] = true
}

// diag attaches a diagnostic to the function being simulated, or to the module
func (f *frame) diag(format string, args ...interface{}) {
	if f.info != nil {
		f.info.diags.add(format, args...)
		return
	}
	f.a.diags.add(format, args...)
}

// diagAt prefixes a diagnostic with the source line of instruction i, if known
func (f *frame) diagAt(i int, format string, args ...interface{}) {
	if line := f.code.Instrs[i].Line; line > 0 {
		args = append([]interface{}{line}, args...)
		f.diag("line %d: "+format, args...)
		return
	}
	f.diag(format, args...)
}

// returned records a value reaching RETURN_VALUE
func (f *frame) returned(v *pythonbinding.Variable, state *pythonbinding.State) {
	f.ret = pythonbinding.Union(f.ret, v)
	if f.kind == classFrame {
		for name, v := range state.Locals {
			f.exitLocals[name] = pythonbinding.Union(f.exitLocals[name], v)
		}
	}
}
