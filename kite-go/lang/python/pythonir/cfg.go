package pythonir

import (
	"fmt"
	"sort"
	"strings"
)

// Block is a maximal straight-line run of instructions [Start, End)
type Block struct {
	Index int
	Start int
	End   int
	// Succs are the blocks reached by normal control flow, in ascending order
	Succs []int
	// Preds are the blocks with a normal edge into this block, in ascending order
	Preds []int
	// Handlers are the blocks reached when an instruction in this block raises
	Handlers []int
	// LoopHeader is true when some edge into this block jumps backwards
	LoopHeader bool
}

// Last returns the index of the final instruction of the block
func (b *Block) Last() int {
	return b.End - 1
}

// CFG is the control-flow graph of a single code object
type CFG struct {
	Code    *Code
	Blocks  []*Block
	blockOf []int
	regions *regionIndex
}

// BuildCFG validates code and splits it into basic blocks. Nested code objects
// are validated too, but each gets its own CFG when it is simulated.
func BuildCFG(code *Code) (*CFG, error) {
	if err := Validate(code); err != nil {
		return nil, err
	}
	regions, err := scanRegions(code)
	if err != nil {
		return nil, err
	}

	n := len(code.Instrs)
	leader := make([]bool, n)
	leader[0] = true
	for i, instr := range code.Instrs {
		if instr.Op.HasTarget() {
			leader[instr.Arg] = true
		}
		if instr.Op.EndsBlock() && i+1 < n {
			leader[i+1] = true
		}
	}

	g := &CFG{
		Code:    code,
		blockOf: make([]int, n),
		regions: newRegionIndex(regions),
	}
	for i := 0; i < n; i++ {
		if leader[i] {
			g.Blocks = append(g.Blocks, &Block{Index: len(g.Blocks), Start: i})
		}
		b := g.Blocks[len(g.Blocks)-1]
		b.End = i + 1
		g.blockOf[i] = b.Index
	}

	for _, b := range g.Blocks {
		last := code.Instrs[b.Last()]
		var succs []int
		next := func() {
			if b.End < n {
				succs = append(succs, g.blockOf[b.End])
			}
		}
		switch last.Op {
		case JumpAbsolute, JumpForward:
			succs = append(succs, g.blockOf[last.Arg])
		case PopJumpIfFalse, PopJumpIfTrue, JumpIfFalseOrPop, JumpIfTrueOrPop, ForIter:
			next()
			succs = append(succs, g.blockOf[last.Arg])
		case ReturnValue, RaiseVarargs:
		case BreakLoop:
			if r, ok := g.Loop(b.Last()); ok {
				succs = append(succs, g.blockOf[r.Target])
			}
		default:
			next()
		}
		b.Succs = dedupeInts(succs)

		var handlers []int
		for i := b.Start; i < b.End; i++ {
			if !code.Instrs[i].Op.MayRaise() {
				continue
			}
			if r, ok := g.Handler(i); ok {
				handlers = append(handlers, g.blockOf[r.Target])
			}
		}
		b.Handlers = dedupeInts(handlers)
	}

	for _, b := range g.Blocks {
		for _, s := range b.Succs {
			succ := g.Blocks[s]
			succ.Preds = append(succ.Preds, b.Index)
			if succ.Start <= b.Start {
				succ.LoopHeader = true
			}
		}
	}
	return g, nil
}

func dedupeInts(xs []int) []int {
	if len(xs) == 0 {
		return nil
	}
	sort.Ints(xs)
	out := xs[:1]
	for _, x := range xs[1:] {
		if x != out[len(out)-1] {
			out = append(out, x)
		}
	}
	return out
}

// BlockOf returns the block containing instruction i
func (g *CFG) BlockOf(i int) *Block {
	return g.Blocks[g.blockOf[i]]
}

// Regions returns the blocks protecting instruction i, innermost first
func (g *CFG) Regions(i int) []Region {
	return g.regions.enclosing(i)
}

// Handler returns the innermost except/finally region protecting instruction i
func (g *CFG) Handler(i int) (Region, bool) {
	for _, r := range g.regions.enclosing(i) {
		if r.Kind != LoopRegion {
			return r, true
		}
	}
	return Region{}, false
}

// Loop returns the innermost loop region containing instruction i
func (g *CFG) Loop(i int) (Region, bool) {
	for _, r := range g.regions.enclosing(i) {
		if r.Kind == LoopRegion {
			return r, true
		}
	}
	return Region{}, false
}

// String renders the graph for debugging
func (g *CFG) String() string {
	var b strings.Builder
	for _, blk := range g.Blocks {
		fmt.Fprintf(&b, "block %d [%d, %d) succs=%v handlers=%v", blk.Index, blk.Start, blk.End, blk.Succs, blk.Handlers)
		if blk.LoopHeader {
			b.WriteString(" loop")
		}
		b.WriteString("\n")
	}
	return b.String()
}
