package pythonir

import (
	"sort"

	"github.com/golang-collections/go-datastructures/augmentedtree"
)

// RegionKind distinguishes the blocks pushed by SETUP_* instructions
type RegionKind int

const (
	// LoopRegion is pushed by SETUP_LOOP
	LoopRegion RegionKind = iota
	// ExceptRegion is pushed by SETUP_EXCEPT
	ExceptRegion
	// FinallyRegion is pushed by SETUP_FINALLY
	FinallyRegion
)

func (k RegionKind) String() string {
	switch k {
	case LoopRegion:
		return "loop"
	case ExceptRegion:
		return "except"
	default:
		return "finally"
	}
}

// Region is the static extent of a block: the instructions between a SETUP_* and
// its matching POP_BLOCK. Instructions in [Start, End] are protected by it.
type Region struct {
	Kind RegionKind
	// Setup is the index of the SETUP_* instruction
	Setup int
	Start int
	End   int
	// Target is the handler (except, finally) or loop exit (loop)
	Target int
}

// Protects reports whether instruction i lies inside r
func (r Region) Protects(i int) bool {
	return r.Start <= i && i <= r.End
}

func (r *Region) LowAtDimension(uint64) int64 {
	return int64(r.Start)
}

func (r *Region) HighAtDimension(uint64) int64 {
	return int64(r.End)
}

func (r *Region) OverlapsAtDimension(ii augmentedtree.Interval, d uint64) bool {
	return ii.LowAtDimension(d) <= int64(r.End) && ii.HighAtDimension(d) >= int64(r.Start)
}

func (r *Region) ID() uint64 {
	return uint64(r.Setup)
}

type point int64

func (p point) LowAtDimension(uint64) int64 { return int64(p) }

func (p point) HighAtDimension(uint64) int64 { return int64(p) }

func (p point) OverlapsAtDimension(ii augmentedtree.Interval, d uint64) bool {
	return ii.LowAtDimension(d) <= int64(p) && ii.HighAtDimension(d) >= int64(p)
}

func (p point) ID() uint64 { return uint64(p) }

// scanRegions pairs every SETUP_* with the POP_BLOCK that closes it, in program order.
func scanRegions(code *Code) ([]Region, error) {
	var open []Region
	var regions []Region
	for i, instr := range code.Instrs {
		switch instr.Op {
		case SetupLoop, SetupExcept, SetupFinally:
			kind := LoopRegion
			if instr.Op == SetupExcept {
				kind = ExceptRegion
			} else if instr.Op == SetupFinally {
				kind = FinallyRegion
			}
			open = append(open, Region{Kind: kind, Setup: i, Start: i + 1, Target: instr.Arg})
		case PopBlock:
			if len(open) == 0 {
				return nil, malformed(code, "instruction %d: POP_BLOCK without a matching setup", i)
			}
			r := open[len(open)-1]
			open = open[:len(open)-1]
			r.End = i
			regions = append(regions, r)
		case BreakLoop:
			inLoop := false
			for _, r := range open {
				if r.Kind == LoopRegion {
					inLoop = true
				}
			}
			if !inLoop {
				return nil, malformed(code, "instruction %d: BREAK_LOOP outside of a loop", i)
			}
		}
	}
	if len(open) > 0 {
		return nil, malformed(code, "instruction %d: %s is never closed", open[0].Setup, code.Instrs[open[0].Setup].Op)
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].Setup < regions[j].Setup })
	return regions, nil
}

// regionIndex answers "which blocks protect instruction i" with an interval tree
type regionIndex struct {
	tree    augmentedtree.Tree
	regions []Region
}

func newRegionIndex(regions []Region) *regionIndex {
	idx := &regionIndex{
		tree:    augmentedtree.New(1),
		regions: regions,
	}
	for i := range idx.regions {
		idx.tree.Add(&idx.regions[i])
	}
	return idx
}

// enclosing returns the regions protecting instruction i, innermost first
func (idx *regionIndex) enclosing(i int) []Region {
	if idx.tree.Len() == 0 {
		return nil
	}
	var out []Region
	for _, iv := range idx.tree.Query(point(i)) {
		r := iv.(*Region)
		if r.Protects(i) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Setup > out[b].Setup })
	return out
}
