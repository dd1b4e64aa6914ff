package pythonir

import (
	"testing"

	"github.com/kiteco/typeinfer/kite-golib/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// totalCode is
//
//   def total(xs):
//       total = 0
//       for x in xs:
//           try:
//               total = total + x
//           except:
//               break
//       return total
func totalCode() *Code {
	return NewBuilder("total", "xs").
		LoadConst(Int("0")).
		Name(StoreFast, "total").
		Jump(SetupLoop, "end").
		Name(LoadFast, "xs").
		Op(GetIter).
		Label("loop").Jump(ForIter, "exit").
		Name(StoreFast, "x").
		Jump(SetupExcept, "handler").
		Name(LoadFast, "total").
		Name(LoadFast, "x").
		Name(BinaryOp, "+").
		Name(StoreFast, "total").
		Op(PopBlock).
		Jump(JumpAbsolute, "loop").
		Label("handler").Op(PopTop).
		Op(BreakLoop).
		Label("exit").Op(PopBlock).
		Label("end").Name(LoadFast, "total").
		Op(ReturnValue).
		MustCode()
}

func blockRanges(g *CFG) [][2]int {
	var out [][2]int
	for _, b := range g.Blocks {
		out = append(out, [2]int{b.Start, b.End})
	}
	return out
}

func TestCFGLoopWithHandler(t *testing.T) {
	g, err := BuildCFG(totalCode())
	require.NoError(t, err)
	t.Log("\n" + g.String())

	require.Equal(t, [][2]int{{0, 5}, {5, 6}, {6, 14}, {14, 16}, {16, 17}, {17, 19}}, blockRanges(g))

	assert.Equal(t, []int{1}, g.Blocks[0].Succs)
	assert.Equal(t, []int{2, 4}, g.Blocks[1].Succs)
	assert.Equal(t, []int{1}, g.Blocks[2].Succs)
	assert.Equal(t, []int{5}, g.Blocks[3].Succs)
	assert.Equal(t, []int{5}, g.Blocks[4].Succs)
	assert.Empty(t, g.Blocks[5].Succs)

	assert.Equal(t, []int{3}, g.Blocks[2].Handlers)
	assert.Empty(t, g.Blocks[0].Handlers)
	assert.Empty(t, g.Blocks[1].Handlers)

	assert.Equal(t, []int{0, 2}, g.Blocks[1].Preds)
	assert.Equal(t, []int{3, 4}, g.Blocks[5].Preds)

	var headers []int
	for _, b := range g.Blocks {
		if b.LoopHeader {
			headers = append(headers, b.Index)
		}
	}
	assert.Equal(t, []int{1}, headers)
}

func TestCFGRegions(t *testing.T) {
	g, err := BuildCFG(totalCode())
	require.NoError(t, err)

	regions := g.Regions(10)
	require.Len(t, regions, 2)
	assert.Equal(t, Region{Kind: ExceptRegion, Setup: 7, Start: 8, End: 12, Target: 14}, regions[0])
	assert.Equal(t, Region{Kind: LoopRegion, Setup: 2, Start: 3, End: 16, Target: 17}, regions[1])

	h, ok := g.Handler(10)
	require.True(t, ok)
	assert.Equal(t, 14, h.Target)

	_, ok = g.Handler(4)
	assert.False(t, ok)

	l, ok := g.Loop(15)
	require.True(t, ok)
	assert.Equal(t, 17, l.Target)

	assert.Empty(t, g.Regions(17))
	assert.Empty(t, g.Regions(2))
}

func TestCFGStraightLine(t *testing.T) {
	code := NewBuilder("f", "x").
		Name(LoadFast, "x").
		Op(ReturnValue).
		MustCode()
	g, err := BuildCFG(code)
	require.NoError(t, err)
	require.Len(t, g.Blocks, 1)
	assert.Empty(t, g.Blocks[0].Succs)
	assert.False(t, g.Blocks[0].LoopHeader)
	assert.Equal(t, 0, g.BlockOf(1).Index)
}

func TestValidate(t *testing.T) {
	cases := map[string]*Code{
		"empty": {Name: "empty"},
		"jump out of range": {Name: "f", Instrs: []Instr{
			{Op: JumpAbsolute, Arg: 7},
		}},
		"bad constant": {Name: "f", Instrs: []Instr{
			{Op: LoadConst, Arg: 2},
			{Op: ReturnValue},
		}},
		"falls off end": {Name: "f", Consts: []Const{None()}, Instrs: []Instr{
			{Op: LoadConst, Arg: 0},
		}},
		"unbalanced pop": {Name: "f", Consts: []Const{None()}, Instrs: []Instr{
			{Op: PopBlock},
			{Op: LoadConst, Arg: 0},
			{Op: ReturnValue},
		}},
		"unclosed setup": {Name: "f", Consts: []Const{None()}, Instrs: []Instr{
			{Op: SetupExcept, Arg: 2},
			{Op: LoadConst, Arg: 0},
			{Op: ReturnValue},
		}},
		"break outside loop": {Name: "f", Instrs: []Instr{
			{Op: BreakLoop},
		}},
		"missing name": {Name: "f", Instrs: []Instr{
			{Op: LoadFast},
			{Op: ReturnValue},
		}},
		"unknown opcode": {Name: "f", Instrs: []Instr{
			{Op: Opcode(999)},
			{Op: ReturnValue},
		}},
	}
	for name, code := range cases {
		t.Run(name, func(t *testing.T) {
			err := Validate(code)
			require.Error(t, err)
			assert.Equal(t, ErrMalformed, errors.Cause(err))
			_, err = BuildCFG(code)
			require.Error(t, err)
		})
	}

	require.NoError(t, Validate(totalCode()))
}

func TestValidateNested(t *testing.T) {
	inner := &Code{Name: "inner", Instrs: []Instr{{Op: JumpAbsolute, Arg: 3}}}
	outer := NewBuilder("<module>").
		LoadConst(CodeOf(inner)).
		Arg(MakeFunction, 0).
		Op(ReturnValue).
		MustCode()
	err := Validate(outer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inner")
}

func TestBuilderErrors(t *testing.T) {
	_, err := NewBuilder("f").Jump(JumpAbsolute, "nowhere").Code()
	require.Error(t, err)

	_, err = NewBuilder("f").Label("a").Label("a").Op(ReturnValue).Code()
	require.Error(t, err)

	_, err = NewBuilder("f").Jump(LoadFast, "a").Label("a").Op(ReturnValue).Code()
	require.Error(t, err)
}
