package pythonir

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	mod, err := LoadFile("testdata/loop.yaml")
	require.NoError(t, err)
	require.NoError(t, Validate(mod.Code))

	assert.Equal(t, "loops", mod.Name)
	assert.Equal(t, "<module>", mod.Code.Name)

	consts := mod.Code.Consts
	require.Len(t, consts, 5)
	assert.Equal(t, CodeConst, consts[0].Kind)
	assert.Equal(t, NoneConst, consts[1].Kind)
	assert.Equal(t, FloatConst, consts[2].Kind)
	assert.Equal(t, ComplexConst, consts[3].Kind)
	assert.Equal(t, Str("10"), consts[4])

	fn := consts[0].Code
	assert.Equal(t, []string{"xs"}, fn.Params)
	assert.Equal(t, 1, fn.FirstLine)
	assert.Equal(t, "testdata/loop.yaml", fn.Filename)

	// the loaded function has the same instructions as the assembled one
	want := totalCode()
	require.Len(t, fn.Instrs, len(want.Instrs))
	for i := range want.Instrs {
		got := fn.Instrs[i]
		got.Line = 0
		assert.Equal(t, want.Instrs[i], got, "instruction %d", i)
	}
	assert.Equal(t, 8, fn.Instrs[17].Line)
}

func TestLoadInstructionForms(t *testing.T) {
	doc := `
module: m
code:
  consts: [None]
  instrs:
    - COMPARE_OP not in
    - CALL_FUNCTION_KW 3 a,b
    - BUILD_CLASS 1 A
    - LOAD_CONST 0
    - RETURN_VALUE
`
	mod, err := Load(strings.NewReader(doc))
	require.NoError(t, err)
	instrs := mod.Code.Instrs
	assert.Equal(t, Instr{Op: CompareOp, Name: "not in"}, instrs[0])
	assert.Equal(t, Instr{Op: CallFunctionKw, Arg: 3, Names: []string{"a", "b"}}, instrs[1])
	assert.Equal(t, Instr{Op: BuildClass, Arg: 1, Name: "A"}, instrs[2])
	assert.Equal(t, "CALL_FUNCTION_KW 3 a,b", instrs[1].String())
}

func TestLoadErrors(t *testing.T) {
	docs := map[string]string{
		"unknown opcode": "code: {instrs: [FROB]}",
		"missing target": "code: {instrs: [JUMP_ABSOLUTE nowhere]}",
		"missing name":   "code: {instrs: [LOAD_FAST]}",
		"no code":        "module: m",
		"bad yaml":       "code: [",
	}
	for name, doc := range docs {
		_, err := Load(strings.NewReader(doc))
		assert.Error(t, err, name)
	}
}
