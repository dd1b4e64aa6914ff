package pythoninfer

import (
	"testing"

	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonvalue"
	"github.com/stretchr/testify/assert"
)

func TestForEachCombination(t *testing.T) {
	a, b, c := pythonvalue.Unknown{ID: 1}, pythonvalue.Unknown{ID: 2}, pythonvalue.Unknown{ID: 3}

	var got [][]pythonvalue.Value
	collect := func(vs []pythonvalue.Value) {
		got = append(got, append([]pythonvalue.Value(nil), vs...))
	}

	forEachCombination([][]pythonvalue.Value{{a, b}, {c}}, collect)
	assert.Equal(t, [][]pythonvalue.Value{{a, c}, {b, c}}, got)

	got = nil
	forEachCombination([][]pythonvalue.Value{{a, b}, {b, c}}, collect)
	assert.Equal(t, [][]pythonvalue.Value{{a, b}, {a, c}, {b, b}, {b, c}}, got)

	got = nil
	forEachCombination([][]pythonvalue.Value{{a}, {}}, collect)
	assert.Empty(t, got)

	got = nil
	forEachCombination(nil, collect)
	if assert.Len(t, got, 1) {
		assert.Empty(t, got[0])
	}
}
