package kitelog

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationsFlush(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "").WithDurations()

	l.Durations.Record("walk", 2*time.Millisecond)
	l.Durations.Record("solve", time.Millisecond)
	assert.Equal(t, 3*time.Millisecond, l.Durations.Total())

	l.Durations.Flush(l)
	out := buf.String()
	require.True(t, strings.Contains(out, "walk"), out)
	require.True(t, strings.Contains(out, "solve"), out)
	assert.Len(t, l.Durations, 0)
}
