package kitelog

import (
	"bytes"
	"fmt"
	"text/tabwriter"
	"time"
)

type duration struct {
	name     string
	duration time.Duration
}

// Durations tracks the time spent in named phases
type Durations []duration

// Record records a duration
func (t *Durations) Record(name string, d time.Duration) {
	*t = append(*t, duration{name, d})
}

// Since records the time elapsed since start
func (t *Durations) Since(name string, start time.Time) {
	t.Record(name, time.Since(start))
}

// Total is the sum of the recorded durations
func (t Durations) Total() time.Duration {
	var total time.Duration
	for _, d := range t {
		total += d.duration
	}
	return total
}

// Flush writes the recorded durations as an aligned table to the given handler
func (t *Durations) Flush(i Interface) {
	var b bytes.Buffer
	tw := tabwriter.NewWriter(&b, 4, 4, 0, ' ', 0)
	for _, entry := range *t {
		fmt.Fprintf(tw, "   %s\t%s\n", entry.name, entry.duration)
	}
	tw.Flush()

	i.Println(b.String())
	*t = nil
}

// WithDurations returns a derived Logger with a new Durations tracker
func (l *Logger) WithDurations() *Logger {
	out := *l
	out.Durations = nil
	return &out
}
