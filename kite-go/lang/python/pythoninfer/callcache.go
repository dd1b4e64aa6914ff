package pythoninfer

import (
	"strings"

	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonvalue"
)

// callRecord is the memoized simulation of an interpreted function for one
// combination of argument values
type callRecord struct {
	key  string
	seq  int
	info *funcInfo
	// params holds the value bound to each of the function's parameters
	params []pythonvalue.Value
	// running is true while the function body is being simulated
	running bool
	// reentered is set when the record was consulted while running
	reentered bool
	// partial is set when the record was computed while a record started
	// before it was running and got consulted
	partial bool
	ret     pythonvalue.Value
	raises  pythonvalue.Value
}

// callCache maps callee and argument values to call records
type callCache struct {
	records map[string]*callRecord
	byFunc  map[*funcInfo][]*callRecord
	// order holds the records by increasing seq
	order   []*callRecord
	nextSeq int
}

func newCallCache() *callCache {
	return &callCache{
		records: make(map[string]*callRecord),
		byFunc:  make(map[*funcInfo][]*callRecord),
	}
}

func callKey(info *funcInfo, params []pythonvalue.Value) string {
	keys := make([]string, len(params))
	for i, p := range params {
		keys[i] = pythonvalue.KeyOf(p)
	}
	return info.fn.Key() + "(" + strings.Join(keys, ",") + ")"
}

// lookup returns the record for a call, if there is one
func (c *callCache) lookup(info *funcInfo, params []pythonvalue.Value) (*callRecord, bool) {
	r, ok := c.records[callKey(info, params)]
	return r, ok
}

// start creates the record for a call that is about to be simulated
func (c *callCache) start(info *funcInfo, params []pythonvalue.Value) *callRecord {
	r := &callRecord{
		key:     callKey(info, params),
		seq:     c.nextSeq,
		info:    info,
		params:  params,
		running: true,
	}
	c.nextSeq++
	c.records[r.key] = r
	c.byFunc[info] = append(c.byFunc[info], r)
	c.order = append(c.order, r)
	return r
}

// reenter notes that the running record r was consulted. Every record started
// after r may have seen its partial result.
func (c *callCache) reenter(r *callRecord) {
	r.reentered = true
	for i := len(c.order) - 1; i >= 0 && c.order[i].seq > r.seq; i-- {
		c.order[i].partial = true
	}
}

// evictPartial drops the partial records started after r, so that simulating
// r again recomputes them from its current result
func (c *callCache) evictPartial(r *callRecord) {
	keep := c.order[:0]
	evicted := false
	for _, o := range c.order {
		if o.seq > r.seq && o.partial {
			if c.records[o.key] == o {
				delete(c.records, o.key)
			}
			evicted = true
			continue
		}
		keep = append(keep, o)
	}
	c.order = keep
	if !evicted {
		return
	}
	for info, rs := range c.byFunc {
		var kept []*callRecord
		for _, o := range rs {
			if o.seq <= r.seq || !o.partial {
				kept = append(kept, o)
			}
		}
		if len(kept) == 0 {
			delete(c.byFunc, info)
		} else {
			c.byFunc[info] = kept
		}
	}
}

// recordsOf returns the calls of a function in the order they were first made
func (c *callCache) recordsOf(info *funcInfo) []*callRecord {
	return c.byFunc[info]
}

// called reports whether a function has been simulated at all
func (c *callCache) called(info *funcInfo) bool {
	return len(c.byFunc[info]) > 0
}

// abandon marks every running record as finished; used after a simulation is
// cut short by a panic
func (c *callCache) abandon() {
	for _, r := range c.records {
		r.running = false
	}
}
