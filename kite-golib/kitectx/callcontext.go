package kitectx

import "sync/atomic"

// CallContext is a Context that additionally tracks the depth of a recursive computation.
// It is used to cap recursion over nested values (e.g. unions of lists of unions) and
// nested simulated calls.
type CallContext struct {
	Context
	depth int
	limit int
}

// WithCallLimit calls f with a CallContext that reports AtCallLimit once Call has been
// used to descend limit times.
func (ctx Context) WithCallLimit(limit int, f func(CallContext) error) error {
	return f(CallContext{Context: ctx, limit: limit})
}

// CheckAbort aborts if ctx is expired
func (ctx CallContext) CheckAbort() {
	if ctx.expired != nil {
		errPtr := (*error)(atomic.LoadPointer(ctx.expired))
		if errPtr != nil {
			abort(*errPtr)
		}
	}
}

// Call returns a CallContext one level deeper than ctx
func (ctx CallContext) Call() CallContext {
	ctx.depth++
	return ctx
}

// Depth is the number of times Call has been used to reach ctx
func (ctx CallContext) Depth() int {
	return ctx.depth
}

// AtCallLimit reports whether ctx has reached its call limit
func (ctx CallContext) AtCallLimit() bool {
	return ctx.depth >= ctx.limit
}
