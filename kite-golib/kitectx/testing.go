package kitectx

import (
	"testing"
)

// WaitExpiry waits until ctx is expired.
// Expiry is only "eventually consistent" in kitectx, so tests cannot count on
// e.g. a cancel() to immediately expire the Context.
func (ctx Context) WaitExpiry(_ testing.TB) {
	ctx.waitExpiry()
}
