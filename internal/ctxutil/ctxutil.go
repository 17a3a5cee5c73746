// Package ctxutil holds small context helpers shared by the dispatcher and
// effect runner.
package ctxutil

import "context"

// Canceled reports whether ctx is done, returning its error (Canceled or
// DeadlineExceeded) and nil otherwise. Dispatch paths call it on entry so a
// dead context is rejected before the action is stamped.
//
// ctx.Err() is already nil while Done is open, so no select is needed.
func Canceled(ctx context.Context) error {
	return ctx.Err()
}
