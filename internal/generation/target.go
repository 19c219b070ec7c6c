package generation

import "context"

type targetKey struct{}

// WithTarget returns a context carrying a batch size that overrides the
// configured default for one run.
func WithTarget(ctx context.Context, n int) context.Context {
	return context.WithValue(ctx, targetKey{}, n)
}

// TargetFrom returns the batch size stored by WithTarget, or def when none
// is set or the stored value is not positive.
func TargetFrom(ctx context.Context, def int) int {
	if n, ok := ctx.Value(targetKey{}).(int); ok && n > 0 {
		return n
	}
	return def
}
