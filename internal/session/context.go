package session

import "context"

type contextKey struct{}

func WithManager(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, contextKey{}, m)
}

// FromContext returns the Manager attached by WithManager. A missing manager
// is a wiring bug, so it panics instead of returning an error.
func FromContext(ctx context.Context) *Manager {
	m, ok := ctx.Value(contextKey{}).(*Manager)
	if !ok || m == nil {
		panic("session: FromContext called without a Manager in the context")
	}
	return m
}
