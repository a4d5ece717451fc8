// Package session carries per-request identity values through context.Context.
package session

import "context"

// Admin identifies the moderator behind a request. It lives only as long as the request.
type Admin struct {
	ExternalID int64
	// Mode is true when the moderator is acting in admin mode rather than as a regular user.
	Mode bool
}

type adminKey struct{}

// WithAdmin returns ctx carrying a.
func WithAdmin(ctx context.Context, a Admin) context.Context {
	return context.WithValue(ctx, adminKey{}, a)
}

// AdminFrom returns the admin attached to ctx, if any.
func AdminFrom(ctx context.Context) (Admin, bool) {
	a, ok := ctx.Value(adminKey{}).(Admin)
	return a, ok && a.Mode
}
