package user

import "context"

// AssignedPlay is a play on the user's learning path.
type AssignedPlay struct {
	PlayID      string  `json:"play_id"`
	PlayTitle   string  `json:"play_title"`
	Status      string  `json:"status"`
	CompletedAt *string `json:"completed_at"`
}

// Context is the trusted identity a search runs under. It is built
// server-side from a verified token and the catalog, never from request bodies.
type Context struct {
	UserID        string         `json:"user_id"`
	Username      string         `json:"username"`
	DisplayName   string         `json:"display_name"`
	CompanyID     string         `json:"company_id"`
	CompanyName   string         `json:"company_name"`
	AssignedPlays []AssignedPlay `json:"assigned_plays"`
}

// AssignedPlayIDs returns the play ids in assignment order.
func (c *Context) AssignedPlayIDs() []string {
	ids := make([]string, 0, len(c.AssignedPlays))
	for _, p := range c.AssignedPlays {
		ids = append(ids, p.PlayID)
	}
	return ids
}

type contextKey struct{}

// WithContext stores the user context in ctx.
func WithContext(ctx context.Context, u *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// FromContext extracts the user context placed by the auth middleware.
func FromContext(ctx context.Context) (*Context, bool) {
	u, ok := ctx.Value(contextKey{}).(*Context)
	return u, ok && u != nil
}
