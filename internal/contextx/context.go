package contextx

import "context"

// Key is a private type to avoid collisions in request context keys.
type Key string

// AccountIDKey is the context key used to store the authenticated account's ID (string).
const AccountIDKey Key = "accountID"

// RoleKey is the context key used to store the authenticated account's role (string).
const RoleKey Key = "role"

// AccountID returns the authenticated account ID stored by the auth middleware.
func AccountID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(AccountIDKey).(string)
	return id, ok && id != ""
}

// Role returns the authenticated account's role, if any.
func Role(ctx context.Context) string {
	role, _ := ctx.Value(RoleKey).(string)
	return role
}
