package domain

import "context"

type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// Principal is the authenticated caller, decoded from a bearer token
type Principal struct {
	UserID string `json:"sub"`
	Role   Role   `json:"role"`
}

// IsStaff reports whether the caller may see other students' work
func (p Principal) IsStaff() bool {
	return p.Role == RoleInstructor || p.Role == RoleAdmin
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
