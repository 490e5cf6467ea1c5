package auth

import (
	"context"

	"github.com/google/uuid"
)

// Principal - аутентифицированный субъект запроса
type Principal struct {
	ID   uuid.UUID
	Role string
}

// IsAdmin сообщает, что субъект - администратор
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

type principalKey struct{}

// WithPrincipal кладет субъекта в контекст
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext достает субъекта из контекста
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
