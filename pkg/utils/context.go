package utils

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	identityKey contextKey = "identity"
	TokenKey    contextKey = "token"
)

// Identity is the authenticated caller as established by the session middleware.
type Identity struct {
	UserID      uuid.UUID
	PhoneNumber string
	Role        string
	SessionID   uuid.UUID
}

func SetIdentityContext(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func GetIdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	identity, ok := GetIdentityFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return identity.UserID, true
}

func GetRoleFromContext(ctx context.Context) (string, bool) {
	identity, ok := GetIdentityFromContext(ctx)
	if !ok {
		return "", false
	}
	return identity.Role, true
}

// GetTokenFromContext returns the raw credential the request was authenticated with
func GetTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}

func SetTokenContext(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, TokenKey, token)
}
