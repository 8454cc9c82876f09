package core

import (
	"context"

	"fleetcare/internal/types"
)

// Authenticator resolves a bearer token to the Actor it identifies. It
// returns an AppError with ErrCodeAuthTokenInvalid or ErrCodeAuthTokenExpired
// when the token is unusable.
type Authenticator interface {
	ResolveToken(ctx context.Context, token string) (*types.Actor, error)
}
