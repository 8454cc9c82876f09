package core

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"fleetcare/internal/types"
)

// JWTAuthenticator verifies HS256 session tokens issued by the Fleetcare web
// app. The subject claim is the user ID.
type JWTAuthenticator struct {
	secret []byte
	issuer string
}

// NewJWTAuthenticator returns an authenticator for tokens signed with secret.
// An empty issuer disables the issuer check.
func NewJWTAuthenticator(secret types.SecretString, issuer string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret.Unmask()), issuer: issuer}
}

// ResolveToken parses and verifies token.
func (a *JWTAuthenticator) ResolveToken(_ context.Context, token string) (*types.Actor, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, types.NewAppError(types.ErrCodeAuthTokenExpired, "token expired", err)
		}
		return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "token invalid", err)
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "token has no subject", err)
	}
	return &types.Actor{ID: sub, Type: types.ActorTypeUser}, nil
}

var _ Authenticator = (*JWTAuthenticator)(nil)
