// Package auth works out who the signed-in user is from the stored
// access token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nhle/bidboard/internal/api"
	"github.com/nhle/bidboard/internal/model"
)

// ErrNoToken is returned when there is no access token to resolve.
var ErrNoToken = errors.New("auth: no access token")

// Claims are the fields bidboard reads from the access token payload.
type Claims struct {
	UserID    int64
	Role      model.Role
	Email     string
	ExpiresAt time.Time
}

// Expired reports whether the token carries an expiry in the past.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// ParseClaims decodes the token payload without verifying its signature.
// The server remains the authority; the claims only label the session
// when the profile endpoint is unavailable.
func ParseClaims(token string) (Claims, error) {
	if token == "" {
		return Claims{}, ErrNoToken
	}

	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	parsed, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return Claims{}, fmt.Errorf("auth: parsing token: %w", err)
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, errors.New("auth: unexpected claims type")
	}

	var claims Claims
	switch id := mapClaims["id"].(type) {
	case float64:
		claims.UserID = int64(id)
	case string:
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return Claims{}, fmt.Errorf("auth: invalid id claim %q: %w", id, err)
		}
		claims.UserID = n
	}
	if claims.UserID == 0 {
		return Claims{}, errors.New("auth: token has no user id")
	}

	if role, ok := mapClaims["role"].(string); ok {
		claims.Role = model.Role(role)
	}
	if email, ok := mapClaims["email"].(string); ok {
		claims.Email = email
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}

	return claims, nil
}

// ProfileFetcher loads the authenticated user's profile.
type ProfileFetcher interface {
	Profile(ctx context.Context) (*model.User, error)
}

// Resolve returns the user behind token. It prefers the profile endpoint
// and falls back to the token claims when the endpoint fails for any
// reason other than authentication.
func Resolve(ctx context.Context, profiles ProfileFetcher, token string, log *slog.Logger) (model.User, error) {
	if log == nil {
		log = slog.Default()
	}

	user, err := profiles.Profile(ctx)
	if err == nil && user != nil && user.ID != 0 {
		return *user, nil
	}
	if api.IsAuthError(err) {
		return model.User{}, err
	}

	claims, claimsErr := ParseClaims(token)
	if claimsErr != nil {
		if err != nil {
			return model.User{}, fmt.Errorf("resolving user: %w", errors.Join(err, claimsErr))
		}
		return model.User{}, fmt.Errorf("resolving user: %w", claimsErr)
	}

	if err != nil {
		log.Warn("Profile unavailable, using token claims",
			slog.Int64("user_id", claims.UserID),
			slog.String("error", err.Error()))
	}

	return model.User{
		ID:    claims.UserID,
		Email: claims.Email,
		Role:  claims.Role,
	}, nil
}
