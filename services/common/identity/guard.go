package identity

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shopswift/storefront/services/common/auth"
	apperrors "github.com/shopswift/storefront/services/common/errors"
	"github.com/shopswift/storefront/services/common/users"
)

const (
	identityKey = "identity"
	claimsKey   = "token_claims"

	msgNotAuthorized = "Not authorized"
	msgNotAdmin      = "Not authorized as an admin"
)

// Identity is the authenticated caller handed to every protected operation.
type Identity struct {
	ID       string
	Username string
	Email    string
	IsAdmin  bool
}

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type UserFinder interface {
	FindByID(ctx context.Context, id string) (*users.User, error)
}

type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// ErrUnauthenticated is returned for every authentication failure. Callers
// never learn which check failed.
var ErrUnauthenticated = apperrors.Unauthenticated(msgNotAuthorized)

// Guard authenticates requests from their credential and authorizes admin
// routes.
type Guard struct {
	tokens  TokenVerifier
	users   UserFinder
	revoked RevocationChecker
	logger  *zap.Logger
}

type Option func(*Guard)

// WithRevocation rejects credentials whose token id has been revoked.
func WithRevocation(r RevocationChecker) Option {
	return func(g *Guard) { g.revoked = r }
}

func NewGuard(tokens TokenVerifier, finder UserFinder, logger *zap.Logger, opts ...Option) *Guard {
	g := &Guard{tokens: tokens, users: finder, logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Resolve turns a raw credential into an Identity.
func (g *Guard) Resolve(ctx context.Context, token string) (Identity, *auth.Claims, error) {
	if token == "" {
		return Identity{}, nil, ErrUnauthenticated
	}

	claims, err := g.tokens.Verify(token)
	if err != nil {
		return Identity{}, nil, ErrUnauthenticated
	}

	if g.revoked != nil {
		revoked, err := g.revoked.IsRevoked(ctx, claims.TokenID)
		if err != nil {
			g.logger.Error("revocation check failed", zap.Error(err))
			return Identity{}, nil, ErrUnauthenticated
		}
		if revoked {
			return Identity{}, nil, ErrUnauthenticated
		}
	}

	user, err := g.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if !errors.Is(err, users.ErrNotFound) {
			g.logger.Error("identity lookup failed", zap.String("user_id", claims.UserID), zap.Error(err))
		}
		return Identity{}, nil, ErrUnauthenticated
	}

	return Identity{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		IsAdmin:  user.IsAdmin,
	}, claims, nil
}

// Authenticate attaches the caller's Identity or aborts with 401.
func (g *Guard) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, claims, err := g.Resolve(c.Request.Context(), auth.TokenFromRequest(c))
		if err != nil {
			apperrors.Respond(c, err)
			return
		}
		c.Set(identityKey, id)
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// Optional attaches the Identity when the credential is valid and otherwise
// lets the request through anonymously.
func (g *Guard) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, claims, err := g.Resolve(c.Request.Context(), auth.TokenFromRequest(c)); err == nil {
			c.Set(identityKey, id)
			c.Set(claimsKey, claims)
		}
		c.Next()
	}
}

// AuthorizeAdmin must run after Authenticate. Non-admins get 403.
func (g *Guard) AuthorizeAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := FromContext(c)
		if !ok || !id.IsAdmin {
			apperrors.Respond(c, apperrors.Forbidden(msgNotAdmin))
			return
		}
		c.Next()
	}
}

// FromContext returns the Identity attached by Authenticate.
func FromContext(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// ClaimsFromContext returns the verified credential claims.
func ClaimsFromContext(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok && claims != nil
}

// WithIdentity attaches id to c. Tests and internal callers use it to skip
// credential parsing.
func WithIdentity(c *gin.Context, id Identity) {
	c.Set(identityKey, id)
}
