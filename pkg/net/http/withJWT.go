package http

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"placedir/internal/domain"
	"placedir/pkg/mlog"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const sessionLocalsKey = "session"

// SessionClaims is the payload of a user session token: the
// authenticated user's email and role, from which an authz.Actor is
// built at the request boundary. Organization-owned-tag authority is
// resolved separately, from the organization's API token, not from a
// user session.
type SessionClaims struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer issues and verifies HS256 session tokens for the user
// login flow (as opposed to an organization's static API token).
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer builds a TokenIssuer signing with secret and expiring
// tokens after ttl.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue signs a new session token for user.
func (i *TokenIssuer) Issue(user domain.User) (string, error) {
	now := time.Now()

	claims := SessionClaims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			Subject:   user.Email,
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify parses and validates tokenString, returning its claims.
func (i *TokenIssuer) Verify(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("withJWT: unexpected signing method: %v", t.Header["alg"])
		}

		return i.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("withJWT: invalid token")
	}

	return claims, nil
}

func getBearerToken(c *fiber.Ctx) string {
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), "Bearer ", 2)
	if len(parts) == 2 {
		return strings.TrimSpace(parts[1])
	}

	return ""
}

// Protect verifies the request's bearer session token and stores its
// claims for downstream handlers and authorization checks.
func (i *TokenIssuer) Protect() fiber.Handler {
	return func(c *fiber.Ctx) error {
		l := mlog.NewLoggerFromContext(c.UserContext())

		tokenString := getBearerToken(c)
		if tokenString == "" {
			return Unauthorized(c, "MISSING_TOKEN", "Unauthorized", "A session token must be provided.")
		}

		claims, err := i.Verify(tokenString)
		if err != nil {
			l.Debugf("withJWT: %v", err)
			return Unauthorized(c, "INVALID_TOKEN", "Unauthorized", "The provided token is expired, invalid or malformed.")
		}

		c.Locals(sessionLocalsKey, claims)

		return c.Next()
	}
}

// WithRole rejects requests whose session role is below minRole. It
// must run after Protect.
func (i *TokenIssuer) WithRole(minRole domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := SessionFromContext(c)
		if !ok {
			return Unauthorized(c, "MISSING_SESSION", "Unauthorized", "A session token must be provided.")
		}

		if claims.Role < minRole {
			return Forbidden(c, "INSUFFICIENT_ROLE", "Forbidden", "Your role does not permit this action.")
		}

		return c.Next()
	}
}

// SessionFromContext retrieves the verified session claims set by Protect.
func SessionFromContext(c *fiber.Ctx) (*SessionClaims, bool) {
	claims, ok := c.Locals(sessionLocalsKey).(*SessionClaims)
	return claims, ok
}
