package http_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"placedir/internal/domain"
	httpx "placedir/pkg/net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	tokens := httpx.NewTokenIssuer("test-secret", time.Hour)

	token, err := tokens.Issue(domain.User{Email: "alice@example.com", Role: domain.RoleScout})
	require.NoError(t, err)

	claims, err := tokens.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", claims.Email)
	require.Equal(t, domain.RoleScout, claims.Role)
}

func TestVerifyRejectsTamperedSecret(t *testing.T) {
	tokens := httpx.NewTokenIssuer("test-secret", time.Hour)

	token, err := tokens.Issue(domain.User{Email: "alice@example.com", Role: domain.RoleUser})
	require.NoError(t, err)

	other := httpx.NewTokenIssuer("different-secret", time.Hour)
	_, err = other.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	tokens := httpx.NewTokenIssuer("test-secret", -time.Minute)

	token, err := tokens.Issue(domain.User{Email: "alice@example.com", Role: domain.RoleUser})
	require.NoError(t, err)

	_, err = tokens.Verify(token)
	require.Error(t, err)
}

func TestProtectRejectsMissingAndInvalidTokens(t *testing.T) {
	tokens := httpx.NewTokenIssuer("test-secret", time.Hour)

	app := fiber.New()
	app.Get("/protected", tokens.Protect(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/protected", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")

	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestProtectAndWithRoleAllowSufficientRole(t *testing.T) {
	tokens := httpx.NewTokenIssuer("test-secret", time.Hour)

	token, err := tokens.Issue(domain.User{Email: "scout@example.com", Role: domain.RoleScout})
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/scout-only", tokens.Protect(), tokens.WithRole(domain.RoleScout), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/scout-only", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestWithRoleRejectsInsufficientRole(t *testing.T) {
	tokens := httpx.NewTokenIssuer("test-secret", time.Hour)

	token, err := tokens.Issue(domain.User{Email: "user@example.com", Role: domain.RoleUser})
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/admin-only", tokens.Protect(), tokens.WithRole(domain.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/admin-only", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
