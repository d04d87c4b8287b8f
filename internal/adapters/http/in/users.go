package in

import (
	"placedir/internal/domain"
	"placedir/internal/services/command"
	httpx "placedir/pkg/net/http"

	"github.com/gofiber/fiber/v2"
)

// UserHandler serves account registration, login and credential-reset
// operations.
type UserHandler struct {
	Command        *command.Service
	Tokens         *httpx.TokenIssuer
	ConfirmURLBase string
	ResetURLBase   string
}

// RegisterInput is the wire shape of an account registration request.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// Register creates a new, unconfirmed user account.
func (h *UserHandler) Register(p any, c *fiber.Ctx) error {
	in, ok := p.(*RegisterInput)
	if !ok {
		return httpx.BadRequest(c, "malformed request body")
	}

	hash, err := command.HashPassword(in.Password)
	if err != nil {
		return httpx.WithError(c, err)
	}

	u, err := h.Command.RegisterUser(c.UserContext(), in.Email, hash, h.ConfirmURLBase)
	if err != nil {
		return respondErr(c, err, "user")
	}

	return httpx.Created(c, fiber.Map{"email": u.Email})
}

// LoginInput is the wire shape of a login request.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login verifies credentials and issues a session token.
func (h *UserHandler) Login(p any, c *fiber.Ctx) error {
	in, ok := p.(*LoginInput)
	if !ok {
		return httpx.BadRequest(c, "malformed request body")
	}

	u, err := h.Command.Users.FindUserByEmail(c.UserContext(), in.Email)
	if err != nil {
		return respondErr(c, domain.ErrUserDoesNotExist, "user")
	}

	if !command.VerifyPassword(u.PasswordHash, in.Password) {
		return respondErr(c, domain.ErrUnauthorized, "user")
	}

	token, err := h.Tokens.Issue(u)
	if err != nil {
		return httpx.WithError(c, err)
	}

	return httpx.OK(c, fiber.Map{"token": token})
}

// ResetPasswordRequestInput is the wire shape of a password-reset request.
type ResetPasswordRequestInput struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest always succeeds from the caller's perspective,
// whether or not the email exists, to avoid leaking account existence.
func (h *UserHandler) ResetPasswordRequest(p any, c *fiber.Ctx) error {
	in, ok := p.(*ResetPasswordRequestInput)
	if !ok {
		return httpx.BadRequest(c, "malformed request body")
	}

	h.Command.ResetPasswordRequest(c.UserContext(), in.Email, h.ResetURLBase)

	return httpx.Accepted(c, fiber.Map{"status": "if the account exists, a reset email was sent"})
}

// ResetPasswordInput is the wire shape of the final reset step.
type ResetPasswordInput struct {
	Password string `json:"password" validate:"required,min=8"`
}

// ResetPassword consumes the token in the `token` query parameter and
// sets the new password.
func (h *UserHandler) ResetPassword(p any, c *fiber.Ctx) error {
	in, ok := p.(*ResetPasswordInput)
	if !ok {
		return httpx.BadRequest(c, "malformed request body")
	}

	nonce, err := command.DecodeNonce(c.Query("token"))
	if err != nil {
		return respondErr(c, err, "user")
	}

	hash, err := command.HashPassword(in.Password)
	if err != nil {
		return httpx.WithError(c, err)
	}

	if err := h.Command.ResetPassword(c.UserContext(), nonce, hash); err != nil {
		return respondErr(c, err, "user")
	}

	return httpx.NoContent(c)
}

// ConfirmEmail consumes the token in the `token` query parameter and
// marks the account's email confirmed.
func (h *UserHandler) ConfirmEmail(c *fiber.Ctx) error {
	nonce, err := command.DecodeNonce(c.Query("token"))
	if err != nil {
		return respondErr(c, err, "user")
	}

	if err := h.Command.ConfirmEmail(c.UserContext(), nonce); err != nil {
		return respondErr(c, err, "user")
	}

	return httpx.NoContent(c)
}

// ChangeRoleInput is the wire shape of a role-change request.
type ChangeRoleInput struct {
	Email string      `json:"email" validate:"required,email"`
	Role  domain.Role `json:"role"`
}

// ChangeRole sets the target user's role, authorized by the
// role-ordering rule.
func (h *UserHandler) ChangeRole(p any, c *fiber.Ctx) error {
	in, ok := p.(*ChangeRoleInput)
	if !ok {
		return httpx.BadRequest(c, "malformed request body")
	}

	if err := h.Command.ChangeUserRole(c.UserContext(), actorFromSession(c), in.Email, in.Role); err != nil {
		return respondErr(c, err, "user")
	}

	return httpx.NoContent(c)
}
