package in

import (
	"placedir/internal/services/command"
	"placedir/pkg/mlog"

	"github.com/gofiber/fiber/v2"
)

const orgOwnedTagsLocalsKey = "orgOwnedTags"

// WithOrganizationToken resolves the `X-Organization-Token` header, if
// present, against the organization store and attaches the
// organization's owned tags to the request for authz.Actor.OwnedTags.
// A missing or unrecognized token is not an error here: it simply
// leaves the actor with no owned-tag authority, same as any other
// unauthenticated caller.
func WithOrganizationToken(svc *command.Service, logger mlog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get("X-Organization-Token")
		if token == "" {
			return c.Next()
		}

		org, err := svc.Orgs.FindByAPIToken(c.UserContext(), token)
		if err != nil {
			logger.Debugf("in: organization token lookup: %v", err)
			return c.Next()
		}

		c.Locals(orgOwnedTagsLocalsKey, org.OwnedTags)

		return c.Next()
	}
}
