package in

import (
	"placedir/internal/domain"
	"placedir/internal/services/command"
	httpx "placedir/pkg/net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// OrganizationHandler serves organization provisioning: an
// organization's owned tags restrict who may attach those tags to a
// place, and its api token authenticates its own write requests.
type OrganizationHandler struct {
	Command *command.Service
}

// CreateOrganizationInput is the wire shape of an organization
// provisioning request.
type CreateOrganizationInput struct {
	Name      string   `json:"name" validate:"required"`
	OwnedTags []string `json:"ownedTags"`
}

// CreateOrganization provisions a new organization and mints its api token.
func (h *OrganizationHandler) CreateOrganization(p any, c *fiber.Ctx) error {
	in, ok := p.(*CreateOrganizationInput)
	if !ok {
		return httpx.BadRequest(c, "malformed request body")
	}

	org := domain.Organization{
		ID:        uuid.NewString(),
		Name:      in.Name,
		APIToken:  uuid.NewString(),
		OwnedTags: in.OwnedTags,
	}

	if err := h.Command.Orgs.CreateOrganization(c.UserContext(), org); err != nil {
		return respondErr(c, err, "organization")
	}

	return httpx.Created(c, org)
}
