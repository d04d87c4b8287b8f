package in

import (
	"placedir/internal/domain"
	"placedir/internal/services/command"
	httpx "placedir/pkg/net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// SubscriptionHandler serves bbox subscription create/delete, letting a
// user receive notifications for places created or changed within a
// bounding box.
type SubscriptionHandler struct {
	Command *command.Service
}

// CreateSubscriptionInput is the wire shape of a subscription request.
type CreateSubscriptionInput struct {
	SWLat float64 `json:"swLat"`
	SWLng float64 `json:"swLng"`
	NELat float64 `json:"neLat"`
	NELng float64 `json:"neLng"`
}

// CreateSubscription subscribes the authenticated user to a bbox.
func (h *SubscriptionHandler) CreateSubscription(p any, c *fiber.Ctx) error {
	in, ok := p.(*CreateSubscriptionInput)
	if !ok {
		return httpx.BadRequest(c, "malformed request body")
	}

	actor := actorFromSession(c)
	if actor.Email == "" {
		return respondErr(c, domain.ErrUnauthorized, "subscription")
	}

	sub := domain.BboxSubscription{
		UID:        uuid.NewString(),
		OwnerEmail: actor.Email,
		Bbox: domain.BboxLiteral{
			SWLat: in.SWLat, SWLng: in.SWLng,
			NELat: in.NELat, NELng: in.NELng,
		},
	}

	if err := h.Command.Subscriptions.CreateSubscription(c.UserContext(), sub); err != nil {
		return respondErr(c, err, "subscription")
	}

	return httpx.Created(c, sub)
}

// DeleteSubscription removes a subscription by its uid.
func (h *SubscriptionHandler) DeleteSubscription(c *fiber.Ctx) error {
	subUID, ok := c.Locals("subscriptionUID").(uuid.UUID)
	if !ok {
		return httpx.BadRequest(c, "missing subscriptionUID path parameter")
	}

	if err := h.Command.Subscriptions.DeleteSubscription(c.UserContext(), subUID.String()); err != nil {
		return respondErr(c, err, "subscription")
	}

	return httpx.NoContent(c)
}
