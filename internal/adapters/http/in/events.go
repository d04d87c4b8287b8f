package in

import (
	"placedir/internal/domain"
	"placedir/internal/geo"
	"placedir/internal/services/command"
	"placedir/internal/services/query"
	httpx "placedir/pkg/net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// EventHandler serves time-bounded point-of-interest create/update/
// archive/lookup operations.
type EventHandler struct {
	Command *command.Service
	Query   *query.Service
}

// EventInput is the wire shape shared by create and update requests.
type EventInput struct {
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description"`
	Lat         float64         `json:"lat" validate:"required"`
	Lng         float64         `json:"lng" validate:"required"`
	Start       int64           `json:"start" validate:"required"`
	End         *int64          `json:"end"`
	Address     *domain.Address `json:"address"`
	Contact     *domain.Contact `json:"contact"`
	Organizer   string          `json:"organizer"`
	Tags        []string        `json:"tags"`
}

// CreateEvent creates a new event.
func (h *EventHandler) CreateEvent(p any, c *fiber.Ctx) error {
	in, ok := p.(*EventInput)
	if !ok {
		return httpx.BadRequest(c, "malformed request body")
	}

	pos, err := geo.NewPointFromLatLng(in.Lat, in.Lng)
	if err != nil {
		return respondErr(c, domain.ErrInvalidPosition, "event")
	}

	actor := actorFromSession(c)

	ev, err := h.Command.CreateEvent(c.UserContext(), domain.Event{
		Title:       in.Title,
		Description: in.Description,
		Start:       in.Start,
		End:         in.End,
		Pos:         pos,
		Address:     in.Address,
		Contact:     in.Contact,
		Organizer:   in.Organizer,
		CreatedBy:   actor.Email,
		Tags:        in.Tags,
	})
	if err != nil {
		return respondErr(c, err, "event")
	}

	return httpx.Created(c, ev)
}

// UpdateEvent replaces an existing event's mutable fields.
func (h *EventHandler) UpdateEvent(p any, c *fiber.Ctx) error {
	in, ok := p.(*EventInput)
	if !ok {
		return httpx.BadRequest(c, "malformed request body")
	}

	eventUID, ok := c.Locals("eventUID").(uuid.UUID)
	if !ok {
		return httpx.BadRequest(c, "missing eventUID path parameter")
	}

	pos, err := geo.NewPointFromLatLng(in.Lat, in.Lng)
	if err != nil {
		return respondErr(c, domain.ErrInvalidPosition, "event")
	}

	actor := actorFromSession(c)

	ev, err := h.Command.UpdateEvent(c.UserContext(), domain.Event{
		UID:         eventUID.String(),
		Title:       in.Title,
		Description: in.Description,
		Start:       in.Start,
		End:         in.End,
		Pos:         pos,
		Address:     in.Address,
		Contact:     in.Contact,
		Organizer:   in.Organizer,
		CreatedBy:   actor.Email,
		Tags:        in.Tags,
	})
	if err != nil {
		return respondErr(c, err, "event")
	}

	return httpx.OK(c, ev)
}

// ArchiveEvent deletes an event outright; events carry no revision
// history so archival is unconditional deletion.
func (h *EventHandler) ArchiveEvent(c *fiber.Ctx) error {
	eventUID, ok := c.Locals("eventUID").(uuid.UUID)
	if !ok {
		return httpx.BadRequest(c, "missing eventUID path parameter")
	}

	if err := h.Command.ArchiveEvent(c.UserContext(), eventUID.String()); err != nil {
		return respondErr(c, err, "event")
	}

	return httpx.NoContent(c)
}

// EventsForBboxAndTime returns events within the `bbox` query
// parameter whose time window intersects [since, until).
func (h *EventHandler) EventsForBboxAndTime(c *fiber.Ctx) error {
	bbox, err := parseBboxQuery(c.Query("bbox"))
	if err != nil {
		return respondErr(c, domain.ErrInvalidPosition, "event")
	}

	since := int64(parseUintQuery(c.Query("since"), 0))
	until := int64(parseUintQuery(c.Query("until"), 1<<62))

	events, err := h.Query.EventsForBboxAndTime(c.UserContext(), bbox, since, until, actorFromSession(c))
	if err != nil {
		return respondErr(c, err, "event")
	}

	return httpx.OK(c, events)
}
