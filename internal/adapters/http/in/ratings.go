package in

import (
	"placedir/internal/domain"
	"placedir/internal/services/command"
	httpx "placedir/pkg/net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RatingHandler serves rating create/archive operations.
type RatingHandler struct {
	Command *command.Service
}

// CreateRatingInput is the wire shape of a rating creation request.
type CreateRatingInput struct {
	Context domain.RatingContext `json:"context" validate:"required"`
	Value   int                  `json:"value"`
	Title   string               `json:"title"`
	Source  string               `json:"source"`
}

// CreateRating creates a new rating for a place.
func (h *RatingHandler) CreateRating(p any, c *fiber.Ctx) error {
	in, ok := p.(*CreateRatingInput)
	if !ok {
		return httpx.BadRequest(c, "malformed request body")
	}

	placeUID, ok := c.Locals("placeUID").(uuid.UUID)
	if !ok {
		return httpx.BadRequest(c, "missing placeUID path parameter")
	}

	rating, err := h.Command.CreateRating(c.UserContext(), domain.Rating{
		PlaceUID: placeUID.String(),
		Context:  in.Context,
		Value:    in.Value,
		Title:    in.Title,
		Source:   in.Source,
	})
	if err != nil {
		return respondErr(c, err, "rating")
	}

	return httpx.Created(c, rating)
}

// ArchiveRatings soft-archives the given ratings and re-derives the
// affected places' search documents.
func (h *RatingHandler) ArchiveRatings(p any, c *fiber.Ctx) error {
	in, ok := p.(*ArchiveInput)
	if !ok {
		return httpx.BadRequest(c, "malformed request body")
	}

	n, err := h.Command.ArchiveRatings(c.UserContext(), in.UIDs, actorFromSession(c))
	if err != nil {
		return respondErr(c, err, "rating")
	}

	return httpx.OK(c, fiber.Map{"archived": n})
}
