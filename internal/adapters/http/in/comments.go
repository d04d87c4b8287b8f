package in

import (
	"placedir/internal/domain"
	"placedir/internal/services/command"
	httpx "placedir/pkg/net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// CommentHandler serves comment create/archive operations.
type CommentHandler struct {
	Command *command.Service
}

// CreateCommentInput is the wire shape of a comment creation request.
type CreateCommentInput struct {
	Text string `json:"text" validate:"required"`
}

// CreateComment creates a new comment on a rating.
func (h *CommentHandler) CreateComment(p any, c *fiber.Ctx) error {
	in, ok := p.(*CreateCommentInput)
	if !ok {
		return httpx.BadRequest(c, "malformed request body")
	}

	ratingUID, ok := c.Locals("ratingUID").(uuid.UUID)
	if !ok {
		return httpx.BadRequest(c, "missing ratingUID path parameter")
	}

	comment, err := h.Command.CreateComment(c.UserContext(), domain.Comment{
		RatingUID: ratingUID.String(),
		Text:      in.Text,
	})
	if err != nil {
		return respondErr(c, err, "comment")
	}

	return httpx.Created(c, comment)
}

// ArchiveComments soft-archives the given comments.
func (h *CommentHandler) ArchiveComments(p any, c *fiber.Ctx) error {
	in, ok := p.(*ArchiveInput)
	if !ok {
		return httpx.BadRequest(c, "malformed request body")
	}

	n, err := h.Command.ArchiveComments(c.UserContext(), in.UIDs, actorFromSession(c))
	if err != nil {
		return respondErr(c, err, "comment")
	}

	return httpx.OK(c, fiber.Map{"archived": n})
}
