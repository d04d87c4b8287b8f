// Package in implements the fiber handlers at the HTTP boundary: one
// file per entity family, composing internal/services/command and
// internal/services/query the way the teacher composes its UseCase
// pair behind each handler.
package in

import (
	"strconv"
	"strings"

	"placedir/internal/authz"
	"placedir/internal/domain"
	"placedir/internal/geo"
	"placedir/internal/services/command"
	"placedir/internal/services/query"
	"placedir/pkg"
	httpx "placedir/pkg/net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// PlaceHandler serves the revisioned place store's create/update/
// archive/lookup operations.
type PlaceHandler struct {
	Command *command.Service
	Query   *query.Service
}

// CreatePlaceInput is the wire shape of a place creation request.
type CreatePlaceInput struct {
	Title       string           `json:"title" validate:"required"`
	Description string           `json:"description"`
	Lat         float64          `json:"lat" validate:"required"`
	Lng         float64          `json:"lng" validate:"required"`
	Address     *domain.Address  `json:"address"`
	Contact     *domain.Contact  `json:"contact"`
	Homepage    string           `json:"homepage"`
	Image       string           `json:"image"`
	ImageLink   string           `json:"imageLink"`
	Tags        []string         `json:"tags"`
	CategoryIDs []string         `json:"categoryIds"`
	License     string           `json:"license"`
}

// UpdatePlaceInput is the wire shape of a place revision request.
type UpdatePlaceInput struct {
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description"`
	Lat         float64         `json:"lat" validate:"required"`
	Lng         float64         `json:"lng" validate:"required"`
	Address     *domain.Address `json:"address"`
	Contact     *domain.Contact `json:"contact"`
	Homepage    string          `json:"homepage"`
	Image       string          `json:"image"`
	ImageLink   string          `json:"imageLink"`
	Tags        []string        `json:"tags"`
	CategoryIDs []string        `json:"categoryIds"`
}

// ArchiveInput is the body shared by every bulk-archive endpoint.
type ArchiveInput struct {
	UIDs []string `json:"uids" validate:"required,min=1"`
}

func actorFromSession(c *fiber.Ctx) authz.Actor {
	actor := authz.Actor{Role: domain.RoleGuest}

	if claims, ok := httpx.SessionFromContext(c); ok {
		actor.Email = claims.Email
		actor.Role = claims.Role
	}

	if owned, ok := c.Locals(orgOwnedTagsLocalsKey).([]string); ok {
		actor.OwnedTags = owned
	}

	return actor
}

func respondErr(c *fiber.Ctx, err error, entityType string) error {
	return httpx.WithError(c, common.ValidateBusinessError(err, entityType))
}

// CreatePlace creates a new place at revision 0.
func (h *PlaceHandler) CreatePlace(p any, c *fiber.Ctx) error {
	in, ok := p.(*CreatePlaceInput)
	if !ok {
		return httpx.BadRequest(c, "malformed request body")
	}

	pos, err := geo.NewPointFromLatLng(in.Lat, in.Lng)
	if err != nil {
		return respondErr(c, domain.ErrInvalidPosition, "place")
	}

	actor := actorFromSession(c)

	rev, err := h.Command.CreatePlace(c.UserContext(), command.NewPlaceRequest{
		Title:       in.Title,
		Description: in.Description,
		Pos:         pos,
		Address:     in.Address,
		Contact:     in.Contact,
		Homepage:    in.Homepage,
		Image:       in.Image,
		ImageLink:   in.ImageLink,
		Tags:        in.Tags,
		CategoryIDs: in.CategoryIDs,
		License:     in.License,
	}, actor.Email)
	if err != nil {
		return respondErr(c, err, "place")
	}

	return httpx.Created(c, rev)
}

// UpdatePlace appends a new revision on top of a place's current one.
func (h *PlaceHandler) UpdatePlace(p any, c *fiber.Ctx) error {
	in, ok := p.(*UpdatePlaceInput)
	if !ok {
		return httpx.BadRequest(c, "malformed request body")
	}

	placeUID, ok := c.Locals("placeUID").(uuid.UUID)
	if !ok {
		return httpx.BadRequest(c, "missing placeUID path parameter")
	}

	pos, err := geo.NewPointFromLatLng(in.Lat, in.Lng)
	if err != nil {
		return respondErr(c, domain.ErrInvalidPosition, "place")
	}

	actor := actorFromSession(c)

	rev, err := h.Command.UpdatePlace(c.UserContext(), command.UpdatePlaceRequest{
		PlaceUID:    placeUID.String(),
		Title:       in.Title,
		Description: in.Description,
		Pos:         pos,
		Address:     in.Address,
		Contact:     in.Contact,
		Homepage:    in.Homepage,
		Image:       in.Image,
		ImageLink:   in.ImageLink,
		Tags:        in.Tags,
		CategoryIDs: in.CategoryIDs,
	}, actor)
	if err != nil {
		return respondErr(c, err, "place")
	}

	return httpx.OK(c, rev)
}

// ArchivePlaces soft-archives the given places and cascades to their
// live ratings and comments.
func (h *PlaceHandler) ArchivePlaces(p any, c *fiber.Ctx) error {
	in, ok := p.(*ArchiveInput)
	if !ok {
		return httpx.BadRequest(c, "malformed request body")
	}

	n, err := h.Command.ArchivePlaces(c.UserContext(), in.UIDs, actorFromSession(c))
	if err != nil {
		return respondErr(c, err, "place")
	}

	return httpx.OK(c, fiber.Map{"archived": n})
}

// GetPlaces returns the current revision of each requested place,
// with fields stripped per the caller's role and owned tags.
func (h *PlaceHandler) GetPlaces(c *fiber.Ctx) error {
	ids := splitCSV(c.Query("ids"))
	if len(ids) == 0 {
		return httpx.BadRequest(c, "at least one id is required")
	}

	for _, id := range ids {
		if !common.IsUUID(id) {
			return httpx.BadRequest(c, "malformed place id: "+id)
		}
	}

	revs, err := h.Query.GetPlaces(c.UserContext(), ids, actorFromSession(c))
	if err != nil {
		return respondErr(c, err, "place")
	}

	return httpx.OK(c, revs)
}

// RatingsAndComments returns a place's live ratings with their comments.
func (h *PlaceHandler) RatingsAndComments(c *fiber.Ctx) error {
	placeUID, ok := c.Locals("placeUID").(uuid.UUID)
	if !ok {
		return httpx.BadRequest(c, "missing placeUID path parameter")
	}

	ratings, comments, err := h.Query.RatingsAndComments(c.UserContext(), placeUID.String())
	if err != nil {
		return respondErr(c, err, "rating")
	}

	return httpx.OK(c, fiber.Map{"ratings": ratings, "comments": comments})
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

func parseUintQuery(s string, def uint64) uint64 {
	if s == "" {
		return def
	}

	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return def
	}

	return v
}
