package in

import (
	"placedir/internal/services/query"
	httpx "placedir/pkg/net/http"

	"github.com/gofiber/fiber/v2"
)

// FeedHandler serves the recently-changed status-log feed and tag
// popularity rankings.
type FeedHandler struct {
	Query *query.Service
}

// RecentlyChanged returns the status-log feed for the half-open
// interval [since, until), via `since`/`until`/`offset`/`limit` query
// parameters. Unset since/until leave that bound open.
func (h *FeedHandler) RecentlyChanged(c *fiber.Ctx) error {
	var since, until *int64

	if v := c.Query("since"); v != "" {
		s := int64(parseUintQuery(v, 0))
		since = &s
	}

	if v := c.Query("until"); v != "" {
		u := int64(parseUintQuery(v, 0))
		until = &u
	}

	offset := parseUintQuery(c.Query("offset"), 0)
	limit := parseUintQuery(c.Query("limit"), 50)

	entries, err := h.Query.RecentlyChanged(c.UserContext(), since, until, offset, limit)
	if err != nil {
		return respondErr(c, err, "place")
	}

	return httpx.OK(c, entries)
}

// MostPopularTags returns tag usage counts bounded to [minCount, maxCount].
func (h *FeedHandler) MostPopularTags(c *fiber.Ctx) error {
	minCount := int64(parseUintQuery(c.Query("minCount"), 0))
	maxCount := int64(parseUintQuery(c.Query("maxCount"), 1<<62))
	offset := parseUintQuery(c.Query("offset"), 0)
	limit := parseUintQuery(c.Query("limit"), 50)

	tags, err := h.Query.MostPopularTags(c.UserContext(), minCount, maxCount, offset, limit)
	if err != nil {
		return respondErr(c, err, "place")
	}

	return httpx.OK(c, tags)
}
