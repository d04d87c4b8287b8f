package in

import (
	"strconv"
	"strings"

	"placedir/internal/domain"
	"placedir/internal/geo"
	"placedir/internal/services/query"
	httpx "placedir/pkg/net/http"

	"github.com/gofiber/fiber/v2"
)

// SearchHandler serves the bbox-aware full-text search endpoint.
type SearchHandler struct {
	Query *query.Service
}

// Search parses `bbox=sw_lat,sw_lng,ne_lat,ne_lng`, `categories`,
// `ids`, `tag`, `text`, `limit` from the query string and returns the
// visible/invisible split produced by query.Service.Search.
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	limit := int(parseUintQuery(c.Query("limit"), 20))

	text := c.Query("text")
	if tag := c.Query("tag"); tag != "" {
		text = strings.TrimSpace(text + " #" + tag)
	}

	bbox, err := parseBboxQuery(c.Query("bbox"))
	if err != nil {
		return respondErr(c, domain.ErrInvalidPosition, "place")
	}

	results, invisible, err := h.Query.Search(c.UserContext(), query.SearchRequest{
		Bbox:       bbox,
		Categories: splitCSV(c.Query("categories")),
		IDs:        splitCSV(c.Query("ids")),
		Text:       text,
		Limit:      limit,
	})
	if err != nil {
		return respondErr(c, err, "place")
	}

	return httpx.OK(c, fiber.Map{"visible": results, "invisible": invisible})
}

// GlobalSearch executes a bbox-unbounded query over `categories`/`text`/`limit`.
func (h *SearchHandler) GlobalSearch(c *fiber.Ctx) error {
	limit := int(parseUintQuery(c.Query("limit"), 20))

	results, err := h.Query.GlobalSearch(c.UserContext(), c.Query("text"), splitCSV(c.Query("categories")), limit)
	if err != nil {
		return respondErr(c, err, "place")
	}

	return httpx.OK(c, results)
}

func parseBboxQuery(s string) (geo.Bbox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geo.Bbox{}, domain.ErrInvalidPosition
	}

	vals := make([]float64, 4)

	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geo.Bbox{}, domain.ErrInvalidPosition
		}

		vals[i] = v
	}

	sw, err := geo.NewPointFromLatLng(vals[0], vals[1])
	if err != nil {
		return geo.Bbox{}, domain.ErrInvalidPosition
	}

	ne, err := geo.NewPointFromLatLng(vals[2], vals[3])
	if err != nil {
		return geo.Bbox{}, domain.ErrInvalidPosition
	}

	return geo.Bbox{SW: sw, NE: ne}, nil
}
