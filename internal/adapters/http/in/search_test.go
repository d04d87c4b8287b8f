package in_test

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"placedir/internal/adapters/http/in"
	"placedir/internal/domain"
	"placedir/internal/geo"
	"placedir/internal/search"
	"placedir/internal/services/query"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func newSearchTestApp(t *testing.T) *fiber.App {
	t.Helper()

	idx, err := search.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	pt, err := geo.NewPointFromLatLng(10, 10)
	require.NoError(t, err)

	require.NoError(t, idx.AddOrUpdatePlace(domain.PlaceRevision{
		PlaceUID: "place-1",
		Title:    "Community Garden",
		Pos:      pt,
		Tags:     []string{"garden"},
	}, domain.AverageRatings{Total: 1}))
	require.NoError(t, idx.Flush())

	h := &in.SearchHandler{Query: &query.Service{Index: idx}}

	app := fiber.New()
	app.Get("/v1/search", h.Search)
	app.Get("/v1/search/global", h.GlobalSearch)

	return app
}

func TestSearchHandlerReturnsVisibleAndInvisible(t *testing.T) {
	app := newSearchTestApp(t)

	req := httptest.NewRequest("GET", "/v1/search?bbox=0,0,20,20", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var parsed struct {
		Visible   []map[string]any `json:"visible"`
		Invisible []map[string]any `json:"invisible"`
	}
	require.NoError(t, json.Unmarshal(body, &parsed))
	require.Len(t, parsed.Visible, 1)
}

func TestSearchHandlerRejectsMalformedBbox(t *testing.T) {
	app := newSearchTestApp(t)

	req := httptest.NewRequest("GET", "/v1/search?bbox=not-a-bbox", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.NotEqual(t, fiber.StatusOK, resp.StatusCode)
}

func TestGlobalSearchHandlerFiltersByCategory(t *testing.T) {
	app := newSearchTestApp(t)

	req := httptest.NewRequest("GET", "/v1/search/global?categories=garden", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var results []map[string]any
	require.NoError(t, json.Unmarshal(body, &results))
	require.Len(t, results, 1)
}
