package search_test

import (
	"testing"

	"placedir/internal/domain"
	"placedir/internal/geo"
	"placedir/internal/search"

	"github.com/stretchr/testify/require"
)

func mustPoint(t *testing.T, lat, lng float64) geo.Point {
	t.Helper()

	p, err := geo.NewPointFromLatLng(lat, lng)
	require.NoError(t, err)

	return p
}

func openTestIndex(t *testing.T) *search.Index {
	t.Helper()

	idx, err := search.Open("")
	require.NoError(t, err)

	t.Cleanup(func() { _ = idx.Close() })

	return idx
}

func TestAddOrUpdatePlaceAndQueryByBbox(t *testing.T) {
	idx := openTestIndex(t)

	rev := domain.PlaceRevision{
		PlaceUID: "place-1",
		Title:    "Community Garden",
		Pos:      mustPoint(t, 10, 10),
		Tags:     []string{"garden", "museum"},
	}

	require.NoError(t, idx.AddOrUpdatePlace(rev, domain.AverageRatings{Total: 1.5}))
	require.NoError(t, idx.Flush())

	bbox := geo.Bbox{SW: mustPoint(t, 0, 0), NE: mustPoint(t, 20, 20)}

	results, err := idx.QueryPlaces(search.IndexQuery{IncludeBbox: &bbox}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "place-1", results[0].UID)
	require.Equal(t, "Community Garden", results[0].Title)

	outside := geo.Bbox{SW: mustPoint(t, 30, 30), NE: mustPoint(t, 40, 40)}

	results, err = idx.QueryPlaces(search.IndexQuery{IncludeBbox: &outside}, 10)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestQueryPlacesIncludeBboxWrapAroundAntimeridian(t *testing.T) {
	idx := openTestIndex(t)

	require.NoError(t, idx.AddOrUpdatePlace(domain.PlaceRevision{
		PlaceUID: "inside-east",
		Title:    "Inside east",
		Pos:      mustPoint(t, 10, 179),
	}, domain.AverageRatings{}))

	require.NoError(t, idx.AddOrUpdatePlace(domain.PlaceRevision{
		PlaceUID: "inside-west",
		Title:    "Inside west",
		Pos:      mustPoint(t, 10, -179),
	}, domain.AverageRatings{}))

	require.NoError(t, idx.AddOrUpdatePlace(domain.PlaceRevision{
		PlaceUID: "outside-gap",
		Title:    "Outside the wrap region",
		Pos:      mustPoint(t, 10, 0),
	}, domain.AverageRatings{}))

	require.NoError(t, idx.Flush())

	// sw.lng=170, ne.lng=-170: the wrap bbox covers [170,180] U [-180,-170].
	wrap := geo.Bbox{SW: mustPoint(t, 0, 170), NE: mustPoint(t, 20, -170)}
	require.True(t, wrap.IsWrapAround())

	results, err := idx.QueryPlaces(search.IndexQuery{IncludeBbox: &wrap}, 10)
	require.NoError(t, err)

	uids := make([]string, 0, len(results))
	for _, r := range results {
		uids = append(uids, r.UID)
	}

	require.ElementsMatch(t, []string{"inside-east", "inside-west"}, uids)
}

func TestQueryPlacesExcludeBboxWrapAroundAntimeridian(t *testing.T) {
	idx := openTestIndex(t)

	// Both places lie north of the bbox's latitude band, so the exclude
	// bbox's latitude clause removes neither and only the longitude
	// clause decides.
	require.NoError(t, idx.AddOrUpdatePlace(domain.PlaceRevision{
		PlaceUID: "inside-wrap",
		Title:    "Inside the wrap longitudes",
		Pos:      mustPoint(t, 30, 179),
	}, domain.AverageRatings{}))

	require.NoError(t, idx.AddOrUpdatePlace(domain.PlaceRevision{
		PlaceUID: "outside-wrap",
		Title:    "Outside the wrap longitudes",
		Pos:      mustPoint(t, 30, 0),
	}, domain.AverageRatings{}))

	require.NoError(t, idx.Flush())

	wrap := geo.Bbox{SW: mustPoint(t, 0, 170), NE: mustPoint(t, 20, -170)}
	require.True(t, wrap.IsWrapAround())

	results, err := idx.QueryPlaces(search.IndexQuery{ExcludeBbox: &wrap}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "outside-wrap", results[0].UID)
}

func TestQueryPlacesByCategoryAndHashTag(t *testing.T) {
	idx := openTestIndex(t)

	require.NoError(t, idx.AddOrUpdatePlace(domain.PlaceRevision{
		PlaceUID: "place-garden",
		Title:    "Garden",
		Pos:      mustPoint(t, 1, 1),
		Tags:     []string{"garden"},
	}, domain.AverageRatings{}))

	require.NoError(t, idx.AddOrUpdatePlace(domain.PlaceRevision{
		PlaceUID: "place-museum",
		Title:    "Museum",
		Pos:      mustPoint(t, 1, 1),
		Tags:     []string{"museum"},
	}, domain.AverageRatings{}))

	require.NoError(t, idx.Flush())

	results, err := idx.QueryPlaces(search.IndexQuery{Categories: []string{"garden"}}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "place-garden", results[0].UID)

	results, err = idx.QueryPlaces(search.IndexQuery{HashTags: []string{"museum"}}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "place-museum", results[0].UID)
}

func TestQueryPlacesRatingOnlySortsByTotalRatingDescending(t *testing.T) {
	idx := openTestIndex(t)

	require.NoError(t, idx.AddOrUpdatePlace(domain.PlaceRevision{
		PlaceUID: "low",
		Title:    "Low rated",
		Pos:      mustPoint(t, 1, 1),
	}, domain.AverageRatings{Total: 0.5}))

	require.NoError(t, idx.AddOrUpdatePlace(domain.PlaceRevision{
		PlaceUID: "high",
		Title:    "High rated",
		Pos:      mustPoint(t, 1, 1),
	}, domain.AverageRatings{Total: 5}))

	require.NoError(t, idx.Flush())

	results, err := idx.QueryPlaces(search.IndexQuery{IDs: []string{"low", "high"}}, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "high", results[0].UID)
	require.Equal(t, "low", results[1].UID)
}

func TestAddOrUpdatePlaceReplacesExistingDocument(t *testing.T) {
	idx := openTestIndex(t)

	rev := domain.PlaceRevision{PlaceUID: "place-1", Title: "Old Title", Pos: mustPoint(t, 1, 1)}
	require.NoError(t, idx.AddOrUpdatePlace(rev, domain.AverageRatings{}))

	rev.Title = "New Title"
	require.NoError(t, idx.AddOrUpdatePlace(rev, domain.AverageRatings{}))
	require.NoError(t, idx.Flush())

	results, err := idx.QueryPlaces(search.IndexQuery{IDs: []string{"place-1"}}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "New Title", results[0].Title)
}

func TestRemovePlaceByID(t *testing.T) {
	idx := openTestIndex(t)

	require.NoError(t, idx.AddOrUpdatePlace(domain.PlaceRevision{
		PlaceUID: "place-1",
		Pos:      mustPoint(t, 1, 1),
	}, domain.AverageRatings{}))
	require.NoError(t, idx.Flush())

	require.NoError(t, idx.RemovePlaceByID("place-1"))
	require.NoError(t, idx.Flush())

	results, err := idx.QueryPlaces(search.IndexQuery{IDs: []string{"place-1"}}, 10)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestExtractHashTagsAndRemoveHashTags(t *testing.T) {
	text := "Lovely spot #garden #Museum for walks #garden"

	require.Equal(t, []string{"garden", "museum"}, search.ExtractHashTags(text))
	require.Equal(t, "Lovely spot   for walks", search.RemoveHashTags(text))
}

func TestSplitTextToWords(t *testing.T) {
	require.Equal(t, []string{"hello", "world", "42"}, search.SplitTextToWords("Hello, World! 42"))
}
