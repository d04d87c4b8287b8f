// Package query implements the read-side flows: place lookup, the
// visible/invisible bbox search split, recently-changed feed, tag
// popularity, and event windowing.
package query

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"placedir/internal/authz"
	"placedir/internal/cache"
	"placedir/internal/domain"
	"placedir/internal/geo"
	"placedir/internal/search"
	"placedir/internal/store/postgres"
	"placedir/pkg/mlog"
)

// Service composes the store and search index into the read-side
// flow orchestration layer. Cache is optional: a nil value simply
// disables the short-TTL cache in front of GetPlaces/RecentlyChanged.
type Service struct {
	Places   *postgres.PlaceRepository
	Ratings  *postgres.RatingRepository
	Comments *postgres.CommentRepository
	Orgs     *postgres.OrganizationRepository
	Events   *postgres.EventRepository
	Index    *search.Index
	Cache    *cache.Cache
	Logger   mlog.Logger
}

// GetPlaces returns the current revision of each place, with fields
// stripped per the caller's role and owned tags. Each place's pre-
// stripping revision (so the cached value is valid for every caller
// role) is cached individually for Service.Cache's TTL, keyed on its
// own uid: a write to one place invalidates exactly its own entry
// (see command.Service.Cache) without disturbing any other place's
// cached revision or requiring the cache to track every uid
// combination a caller has ever queried together.
func (s *Service) GetPlaces(ctx context.Context, uids []string, actor authz.Actor) ([]domain.PlaceRevision, error) {
	revs, err := s.getPlaces(ctx, uids)
	if err != nil {
		return nil, err
	}

	allOwnedTags, err := s.Orgs.AllOwnedTags(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.PlaceRevision, len(revs))
	copy(out, revs)

	for i := range out {
		authz.StripForExport(&out[i], actor.Role, actor.OwnedTags, allOwnedTags)
	}

	return out, nil
}

func (s *Service) getPlaces(ctx context.Context, uids []string) ([]domain.PlaceRevision, error) {
	out := make([]domain.PlaceRevision, 0, len(uids))

	var misses []string

	for _, uid := range uids {
		var rev domain.PlaceRevision
		if s.Cache.Get(ctx, PlaceCacheKey(uid), &rev) {
			out = append(out, rev)
		} else {
			misses = append(misses, uid)
		}
	}

	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := s.Places.GetPlaces(ctx, misses)
	if err != nil {
		return nil, err
	}

	for _, rev := range fetched {
		s.Cache.Set(ctx, PlaceCacheKey(rev.PlaceUID), rev)
		out = append(out, rev)
	}

	return out, nil
}

// PlaceCacheKey is the cache key under which a single place's current
// revision is stored. Exported so command.Service can invalidate the
// same entry a write touches.
func PlaceCacheKey(uid string) string {
	return "places:" + uid
}

// SearchRequest is the input to Search, mirroring IndexQuery plus the
// result limit and the include bbox that drives the visible/invisible
// split.
type SearchRequest struct {
	Bbox       geo.Bbox
	Categories []string
	IDs        []string
	Text       string
	Limit      int
}

// Search executes the visible/invisible bbox split described in the
// component design: a primary query scoped to the requested bbox
// (visible), and if that yields fewer than the requested limit, a
// secondary query over the 10%-extended bbox excluding the original
// (invisible), for the remainder.
func (s *Service) Search(ctx context.Context, req SearchRequest) (visible, invisible []search.IndexedPlace, err error) {
	hashTags := search.ExtractHashTags(req.Text)
	plainText := search.RemoveHashTags(req.Text)

	primary := search.IndexQuery{
		IncludeBbox: &req.Bbox,
		Categories:  req.Categories,
		IDs:         req.IDs,
		HashTags:    hashTags,
		Text:        plainText,
	}

	visible, err = s.Index.QueryPlaces(primary, req.Limit)
	if err != nil {
		return nil, nil, fmt.Errorf("query: search: %w", err)
	}

	if len(visible) >= req.Limit {
		return visible, nil, nil
	}

	extended := geo.ExtendBbox(req.Bbox)
	secondary := search.IndexQuery{
		IncludeBbox: &extended,
		ExcludeBbox: &req.Bbox,
		Categories:  req.Categories,
		IDs:         req.IDs,
		HashTags:    hashTags,
		Text:        plainText,
	}

	invisible, err = s.Index.QueryPlaces(secondary, req.Limit-len(visible))
	if err != nil {
		return nil, nil, fmt.Errorf("query: search (extended): %w", err)
	}

	return visible, invisible, nil
}

// GlobalSearch executes a bbox-unbounded query, used for text- or
// category-only searches that intentionally span the whole index.
func (s *Service) GlobalSearch(ctx context.Context, text string, categories []string, limit int) ([]search.IndexedPlace, error) {
	return s.Index.QueryPlaces(search.IndexQuery{
		Categories: categories,
		HashTags:   search.ExtractHashTags(text),
		Text:       search.RemoveHashTags(text),
	}, limit)
}

// RecentlyChanged returns the status-log feed for the half-open
// interval [since, until), cached for Service.Cache's TTL keyed on the
// full set of query parameters.
func (s *Service) RecentlyChanged(ctx context.Context, since, until *int64, offset, limit uint64) ([]postgres.ChangeLogEntry, error) {
	key := recentlyChangedCacheKey(since, until, offset, limit)

	var entries []postgres.ChangeLogEntry
	if s.Cache.Get(ctx, key, &entries) {
		return entries, nil
	}

	entries, err := s.Places.RecentlyChanged(ctx, since, until, offset, limit)
	if err != nil {
		return nil, err
	}

	s.Cache.Set(ctx, key, entries)

	return entries, nil
}

func recentlyChangedCacheKey(since, until *int64, offset, limit uint64) string {
	var b strings.Builder

	b.WriteString("recently-changed:")
	b.WriteString(optionalInt64(since))
	b.WriteByte(':')
	b.WriteString(optionalInt64(until))
	b.WriteByte(':')
	b.WriteString(strconv.FormatUint(offset, 10))
	b.WriteByte(':')
	b.WriteString(strconv.FormatUint(limit, 10))

	return b.String()
}

func optionalInt64(v *int64) string {
	if v == nil {
		return "-"
	}

	return strconv.FormatInt(*v, 10)
}

// MostPopularTags returns tag usage counts bounded to [minCount, maxCount].
func (s *Service) MostPopularTags(ctx context.Context, minCount, maxCount int64, offset, limit uint64) ([]postgres.TagCount, error) {
	return s.Places.MostPopularTags(ctx, minCount, maxCount, offset, limit)
}

// EventsForBboxAndTime returns events within b whose time window
// intersects [since, until), stripped of creator identity unless the
// caller owns the event by tag.
func (s *Service) EventsForBboxAndTime(ctx context.Context, b geo.Bbox, since, until int64, actor authz.Actor) ([]domain.Event, error) {
	events, err := s.Events.EventsForBboxAndTime(ctx, b, since, until)
	if err != nil {
		return nil, err
	}

	for i := range events {
		authz.StripEventForExport(&events[i], actor.OwnedTags)
	}

	return events, nil
}

// RatingsAndComments returns a place's live ratings together with
// their comments, for rendering a place's review thread.
func (s *Service) RatingsAndComments(ctx context.Context, placeUID string) ([]domain.Rating, map[string][]domain.Comment, error) {
	ratings, err := s.Ratings.LoadRatingsForPlace(ctx, placeUID)
	if err != nil {
		return nil, nil, err
	}

	byRating := map[string][]domain.Comment{}

	for _, r := range ratings {
		comments, err := s.commentsForRating(ctx, r.UID)
		if err != nil {
			return nil, nil, err
		}

		byRating[r.UID] = comments
	}

	return ratings, byRating, nil
}

func (s *Service) commentsForRating(ctx context.Context, ratingUID string) ([]domain.Comment, error) {
	return s.Comments.LoadCommentsForRating(ctx, ratingUID)
}
