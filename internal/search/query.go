package search

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"placedir/internal/domain"
	"placedir/internal/geo"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"
)

// IndexQuery is the input to the query compositor, mirroring the
// source's IndexQuery structure field-for-field.
type IndexQuery struct {
	IncludeBbox *geo.Bbox
	ExcludeBbox *geo.Bbox
	Categories  []string
	IDs         []string
	HashTags    []string
	TextTags    []string
	Text        string
}

// hashTagPattern matches a leading-# hashtag token in free text.
var hashTagPattern = regexp.MustCompile(`#\S+`)

// ExtractHashTags returns the lowercased, leading-#-stripped, unique
// hashtags found in text.
func ExtractHashTags(text string) []string {
	matches := hashTagPattern.FindAllString(text, -1)
	seen := map[string]bool{}

	var out []string

	for _, m := range matches {
		tag := strings.ToLower(strings.TrimPrefix(m, "#"))
		if tag != "" && !seen[tag] {
			seen[tag] = true

			out = append(out, tag)
		}
	}

	return out
}

// RemoveHashTags strips every hashtag token from text.
func RemoveHashTags(text string) string {
	return strings.TrimSpace(hashTagPattern.ReplaceAllString(text, ""))
}

// SplitTextToWords tokenizes s on whitespace/punctuation, lowercased,
// mirroring the text analyzer's own tokenization for the text_tags
// field of a request.
func SplitTextToWords(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	return fields
}

// QueryPlaces builds and executes the Boolean query compositor
// described in the component design, applying the rating-only or
// score-boosted-by-rating ranking mode depending on whether the query
// carries any text/text-tag clauses.
func (i *Index) QueryPlaces(q IndexQuery, limit int) ([]IndexedPlace, error) {
	bq := bleve.NewBooleanQuery()

	hasTextClause := q.Text != "" || len(q.TextTags) > 0

	if len(q.IDs) > 0 {
		bq.AddMust(disjunction(termQueries("uid", q.IDs)))
	}

	if q.IncludeBbox != nil {
		bq.AddMust(latRangeQuery(*q.IncludeBbox))
		addLngClause(bq, *q.IncludeBbox, true)
	}

	if q.ExcludeBbox != nil {
		bq.AddMustNot(latRangeQuery(*q.ExcludeBbox))
		addLngClause(bq, *q.ExcludeBbox, false)
	}

	if len(q.Categories) > 0 {
		bq.AddMust(disjunction(termQueries("tags", q.Categories)))
	}

	for _, tag := range q.HashTags {
		bq.AddMust(termQuery("tags", tag))
	}

	if hasTextClause {
		should := bleve.NewDisjunctionQuery()

		if q.Text != "" {
			mq := bleve.NewMatchQuery(q.Text)
			mq.SetField("title")
			should.AddQuery(mq)

			mqd := bleve.NewMatchQuery(q.Text)
			mqd.SetField("description")
			should.AddQuery(mqd)

			mqa := bleve.NewMatchQuery(q.Text)
			mqa.SetField("address")
			should.AddQuery(mqa)
		}

		for _, tag := range q.TextTags {
			should.AddQuery(termQuery("tags", tag))
		}

		bq.AddMust(should)
	}

	searchReq := bleve.NewSearchRequestOptions(bq, limit, 0, false)
	searchReq.Fields = []string{"uid", "lat", "lng", "title", "description", "tags",
		"total_rating", "diversity", "renewable", "fairness", "humanity", "transparency", "solidarity"}

	if !hasTextClause {
		searchReq.SortBy([]string{"-total_rating"})
	}

	i.mu.Lock()
	searcher, err := i.idx.Search(searchReq)
	i.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("search: query places: %w", err)
	}

	results := make([]IndexedPlace, 0, len(searcher.Hits))

	for _, hit := range searcher.Hits {
		results = append(results, hitToPlace(hit))
	}

	if !hasTextClause {
		// Rating-only mode: sort strictly by total_rating descending.
		// The source issues a redundant second search() call here;
		// per the Open Questions guidance, only one call is made.
		sort.SliceStable(results, func(a, b int) bool {
			return results[a].TotalRating > results[b].TotalRating
		})

		return results, nil
	}

	// Score-boosted-by-rating mode.
	scored := make([]scoredPlace, len(results))
	for idx, r := range results {
		scored[idx] = scoredPlace{
			place: r,
			score: boostedScore(float64(searcher.Hits[idx].Score), r.TotalRating),
		}
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].score > scored[b].score
	})

	out := make([]IndexedPlace, len(scored))
	for idx, s := range scored {
		out[idx] = s.place
	}

	return out, nil
}

type scoredPlace struct {
	place IndexedPlace
	score float64
}

// minRating and maxRating bound the total_rating scale: six contexts
// each in [-1, 2].
const (
	minRating = float64(domain.MinRatingValue * 6)
	maxRating = float64(domain.MaxRatingValue * 6)
	ratingContextCount = 6
)

// boostedScore implements log2(1+s) * boost(rating) exactly per the
// component design's formula.
func boostedScore(rawScore, rating float64) float64 {
	return math.Log2(1+rawScore) * boost(rating)
}

func boost(r float64) float64 {
	if r < 0 {
		return (r - minRating) / (0 - minRating)
	}

	return 1 + ratingContextCount*(r-0)
}

func hitToPlace(hit *search.DocumentMatch) IndexedPlace {
	p := IndexedPlace{UID: hit.ID}

	lat, _ := hit.Fields["lat"].(float64)
	lng, _ := hit.Fields["lng"].(float64)

	pt, err := geo.NewPointFromLatLng(lat, lng)
	if err == nil {
		p.Pos = pt
	}

	if title, ok := hit.Fields["title"].(string); ok {
		p.Title = title
	}

	if desc, ok := hit.Fields["description"].(string); ok {
		p.Description = desc
	}

	if total, ok := hit.Fields["total_rating"].(float64); ok {
		p.TotalRating = total
	}

	p.ByContext = map[domain.RatingContext]float64{}

	for ctx, field := range map[domain.RatingContext]string{
		domain.RatingDiversity:    "diversity",
		domain.RatingRenewable:    "renewable",
		domain.RatingFairness:     "fairness",
		domain.RatingHumanity:     "humanity",
		domain.RatingTransparency: "transparency",
		domain.RatingSolidarity:   "solidarity",
	} {
		if v, ok := hit.Fields[field].(float64); ok {
			p.ByContext[ctx] = v
		}
	}

	switch tags := hit.Fields["tags"].(type) {
	case string:
		p.Tags = []string{tags}
	case []any:
		for _, t := range tags {
			if s, ok := t.(string); ok {
				p.Tags = append(p.Tags, s)
			}
		}
	}

	return p
}

func termQuery(field, term string) query.Query {
	q := bleve.NewTermQuery(term)
	q.SetField(field)

	return q
}

func termQueries(field string, terms []string) []query.Query {
	out := make([]query.Query, 0, len(terms))
	for _, t := range terms {
		out = append(out, termQuery(field, t))
	}

	return out
}

func disjunction(queries []query.Query) query.Query {
	dq := bleve.NewDisjunctionQuery(queries...)
	dq.SetMin(1)

	return dq
}

// latRangeQuery builds an inclusive lat range clause. Both the include
// and exclude paths use an inclusive bound on lat per the component
// design; the caller decides Must vs MustNot.
func latRangeQuery(b geo.Bbox) query.Query {
	minLat, maxLat := b.SW.Lat(), b.NE.Lat()
	rq := bleve.NewNumericRangeInclusiveQuery(&minLat, &maxLat, boolPtr(true), boolPtr(true))
	rq.SetField("lat")

	return rq
}

// addLngClause adds a bbox's longitude constraint to bq. include is
// true for an IncludeBbox clause (points must fall inside b) and false
// for an ExcludeBbox clause (points must fall outside b).
//
// A non-wrap bbox covers the closed range [sw.lng, ne.lng] directly,
// so the clause is that range added as Must (include) or MustNot
// (exclude).
//
// A wrap bbox (sw.lng > ne.lng, e.g. sw=170, ne=-170) covers
// everything *except* the open gap (ne.lng, sw.lng) — so its coverage
// is the negation of that gap. Must/MustNot therefore flip relative to
// the non-wrap case: IncludeBbox excludes the gap (MustNot), and
// ExcludeBbox requires the gap (Must).
func addLngClause(bq *query.BooleanQuery, b geo.Bbox, include bool) {
	if !b.IsWrapAround() {
		minLng, maxLng := b.SW.Lng(), b.NE.Lng()
		rq := bleve.NewNumericRangeInclusiveQuery(&minLng, &maxLng, boolPtr(true), boolPtr(true))
		rq.SetField("lng")

		if include {
			bq.AddMust(rq)
		} else {
			bq.AddMustNot(rq)
		}

		return
	}

	lo, hi := b.NE.Lng(), b.SW.Lng()
	gap := bleve.NewNumericRangeInclusiveQuery(&lo, &hi, boolPtr(false), boolPtr(false))
	gap.SetField("lng")

	if include {
		bq.AddMustNot(gap)
	} else {
		bq.AddMust(gap)
	}
}

func boolPtr(b bool) *bool { return &b }
