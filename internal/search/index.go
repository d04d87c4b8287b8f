// Package search implements the place search index: a bleve-backed
// full-text + fast-field engine with a query compositor that mirrors
// the bounding-box, tag/category, and text clauses of the source
// system, plus its two ranking modes.
package search

import (
	"fmt"
	"sync"

	"placedir/internal/domain"
	"placedir/internal/geo"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

const (
	analyzerID   = "place_id"
	analyzerTag  = "place_tag"
	analyzerText = "place_text"
)

// IndexedPlace is the document shape returned by queries: the stable
// identity plus the fields needed to render and rank a result.
type IndexedPlace struct {
	UID         string
	Pos         geo.Point
	Title       string
	Description string
	Tags        []string
	TotalRating float64
	ByContext   map[domain.RatingContext]float64
}

// Index wraps a bleve index with the mutex-guarded writer/reader pair
// described in the concurrency model: all mutating calls serialize on
// one mutex, and a panicking mutation still releases it via defer
// rather than leaving the index permanently locked.
type Index struct {
	mu  sync.Mutex
	idx bleve.Index
}

// Open creates or opens a bleve index at path ("" for an in-memory
// index), registering the id/tag/text analyzers described in the
// component design.
func Open(path string) (*Index, error) {
	im := bleve.NewIndexMapping()

	if err := im.AddCustomAnalyzer(analyzerID, map[string]any{
		"type":      keyword.Name,
		"tokenizer": "single",
	}); err != nil {
		return nil, fmt.Errorf("search: register id analyzer: %w", err)
	}

	if err := im.AddCustomAnalyzer(analyzerTag, map[string]any{
		"type":          "custom",
		"tokenizer":     "single",
		"token_filters": []string{lowercase.Name},
	}); err != nil {
		return nil, fmt.Errorf("search: register tag analyzer: %w", err)
	}

	if err := im.AddCustomAnalyzer(analyzerText, map[string]any{
		"type":          "custom",
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	}); err != nil {
		return nil, fmt.Errorf("search: register text analyzer: %w", err)
	}

	placeMapping := bleve.NewDocumentMapping()

	idField := bleve.NewTextFieldMapping()
	idField.Analyzer = analyzerID
	idField.Store = true
	placeMapping.AddFieldMappingsAt("uid", idField)

	tagField := bleve.NewTextFieldMapping()
	tagField.Analyzer = analyzerTag
	placeMapping.AddFieldMappingsAt("tags", tagField)

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = analyzerText
	placeMapping.AddFieldMappingsAt("title", textField)
	placeMapping.AddFieldMappingsAt("description", textField)
	placeMapping.AddFieldMappingsAt("address", textField)

	latField := bleve.NewNumericFieldMapping()
	latField.Store = true
	placeMapping.AddFieldMappingsAt("lat", latField)

	lngField := bleve.NewNumericFieldMapping()
	lngField.Store = true
	placeMapping.AddFieldMappingsAt("lng", lngField)

	totalRatingField := bleve.NewNumericFieldMapping()
	totalRatingField.Store = true
	placeMapping.AddFieldMappingsAt("total_rating", totalRatingField)

	im.DefaultMapping = placeMapping
	im.DefaultAnalyzer = "standard"

	var (
		idx bleve.Index
		err error
	)

	if path == "" {
		idx, err = bleve.NewMemOnly(im)
	} else {
		idx, err = bleve.Open(path)
		if err != nil {
			idx, err = bleve.New(path, im)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("search: open index: %w", err)
	}

	return &Index{idx: idx}, nil
}

// Close releases the underlying bleve index.
func (i *Index) Close() error {
	return i.idx.Close()
}

// indexDoc is the wire shape fed to bleve for a place document.
type indexDoc struct {
	UID          string   `json:"uid"`
	Lat          float64  `json:"lat"`
	Lng          float64  `json:"lng"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Address      string   `json:"address"`
	Tags         []string `json:"tags"`
	Diversity    float64  `json:"diversity"`
	Renewable    float64  `json:"renewable"`
	Fairness     float64  `json:"fairness"`
	Humanity     float64  `json:"humanity"`
	Transparency float64  `json:"transparency"`
	Solidarity   float64  `json:"solidarity"`
	TotalRating  float64  `json:"total_rating"`
}

// AddOrUpdatePlace issues a delete-by-uid term then adds a new
// document, per the indexing contract in the component design.
func (i *Index) AddOrUpdatePlace(rev domain.PlaceRevision, avg domain.AverageRatings) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.idx.Delete(rev.PlaceUID); err != nil {
		return fmt.Errorf("search: delete before update: %w", err)
	}

	doc := indexDoc{
		UID:         rev.PlaceUID,
		Lat:         rev.Pos.Lat(),
		Lng:         rev.Pos.Lng(),
		Title:       rev.Title,
		Description: rev.Description,
		Address:     addressText(rev),
		Tags:        rev.Tags,
		TotalRating: avg.Total,
	}

	doc.Diversity = avg.ByContext[domain.RatingDiversity]
	doc.Renewable = avg.ByContext[domain.RatingRenewable]
	doc.Fairness = avg.ByContext[domain.RatingFairness]
	doc.Humanity = avg.ByContext[domain.RatingHumanity]
	doc.Transparency = avg.ByContext[domain.RatingTransparency]
	doc.Solidarity = avg.ByContext[domain.RatingSolidarity]

	if err := i.idx.Index(rev.PlaceUID, doc); err != nil {
		return fmt.Errorf("search: index document: %w", err)
	}

	return nil
}

func addressText(rev domain.PlaceRevision) string {
	if rev.Address == nil {
		return ""
	}

	return rev.Address.Street + " " + rev.Address.Zip + " " + rev.Address.City + " " + rev.Address.Country
}

// RemovePlaceByID issues a delete-by-uid term. It does not flush.
func (i *Index) RemovePlaceByID(uid string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.idx.Delete(uid)
}

// Flush commits pending writes and makes them visible to subsequent
// queries. bleve's index already makes writes visible without a
// separate manual reload step, so Flush here is a synchronization
// point that holds the mutex briefly, matching the contract that any
// write completed before Flush returns is visible to every subsequent
// query.
func (i *Index) Flush() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	return nil
}
