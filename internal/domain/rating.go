package domain

// RatingContext is one of six orthogonal dimensions on which a place
// may be rated.
type RatingContext string

// The closed set of rating contexts.
const (
	RatingDiversity    RatingContext = "diversity"
	RatingRenewable    RatingContext = "renewable"
	RatingFairness     RatingContext = "fairness"
	RatingHumanity     RatingContext = "humanity"
	RatingTransparency RatingContext = "transparency"
	RatingSolidarity   RatingContext = "solidarity"
)

// RatingContexts lists all six contexts in a stable order, used when
// computing the total/average rating fed to the search index.
var RatingContexts = []RatingContext{
	RatingDiversity, RatingRenewable, RatingFairness,
	RatingHumanity, RatingTransparency, RatingSolidarity,
}

// MinRatingValue and MaxRatingValue bound a single Rating.Value.
const (
	MinRatingValue = -1
	MaxRatingValue = 2
)

// Rating is a single-dimension review of a place. Archival is soft
// and monotonic: once ArchivedAt is set it is never cleared.
type Rating struct {
	UID        string
	PlaceUID   string
	Context    RatingContext
	Value      int
	Title      string
	Source     string
	CreatedAt  int64
	ArchivedAt *int64
}

// Comment is free text attached to a Rating, with the same soft
// archival rule.
type Comment struct {
	UID        string
	RatingUID  string
	Text       string
	CreatedAt  int64
	ArchivedAt *int64
}

// AverageRatings summarizes a place's rating state for indexing: the
// mean value per context (0 when no ratings exist for that context)
// plus the total across all six contexts.
type AverageRatings struct {
	ByContext map[RatingContext]float64
	Total     float64
}
