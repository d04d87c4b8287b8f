package postgres

import (
	"context"
	"database/sql"

	"placedir/internal/domain"

	"github.com/Masterminds/squirrel"
)

// RatingRepository implements rating create/load/archive per the
// component design, including the place-cascading archive variant.
type RatingRepository struct {
	db *DB
}

// NewRatingRepository builds a RatingRepository over db.
func NewRatingRepository(db *DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// CreateRating inserts a new rating row.
func (r *RatingRepository) CreateRating(ctx context.Context, rating domain.Rating) error {
	_, err := r.db.Pool.ExecContext(ctx,
		`INSERT INTO rating (uid, place_uid, context, value, title, source, created_at) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		rating.UID, rating.PlaceUID, string(rating.Context), rating.Value, rating.Title, nullableString(rating.Source), rating.CreatedAt)

	return err
}

// LoadRatings loads the ratings identified by uids.
func (r *RatingRepository) LoadRatings(ctx context.Context, uids []string) ([]domain.Rating, error) {
	sqlStr, args, err := psql.Select("uid", "place_uid", "context", "value", "title", "source", "created_at", "archived_at").
		From("rating").Where(squirrel.Eq{"uid": uids}).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Pool.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRatings(rows)
}

// LoadRatingsForPlace loads every live (non-archived) rating of a place.
func (r *RatingRepository) LoadRatingsForPlace(ctx context.Context, placeUID string) ([]domain.Rating, error) {
	sqlStr, args, err := psql.Select("uid", "place_uid", "context", "value", "title", "source", "created_at", "archived_at").
		From("rating").Where(squirrel.Eq{"place_uid": placeUID}).Where("archived_at IS NULL").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Pool.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRatings(rows)
}

func scanRatings(rows *sql.Rows) ([]domain.Rating, error) {
	var out []domain.Rating

	for rows.Next() {
		var (
			rt         domain.Rating
			source     sql.NullString
			archivedAt sql.NullInt64
		)

		if err := rows.Scan(&rt.UID, &rt.PlaceUID, &rt.Context, &rt.Value, &rt.Title, &source, &rt.CreatedAt, &archivedAt); err != nil {
			return nil, err
		}

		rt.Source = source.String
		if archivedAt.Valid {
			v := archivedAt.Int64
			rt.ArchivedAt = &v
		}

		out = append(out, rt)
	}

	return out, rows.Err()
}

// ArchiveRatings soft-archives the given rating uids with at, leaving
// already-archived rows untouched (monotonic).
func (r *RatingRepository) ArchiveRatings(ctx context.Context, uids []string, at int64) (int64, error) {
	sqlStr, args, err := psql.Update("rating").Set("archived_at", at).
		Where(squirrel.Eq{"uid": uids}).Where("archived_at IS NULL").ToSql()
	if err != nil {
		return 0, err
	}

	res, err := r.db.Pool.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// ArchiveRatingsOfPlaces soft-archives every live rating of the given
// places, returning the affected uids so callers can cascade to
// comments with the same archived_at.
func (r *RatingRepository) ArchiveRatingsOfPlaces(ctx context.Context, tx querier, placeUIDs []string, at int64) ([]string, error) {
	sel, args, err := psql.Select("uid").From("rating").
		Where(squirrel.Eq{"place_uid": placeUIDs}).Where("archived_at IS NULL").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, sel, args...)
	if err != nil {
		return nil, err
	}

	var uids []string

	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			rows.Close()
			return nil, err
		}

		uids = append(uids, uid)
	}

	rows.Close()

	if len(uids) == 0 {
		return nil, nil
	}

	upd, uargs, err := psql.Update("rating").Set("archived_at", at).Where(squirrel.Eq{"uid": uids}).ToSql()
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, upd, uargs...); err != nil {
		return nil, err
	}

	return uids, nil
}

// AverageRatings computes the mean value per context and the total
// across all six contexts for a place's live ratings, used to feed
// the search index's boost scoring.
func (r *RatingRepository) AverageRatings(ctx context.Context, placeUID string) (domain.AverageRatings, error) {
	ratings, err := r.LoadRatingsForPlace(ctx, placeUID)
	if err != nil {
		return domain.AverageRatings{}, err
	}

	sums := map[domain.RatingContext]float64{}
	counts := map[domain.RatingContext]int{}

	for _, rt := range ratings {
		sums[rt.Context] += float64(rt.Value)
		counts[rt.Context]++
	}

	avg := domain.AverageRatings{ByContext: map[domain.RatingContext]float64{}}

	for _, c := range domain.RatingContexts {
		if counts[c] > 0 {
			avg.ByContext[c] = sums[c] / float64(counts[c])
		}

		avg.Total += avg.ByContext[c]
	}

	return avg, nil
}
