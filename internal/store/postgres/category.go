package postgres

import (
	"context"

	"github.com/Masterminds/squirrel"
)

// CategoryRepository implements the closed category vocabulary that
// maps category uids to canonical tag names, used by flows to merge
// category uids into a place's tag set. Search does not use it: the
// query service passes request categories to the index unchanged, as
// tag terms, so category uids are not resolved to tags and unknown
// uids are not dropped.
type CategoryRepository struct {
	db *DB
}

// NewCategoryRepository builds a CategoryRepository over db.
func NewCategoryRepository(db *DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// TagsForCategories resolves category uids to their canonical tags,
// silently dropping unknown uids.
func (r *CategoryRepository) TagsForCategories(ctx context.Context, uids []string) (map[string]string, error) {
	if len(uids) == 0 {
		return map[string]string{}, nil
	}

	sqlStr, args, err := psql.Select("uid", "tag").From("category").Where(squirrel.Eq{"uid": uids}).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Pool.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}

	for rows.Next() {
		var uid, tag string
		if err := rows.Scan(&uid, &tag); err != nil {
			return nil, err
		}

		out[uid] = tag
	}

	return out, rows.Err()
}

// AllCategories returns the full uid -> tag vocabulary.
func (r *CategoryRepository) AllCategories(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.Pool.QueryContext(ctx, `SELECT uid, tag FROM category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}

	for rows.Next() {
		var uid, tag string
		if err := rows.Scan(&uid, &tag); err != nil {
			return nil, err
		}

		out[uid] = tag
	}

	return out, rows.Err()
}
