package postgres

import (
	"context"
	"database/sql"

	"placedir/internal/domain"

	"github.com/Masterminds/squirrel"
)

// CommentRepository implements comment create/load/archive, including
// the rating-join cascade variant used when archiving a place.
type CommentRepository struct {
	db *DB
}

// NewCommentRepository builds a CommentRepository over db.
func NewCommentRepository(db *DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// CreateComment inserts a new comment row.
func (r *CommentRepository) CreateComment(ctx context.Context, c domain.Comment) error {
	_, err := r.db.Pool.ExecContext(ctx,
		`INSERT INTO comment (uid, rating_uid, text, created_at) VALUES ($1,$2,$3,$4)`,
		c.UID, c.RatingUID, c.Text, c.CreatedAt)

	return err
}

// LoadComments loads the comments identified by uids.
func (r *CommentRepository) LoadComments(ctx context.Context, uids []string) ([]domain.Comment, error) {
	sqlStr, args, err := psql.Select("uid", "rating_uid", "text", "created_at", "archived_at").
		From("comment").Where(squirrel.Eq{"uid": uids}).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Pool.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanComments(rows)
}

// LoadCommentsForRating loads every live comment attached to a rating.
func (r *CommentRepository) LoadCommentsForRating(ctx context.Context, ratingUID string) ([]domain.Comment, error) {
	sqlStr, args, err := psql.Select("uid", "rating_uid", "text", "created_at", "archived_at").
		From("comment").Where(squirrel.Eq{"rating_uid": ratingUID}).Where("archived_at IS NULL").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Pool.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanComments(rows)
}

func scanComments(rows *sql.Rows) ([]domain.Comment, error) {
	var out []domain.Comment

	for rows.Next() {
		var (
			c          domain.Comment
			archivedAt sql.NullInt64
		)

		if err := rows.Scan(&c.UID, &c.RatingUID, &c.Text, &c.CreatedAt, &archivedAt); err != nil {
			return nil, err
		}

		if archivedAt.Valid {
			v := archivedAt.Int64
			c.ArchivedAt = &v
		}

		out = append(out, c)
	}

	return out, rows.Err()
}

// ArchiveComments soft-archives the given comment uids with at.
func (r *CommentRepository) ArchiveComments(ctx context.Context, uids []string, at int64) (int64, error) {
	sqlStr, args, err := psql.Update("comment").Set("archived_at", at).
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

// ArchiveCommentsOfPlaces cascades archival via the rating join: every
// live comment of any rating belonging to one of placeUIDs is archived
// with the same at; the rating's own archived state is not checked.
// Invariant: the archived comment's archived_at must be >= the owning
// rating's archived_at, which holds when the ratings are archived with
// the same at in the same transaction.
func (r *CommentRepository) ArchiveCommentsOfPlaces(ctx context.Context, tx querier, placeUIDs []string, at int64) (int64, error) {
	sel, args, err := psql.Select("c.uid").From("comment c").
		Join("rating r ON r.uid = c.rating_uid").
		Where(squirrel.Eq{"r.place_uid": placeUIDs}).
		Where("c.archived_at IS NULL").ToSql()
	if err != nil {
		return 0, err
	}

	rows, err := tx.QueryContext(ctx, sel, args...)
	if err != nil {
		return 0, err
	}

	var uids []string

	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			rows.Close()
			return 0, err
		}

		uids = append(uids, uid)
	}

	rows.Close()

	if len(uids) == 0 {
		return 0, nil
	}

	upd, uargs, err := psql.Update("comment").Set("archived_at", at).Where(squirrel.Eq{"uid": uids}).ToSql()
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, upd, uargs...)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
