package postgres

import "context"

// ArchivePlaceCascade soft-archives every live rating and comment of
// the given places with the same timestamp, in one transaction, so
// that the invariant "a comment's archived_at >= its rating's
// archived_at" always holds by construction.
func ArchivePlaceCascade(ctx context.Context, db *DB, ratings *RatingRepository, comments *CommentRepository, placeUIDs []string, at int64) error {
	return db.WithExclusive(ctx, func(ctx context.Context, tx querier) error {
		if _, err := ratings.ArchiveRatingsOfPlaces(ctx, tx, placeUIDs, at); err != nil {
			return err
		}

		_, err := comments.ArchiveCommentsOfPlaces(ctx, tx, placeUIDs, at)

		return err
	})
}
