package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"placedir/internal/domain"
	"placedir/internal/geo"

	"github.com/Masterminds/squirrel"
)

// PlaceRepository implements the revisioned place store described in
// the component design: create-or-update with optimistic revision
// advancement, archival, lookup of current revisions, a status-log
// driven recently-changed feed, and tag popularity aggregation.
type PlaceRepository struct {
	db *DB
}

// NewPlaceRepository builds a PlaceRepository over db.
func NewPlaceRepository(db *DB) *PlaceRepository {
	return &PlaceRepository{db: db}
}

// CreateOrUpdatePlace inserts rev as specified in the component design:
// rev.Rev == 0 creates the Place if absent; rev.Rev > 0 requires the
// Place's current pointer to equal rev.Rev-1, failing domain.ErrConflict
// otherwise. It writes the revision row, advances the pointer, appends
// a status-log entry, and inserts all tag rows in one transaction.
func (r *PlaceRepository) CreateOrUpdatePlace(ctx context.Context, rev domain.PlaceRevision, license string) error {
	if rev.Title == "" || license == "" {
		return fmt.Errorf("%w: title and license are required", domain.ErrInvalidInput)
	}

	return r.db.WithExclusive(ctx, func(ctx context.Context, tx querier) error {
		var currentRev sql.NullInt64

		row := tx.QueryRowContext(ctx, `SELECT current_rev FROM place WHERE uid = $1`, rev.PlaceUID)

		err := row.Scan(&currentRev)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if rev.Rev != 0 {
				return fmt.Errorf("%w: place %s does not exist for rev %d", domain.ErrConflict, rev.PlaceUID, rev.Rev)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO place (uid, current_rev, license) VALUES ($1, $2, $3)`,
				rev.PlaceUID, 0, license); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if !currentRev.Valid || currentRev.Int64 != rev.Rev-1 {
				return fmt.Errorf("%w: place %s current_rev=%v, expected rev-1=%d", domain.ErrConflict, rev.PlaceUID, currentRev, rev.Rev-1)
			}
		}

		var revisionID int64

		var street, zip, city, country, email, phone sql.NullString

		if rev.Address != nil {
			street, zip, city, country = sql.NullString{String: rev.Address.Street, Valid: true},
				sql.NullString{String: rev.Address.Zip, Valid: true},
				sql.NullString{String: rev.Address.City, Valid: true},
				sql.NullString{String: rev.Address.Country, Valid: true}
		}

		if rev.Contact != nil {
			email, phone = sql.NullString{String: rev.Contact.Email, Valid: true}, sql.NullString{String: rev.Contact.Phone, Valid: true}
		}

		insertRevision := psql.Insert("place_revision").
			Columns("place_uid", "rev", "created_at", "created_by", "status", "title", "description",
				"lat_fix", "lng_fix", "street", "zip", "city", "country", "email", "phone",
				"homepage", "image", "image_link").
			Values(rev.PlaceUID, rev.Rev, rev.CreatedAt, nullableString(rev.CreatedBy), int(rev.Status), rev.Title, rev.Description,
				rev.Pos.LatFix, rev.Pos.LngFix, street, zip, city, country, email, phone,
				nullableString(rev.Homepage), nullableString(rev.Image), nullableString(rev.ImageLink)).
			Suffix("RETURNING id")

		sqlStr, args, err := insertRevision.ToSql()
		if err != nil {
			return err
		}

		if err := tx.QueryRowContext(ctx, sqlStr, args...).Scan(&revisionID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `UPDATE place SET current_rev = $1 WHERE uid = $2`, rev.Rev, rev.PlaceUID); err != nil {
			return err
		}

		status := domain.Created
		note := "place created"

		if rev.ArchivedAt != nil {
			status = domain.Archived
			note = "place archived"
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO place_revision_review (revision_id, status, at, "by", context, note) VALUES ($1,$2,$3,$4,$5,$6)`,
			revisionID, int(status), rev.CreatedAt, nullableString(rev.CreatedBy), "place", note); err != nil {
			return err
		}

		for _, tag := range rev.Tags {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO place_revision_tag (revision_id, tag) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
				revisionID, tag)
			if err != nil && !isUniqueViolation(err) {
				return err
			}
		}

		return nil
	})
}

// ArchivePlaces transitions the current revision of each uid to
// Archived unless already archived, appending a status-log entry, and
// returns the number transitioned.
func (r *PlaceRepository) ArchivePlaces(ctx context.Context, uids []string, at int64, by string) (int, error) {
	transitioned := 0

	err := r.db.WithExclusive(ctx, func(ctx context.Context, tx querier) error {
		for _, uid := range uids {
			rows, err := tx.QueryContext(ctx, `
				SELECT pr.id, pr.status
				FROM place p JOIN place_revision pr ON pr.place_uid = p.uid AND pr.rev = p.current_rev
				WHERE p.uid = $1`, uid)
			if err != nil {
				return err
			}

			var (
				found      int
				revisionID int64
				status     int
			)

			for rows.Next() {
				if err := rows.Scan(&revisionID, &status); err != nil {
					rows.Close()
					return err
				}

				found++
			}

			rows.Close()

			switch {
			case found == 0:
				return fmt.Errorf("%w: place %s", domain.ErrNotFound, uid)
			case found > 1:
				return fmt.Errorf("%w: place %s has %d current revisions", domain.ErrInvariant, uid, found)
			}

			if domain.Status(status) == domain.Archived {
				continue
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO place_revision_review (revision_id, status, at, "by", context, note) VALUES ($1,$2,$3,$4,$5,$6)`,
				revisionID, int(domain.Archived), at, nullableString(by), "place", "place archived"); err != nil {
				return err
			}

			if _, err := tx.ExecContext(ctx,
				`UPDATE place_revision SET status = $1 WHERE id = $2`, int(domain.Archived), revisionID); err != nil {
				return err
			}

			transitioned++
		}

		return nil
	})

	return transitioned, err
}

// GetPlaces returns the current revision of each matching place with
// status >= Created, joined with its tags.
func (r *PlaceRepository) GetPlaces(ctx context.Context, uids []string) ([]domain.PlaceRevision, error) {
	q := psql.Select(
		"p.uid", "pr.id", "pr.rev", "pr.created_at", "pr.created_by", "pr.status", "pr.title", "pr.description",
		"pr.lat_fix", "pr.lng_fix", "pr.street", "pr.zip", "pr.city", "pr.country", "pr.email", "pr.phone",
		"pr.homepage", "pr.image", "pr.image_link",
	).From("place p").
		Join("place_revision pr ON pr.place_uid = p.uid AND pr.rev = p.current_rev").
		Where(squirrel.Eq{"p.uid": uids}).
		Where(squirrel.GtOrEq{"pr.status": int(domain.Created)})

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Pool.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PlaceRevision

	idx := map[int64]*domain.PlaceRevision{}

	for rows.Next() {
		var (
			rev                                                      domain.PlaceRevision
			id                                                       int64
			createdBy, street, zip, city, country, email, phone      sql.NullString
			homepage, image, imageLink                                sql.NullString
			status                                                   int
			latFix, lngFix                                           int32
		)

		if err := rows.Scan(&rev.PlaceUID, &id, &rev.Rev, &rev.CreatedAt, &createdBy, &status, &rev.Title, &rev.Description,
			&latFix, &lngFix, &street, &zip, &city, &country, &email, &phone, &homepage, &image, &imageLink); err != nil {
			return nil, err
		}

		rev.Status = domain.Status(status)
		rev.CreatedBy = createdBy.String
		rev.Pos = geo.Point{LatFix: latFix, LngFix: lngFix}
		rev.Homepage, rev.Image, rev.ImageLink = homepage.String, image.String, imageLink.String

		if street.Valid {
			rev.Address = &domain.Address{Street: street.String, Zip: zip.String, City: city.String, Country: country.String}
		}

		if email.Valid {
			rev.Contact = &domain.Contact{Email: email.String, Phone: phone.String}
		}

		out = append(out, rev)
		idx[id] = &out[len(out)-1]
	}

	if err := attachTags(ctx, r.db.Pool, idx); err != nil {
		return nil, err
	}

	return out, nil
}

func attachTags(ctx context.Context, q querier, byRevisionID map[int64]*domain.PlaceRevision) error {
	if len(byRevisionID) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(byRevisionID))
	for id := range byRevisionID {
		ids = append(ids, id)
	}

	sqlStr, args, err := psql.Select("revision_id", "tag").From("place_revision_tag").
		Where(squirrel.Eq{"revision_id": ids}).ToSql()
	if err != nil {
		return err
	}

	rows, err := q.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64

		var tag string

		if err := rows.Scan(&id, &tag); err != nil {
			return err
		}

		if rev, ok := byRevisionID[id]; ok {
			rev.Tags = append(rev.Tags, tag)
		}
	}

	return rows.Err()
}

// ChangeLogEntry is one row of the recently-changed feed: a revision
// annotated with the historical status/at/by of the log entry that
// produced it, rather than the revision's own creation metadata.
type ChangeLogEntry struct {
	Revision domain.PlaceRevision
	LogID    int64
	Status   domain.Status
	At       int64
	By       string
}

// RecentlyChanged returns revisions ordered by status-log created_at
// descending, tie-broken by log id ascending, filtered by the
// half-open interval [since, until).
func (r *PlaceRepository) RecentlyChanged(ctx context.Context, since, until *int64, offset, limit uint64) ([]ChangeLogEntry, error) {
	q := psql.Select(
		"rv.id", "rv.status", "rv.at", "rv.\"by\"",
		"pr.place_uid", "pr.rev", "pr.created_at", "pr.created_by", "pr.title", "pr.description",
		"pr.lat_fix", "pr.lng_fix",
	).From("place_revision_review rv").
		Join("place_revision pr ON pr.id = rv.revision_id").
		OrderBy("rv.at DESC", "rv.id ASC").
		Offset(offset).Limit(limit)

	if since != nil {
		q = q.Where(squirrel.GtOrEq{"rv.at": *since})
	}

	if until != nil {
		q = q.Where(squirrel.Lt{"rv.at": *until})
	}

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Pool.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChangeLogEntry

	for rows.Next() {
		var (
			e                     ChangeLogEntry
			status                int
			createdBy             sql.NullString
			latFix, lngFix        int32
		)

		if err := rows.Scan(&e.LogID, &status, &e.At, &e.By,
			&e.Revision.PlaceUID, &e.Revision.Rev, &e.Revision.CreatedAt, &createdBy,
			&e.Revision.Title, &e.Revision.Description, &latFix, &lngFix); err != nil {
			return nil, err
		}

		e.Status = domain.Status(status)
		e.Revision.CreatedBy = createdBy.String
		e.Revision.Pos = geo.Point{LatFix: latFix, LngFix: lngFix}
		out = append(out, e)
	}

	return out, rows.Err()
}

// TagCount is one row of the most-popular-tags aggregation.
type TagCount struct {
	Tag   string
	Count int64
}

// MostPopularTags aggregates tag usage across current revisions whose
// status >= Created, filters by count bounds (inclusive), and orders
// by count descending then tag ascending. Per DESIGN.md's Open
// Question resolution, aggregation, filtering and sorting are
// expressed as one explicit GROUP BY / HAVING / ORDER BY sequence.
func (r *PlaceRepository) MostPopularTags(ctx context.Context, minCount, maxCount int64, offset, limit uint64) ([]TagCount, error) {
	sqlStr, args, err := psql.Select("t.tag", "COUNT(*) AS cnt").
		From("place_revision_tag t").
		Join("place_revision pr ON pr.id = t.revision_id").
		Join("place p ON p.uid = pr.place_uid AND p.current_rev = pr.rev").
		Where(squirrel.GtOrEq{"pr.status": int(domain.Created)}).
		GroupBy("t.tag").
		Having(squirrel.And{squirrel.GtOrEq{"COUNT(*)": minCount}, squirrel.LtOrEq{"COUNT(*)": maxCount}}).
		OrderBy("cnt DESC", "t.tag ASC").
		Offset(offset).Limit(limit).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Pool.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TagCount

	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, err
		}

		out = append(out, tc)
	}

	return out, rows.Err()
}

// AllUIDs returns the uid of every place with status >= Created,
// for rebuilding the search index from scratch.
func (r *PlaceRepository) AllUIDs(ctx context.Context) ([]string, error) {
	sqlStr, args, err := psql.Select("p.uid").
		From("place p").
		Join("place_revision pr ON pr.place_uid = p.uid AND pr.rev = p.current_rev").
		Where(squirrel.GtOrEq{"pr.status": int(domain.Created)}).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Pool.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var uids []string

	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}

		uids = append(uids, uid)
	}

	return uids, rows.Err()
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
