package postgres

import (
	"context"
	"database/sql"

	"placedir/internal/domain"
	"placedir/internal/geo"

	"github.com/Masterminds/squirrel"
)

// EventRepository implements the non-revisioned Event lifecycle
// recovered from the original source's event subsystem: create,
// update, delete, lookup, and bbox/time window queries.
type EventRepository struct {
	db *DB
}

// NewEventRepository builds an EventRepository over db.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// CreateEvent inserts a new event row and its tags.
func (r *EventRepository) CreateEvent(ctx context.Context, e domain.Event) error {
	return r.db.WithExclusive(ctx, func(ctx context.Context, tx querier) error {
		var street, zip, city, country, email, phone sql.NullString

		if e.Address != nil {
			street, zip, city, country = nullableString(e.Address.Street), nullableString(e.Address.Zip),
				nullableString(e.Address.City), nullableString(e.Address.Country)
		}

		if e.Contact != nil {
			email, phone = nullableString(e.Contact.Email), nullableString(e.Contact.Phone)
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO event (uid, title, description, start, "end", lat_fix, lng_fix,
				street, zip, city, country, email, phone, organizer, created_by)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
			e.UID, e.Title, e.Description, e.Start, e.End, e.Pos.LatFix, e.Pos.LngFix,
			street, zip, city, country, email, phone, e.Organizer, nullableString(e.CreatedBy))
		if err != nil {
			return err
		}

		for _, tag := range e.Tags {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO event_tag (event_uid, tag) VALUES ($1,$2) ON CONFLICT DO NOTHING`, e.UID, tag); err != nil {
				return err
			}
		}

		return nil
	})
}

// UpdateEvent replaces the mutable fields and tag set of an event.
func (r *EventRepository) UpdateEvent(ctx context.Context, e domain.Event) error {
	return r.db.WithExclusive(ctx, func(ctx context.Context, tx querier) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE event SET title=$1, description=$2, start=$3, "end"=$4, lat_fix=$5, lng_fix=$6, organizer=$7 WHERE uid=$8`,
			e.Title, e.Description, e.Start, e.End, e.Pos.LatFix, e.Pos.LngFix, e.Organizer, e.UID)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM event_tag WHERE event_uid=$1`, e.UID); err != nil {
			return err
		}

		for _, tag := range e.Tags {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO event_tag (event_uid, tag) VALUES ($1,$2) ON CONFLICT DO NOTHING`, e.UID, tag); err != nil {
				return err
			}
		}

		return nil
	})
}

// DeleteEvent removes an event and its tags.
func (r *EventRepository) DeleteEvent(ctx context.Context, uid string) error {
	_, err := r.db.Pool.ExecContext(ctx, `DELETE FROM event WHERE uid=$1`, uid)
	return err
}

// GetEvent looks up a single event by uid.
func (r *EventRepository) GetEvent(ctx context.Context, uid string) (domain.Event, error) {
	events, err := r.queryEvents(ctx, squirrel.Eq{"e.uid": uid})
	if err != nil {
		return domain.Event{}, err
	}

	if len(events) == 0 {
		return domain.Event{}, domain.ErrNotFound
	}

	return events[0], nil
}

// EventsForBboxAndTime returns events within b whose [start, end) (end
// defaulting to start) intersects [since, until).
func (r *EventRepository) EventsForBboxAndTime(ctx context.Context, b geo.Bbox, since, until int64) ([]domain.Event, error) {
	pred := squirrel.And{
		squirrel.GtOrEq{"e.lat_fix": b.SW.LatFix},
		squirrel.LtOrEq{"e.lat_fix": b.NE.LatFix},
		squirrel.Lt{"e.start": until},
		squirrel.Or{squirrel.Gt{"e.\"end\"": since}, squirrel.Expr("e.\"end\" IS NULL AND e.start >= ?", since)},
	}

	events, err := r.queryEvents(ctx, pred)
	if err != nil {
		return nil, err
	}

	out := events[:0]

	for _, e := range events {
		if b.ContainsPoint(e.Pos) {
			out = append(out, e)
		}
	}

	return out, nil
}

func (r *EventRepository) queryEvents(ctx context.Context, pred squirrel.Sqlizer) ([]domain.Event, error) {
	sqlStr, args, err := psql.Select(
		"e.uid", "e.title", "e.description", "e.start", "e.\"end\"", "e.lat_fix", "e.lng_fix",
		"e.street", "e.zip", "e.city", "e.country", "e.email", "e.phone", "e.organizer", "e.created_by",
	).From("event e").Where(pred).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Pool.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Event

	idx := map[string]*domain.Event{}

	for rows.Next() {
		var (
			e                                                   domain.Event
			end                                                 sql.NullInt64
			street, zip, city, country, email, phone, createdBy sql.NullString
			latFix, lngFix                                      int32
		)

		if err := rows.Scan(&e.UID, &e.Title, &e.Description, &e.Start, &end, &latFix, &lngFix,
			&street, &zip, &city, &country, &email, &phone, &e.Organizer, &createdBy); err != nil {
			return nil, err
		}

		e.Pos = geo.Point{LatFix: latFix, LngFix: lngFix}
		e.CreatedBy = createdBy.String

		if end.Valid {
			v := end.Int64
			e.End = &v
		}

		if street.Valid {
			e.Address = &domain.Address{Street: street.String, Zip: zip.String, City: city.String, Country: country.String}
		}

		if email.Valid {
			e.Contact = &domain.Contact{Email: email.String, Phone: phone.String}
		}

		out = append(out, e)
		idx[e.UID] = &out[len(out)-1]
	}

	if err := attachEventTags(ctx, r.db.Pool, idx); err != nil {
		return nil, err
	}

	return out, rows.Err()
}

func attachEventTags(ctx context.Context, q querier, byUID map[string]*domain.Event) error {
	if len(byUID) == 0 {
		return nil
	}

	uids := make([]string, 0, len(byUID))
	for uid := range byUID {
		uids = append(uids, uid)
	}

	sqlStr, args, err := psql.Select("event_uid", "tag").From("event_tag").Where(squirrel.Eq{"event_uid": uids}).ToSql()
	if err != nil {
		return err
	}

	rows, err := q.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var uid, tag string
		if err := rows.Scan(&uid, &tag); err != nil {
			return err
		}

		if e, ok := byUID[uid]; ok {
			e.Tags = append(e.Tags, tag)
		}
	}

	return rows.Err()
}
