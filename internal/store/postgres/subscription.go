package postgres

import (
	"context"

	"placedir/internal/domain"
	"placedir/internal/geo"
)

// SubscriptionRepository implements BboxSubscription persistence,
// feeding the CreatePlace notification step.
type SubscriptionRepository struct {
	db *DB
}

// NewSubscriptionRepository builds a SubscriptionRepository over db.
func NewSubscriptionRepository(db *DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// CreateSubscription inserts a new bbox subscription.
func (r *SubscriptionRepository) CreateSubscription(ctx context.Context, s domain.BboxSubscription) error {
	_, err := r.db.Pool.ExecContext(ctx,
		`INSERT INTO bbox_subscription (uid, owner_email, sw_lat, sw_lng, ne_lat, ne_lng) VALUES ($1,$2,$3,$4,$5,$6)`,
		s.UID, s.OwnerEmail, s.Bbox.SWLat, s.Bbox.SWLng, s.Bbox.NELat, s.Bbox.NELng)

	return err
}

// DeleteSubscription removes a subscription by uid.
func (r *SubscriptionRepository) DeleteSubscription(ctx context.Context, uid string) error {
	_, err := r.db.Pool.ExecContext(ctx, `DELETE FROM bbox_subscription WHERE uid=$1`, uid)
	return err
}

// AllSubscriptionsForBbox returns the owner emails of every
// subscription whose bbox contains pos — evaluated in Go rather than
// SQL since wrap-around containment is not expressible as a simple
// column comparison.
func (r *SubscriptionRepository) AllSubscriptionsForBbox(ctx context.Context, pos geo.Point) ([]string, error) {
	rows, err := r.db.Pool.QueryContext(ctx, `SELECT owner_email, sw_lat, sw_lng, ne_lat, ne_lng FROM bbox_subscription`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []string

	for rows.Next() {
		var (
			email                      string
			swLat, swLng, neLat, neLng float64
		)

		if err := rows.Scan(&email, &swLat, &swLng, &neLat, &neLng); err != nil {
			return nil, err
		}

		sw, err1 := geo.NewPointFromLatLng(swLat, swLng)
		ne, err2 := geo.NewPointFromLatLng(neLat, neLng)

		if err1 != nil || err2 != nil {
			continue
		}

		if (geo.Bbox{SW: sw, NE: ne}).ContainsPoint(pos) {
			owners = append(owners, email)
		}
	}

	return owners, rows.Err()
}
