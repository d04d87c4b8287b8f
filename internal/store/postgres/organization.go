package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"placedir/internal/domain"
)

// OrganizationRepository implements organization create, api-token
// lookup, and deduplicated owned-tag enumeration.
type OrganizationRepository struct {
	db *DB
}

// NewOrganizationRepository builds an OrganizationRepository over db.
func NewOrganizationRepository(db *DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// CreateOrganization inserts the organization and its owned-tag set in
// one transaction.
func (r *OrganizationRepository) CreateOrganization(ctx context.Context, org domain.Organization) error {
	return r.db.WithExclusive(ctx, func(ctx context.Context, tx querier) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO organization (id, name, api_token) VALUES ($1,$2,$3)`,
			org.ID, org.Name, org.APIToken); err != nil {
			return err
		}

		for _, tag := range org.OwnedTags {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO organization_owned_tag (org_id, tag) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
				org.ID, tag); err != nil {
				return err
			}
		}

		return nil
	})
}

// FindByAPIToken looks up an organization and its owned tags by its
// opaque api token.
func (r *OrganizationRepository) FindByAPIToken(ctx context.Context, token string) (domain.Organization, error) {
	var org domain.Organization

	row := r.db.Pool.QueryRowContext(ctx, `SELECT id, name, api_token FROM organization WHERE api_token=$1`, token)

	if err := row.Scan(&org.ID, &org.Name, &org.APIToken); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Organization{}, fmt.Errorf("%w: organization with given token", domain.ErrNotFound)
		}

		return domain.Organization{}, err
	}

	rows, err := r.db.Pool.QueryContext(ctx, `SELECT tag FROM organization_owned_tag WHERE org_id=$1`, org.ID)
	if err != nil {
		return domain.Organization{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return domain.Organization{}, err
		}

		org.OwnedTags = append(org.OwnedTags, tag)
	}

	return org, rows.Err()
}

// AllOwnedTags enumerates every tag owned by any organization,
// deduplicated.
func (r *OrganizationRepository) AllOwnedTags(ctx context.Context) ([]string, error) {
	rows, err := r.db.Pool.QueryContext(ctx, `SELECT DISTINCT tag FROM organization_owned_tag ORDER BY tag`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []string

	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}

		tags = append(tags, tag)
	}

	return tags, rows.Err()
}
