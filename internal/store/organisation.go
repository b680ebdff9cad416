package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/alumninet/apiserver/types"
)

// OrganisationRepository handles persistence for organisations.
type OrganisationRepository struct {
	db *sql.DB
}

func NewOrganisationRepository(db *sql.DB) *OrganisationRepository {
	return &OrganisationRepository{db: db}
}

func (r *OrganisationRepository) GetByID(ctx context.Context, id int64) (types.Organisation, error) {
	const query = `SELECT id, name FROM organisations WHERE id = $1`
	var org types.Organisation
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&org.ID, &org.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Organisation{}, ErrNotFound
		}
		return types.Organisation{}, err
	}
	return org, nil
}

// GetOrCreateByName returns the organisation with the given name,
// creating it first if necessary. The upsert makes concurrent
// registrations under a new name converge on a single row.
func (r *OrganisationRepository) GetOrCreateByName(ctx context.Context, name string) (types.Organisation, error) {
	const query = `
		INSERT INTO organisations (name)
		VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name`
	var org types.Organisation
	if err := r.db.QueryRowContext(ctx, query, name).Scan(&org.ID, &org.Name); err != nil {
		return types.Organisation{}, translateErr(err)
	}
	return org, nil
}

func (r *OrganisationRepository) List(ctx context.Context) ([]types.Organisation, error) {
	const query = `SELECT id, name FROM organisations ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orgs := make([]types.Organisation, 0)
	for rows.Next() {
		var org types.Organisation
		if err := rows.Scan(&org.ID, &org.Name); err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orgs, nil
}
