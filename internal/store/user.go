package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alumninet/apiserver/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// userColumns is the full projection, organisation expanded via LEFT JOIN.
const userColumns = `
	u.id, u.email, u.name, u.role, u.batch, u.bio, u.website, u.github,
	u.linkedin, u.picture, u.password_hash, u.organisation_id,
	u.created_at, u.updated_at, o.id, o.name`

const userFrom = `
	FROM users u
	LEFT JOIN organisations o ON o.id = u.organisation_id`

func scanUser(row interface{ Scan(...any) error }) (types.User, error) {
	var (
		user    types.User
		orgID   sql.NullInt64
		joinID  sql.NullInt64
		orgName sql.NullString
	)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Role,
		&user.Batch,
		&user.Bio,
		&user.Website,
		&user.Github,
		&user.Linkedin,
		&user.Picture,
		&user.PasswordHash,
		&orgID,
		&user.CreatedAt,
		&user.UpdatedAt,
		&joinID,
		&orgName,
	)
	if err != nil {
		return types.User{}, err
	}
	if orgID.Valid {
		id := orgID.Int64
		user.OrganisationID = &id
	}
	if joinID.Valid {
		user.Organisation = &types.Organisation{ID: joinID.Int64, Name: orgName.String}
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (types.User, error) {
	query := `SELECT` + userColumns + userFrom + ` WHERE u.id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	query := `SELECT` + userColumns + userFrom + ` WHERE u.email = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

// ListOptions narrows a directory listing.
type ListOptions struct {
	// Role restricts the listing to a single role when non-empty.
	Role string
	// OrganisationID restricts the listing to one organisation's
	// members when non-nil.
	OrganisationID *int64
}

// List returns users newest first, organisation expanded.
func (r *UserRepository) List(ctx context.Context, opts ListOptions) ([]types.User, error) {
	query := `SELECT` + userColumns + userFrom
	var (
		conds []string
		args  []any
	)
	if opts.Role != "" {
		args = append(args, opts.Role)
		conds = append(conds, fmt.Sprintf("u.role = $%d", len(args)))
	}
	if opts.OrganisationID != nil {
		args = append(args, *opts.OrganisationID)
		conds = append(conds, fmt.Sprintf("u.organisation_id = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY u.created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]types.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (email, name, role, batch, bio, website, github,
			linkedin, picture, password_hash, organisation_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`
	var orgID sql.NullInt64
	if user.OrganisationID != nil {
		orgID = sql.NullInt64{Int64: *user.OrganisationID, Valid: true}
	}
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Email,
		user.Name,
		user.Role,
		user.Batch,
		user.Bio,
		user.Website,
		user.Github,
		user.Linkedin,
		user.Picture,
		user.PasswordHash,
		orgID,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		return types.User{}, translateErr(err)
	}
	return user, nil
}

// UpdateByID applies a sparse patch: only fields carried by the patch
// change, everything else keeps its stored value. Returns the updated
// record with organisation expanded.
func (r *UserRepository) UpdateByID(ctx context.Context, id int64, patch types.UserPatch) (types.User, error) {
	setClause, args := buildUserPatch(patch)
	if len(args) == 0 {
		return r.GetByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d", setClause, len(args))
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return types.User{}, translateErr(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.User{}, err
	}
	if affected == 0 {
		return types.User{}, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// buildUserPatch turns the present patch fields into a SET clause and
// its positional arguments. updated_at is always touched.
func buildUserPatch(patch types.UserPatch) (string, []any) {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Email != nil {
		add("email", *patch.Email)
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Role != nil {
		add("role", *patch.Role)
	}
	if patch.Batch != nil {
		add("batch", *patch.Batch)
	}
	if patch.Bio != nil {
		add("bio", *patch.Bio)
	}
	if patch.Website != nil {
		add("website", *patch.Website)
	}
	if patch.Github != nil {
		add("github", *patch.Github)
	}
	if patch.Linkedin != nil {
		add("linkedin", *patch.Linkedin)
	}
	if patch.Picture != nil {
		add("picture", *patch.Picture)
	}
	if patch.SetOrganisationID {
		var orgID sql.NullInt64
		if patch.OrganisationID != nil {
			orgID = sql.NullInt64{Int64: *patch.OrganisationID, Valid: true}
		}
		add("organisation_id", orgID)
	}
	if len(sets) == 0 {
		return "", nil
	}
	add("updated_at", time.Now())

	return strings.Join(sets, ", "), args
}
