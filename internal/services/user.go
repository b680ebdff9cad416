package services

import (
	"context"

	"github.com/alumninet/apiserver/internal/store"
	"github.com/alumninet/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	List(ctx context.Context, opts store.ListOptions) ([]types.User, error)
	UpdateByID(ctx context.Context, id int64, patch types.UserPatch) (types.User, error)
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id int64) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *UserService) Create(ctx context.Context, user types.User) (types.User, error) {
	return s.repo.Create(ctx, user)
}

// ListAlumni returns ALUMNI profiles newest first, organisation expanded.
// The role filter is applied in the store so STUDENT records never reach
// the caller.
func (s *UserService) ListAlumni(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx, store.ListOptions{Role: types.RoleAlumni})
}

// ListByOrganisation returns the members of one organisation.
func (s *UserService) ListByOrganisation(ctx context.Context, organisationID int64) ([]types.User, error) {
	return s.repo.List(ctx, store.ListOptions{OrganisationID: &organisationID})
}

// UpdateProfile applies a sparse patch to the user's own record.
func (s *UserService) UpdateProfile(ctx context.Context, id int64, patch types.UserPatch) (types.User, error) {
	return s.repo.UpdateByID(ctx, id, patch)
}
