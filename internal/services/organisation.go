package services

import (
	"context"

	"github.com/alumninet/apiserver/types"
)

// OrganisationRepository defines persistence operations for organisations.
type OrganisationRepository interface {
	GetByID(ctx context.Context, id int64) (types.Organisation, error)
	GetOrCreateByName(ctx context.Context, name string) (types.Organisation, error)
	List(ctx context.Context) ([]types.Organisation, error)
}

// OrganisationService encapsulates organisation use-cases.
type OrganisationService struct {
	repo OrganisationRepository
}

func NewOrganisationService(repo OrganisationRepository) *OrganisationService {
	return &OrganisationService{repo: repo}
}

func (s *OrganisationService) GetByID(ctx context.Context, id int64) (types.Organisation, error) {
	return s.repo.GetByID(ctx, id)
}

// GetOrCreateByName is idempotent: the first registration under a new
// organisation name creates the record, later ones reuse it.
func (s *OrganisationService) GetOrCreateByName(ctx context.Context, name string) (types.Organisation, error) {
	return s.repo.GetOrCreateByName(ctx, name)
}

func (s *OrganisationService) List(ctx context.Context) ([]types.Organisation, error) {
	return s.repo.List(ctx)
}
