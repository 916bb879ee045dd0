package customers

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/openbooks-app/openbooks/internal/shared"
)

var validate = validator.New()

// CreateInput describes a new customer contact.
type CreateInput struct {
	Name    string `validate:"required,max=255"`
	TIN     string `validate:"max=32"`
	Address string `validate:"max=500"`
	Email   string `validate:"omitempty,email,max=255"`
}

// UpdateInput describes an in-place customer update.
type UpdateInput struct {
	Name     string `validate:"required,max=255"`
	TIN      string `validate:"max=32"`
	Address  string `validate:"max=500"`
	Email    string `validate:"omitempty,email,max=255"`
	IsActive *bool
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, orgID int64, search string, page, perPage int, sort, dir string) ([]Customer, shared.Pagination, error) {
	pg := shared.NewPagination(page, perPage, 0)
	rows, total, err := s.repo.List(ctx, orgID, search, pg.Page, pg.PerPage, sort, dir)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return rows, shared.NewPagination(pg.Page, pg.PerPage, total), nil
}

func (s *Service) Get(ctx context.Context, orgID, id int64) (Customer, error) {
	return s.repo.Get(ctx, orgID, id)
}

func (s *Service) Create(ctx context.Context, orgID int64, in CreateInput) (Customer, error) {
	if err := validate.Struct(in); err != nil {
		return Customer{}, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	return s.repo.Create(ctx, Customer{
		OrganizationID: orgID,
		Name:           in.Name,
		TIN:            in.TIN,
		Address:        in.Address,
		Email:          in.Email,
		IsActive:       true,
	})
}

func (s *Service) Update(ctx context.Context, orgID, id int64, in UpdateInput) (Customer, error) {
	if err := validate.Struct(in); err != nil {
		return Customer{}, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	current, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return Customer{}, err
	}
	current.Name = in.Name
	current.TIN = in.TIN
	current.Address = in.Address
	current.Email = in.Email
	if in.IsActive != nil {
		current.IsActive = *in.IsActive
	}
	if err := s.repo.Update(ctx, current); err != nil {
		return Customer{}, err
	}
	return current, nil
}

// Delete removes a customer unless an invoice references it.
func (s *Service) Delete(ctx context.Context, orgID, id int64) error {
	c, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return err
	}
	referenced, err := s.repo.IsReferenced(ctx, c.ID)
	if err != nil {
		return err
	}
	if referenced {
		return ErrReferenced
	}
	return s.repo.Delete(ctx, orgID, c.ID)
}
