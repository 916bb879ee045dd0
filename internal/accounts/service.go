package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/openbooks-app/openbooks/internal/shared"
)

var validate = validator.New()

// CreateInput describes a new chart-of-accounts node.
type CreateInput struct {
	Code     string      `validate:"required,max=32"`
	Name     string      `validate:"required,max=255"`
	Type     AccountType `validate:"required"`
	ParentID *int64
	Level    int
}

// UpdateInput describes an in-place account update.
type UpdateInput struct {
	Code     string      `validate:"required,max=32"`
	Name     string      `validate:"required,max=255"`
	Type     AccountType `validate:"required"`
	ParentID *int64
	Level    int
	IsActive *bool
}

// UpsertInput is the import-path variant keyed by (org, code). The parent is
// resolved by code within the same organization, silently nil when unknown.
type UpsertInput struct {
	Code       string
	Name       string
	Type       AccountType
	ParentCode string
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, orgID int64) ([]Account, error) {
	return s.repo.List(ctx, orgID)
}

func (s *Service) Paginate(ctx context.Context, orgID int64, page, perPage int, sort, dir string) ([]Account, shared.Pagination, error) {
	pg := shared.NewPagination(page, perPage, 0)
	rows, total, err := s.repo.Paginate(ctx, orgID, pg.Page, pg.PerPage, sort, dir)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return rows, shared.NewPagination(pg.Page, pg.PerPage, total), nil
}

func (s *Service) Get(ctx context.Context, orgID, id int64) (Account, error) {
	return s.repo.Get(ctx, orgID, id)
}

// Create adds an account after checking code uniqueness and parent
// compatibility within the organization.
func (s *Service) Create(ctx context.Context, orgID int64, in CreateInput) (Account, error) {
	if err := validate.Struct(in); err != nil {
		return Account{}, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	if !in.Type.Valid() {
		return Account{}, fmt.Errorf("%w: unknown account type %q", shared.ErrValidation, in.Type)
	}
	exists, err := s.repo.CodeExists(ctx, orgID, in.Code, 0)
	if err != nil {
		return Account{}, err
	}
	if exists {
		return Account{}, ErrDuplicateCode
	}
	if err := s.checkParent(ctx, orgID, in.ParentID, in.Type, 0); err != nil {
		return Account{}, err
	}
	level := in.Level
	if level <= 0 {
		level = 1
	}
	return s.repo.Create(ctx, Account{
		OrganizationID: orgID,
		Code:           in.Code,
		Name:           in.Name,
		Type:           in.Type,
		ParentID:       in.ParentID,
		Level:          level,
		IsActive:       true,
	})
}

// Update modifies an account in place, re-running the create-time checks.
func (s *Service) Update(ctx context.Context, orgID, id int64, in UpdateInput) (Account, error) {
	if err := validate.Struct(in); err != nil {
		return Account{}, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	if !in.Type.Valid() {
		return Account{}, fmt.Errorf("%w: unknown account type %q", shared.ErrValidation, in.Type)
	}
	current, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return Account{}, err
	}
	if in.ParentID != nil && *in.ParentID == id {
		return Account{}, ErrSelfParent
	}
	exists, err := s.repo.CodeExists(ctx, orgID, in.Code, id)
	if err != nil {
		return Account{}, err
	}
	if exists {
		return Account{}, ErrDuplicateCode
	}
	if err := s.checkParent(ctx, orgID, in.ParentID, in.Type, id); err != nil {
		return Account{}, err
	}
	current.Code = in.Code
	current.Name = in.Name
	current.Type = in.Type
	current.ParentID = in.ParentID
	if in.Level > 0 {
		current.Level = in.Level
	}
	if in.IsActive != nil {
		current.IsActive = *in.IsActive
	}
	if err := s.repo.Update(ctx, current); err != nil {
		return Account{}, err
	}
	return current, nil
}

// Delete removes an account unless it has children or is referenced by any
// journal, invoice or bill line.
func (s *Service) Delete(ctx context.Context, orgID, id int64) error {
	acc, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return err
	}
	hasChildren, err := s.repo.HasChildren(ctx, orgID, acc.ID)
	if err != nil {
		return err
	}
	if hasChildren {
		return ErrHasChildren
	}
	referenced, err := s.repo.IsReferenced(ctx, acc.ID)
	if err != nil {
		return err
	}
	if referenced {
		return ErrReferenced
	}
	return s.repo.Delete(ctx, orgID, acc.ID)
}

// Upsert is the import path: update-or-create keyed by (org, code). The
// parent code is resolved within the organization and dropped when unknown.
func (s *Service) Upsert(ctx context.Context, orgID int64, in UpsertInput) (Account, error) {
	if in.Code == "" || in.Name == "" || in.Type == "" {
		return Account{}, fmt.Errorf("%w: code, name and type are required", shared.ErrValidation)
	}
	if !in.Type.Valid() {
		return Account{}, fmt.Errorf("%w: unknown account type %q", shared.ErrValidation, in.Type)
	}
	var parentID *int64
	level := 1
	if in.ParentCode != "" {
		parent, err := s.repo.GetByCode(ctx, orgID, in.ParentCode)
		if err == nil {
			parentID = &parent.ID
			level = 2
		} else if !errors.Is(err, ErrNotFound) {
			return Account{}, err
		}
	}
	return s.repo.Upsert(ctx, Account{
		OrganizationID: orgID,
		Code:           in.Code,
		Name:           in.Name,
		Type:           in.Type,
		ParentID:       parentID,
		Level:          level,
		IsActive:       true,
	})
}

// CodeUnique is the interactive existence probe used while editing.
func (s *Service) CodeUnique(ctx context.Context, orgID int64, code string, excludeID int64) (bool, error) {
	if code == "" {
		return true, nil
	}
	exists, err := s.repo.CodeExists(ctx, orgID, code, excludeID)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

func (s *Service) checkParent(ctx context.Context, orgID int64, parentID *int64, childType AccountType, selfID int64) error {
	if parentID == nil {
		return nil
	}
	if selfID != 0 && *parentID == selfID {
		return ErrSelfParent
	}
	parent, err := s.repo.Get(ctx, orgID, *parentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidParent
		}
		return err
	}
	if !parent.Type.AllowsChild(childType) {
		return ErrIncompatibleType
	}
	return nil
}
