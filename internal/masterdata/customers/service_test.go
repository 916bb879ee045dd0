package customers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbooks-app/openbooks/internal/shared"
)

type mockRepository struct {
	customers  map[int64]*Customer
	nextID     int64
	referenced map[int64]bool
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		customers:  make(map[int64]*Customer),
		nextID:     1,
		referenced: make(map[int64]bool),
	}
}

func (m *mockRepository) seed(c Customer) Customer {
	c.ID = m.nextID
	m.nextID++
	copy := c
	m.customers[c.ID] = &copy
	return c
}

func (m *mockRepository) List(ctx context.Context, orgID int64, search string, page, perPage int, sort, dir string) ([]Customer, int, error) {
	var out []Customer
	for _, c := range m.customers {
		if c.OrganizationID == orgID {
			out = append(out, *c)
		}
	}
	return out, len(out), nil
}

func (m *mockRepository) Get(ctx context.Context, orgID, id int64) (Customer, error) {
	c, ok := m.customers[id]
	if !ok || c.OrganizationID != orgID {
		return Customer{}, ErrNotFound
	}
	return *c, nil
}

func (m *mockRepository) Create(ctx context.Context, c Customer) (Customer, error) {
	return m.seed(c), nil
}

func (m *mockRepository) Update(ctx context.Context, c Customer) error {
	existing, ok := m.customers[c.ID]
	if !ok || existing.OrganizationID != c.OrganizationID {
		return ErrNotFound
	}
	copy := c
	m.customers[c.ID] = &copy
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, orgID, id int64) error {
	c, ok := m.customers[id]
	if !ok || c.OrganizationID != orgID {
		return ErrNotFound
	}
	delete(m.customers, id)
	return nil
}

func (m *mockRepository) IsReferenced(ctx context.Context, id int64) (bool, error) {
	return m.referenced[id], nil
}

func TestCreateValidates(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMockRepository())

	c, err := svc.Create(ctx, 1, CreateInput{Name: "Acme Retail", TIN: "123-456-789"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.ID)
	assert.True(t, c.IsActive)

	_, err = svc.Create(ctx, 1, CreateInput{Name: ""})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, 1, CreateInput{Name: "Acme", Email: "not-an-email"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateScopedToOrganization(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	seeded := repo.seed(Customer{OrganizationID: 1, Name: "Acme Retail", IsActive: true})
	svc := NewService(repo)

	updated, err := svc.Update(ctx, 1, seeded.ID, UpdateInput{Name: "Acme Retail Corp", TIN: "001"})
	require.NoError(t, err)
	assert.Equal(t, "Acme Retail Corp", updated.Name)
	assert.True(t, updated.IsActive)

	_, err = svc.Update(ctx, 2, seeded.ID, UpdateInput{Name: "Someone Else"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateTogglesActive(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	seeded := repo.seed(Customer{OrganizationID: 1, Name: "Acme Retail", IsActive: true})
	svc := NewService(repo)

	inactive := false
	updated, err := svc.Update(ctx, 1, seeded.ID, UpdateInput{Name: "Acme Retail", IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
}

func TestDeleteBlockedWhenInvoiced(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	invoiced := repo.seed(Customer{OrganizationID: 1, Name: "Acme Retail"})
	idle := repo.seed(Customer{OrganizationID: 1, Name: "Beta Stores"})
	repo.referenced[invoiced.ID] = true
	svc := NewService(repo)

	err := svc.Delete(ctx, 1, invoiced.ID)
	assert.ErrorIs(t, err, ErrReferenced)
	_, err = repo.Get(ctx, 1, invoiced.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, 1, idle.ID))
	_, err = repo.Get(ctx, 1, idle.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
