package crm

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/records/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryAccounts struct {
	items map[uuid.UUID]*Account
	calls int
}

func (m *memoryAccounts) FindByID(_ context.Context, tenantID, id uuid.UUID) (*Account, error) {
	m.calls++
	a, ok := m.items[id]
	if !ok || a.TenantID != tenantID {
		return nil, ErrAccountNotFound
	}
	return a, nil
}

type memoryClassifications map[uuid.UUID]*ClassificationGroup

func (m memoryClassifications) FindByID(_ context.Context, _ uuid.UUID, id uuid.UUID) (*ClassificationGroup, error) {
	g, ok := m[id]
	if !ok {
		return nil, ErrClassificationNotFound
	}
	return g, nil
}

type hierarchyFixture struct {
	tenantID   uuid.UUID
	accounts   *memoryAccounts
	groups     memoryClassifications
	individual *ClassificationGroup
	business   *ClassificationGroup
}

func newHierarchyFixture(t *testing.T) *hierarchyFixture {
	t.Helper()
	tenantID := uuid.New()
	individual, err := NewClassificationGroup(tenantID, "Individuals", ClassificationIndividual)
	require.NoError(t, err)
	business, err := NewClassificationGroup(tenantID, "Companies", ClassificationBusiness)
	require.NoError(t, err)
	return &hierarchyFixture{
		tenantID:   tenantID,
		accounts:   &memoryAccounts{items: map[uuid.UUID]*Account{}},
		groups:     memoryClassifications{individual.ID: individual, business.ID: business},
		individual: individual,
		business:   business,
	}
}

func (f *hierarchyFixture) account(t *testing.T, name string, parent *Account, classification *ClassificationGroup) *Account {
	t.Helper()
	a, err := NewAccount(f.tenantID, nil, name, nil)
	require.NoError(t, err)
	if parent != nil {
		a.ParentID = &parent.ID
	}
	if classification != nil {
		a.ClassificationID = &classification.ID
	}
	f.accounts.items[a.ID] = a
	return a
}

// chain builds root <- a1 <- a2 ... and returns the accounts from root down
func (f *hierarchyFixture) chain(t *testing.T, length int, classification *ClassificationGroup) []*Account {
	t.Helper()
	out := []*Account{f.account(t, "root", nil, classification)}
	for i := 1; i < length; i++ {
		out = append(out, f.account(t, "branch", out[i-1], nil))
	}
	return out
}

func (f *hierarchyFixture) resolver(maxDepth int) *HierarchyResolver {
	return NewHierarchyResolver(f.accounts, f.groups, maxDepth)
}

func TestHierarchyResolver_RootOf(t *testing.T) {
	ctx := context.Background()

	t.Run("root returns itself", func(t *testing.T) {
		f := newHierarchyFixture(t)
		root := f.account(t, "root", nil, f.individual)
		got, err := f.resolver(10).RootOf(ctx, root, 10)
		require.NoError(t, err)
		assert.Equal(t, root.ID, got.ID)
	})

	t.Run("walks to the top", func(t *testing.T) {
		f := newHierarchyFixture(t)
		chain := f.chain(t, 5, f.business)
		got, err := f.resolver(10).RootOf(ctx, chain[4], 10)
		require.NoError(t, err)
		assert.Equal(t, chain[0].ID, got.ID)
	})

	t.Run("exactly max depth is allowed", func(t *testing.T) {
		f := newHierarchyFixture(t)
		chain := f.chain(t, 11, f.business) // leaf has 10 ancestors
		_, err := f.resolver(10).RootOf(ctx, chain[10], 10)
		require.NoError(t, err)
	})

	t.Run("beyond max depth fails", func(t *testing.T) {
		f := newHierarchyFixture(t)
		chain := f.chain(t, 12, f.business)
		_, err := f.resolver(10).RootOf(ctx, chain[11], 10)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrHierarchyDepthExceeded)
	})

	t.Run("corrupted cycle terminates with depth error", func(t *testing.T) {
		f := newHierarchyFixture(t)
		a := f.account(t, "a", nil, nil)
		b := f.account(t, "b", a, nil)
		a.ParentID = &b.ID

		_, err := f.resolver(10).RootOf(ctx, a, 10)
		assert.ErrorIs(t, err, ErrHierarchyDepthExceeded)
		assert.LessOrEqual(t, f.accounts.calls, 10)
	})

	t.Run("dangling parent", func(t *testing.T) {
		f := newHierarchyFixture(t)
		a := f.account(t, "a", nil, nil)
		missing := uuid.New()
		a.ParentID = &missing
		_, err := f.resolver(10).RootOf(ctx, a, 10)
		assert.ErrorIs(t, err, ErrParentNotFound)
	})
}

func TestHierarchyResolver_EffectiveClassification(t *testing.T) {
	ctx := context.Background()

	t.Run("own classification without parent", func(t *testing.T) {
		f := newHierarchyFixture(t)
		root := f.account(t, "root", nil, f.individual)
		got, err := f.resolver(10).EffectiveClassification(ctx, root)
		require.NoError(t, err)
		assert.Equal(t, f.individual.ID, *got)
	})

	t.Run("branch inherits root and ignores stale own value", func(t *testing.T) {
		f := newHierarchyFixture(t)
		root := f.account(t, "root", nil, f.individual)
		branch := f.account(t, "branch", root, f.business)
		got, err := f.resolver(10).EffectiveClassification(ctx, branch)
		require.NoError(t, err)
		assert.Equal(t, f.individual.ID, *got)
	})

	t.Run("equals effective classification of root for every chain member", func(t *testing.T) {
		f := newHierarchyFixture(t)
		r := f.resolver(10)
		chain := f.chain(t, 8, f.business)
		for _, a := range chain {
			eff, err := r.EffectiveClassification(ctx, a)
			require.NoError(t, err)
			root, err := r.RootOf(ctx, a, r.MaxDepth())
			require.NoError(t, err)
			rootEff, err := r.EffectiveClassification(ctx, root)
			require.NoError(t, err)
			assert.Equal(t, rootEff, eff)
		}
	})

	t.Run("unclassified root yields nil", func(t *testing.T) {
		f := newHierarchyFixture(t)
		root := f.account(t, "root", nil, nil)
		got, err := f.resolver(10).EffectiveClassification(ctx, root)
		require.NoError(t, err)
		assert.Nil(t, got)

		ok, err := f.resolver(10).IsIndividual(ctx, root)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestHierarchyResolver_IsIndividual(t *testing.T) {
	ctx := context.Background()
	f := newHierarchyFixture(t)
	r := f.resolver(10)

	person := f.account(t, "John Doe", nil, f.individual)
	company := f.account(t, "Acme", nil, f.business)
	branch := f.account(t, "Acme West", company, f.business)

	ok, err := r.IsIndividual(ctx, person)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.IsIndividual(ctx, branch)
	require.NoError(t, err)
	assert.False(t, ok)

	missing := uuid.New()
	orphan := f.account(t, "Orphan", nil, nil)
	orphan.ClassificationID = &missing
	_, err = r.IsIndividual(ctx, orphan)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestHierarchyResolver_ValidateStructure(t *testing.T) {
	ctx := context.Background()

	t.Run("root account is valid", func(t *testing.T) {
		f := newHierarchyFixture(t)
		root := f.account(t, "root", nil, f.business)
		assert.NoError(t, f.resolver(10).ValidateStructure(ctx, root))
	})

	t.Run("rejects self parent", func(t *testing.T) {
		f := newHierarchyFixture(t)
		a := f.account(t, "a", nil, f.business)
		candidate := a.Clone()
		candidate.ParentID = &a.ID
		assert.ErrorIs(t, f.resolver(10).ValidateStructure(ctx, candidate), ErrSelfParent)
	})

	t.Run("rejects cycle through ancestors", func(t *testing.T) {
		f := newHierarchyFixture(t)
		a := f.account(t, "a", nil, f.business)
		b := f.account(t, "b", a, f.business)
		c := f.account(t, "c", b, f.business)

		candidate := a.Clone()
		candidate.ParentID = &c.ID
		assert.ErrorIs(t, f.resolver(10).ValidateStructure(ctx, candidate), ErrHierarchyCycle)
	})

	t.Run("rejects classification mismatch", func(t *testing.T) {
		f := newHierarchyFixture(t)
		root := f.account(t, "root", nil, f.individual)
		candidate, err := NewAccount(f.tenantID, nil, "child", nil)
		require.NoError(t, err)
		candidate.ParentID = &root.ID
		candidate.ClassificationID = &f.business.ID
		assert.ErrorIs(t, f.resolver(10).ValidateStructure(ctx, candidate), ErrClassificationMismatch)

		candidate.ClassificationID = &f.individual.ID
		assert.NoError(t, f.resolver(10).ValidateStructure(ctx, candidate))
	})

	t.Run("compares against the root, not the direct parent", func(t *testing.T) {
		f := newHierarchyFixture(t)
		root := f.account(t, "root", nil, f.individual)
		mid := f.account(t, "mid", root, f.business) // stale stored value
		candidate, err := NewAccount(f.tenantID, nil, "leaf", nil)
		require.NoError(t, err)
		candidate.ParentID = &mid.ID
		candidate.ClassificationID = &f.individual.ID
		assert.NoError(t, f.resolver(10).ValidateStructure(ctx, candidate))
	})

	t.Run("rejects missing parent", func(t *testing.T) {
		f := newHierarchyFixture(t)
		candidate, err := NewAccount(f.tenantID, nil, "x", nil)
		require.NoError(t, err)
		missing := uuid.New()
		candidate.ParentID = &missing
		err = f.resolver(10).ValidateStructure(ctx, candidate)
		assert.ErrorIs(t, err, ErrParentNotFound)
		assert.True(t, IsStructuralError(err))
	})

	t.Run("rejects attaching below a chain at max depth", func(t *testing.T) {
		f := newHierarchyFixture(t)
		chain := f.chain(t, 3, f.business) // leaf sits 2 levels below root
		candidate, err := NewAccount(f.tenantID, nil, "x", nil)
		require.NoError(t, err)
		candidate.ClassificationID = &f.business.ID

		candidate.ParentID = &chain[1].ID
		assert.NoError(t, f.resolver(2).ValidateStructure(ctx, candidate))

		candidate.ParentID = &chain[2].ID
		assert.ErrorIs(t, f.resolver(2).ValidateStructure(ctx, candidate), ErrHierarchyDepthExceeded)
	})
}
