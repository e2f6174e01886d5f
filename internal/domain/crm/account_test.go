package crm

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestNewAccount(t *testing.T) {
	tenantID := uuid.New()

	t.Run("creates account at version 1", func(t *testing.T) {
		a, err := NewAccount(tenantID, nil, "John Doe", strPtr(" john@example.com "))
		require.NoError(t, err)
		assert.Equal(t, tenantID, a.TenantID)
		assert.Equal(t, 1, a.Version)
		assert.Equal(t, "john@example.com", *a.Email)
		assert.False(t, a.HasParent())
	})

	t.Run("rejects blank name", func(t *testing.T) {
		_, err := NewAccount(tenantID, nil, "  ", nil)
		assert.Error(t, err)
	})

	t.Run("blank email is nil", func(t *testing.T) {
		a, err := NewAccount(tenantID, nil, "Acme", strPtr(""))
		require.NoError(t, err)
		assert.Nil(t, a.Email)
	})

	t.Run("name is stored trimmed", func(t *testing.T) {
		a, err := NewAccount(tenantID, nil, " John Doe\t", nil)
		require.NoError(t, err)
		assert.Equal(t, "John Doe", a.Name)
	})

	t.Run("name length boundary", func(t *testing.T) {
		_, err := NewAccount(tenantID, nil, strings.Repeat("a", MaxNameLength), nil)
		assert.NoError(t, err)
		_, err = NewAccount(tenantID, nil, strings.Repeat("a", MaxNameLength+1), nil)
		assert.Error(t, err)
	})
}

func TestAccount_Diff(t *testing.T) {
	a, err := NewAccount(uuid.New(), nil, "John Doe", strPtr("john@example.com"))
	require.NoError(t, err)

	t.Run("keeps only differing fields", func(t *testing.T) {
		var p AccountPatch
		p.SetName("John Doe")
		p.SetEmail(strPtr("jane@example.com"))

		d := a.Diff(p)
		assert.Equal(t, []Field{FieldEmail}, d.Fields().Sorted())
	})

	t.Run("clearing email differs", func(t *testing.T) {
		var p AccountPatch
		p.SetEmail(nil)
		assert.True(t, a.Diff(p).Fields().Has(FieldEmail))
	})

	t.Run("identical patch is empty", func(t *testing.T) {
		var p AccountPatch
		p.SetName("John Doe")
		assert.True(t, a.Diff(p).IsEmpty())
	})
}

func TestAccount_ApplyAndValues(t *testing.T) {
	a, err := NewAccount(uuid.New(), nil, "John Doe", nil)
	require.NoError(t, err)
	parent := uuid.New()

	var p AccountPatch
	p.SetName("Jane Smith")
	p.SetParent(&parent)

	values, err := p.Values()
	require.NoError(t, err)
	assert.Equal(t, "Jane Smith", values[FieldName])
	assert.Equal(t, &parent, values[FieldParent])

	clone := a.Clone()
	clone.Apply(p)
	assert.Equal(t, "Jane Smith", clone.Name)
	assert.Equal(t, parent, *clone.ParentID)
	assert.Equal(t, "John Doe", a.Name, "clone must not alias original")
	assert.Nil(t, a.ParentID)
}

func TestAccountPatch_Validate(t *testing.T) {
	var p AccountPatch
	p.SetName("")
	assert.Error(t, p.Validate())

	var ok AccountPatch
	ok.SetEmail(nil)
	assert.NoError(t, ok.Validate())
}

func TestContact(t *testing.T) {
	tenantID := uuid.New()
	account, err := NewAccount(tenantID, nil, "John Doe", strPtr("john@example.com"))
	require.NoError(t, err)

	t.Run("counterpart mirrors account", func(t *testing.T) {
		c, err := NewCounterpartContact(account, nil)
		require.NoError(t, err)
		assert.Equal(t, "John", c.FirstName)
		assert.Equal(t, "Doe", c.LastName)
		assert.Equal(t, "john@example.com", *c.Email)
		assert.Equal(t, account.ID, c.AccountID)
		assert.Equal(t, "John Doe", c.FullName())
	})

	t.Run("counterpart of a maximal single-word name", func(t *testing.T) {
		long, err := NewAccount(tenantID, nil, strings.Repeat("x", MaxNameLength), nil)
		require.NoError(t, err)
		c, err := NewCounterpartContact(long, nil)
		require.NoError(t, err)
		assert.Equal(t, long.Name, c.FirstName)
		assert.Empty(t, c.LastName)
	})

	t.Run("full name must fit an account name", func(t *testing.T) {
		_, err := NewContact(tenantID, account.ID, nil, strings.Repeat("x", 150), strings.Repeat("y", 49), nil)
		assert.NoError(t, err)
		_, err = NewContact(tenantID, account.ID, nil, strings.Repeat("x", 150), strings.Repeat("y", 50), nil)
		assert.Error(t, err)
	})

	t.Run("requires account", func(t *testing.T) {
		_, err := NewContact(tenantID, uuid.Nil, nil, "A", "B", nil)
		assert.Error(t, err)
	})

	t.Run("full name without last name", func(t *testing.T) {
		c, err := NewContact(tenantID, account.ID, nil, "Cher", "", nil)
		require.NoError(t, err)
		assert.Equal(t, "Cher", c.FullName())
	})

	t.Run("diff and apply", func(t *testing.T) {
		c, err := NewContact(tenantID, account.ID, nil, "John", "Doe", nil)
		require.NoError(t, err)

		var p ContactPatch
		p.SetFirstName("Johnny")
		p.SetLastName("Doe")
		d := c.Diff(p)
		assert.Equal(t, []Field{FieldFirstName}, d.Fields().Sorted())

		c.Apply(d)
		assert.Equal(t, "Johnny Doe", c.FullName())
	})

	t.Run("external profile", func(t *testing.T) {
		c, err := NewContact(tenantID, account.ID, nil, "A", "", nil)
		require.NoError(t, err)
		assert.False(t, c.HasExternalProfile())
		c.ExternalProfileRef = strPtr("prof-1")
		assert.True(t, c.HasExternalProfile())
	})
}
