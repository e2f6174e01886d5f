package crm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldSet(t *testing.T) {
	t.Run("intersects sync relevant fields", func(t *testing.T) {
		assert.True(t, NewFieldSet(FieldName).Intersects(SyncRelevantFields))
		assert.True(t, NewFieldSet(FieldParent, FieldEmail).Intersects(SyncRelevantFields))
		assert.False(t, NewFieldSet(FieldParent, FieldClassification).Intersects(SyncRelevantFields))
		assert.False(t, NewFieldSet().Intersects(SyncRelevantFields))
	})

	t.Run("string round trip is sorted", func(t *testing.T) {
		s := NewFieldSet(FieldLastName, FieldEmail, FieldFirstName)
		assert.Equal(t, "email,first_name,last_name", s.String())
		assert.Equal(t, s, ParseFieldList(s.String()))
		assert.True(t, ParseFieldList("").IsEmpty())
	})

	t.Run("parse reports unknown names", func(t *testing.T) {
		s, unknown := ParseFieldSet([]string{"name", "phone", ""})
		assert.True(t, s.Has(FieldName))
		assert.Equal(t, 1, s.Len())
		assert.Equal(t, []string{"phone"}, unknown)
	})

	t.Run("intersect", func(t *testing.T) {
		s := NewFieldSet(FieldFirstName, FieldName).Intersect(ProfileFields)
		assert.Equal(t, []Field{FieldFirstName}, s.Sorted())
	})
}
