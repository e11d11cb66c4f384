package services_test

import (
	"errors"
	"testing"

	"github.com/camden-git/familytreebackend/lineage"
	"github.com/camden-git/familytreebackend/models"
	"github.com/camden-git/familytreebackend/repository"
	"github.com/camden-git/familytreebackend/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// seedDuplicates stores two records of the same woman. a knows her email, b her
// occupation, birthplace and role and is the parent of kid. Both are married to husband.
func seedDuplicates(t *testing.T, s *stack) {
	t.Helper()
	s.addPerson(t, models.Person{ID: "a", FirstName: "Ann", LastName: "Lee", Email: "ann@example.com"})
	s.addPerson(t, models.Person{ID: "b", FirstName: "Ann", LastName: "Lee", Occupation: "Nurse", BirthPlace: "Bergen", Role: "self"})
	s.addPerson(t, models.Person{ID: "kid", FirstName: "Tom", LastName: "Lee"})
	s.addPerson(t, models.Person{ID: "husband", FirstName: "Per", LastName: "Lee"})
	s.link(t, "b", "kid", models.RelationshipParent)
	s.link(t, "husband", "b", models.RelationshipSpouse)
	s.link(t, "husband", "a", models.RelationshipSpouse)
}

func TestDuplicateService_DetectDuplicates(t *testing.T) {
	s := newStack(t)
	seedDuplicates(t, s)
	svc := services.NewDuplicateService(s.people, s.rels)

	groups, err := svc.DetectDuplicates("tree")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"a", "b"}, groups[0].MemberIDs)
	assert.Equal(t, lineage.KeyName, groups[0].KeyKind)

	empty, err := svc.DetectDuplicates("nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDuplicateService_MergeGroup(t *testing.T) {
	s := newStack(t)
	seedDuplicates(t, s)
	svc := services.NewDuplicateService(s.people, s.rels)

	result, err := svc.MergeGroup("tree", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "b", result.CanonicalID)
	assert.Equal(t, []string{"a"}, result.MergedIDs)
	assert.Contains(t, result.FilledFields, "email")
	assert.Equal(t, 0, result.RewrittenEdges)

	canonical, err := s.people.GetByID("b")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", canonical.Email)
	assert.Equal(t, "Nurse", canonical.Occupation)

	_, err = s.people.GetByID("a")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	left, err := s.rels.CountReferencing("a")
	require.NoError(t, err)
	assert.Zero(t, left)

	rels, err := s.rels.ListByTree("tree")
	require.NoError(t, err)
	assert.Len(t, rels, 2)

	again, err := svc.MergeGroup("tree", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "b", again.CanonicalID)
	assert.Empty(t, again.MergedIDs)
}

func TestDuplicateService_MergeMovesEdgesToCanonical(t *testing.T) {
	s := newStack(t)
	s.addPerson(t, models.Person{ID: "a", FirstName: "Ann", LastName: "Lee", Email: "ann@example.com", Biography: "Teacher in Oslo"})
	s.addPerson(t, models.Person{ID: "b", FirstName: "Ann", LastName: "Lee", Occupation: "Nurse"})
	s.addPerson(t, models.Person{ID: "kid", FirstName: "Tom", LastName: "Lee"})
	s.link(t, "b", "kid", models.RelationshipParent)

	result, err := services.NewDuplicateService(s.people, s.rels).MergeGroup("tree", []string{"b", "a"})
	require.NoError(t, err)
	assert.Equal(t, "a", result.CanonicalID)
	assert.Equal(t, []string{"b"}, result.MergedIDs)
	assert.Equal(t, []string{"occupation"}, result.FilledFields)
	assert.Equal(t, 1, result.RewrittenEdges)

	rels, err := s.rels.ListTouching("kid")
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, "a", rels[0].FromID)

	canonical, err := s.people.GetByID("a")
	require.NoError(t, err)
	assert.Equal(t, "Nurse", canonical.Occupation)
	assert.Equal(t, "ann@example.com", canonical.Email)
}

type failingRewrite struct {
	*repository.RelationshipRepository
}

func (failingRewrite) RewriteEndpoint(string, string) (int, error) {
	return 0, errors.New("disk I/O error")
}

func TestDuplicateService_RewriteFailureDeletesNothing(t *testing.T) {
	s := newStack(t)
	seedDuplicates(t, s)
	svc := services.NewDuplicateService(s.people, failingRewrite{s.rels})

	_, err := svc.MergeGroup("tree", []string{"a", "b"})
	require.ErrorIs(t, err, services.ErrMergeOrdering)

	for _, id := range []string{"a", "b"} {
		_, err := s.people.GetByID(id)
		assert.NoError(t, err, id)
	}
}

func TestDuplicateService_MergeRejectsOtherTree(t *testing.T) {
	s := newStack(t)
	s.addPerson(t, models.Person{ID: "a", FirstName: "Ann", LastName: "Lee"})
	s.addPerson(t, models.Person{ID: "x", TreeID: "other", FirstName: "Ann", LastName: "Lee"})

	_, err := services.NewDuplicateService(s.people, s.rels).MergeGroup("tree", []string{"a", "x"})
	assert.ErrorIs(t, err, repository.ErrUnknownEndpoint)
}
