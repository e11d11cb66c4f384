package services_test

import (
	"testing"

	"github.com/camden-git/familytreebackend/database"
	"github.com/camden-git/familytreebackend/models"
	"github.com/camden-git/familytreebackend/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeService_CalculateGenerations(t *testing.T) {
	s := newStack(t)
	s.addPerson(t, models.Person{ID: "grandpa", FirstName: "Olav", LastName: "Berg"})
	s.addPerson(t, models.Person{ID: "dad", FirstName: "Nils", LastName: "Berg"})
	s.addPerson(t, models.Person{ID: "kid", FirstName: "Ida", LastName: "Berg"})
	s.link(t, "grandpa", "dad", models.RelationshipParent)
	s.link(t, "kid", "dad", models.RelationshipChild)

	report, err := s.tree.CalculateGenerations("tree")
	require.NoError(t, err)
	assert.Equal(t, 3, report.Levels)
	assert.Equal(t, 3, report.Updated)
	assert.Equal(t, 0, report.Generations["grandpa"])
	assert.Equal(t, 1, report.Generations["dad"])
	assert.Equal(t, 2, report.Generations["kid"])

	kid, err := s.people.GetByID("kid")
	require.NoError(t, err)
	require.NotNil(t, kid.Generation)
	assert.Equal(t, 2, *kid.Generation)

	again, err := s.tree.CalculateGenerations("tree")
	require.NoError(t, err)
	assert.Zero(t, again.Updated)
}

func TestTreeService_GetFamilyTree(t *testing.T) {
	s := newStack(t)
	s.addPerson(t, models.Person{ID: "mom", FirstName: "Kari", LastName: "Dahl"})
	s.addPerson(t, models.Person{ID: "b", FirstName: "Bjorn", LastName: "Dahl", IsLiving: true})
	s.addPerson(t, models.Person{ID: "a", FirstName: "Astrid", LastName: "Dahl", IsLiving: true})
	s.link(t, "mom", "b", models.RelationshipParent)
	s.link(t, "mom", "a", models.RelationshipParent)

	plain, err := s.tree.GetFamilyTree("tree", services.TreeQuery{})
	require.NoError(t, err)
	assert.Len(t, plain.Relationships, 2)
	assert.Equal(t, "mom", plain.People[0].ID)
	assert.Equal(t, 3, plain.Stats.TotalPeople)
	assert.Equal(t, 2, plain.Stats.Living)
	assert.Zero(t, plain.Stats.Generations)

	_, err = s.tree.CalculateGenerations("tree")
	require.NoError(t, err)

	full, err := s.tree.GetFamilyTree("tree", services.TreeQuery{IncludeSiblings: true, SortOrder: database.SortNameAsc})
	require.NoError(t, err)
	require.Len(t, full.Relationships, 3)
	sibling := full.Relationships[2]
	assert.Equal(t, models.RelationshipSibling, sibling.Type)
	assert.Equal(t, "a", sibling.FromID)
	assert.Equal(t, "b", sibling.ToID)
	assert.Equal(t, 2, full.Stats.TotalRelationships)
	assert.Equal(t, 2, full.Stats.Generations)

	names := make([]string, 0, len(full.People))
	for _, p := range full.People {
		names = append(names, p.DisplayName)
	}
	assert.Equal(t, []string{"Astrid Dahl", "Bjorn Dahl", "Kari Dahl"}, names)

	stored, err := s.rels.ListByTree("tree")
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestTreeService_BatchImport(t *testing.T) {
	s := newStack(t)
	people := []models.Person{
		{ID: "p1", TreeID: "tree", FirstName: "One"},
		{ID: "p2", TreeID: "tree", FirstName: "Two"},
		{ID: "p3", TreeID: "tree", FirstName: "Three"},
	}
	members := s.tree.BatchImportMembers(people, 2)
	assert.Equal(t, 3, members.Imported)

	rels := s.tree.BatchImportRelationships([]models.Relationship{
		{TreeID: "tree", FromID: "p1", ToID: "p2", Type: models.RelationshipParent},
		{TreeID: "tree", FromID: "p1", ToID: "p9", Type: models.RelationshipParent},
	}, 0)
	assert.Equal(t, 1, rels.Imported)
	assert.Equal(t, 1, rels.Skipped)
	assert.Len(t, rels.Errors, 1)
}
