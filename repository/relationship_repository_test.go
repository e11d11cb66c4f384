package repository_test

import (
	"testing"

	"github.com/camden-git/familytreebackend/models"
	"github.com/camden-git/familytreebackend/repository"
	"github.com/camden-git/familytreebackend/testhelper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedPeople(t *testing.T, db *gorm.DB, treeID string, ids ...string) {
	t.Helper()
	repo := repository.NewPersonRepository(db)
	for _, id := range ids {
		p := newPerson(treeID, id, id, "Seed")
		require.NoError(t, repo.Create(&p))
	}
}

func edge(from, to string, relType models.RelationshipType) models.Relationship {
	return models.Relationship{TreeID: "tree", FromID: from, ToID: to, Type: relType}
}

func TestRelationshipRepository_Create(t *testing.T) {
	db := testhelper.NewGormDB(t)
	seedPeople(t, db, "tree", "a", "b")
	seedPeople(t, db, "other", "z")
	repo := repository.NewRelationshipRepository(db)

	child := edge("b", "a", models.RelationshipChild)
	require.NoError(t, repo.Create(&child))
	assert.Equal(t, models.RelationshipParent, child.Type)
	assert.Equal(t, "a", child.FromID)
	assert.Equal(t, "b", child.ToID)
	assert.NotEmpty(t, child.ID)

	again := edge("a", "b", models.RelationshipParent)
	assert.ErrorIs(t, repo.Create(&again), repository.ErrDuplicateEdge)

	spouse := edge("a", "b", models.RelationshipSpouse)
	require.NoError(t, repo.Create(&spouse))
	reversed := edge("b", "a", models.RelationshipSpouse)
	assert.ErrorIs(t, repo.Create(&reversed), repository.ErrDuplicateEdge)

	crossTree := edge("a", "z", models.RelationshipSpouse)
	assert.ErrorIs(t, repo.Create(&crossTree), repository.ErrUnknownEndpoint)

	self := edge("a", "a", models.RelationshipSpouse)
	assert.ErrorIs(t, repo.Create(&self), repository.ErrInvalidRelationship)

	bogus := edge("a", "b", models.RelationshipType("cousin"))
	assert.ErrorIs(t, repo.Create(&bogus), repository.ErrInvalidRelationship)

	rels, err := repo.ListByTree("tree")
	require.NoError(t, err)
	assert.Len(t, rels, 2)

	count, err := repo.CountReferencing("a")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestRelationshipRepository_BatchImport(t *testing.T) {
	db := testhelper.NewGormDB(t)
	seedPeople(t, db, "tree", "a", "b", "c")
	repo := repository.NewRelationshipRepository(db)

	stored := edge("a", "b", models.RelationshipParent)
	require.NoError(t, repo.Create(&stored))

	result := repo.BatchImport([]models.Relationship{
		edge("a", "b", models.RelationshipParent),
		edge("a", "c", models.RelationshipParent),
		edge("b", "c", models.RelationshipSibling),
		edge("c", "b", models.RelationshipSibling),
		edge("a", "ghost", models.RelationshipParent),
		edge("a", "a", models.RelationshipSpouse),
	}, 2)

	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 4, result.Skipped)
	assert.Len(t, result.Errors, 2)

	rels, err := repo.ListByTree("tree")
	require.NoError(t, err)
	assert.Len(t, rels, 3)
}

func TestRelationshipRepository_RewriteEndpoint(t *testing.T) {
	db := testhelper.NewGormDB(t)
	seedPeople(t, db, "tree", "keep", "dup", "kid", "wife", "mom")
	repo := repository.NewRelationshipRepository(db)

	for _, rel := range []models.Relationship{
		edge("keep", "kid", models.RelationshipParent),
		edge("dup", "kid", models.RelationshipParent),
		edge("dup", "wife", models.RelationshipSpouse),
		edge("mom", "dup", models.RelationshipParent),
		edge("keep", "dup", models.RelationshipSpouse),
	} {
		rel := rel
		require.NoError(t, repo.Create(&rel))
	}

	rewritten, err := repo.RewriteEndpoint("dup", "keep")
	require.NoError(t, err)
	assert.Equal(t, 2, rewritten)

	left, err := repo.CountReferencing("dup")
	require.NoError(t, err)
	assert.Zero(t, left)

	rels, err := repo.ListTouching("keep")
	require.NoError(t, err)
	keys := make([]string, 0, len(rels))
	for _, rel := range rels {
		keys = append(keys, rel.Key())
	}
	assert.ElementsMatch(t, []string{
		"parent|keep|kid",
		"spouse|keep|wife",
		"parent|mom|keep",
	}, keys)

	_, err = repo.RewriteEndpoint("keep", "keep")
	assert.ErrorIs(t, err, repository.ErrInvalidRelationship)

	none, err := repo.RewriteEndpoint("dup", "keep")
	require.NoError(t, err)
	assert.Zero(t, none)
}
