package services_test

import (
	"testing"

	"github.com/camden-git/familytreebackend/models"
	"github.com/camden-git/familytreebackend/repository"
	"github.com/camden-git/familytreebackend/services"
	"github.com/camden-git/familytreebackend/testhelper"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stack struct {
	db          *gorm.DB
	people      *repository.PersonRepository
	rels        *repository.RelationshipRepository
	generations *services.GenerationService
	tree        *services.TreeService
}

func newStack(t *testing.T) *stack {
	t.Helper()
	db := testhelper.NewGormDB(t)
	people := repository.NewPersonRepository(db)
	rels := repository.NewRelationshipRepository(db)
	generations := services.NewGenerationService(people, rels, 25, 2)
	return &stack{
		db:          db,
		people:      people,
		rels:        rels,
		generations: generations,
		tree:        services.NewTreeService(people, rels, generations),
	}
}

func (s *stack) addPerson(t *testing.T, p models.Person) models.Person {
	t.Helper()
	if p.TreeID == "" {
		p.TreeID = "tree"
	}
	require.NoError(t, s.tree.AddMember(&p))
	return p
}

func (s *stack) link(t *testing.T, from, to string, relType models.RelationshipType) {
	t.Helper()
	rel := models.Relationship{TreeID: "tree", FromID: from, ToID: to, Type: relType}
	require.NoError(t, s.tree.AddRelationship(&rel))
}
