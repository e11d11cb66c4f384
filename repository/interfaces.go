package repository

import (
	"github.com/camden-git/familytreebackend/models"
)

// PersonRepositoryInterface defines the methods for person data operations
type PersonRepositoryInterface interface {
	Create(person *models.Person) error
	GetByID(id string) (*models.Person, error)
	ListByTree(treeID string) ([]models.Person, error)
	ListByIDs(ids []string) ([]models.Person, error)
	Update(person *models.Person) error
	Delete(id string) error
	BatchImport(people []models.Person, batchSize int) BatchResult
	UpdateGenerations(generations map[string]int, batchSize int) (int, error)
}

// RelationshipRepositoryInterface defines the methods for relationship data operations
type RelationshipRepositoryInterface interface {
	Create(rel *models.Relationship) error
	ListByTree(treeID string) ([]models.Relationship, error)
	ListTouching(personID string) ([]models.Relationship, error)
	CountReferencing(personID string) (int64, error)
	BatchImport(relationships []models.Relationship, batchSize int) BatchResult
	RewriteEndpoint(fromPersonID, toPersonID string) (int, error)
}
