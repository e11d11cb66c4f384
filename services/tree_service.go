package services

import (
	"fmt"

	"github.com/camden-git/familytreebackend/database"
	"github.com/camden-git/familytreebackend/lineage"
	"github.com/camden-git/familytreebackend/models"
	"github.com/camden-git/familytreebackend/repository"
)

// TreeQuery selects what GetFamilyTree returns.
type TreeQuery struct {
	IncludeSiblings bool
	SortOrder       string
}

// TreeStats summarizes a stored tree.
type TreeStats struct {
	TotalPeople        int `json:"totalPeople"`
	TotalRelationships int `json:"totalRelationships"`
	Generations        int `json:"generations"`
	Living             int `json:"living"`
}

// FamilyTree is a whole tree as handed to the presentation layer.
type FamilyTree struct {
	TreeID        string                `json:"tree_id"`
	People        []models.Person       `json:"people"`
	Relationships []models.Relationship `json:"relationships"`
	Stats         TreeStats             `json:"stats"`
}

// TreeService is the storage collaborator: it adds members and relationships one by one
// or in batches and reads whole trees back.
type TreeService struct {
	personRepo       repository.PersonRepositoryInterface
	relationshipRepo repository.RelationshipRepositoryInterface
	generations      *GenerationService
}

// NewTreeService creates a new tree service
func NewTreeService(
	personRepo repository.PersonRepositoryInterface,
	relationshipRepo repository.RelationshipRepositoryInterface,
	generations *GenerationService,
) *TreeService {
	return &TreeService{
		personRepo:       personRepo,
		relationshipRepo: relationshipRepo,
		generations:      generations,
	}
}

// AddMember stores one person
func (s *TreeService) AddMember(person *models.Person) error {
	return s.personRepo.Create(person)
}

// AddRelationship stores one edge between two existing members of the same tree
func (s *TreeService) AddRelationship(rel *models.Relationship) error {
	return s.relationshipRepo.Create(rel)
}

// BatchImportMembers stores people in batches of at most batchSize
func (s *TreeService) BatchImportMembers(people []models.Person, batchSize int) repository.BatchResult {
	return s.personRepo.BatchImport(people, batchSize)
}

// BatchImportRelationships stores edges in batches of at most batchSize. Members must be
// imported first.
func (s *TreeService) BatchImportRelationships(rels []models.Relationship, batchSize int) repository.BatchResult {
	return s.relationshipRepo.BatchImport(rels, batchSize)
}

// CalculateGenerations recomputes the generation of every member of the tree
func (s *TreeService) CalculateGenerations(treeID string) (*GenerationReport, error) {
	return s.generations.CalculateGenerations(treeID)
}

// GetFamilyTree returns every member and relationship of the tree. Sibling edges are
// never stored; with IncludeSiblings they are derived from shared parents.
func (s *TreeService) GetFamilyTree(treeID string, query TreeQuery) (*FamilyTree, error) {
	people, err := s.personRepo.ListByTree(treeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load family tree %s: %w", treeID, err)
	}
	rels, err := s.relationshipRepo.ListByTree(treeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load family tree %s: %w", treeID, err)
	}

	stats := TreeStats{TotalPeople: len(people), TotalRelationships: len(rels)}
	levels := make(map[int]bool)
	for _, p := range people {
		if p.IsLiving {
			stats.Living++
		}
		if p.Generation != nil {
			levels[*p.Generation] = true
		}
	}
	stats.Generations = len(levels)

	if query.IncludeSiblings {
		rels = append(rels, lineage.DeriveSiblings(rels)...)
	}
	if query.SortOrder != "" {
		database.SortPeople(people, query.SortOrder)
	}

	return &FamilyTree{
		TreeID:        treeID,
		People:        people,
		Relationships: rels,
		Stats:         stats,
	}, nil
}
