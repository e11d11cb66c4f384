package services

import (
	"fmt"
	"log"

	"github.com/camden-git/familytreebackend/lineage"
	"github.com/camden-git/familytreebackend/repository"
)

// GenerationReport is the outcome of a generation recalculation.
type GenerationReport struct {
	Generations lineage.GenerationMap `json:"generations"`
	Levels      int                   `json:"levels"`
	Updated     int                   `json:"updated"`
}

// GenerationService recomputes and stores generation numbers for a whole tree
type GenerationService struct {
	personRepo       repository.PersonRepositoryInterface
	relationshipRepo repository.RelationshipRepositoryInterface
	spanYears        int
	batchSize        int
}

// NewGenerationService creates a new generation service
func NewGenerationService(
	personRepo repository.PersonRepositoryInterface,
	relationshipRepo repository.RelationshipRepositoryInterface,
	spanYears int,
	batchSize int,
) *GenerationService {
	return &GenerationService{
		personRepo:       personRepo,
		relationshipRepo: relationshipRepo,
		spanYears:        spanYears,
		batchSize:        repository.ClampBatchSize(batchSize),
	}
}

// CalculateGenerations loads the tree, assigns generations and writes them back in
// batches. Reads and writes are not guarded against concurrent edits of the tree.
func (s *GenerationService) CalculateGenerations(treeID string) (*GenerationReport, error) {
	people, err := s.personRepo.ListByTree(treeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load people for generations: %w", err)
	}
	rels, err := s.relationshipRepo.ListByTree(treeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load relationships for generations: %w", err)
	}

	gens := lineage.AssignGenerations(people, rels, lineage.GenerationOptions{SpanYears: s.spanYears})

	changed := make(map[string]int)
	levels := make(map[int]bool)
	for _, p := range people {
		g := gens[p.ID]
		levels[g] = true
		if p.Generation == nil || *p.Generation != g {
			changed[p.ID] = g
		}
	}

	updated, err := s.personRepo.UpdateGenerations(changed, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to store generations for tree %s after %d updates: %w", treeID, updated, err)
	}
	log.Printf("generations: tree %s has %d people over %d generations, %d updated", treeID, len(people), len(levels), updated)

	return &GenerationReport{Generations: gens, Levels: len(levels), Updated: updated}, nil
}
