package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/camden-git/familytreebackend/lineage"
	"github.com/camden-git/familytreebackend/models"
	"github.com/camden-git/familytreebackend/repository"
)

// ErrMergeOrdering is returned when a duplicate could not be fully detached from the
// graph, so it was not deleted.
var ErrMergeOrdering = errors.New("merge aborted before deleting duplicates")

// MergeResult describes one merged group.
type MergeResult struct {
	CanonicalID    string   `json:"canonical_id"`
	MergedIDs      []string `json:"merged_ids"`
	FilledFields   []string `json:"filled_fields"`
	RewrittenEdges int      `json:"rewritten_edges"`
}

// DuplicateService finds and merges people that look like the same individual
type DuplicateService struct {
	personRepo       repository.PersonRepositoryInterface
	relationshipRepo repository.RelationshipRepositoryInterface
}

// NewDuplicateService creates a new duplicate service
func NewDuplicateService(
	personRepo repository.PersonRepositoryInterface,
	relationshipRepo repository.RelationshipRepositoryInterface,
) *DuplicateService {
	return &DuplicateService{personRepo: personRepo, relationshipRepo: relationshipRepo}
}

// DetectDuplicates groups the members of a tree by name and email.
func (s *DuplicateService) DetectDuplicates(treeID string) ([]lineage.DuplicateGroup, error) {
	people, err := s.personRepo.ListByTree(treeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load people for duplicate detection: %w", err)
	}
	return lineage.FindDuplicateGroups(people), nil
}

// MergeGroup merges one confirmed group into its most complete member. Every edge of
// every duplicate is moved to the canonical person before any duplicate is deleted.
// Members that no longer exist are ignored, so running the same merge twice is a no-op.
func (s *DuplicateService) MergeGroup(treeID string, memberIDs []string) (*MergeResult, error) {
	members, err := s.loadMembers(treeID, memberIDs)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return &MergeResult{MergedIDs: []string{}, FilledFields: []string{}}, nil
	}
	if len(members) == 1 {
		return &MergeResult{CanonicalID: members[0].ID, MergedIDs: []string{}, FilledFields: []string{}}, nil
	}

	var touching []models.Relationship
	seenEdges := make(map[string]bool)
	for _, m := range members {
		rels, err := s.relationshipRepo.ListTouching(m.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load relationships of %s: %w", m.ID, err)
		}
		for _, rel := range rels {
			if !seenEdges[rel.ID] {
				seenEdges[rel.ID] = true
				touching = append(touching, rel)
			}
		}
	}

	idx := lineage.SelectCanonical(members, touching)
	canonical := members[idx]
	result := &MergeResult{CanonicalID: canonical.ID, MergedIDs: []string{}, FilledFields: []string{}}

	var duplicates []models.Person
	for i, m := range members {
		if i != idx {
			duplicates = append(duplicates, m)
		}
	}

	filled := make(map[string]bool)
	for _, dup := range duplicates {
		for _, field := range lineage.MergeFields(&canonical, dup) {
			if !filled[field] {
				filled[field] = true
				result.FilledFields = append(result.FilledFields, field)
			}
		}
	}
	if len(result.FilledFields) > 0 {
		if err := s.personRepo.Update(&canonical); err != nil {
			return nil, fmt.Errorf("failed to update canonical person %s: %w", canonical.ID, err)
		}
	}

	for _, dup := range duplicates {
		n, err := s.relationshipRepo.RewriteEndpoint(dup.ID, canonical.ID)
		if err != nil {
			log.Printf("Merge into %s: rewriting edges of %s failed: %v", canonical.ID, dup.ID, err)
			return result, fmt.Errorf("%w: rewriting %s: %v", ErrMergeOrdering, dup.ID, err)
		}
		result.RewrittenEdges += n
	}

	for _, dup := range duplicates {
		if err := s.personRepo.Delete(dup.ID); err != nil {
			if errors.Is(err, repository.ErrPersonReferenced) {
				return result, fmt.Errorf("%w: %v", ErrMergeOrdering, err)
			}
			return result, fmt.Errorf("failed to delete duplicate %s: %w", dup.ID, err)
		}
		result.MergedIDs = append(result.MergedIDs, dup.ID)
	}

	log.Printf("Merged %d duplicates into %s (%d edges rewritten, %d fields filled)",
		len(result.MergedIDs), canonical.ID, result.RewrittenEdges, len(result.FilledFields))
	return result, nil
}

// loadMembers returns the members of the group that still exist, in the order given.
func (s *DuplicateService) loadMembers(treeID string, memberIDs []string) ([]models.Person, error) {
	people, err := s.personRepo.ListByIDs(memberIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load merge group: %w", err)
	}
	byID := make(map[string]models.Person, len(people))
	for _, p := range people {
		if p.TreeID != treeID {
			return nil, fmt.Errorf("person %s does not belong to tree %s: %w", p.ID, treeID, repository.ErrUnknownEndpoint)
		}
		byID[p.ID] = p
	}

	members := make([]models.Person, 0, len(byID))
	seen := make(map[string]bool, len(memberIDs))
	for _, id := range memberIDs {
		p, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		members = append(members, p)
	}
	return members, nil
}
