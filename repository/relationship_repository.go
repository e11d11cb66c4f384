package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/camden-git/familytreebackend/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrInvalidRelationship = errors.New("invalid relationship")
	ErrUnknownEndpoint     = errors.New("relationship endpoint does not exist")
	ErrDuplicateEdge       = errors.New("relationship already exists")
)

// RelationshipRepository handles database operations for Relationship entities
type RelationshipRepository struct {
	DB *gorm.DB
}

// NewRelationshipRepository creates a new instance of RelationshipRepository
func NewRelationshipRepository(db *gorm.DB) *RelationshipRepository {
	return &RelationshipRepository{DB: db}
}

// prepareRelationship normalizes child edges and fills the id and timestamps.
func prepareRelationship(rel *models.Relationship, now int64) error {
	*rel = rel.Normalized()
	if !rel.Type.IsValid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidRelationship, rel.Type)
	}
	if rel.TreeID == "" {
		return fmt.Errorf("%w: tree id is required", ErrInvalidRelationship)
	}
	if rel.FromID == "" || rel.ToID == "" {
		return fmt.Errorf("%w: both endpoints are required", ErrInvalidRelationship)
	}
	if rel.FromID == rel.ToID {
		return fmt.Errorf("%w: %s cannot be related to itself", ErrInvalidRelationship, rel.FromID)
	}
	if rel.ID == "" {
		rel.ID = uuid.NewString()
	}
	if rel.CreatedAt == 0 {
		rel.CreatedAt = now
	}
	if rel.UpdatedAt == 0 {
		rel.UpdatedAt = now
	}
	return nil
}

// existingKeys returns the keys of stored edges touching any of the given people.
func existingKeys(tx *gorm.DB, personIDs []string) (map[string]bool, error) {
	var rels []models.Relationship
	err := tx.Where("from_id IN ? OR to_id IN ?", personIDs, personIDs).Find(&rels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load existing relationships: %w", err)
	}
	keys := make(map[string]bool, len(rels))
	for _, rel := range rels {
		keys[rel.Key()] = true
	}
	return keys, nil
}

// knownPeople returns which of the given ids exist in the given tree.
func knownPeople(tx *gorm.DB, treeID string, ids []string) (map[string]bool, error) {
	var found []string
	err := tx.Model(&models.Person{}).Where("tree_id = ? AND id IN ?", treeID, ids).Pluck("id", &found).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up relationship endpoints: %w", err)
	}
	known := make(map[string]bool, len(found))
	for _, id := range found {
		known[id] = true
	}
	return known, nil
}

// Create stores a relationship after checking both endpoints exist in its tree and that
// no equal edge is stored yet.
func (r *RelationshipRepository) Create(rel *models.Relationship) error {
	if err := prepareRelationship(rel, time.Now().Unix()); err != nil {
		return err
	}
	return r.DB.Transaction(func(tx *gorm.DB) error {
		known, err := knownPeople(tx, rel.TreeID, []string{rel.FromID, rel.ToID})
		if err != nil {
			return err
		}
		for _, id := range []string{rel.FromID, rel.ToID} {
			if !known[id] {
				return fmt.Errorf("%w: %s", ErrUnknownEndpoint, id)
			}
		}
		keys, err := existingKeys(tx, []string{rel.FromID})
		if err != nil {
			return err
		}
		if keys[rel.Key()] {
			return fmt.Errorf("%w: %s", ErrDuplicateEdge, rel.Key())
		}
		if err := tx.Create(rel).Error; err != nil {
			return fmt.Errorf("failed to create %s relationship %s -> %s: %w", rel.Type, rel.FromID, rel.ToID, err)
		}
		return nil
	})
}

// ListByTree retrieves the relationships of a tree in insertion order
func (r *RelationshipRepository) ListByTree(treeID string) ([]models.Relationship, error) {
	var rels []models.Relationship
	err := r.DB.Where("tree_id = ?", treeID).Order("created_at ASC, rowid ASC").Find(&rels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list relationships of tree %s: %w", treeID, err)
	}
	return rels, nil
}

// ListTouching retrieves every relationship with personID as an endpoint
func (r *RelationshipRepository) ListTouching(personID string) ([]models.Relationship, error) {
	var rels []models.Relationship
	err := r.DB.Where("from_id = ? OR to_id = ?", personID, personID).Order("created_at ASC, rowid ASC").Find(&rels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list relationships of person %s: %w", personID, err)
	}
	return rels, nil
}

// CountReferencing counts the relationships with personID as an endpoint
func (r *RelationshipRepository) CountReferencing(personID string) (int64, error) {
	var count int64
	err := r.DB.Model(&models.Relationship{}).Where("from_id = ? OR to_id = ?", personID, personID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count relationships of person %s: %w", personID, err)
	}
	return count, nil
}

// BatchImport inserts relationships in transactions of at most batchSize rows. Invalid
// edges, edges whose endpoints are not people of the same tree, and edges equal to a
// stored or earlier one are skipped.
func (r *RelationshipRepository) BatchImport(relationships []models.Relationship, batchSize int) BatchResult {
	batchSize = ClampBatchSize(batchSize)
	result := BatchResult{Errors: []string{}}
	now := time.Now().Unix()
	seen := make(map[string]bool, len(relationships))

	for n, bounds := range chunks(len(relationships), batchSize) {
		batch := make([]models.Relationship, 0, bounds[1]-bounds[0])
		for _, rel := range relationships[bounds[0]:bounds[1]] {
			if err := prepareRelationship(&rel, now); err != nil {
				result.Skipped++
				result.Errors = append(result.Errors, err.Error())
				continue
			}
			batch = append(batch, rel)
		}
		if len(batch) == 0 {
			continue
		}

		var created, skipped int
		var problems []string
		err := r.DB.Transaction(func(tx *gorm.DB) error {
			created, skipped, problems = 0, 0, nil
			endpoints := make(map[string][]string)
			var touched []string
			for _, rel := range batch {
				endpoints[rel.TreeID] = append(endpoints[rel.TreeID], rel.FromID, rel.ToID)
				touched = append(touched, rel.FromID, rel.ToID)
			}
			known := make(map[string]map[string]bool, len(endpoints))
			for treeID, ids := range endpoints {
				k, err := knownPeople(tx, treeID, ids)
				if err != nil {
					return err
				}
				known[treeID] = k
			}
			stored, err := existingKeys(tx, touched)
			if err != nil {
				return err
			}

			fresh := make([]models.Relationship, 0, len(batch))
			for _, rel := range batch {
				switch {
				case !known[rel.TreeID][rel.FromID] || !known[rel.TreeID][rel.ToID]:
					skipped++
					problems = append(problems, fmt.Sprintf("%s relationship %s -> %s: %v", rel.Type, rel.FromID, rel.ToID, ErrUnknownEndpoint))
				case stored[rel.Key()] || seen[rel.Key()]:
					skipped++
				default:
					seen[rel.Key()] = true
					fresh = append(fresh, rel)
				}
			}
			created = len(fresh)
			if created == 0 {
				return nil
			}
			if err := tx.CreateInBatches(&fresh, insertChunkSize).Error; err != nil {
				for _, rel := range fresh {
					delete(seen, rel.Key())
				}
				return fmt.Errorf("failed to insert relationships: %w", err)
			}
			return nil
		})
		if err != nil {
			result.Skipped += len(batch)
			result.Errors = append(result.Errors, fmt.Sprintf("batch %d: %v", n+1, err))
			continue
		}
		result.Imported += created
		result.Skipped += skipped
		result.Errors = append(result.Errors, problems...)
	}
	return result
}

// RewriteEndpoint moves every edge of fromPersonID onto toPersonID in one transaction.
// Edges that would become self loops, or equal to an edge toPersonID already has, are
// deleted instead. It returns the number of edges rewritten. Afterwards no edge
// references fromPersonID.
func (r *RelationshipRepository) RewriteEndpoint(fromPersonID, toPersonID string) (int, error) {
	if fromPersonID == toPersonID {
		return 0, fmt.Errorf("%w: cannot rewrite %s onto itself", ErrInvalidRelationship, fromPersonID)
	}
	rewritten := 0
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		rewritten = 0
		var moving []models.Relationship
		if err := tx.Where("from_id = ? OR to_id = ?", fromPersonID, fromPersonID).Order("created_at ASC, rowid ASC").Find(&moving).Error; err != nil {
			return fmt.Errorf("failed to load relationships of %s: %w", fromPersonID, err)
		}
		if len(moving) == 0 {
			return nil
		}
		keys, err := existingKeys(tx, []string{toPersonID})
		if err != nil {
			return err
		}

		now := time.Now().Unix()
		for _, rel := range moving {
			if rel.FromID == fromPersonID {
				rel.FromID = toPersonID
			}
			if rel.ToID == fromPersonID {
				rel.ToID = toPersonID
			}
			if rel.FromID == rel.ToID || keys[rel.Key()] {
				if err := tx.Where("id = ?", rel.ID).Delete(&models.Relationship{}).Error; err != nil {
					return fmt.Errorf("failed to drop redundant relationship %s: %w", rel.ID, err)
				}
				continue
			}
			keys[rel.Key()] = true
			err := tx.Model(&models.Relationship{}).Where("id = ?", rel.ID).
				Updates(map[string]interface{}{"from_id": rel.FromID, "to_id": rel.ToID, "updated_at": now}).Error
			if err != nil {
				return fmt.Errorf("failed to rewrite relationship %s: %w", rel.ID, err)
			}
			rewritten++
		}

		var left int64
		if err := tx.Model(&models.Relationship{}).Where("from_id = ? OR to_id = ?", fromPersonID, fromPersonID).Count(&left).Error; err != nil {
			return fmt.Errorf("failed to verify rewrite of %s: %w", fromPersonID, err)
		}
		if left > 0 {
			return fmt.Errorf("%d relationships still reference %s after rewrite", left, fromPersonID)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return rewritten, nil
}
