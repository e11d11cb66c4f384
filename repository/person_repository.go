package repository

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/camden-git/familytreebackend/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrPersonReferenced is returned when deleting a person that relationships still point at.
	ErrPersonReferenced = errors.New("person is still referenced by relationships")
	// ErrDuplicatePerson is returned when creating a person whose id is already taken.
	ErrDuplicatePerson = errors.New("person already exists")
)

// PersonRepository handles database operations for Person entities
type PersonRepository struct {
	DB *gorm.DB
}

// NewPersonRepository creates a new instance of PersonRepository
func NewPersonRepository(db *gorm.DB) *PersonRepository {
	return &PersonRepository{DB: db}
}

func stampPerson(person *models.Person, now int64) {
	if person.ID == "" {
		person.ID = uuid.NewString()
	}
	if person.CreatedAt == 0 {
		person.CreatedAt = now
	}
	if person.UpdatedAt == 0 {
		person.UpdatedAt = now
	}
	if person.DisplayName == "" {
		person.DisplayName = person.DeriveDisplayName()
	}
	if person.Gender == "" {
		person.Gender = models.GenderUnknown
	}
}

// Create creates a new person record in the database
func (r *PersonRepository) Create(person *models.Person) error {
	if person.TreeID == "" {
		return fmt.Errorf("failed to create person %s: tree id is required", person.DisplayName)
	}
	stampPerson(person, time.Now().Unix())

	return r.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Person{}).Where("id = ?", person.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to look up person ID %s: %w", person.ID, err)
		}
		if count > 0 {
			return fmt.Errorf("%w: %s", ErrDuplicatePerson, person.ID)
		}
		if err := tx.Create(person).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: %s", ErrDuplicatePerson, person.ID)
			}
			return fmt.Errorf("failed to create person %s: %w", person.DisplayName, err)
		}
		return nil
	})
}

// GetByID retrieves a person by their ID
func (r *PersonRepository) GetByID(id string) (*models.Person, error) {
	var person models.Person
	err := r.DB.Where("id = ?", id).First(&person).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get person by ID %s: %w", id, err)
	}
	return &person, nil
}

// ListByTree retrieves the people of a tree in insertion order
func (r *PersonRepository) ListByTree(treeID string) ([]models.Person, error) {
	var people []models.Person
	err := r.DB.Where("tree_id = ?", treeID).Order("created_at ASC, rowid ASC").Find(&people).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list people of tree %s: %w", treeID, err)
	}
	return people, nil
}

// ListByIDs retrieves the given people. Unknown ids are left out.
func (r *PersonRepository) ListByIDs(ids []string) ([]models.Person, error) {
	if len(ids) == 0 {
		return []models.Person{}, nil
	}
	var people []models.Person
	err := r.DB.Where("id IN ?", ids).Order("created_at ASC, rowid ASC").Find(&people).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list people by IDs: %w", err)
	}
	return people, nil
}

// Update saves every field of an existing person
func (r *PersonRepository) Update(person *models.Person) error {
	person.UpdatedAt = time.Now().Unix()
	result := r.DB.Model(&models.Person{}).Where("id = ?", person.ID).Select("*").Omit("id", "created_at").Updates(person)
	if result.Error != nil {
		return fmt.Errorf("failed to update person ID %s: %w", person.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a person. It refuses while any relationship references the person.
func (r *PersonRepository) Delete(id string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var refs int64
		err := tx.Model(&models.Relationship{}).Where("from_id = ? OR to_id = ?", id, id).Count(&refs).Error
		if err != nil {
			return fmt.Errorf("failed to count relationships of person ID %s: %w", id, err)
		}
		if refs > 0 {
			return fmt.Errorf("failed to delete person ID %s (%d relationships): %w", id, refs, ErrPersonReferenced)
		}

		result := tx.Where("id = ?", id).Delete(&models.Person{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete person ID %s: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// BatchImport inserts people in transactions of at most batchSize rows. People whose
// id already exists, in storage or earlier in the list, are skipped.
func (r *PersonRepository) BatchImport(people []models.Person, batchSize int) BatchResult {
	batchSize = ClampBatchSize(batchSize)
	result := BatchResult{Errors: []string{}}
	now := time.Now().Unix()
	seen := make(map[string]bool, len(people))

	for n, bounds := range chunks(len(people), batchSize) {
		batch := make([]models.Person, 0, bounds[1]-bounds[0])
		ids := make([]string, 0, cap(batch))
		for _, p := range people[bounds[0]:bounds[1]] {
			if p.TreeID == "" {
				result.Skipped++
				result.Errors = append(result.Errors, fmt.Sprintf("person %q has no tree id", p.DisplayName))
				continue
			}
			stampPerson(&p, now)
			if seen[p.ID] {
				result.Skipped++
				continue
			}
			seen[p.ID] = true
			batch = append(batch, p)
			ids = append(ids, p.ID)
		}
		if len(batch) == 0 {
			continue
		}

		var created int
		err := r.DB.Transaction(func(tx *gorm.DB) error {
			var existing []string
			if err := tx.Model(&models.Person{}).Where("id IN ?", ids).Pluck("id", &existing).Error; err != nil {
				return fmt.Errorf("failed to look up existing people: %w", err)
			}
			exists := make(map[string]bool, len(existing))
			for _, id := range existing {
				exists[id] = true
			}
			fresh := batch[:0]
			for _, p := range batch {
				if !exists[p.ID] {
					fresh = append(fresh, p)
				}
			}
			created = len(fresh)
			if created == 0 {
				return nil
			}
			if err := tx.CreateInBatches(&fresh, insertChunkSize).Error; err != nil {
				return fmt.Errorf("failed to insert people: %w", err)
			}
			return nil
		})
		if err != nil {
			result.Skipped += len(batch)
			result.Errors = append(result.Errors, fmt.Sprintf("batch %d: %v", n+1, err))
			continue
		}
		result.Imported += created
		result.Skipped += len(batch) - created
	}
	return result
}

// UpdateGenerations writes the generation of each listed person, batchSize rows per
// transaction. It stops at the first failing batch and returns how many rows were written.
func (r *PersonRepository) UpdateGenerations(generations map[string]int, batchSize int) (int, error) {
	batchSize = ClampBatchSize(batchSize)
	ids := make([]string, 0, len(generations))
	for id := range generations {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	updated := 0
	now := time.Now().Unix()
	for n, bounds := range chunks(len(ids), batchSize) {
		var written int
		err := r.DB.Transaction(func(tx *gorm.DB) error {
			for _, id := range ids[bounds[0]:bounds[1]] {
				res := tx.Model(&models.Person{}).Where("id = ?", id).
					Updates(map[string]interface{}{"generation": generations[id], "updated_at": now})
				if res.Error != nil {
					return fmt.Errorf("failed to update generation of person ID %s: %w", id, res.Error)
				}
				written += int(res.RowsAffected)
			}
			return nil
		})
		if err != nil {
			return updated, fmt.Errorf("generation batch %d: %w", n+1, err)
		}
		updated += written
	}
	return updated, nil
}
