package database

import (
	"sort"

	"github.com/camden-git/familytreebackend/lineage"
	"github.com/camden-git/familytreebackend/models"
	"github.com/facette/natsort"
)

const (
	SortNameAsc       = "name_asc"
	SortNameNat       = "name_nat"
	SortBirthAsc      = "birth_asc"
	SortGenerationAsc = "generation_asc"
	SortInserted      = "inserted"
)

const DefaultSortOrder = SortInserted

// IsValidSortOrder checks if a string is a valid sort order constant
func IsValidSortOrder(order string) bool {
	switch order {
	case SortNameAsc, SortNameNat, SortBirthAsc, SortGenerationAsc, SortInserted:
		return true
	default:
		return false
	}
}

// SortPeople orders members in place. The sort is stable, so people that compare equal
// keep their stored order. Unknown orders leave the slice untouched.
func SortPeople(people []models.Person, order string) {
	var less func(a, b *models.Person) bool
	switch order {
	case SortNameAsc:
		less = func(a, b *models.Person) bool {
			return lineage.NormalizeKey(a.DisplayName) < lineage.NormalizeKey(b.DisplayName)
		}
	case SortNameNat:
		less = func(a, b *models.Person) bool {
			ka, kb := lineage.NormalizeKey(a.DisplayName), lineage.NormalizeKey(b.DisplayName)
			return ka != kb && natsort.Compare(ka, kb)
		}
	case SortBirthAsc:
		// undated people go last
		less = func(a, b *models.Person) bool {
			ta, tb := a.Birth.Earliest(), b.Birth.Earliest()
			if !a.Birth.Valid || ta == nil {
				return false
			}
			if !b.Birth.Valid || tb == nil {
				return true
			}
			return ta.Before(*tb)
		}
	case SortGenerationAsc:
		less = func(a, b *models.Person) bool {
			if a.Generation == nil {
				return false
			}
			if b.Generation == nil {
				return true
			}
			return *a.Generation < *b.Generation
		}
	default:
		return
	}
	sort.SliceStable(people, func(i, j int) bool {
		return less(&people[i], &people[j])
	})
}
