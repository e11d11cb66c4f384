package gedcom

import (
	"fmt"
	"strings"

	"github.com/camden-git/familytreebackend/models"
)

// Validate checks referential integrity and chronology. It never fails: problems are
// recorded on the result, and edges with a missing endpoint are dropped so none
// survive into storage.
func Validate(result *Result, opts Options) {
	opts = opts.withDefaults()

	byID := make(map[string]*models.Person, len(result.Individuals))
	for i := range result.Individuals {
		byID[result.Individuals[i].ID] = &result.Individuals[i]
	}

	kept := result.Relationships[:0]
	for _, rel := range result.Relationships {
		missing := ""
		if _, ok := byID[rel.FromID]; !ok {
			missing = rel.FromID
		} else if _, ok := byID[rel.ToID]; !ok {
			missing = rel.ToID
		}
		if missing != "" {
			result.addIssue(Issue{
				Kind:     IssueReference,
				Severity: SeverityError,
				Message: fmt.Sprintf("%s relationship%s references unknown person %s",
					rel.Type, familySuffix(rel.FamilyID), strings.TrimPrefix(missing, unresolvedPrefix)),
			})
			continue
		}
		kept = append(kept, rel)
	}
	result.Relationships = kept

	for i := range result.Individuals {
		validatePerson(result, &result.Individuals[i], opts)
	}

	for _, rel := range result.Relationships {
		r := rel.Normalized()
		if r.Type != models.RelationshipParent {
			continue
		}
		parent, child := byID[r.FromID], byID[r.ToID]
		pb, cb := parent.Birth.Earliest(), child.Birth.Latest()
		if parent.Birth.Valid && child.Birth.Valid && pb != nil && cb != nil && pb.After(*cb) {
			result.addIssue(Issue{
				Kind:     IssuePlausibility,
				Severity: SeverityWarning,
				PersonID: parent.ID,
				Message:  fmt.Sprintf("%s was born after their child %s", describe(parent), describe(child)),
			})
		}
	}
}

func validatePerson(result *Result, p *models.Person, opts Options) {
	if !p.HasName() {
		result.addIssue(Issue{
			Kind:     IssueNameMissing,
			Severity: SeverityWarning,
			PersonID: p.ID,
			Message:  fmt.Sprintf("person %s has no name", describe(p)),
		})
	}

	if !p.Birth.Valid || !p.Death.Valid {
		return
	}
	birth, death := p.Birth.Earliest(), p.Death.Latest()
	if birth == nil || death == nil {
		return
	}
	if birth.After(*death) {
		result.addIssue(Issue{
			Kind:     IssueChronology,
			Severity: SeverityError,
			PersonID: p.ID,
			Message: fmt.Sprintf("%s died (%s) before being born (%s)",
				describe(p), p.Death.Original, p.Birth.Original),
		})
		return
	}
	if age := yearsBetween(*birth, *death); age > opts.MaxLifespanYears {
		result.addIssue(Issue{
			Kind:     IssuePlausibility,
			Severity: SeverityWarning,
			PersonID: p.ID,
			Message:  fmt.Sprintf("%s lived %d years, more than %d", describe(p), age, opts.MaxLifespanYears),
		})
	}
}

func describe(p *models.Person) string {
	name := p.DisplayName
	if name == "" {
		name = "(unnamed)"
	}
	if p.SourceXref != "" {
		return name + " " + p.SourceXref
	}
	return name
}

func familySuffix(familyID string) string {
	if familyID == "" {
		return ""
	}
	return " in family " + familyID
}
