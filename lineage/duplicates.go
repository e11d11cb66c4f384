package lineage

import (
	"sort"
	"strings"

	"github.com/camden-git/familytreebackend/models"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

type KeyKind string

const (
	KeyName  KeyKind = "name"
	KeyEmail KeyKind = "email"
)

// DuplicateGroup is a cluster of people suspected to be the same individual.
// MemberIDs keep the order in which people were first seen.
type DuplicateGroup struct {
	Key        string     `json:"key"`
	KeyKind    KeyKind    `json:"key_kind"`
	MemberIDs  []string   `json:"member_ids"`
	Confidence Confidence `json:"confidence"`
	EmailMatch bool       `json:"email_match"`
}

type bucket struct {
	key     string
	kind    KeyKind
	members []string
	seen    map[string]bool
}

// FindDuplicateGroups clusters people by normalized name (display name and
// first+last) and, separately, by normalized email. Groups from different keys that
// hold exactly the same people are reported once.
func FindDuplicateGroups(people []models.Person) []DuplicateGroup {
	byID := make(map[string]models.Person, len(people))
	var buckets []*bucket
	bucketByKey := make(map[string]*bucket)
	add := func(kind KeyKind, key, personID string) {
		if key == "" {
			return
		}
		id := string(kind) + ":" + key
		b, ok := bucketByKey[id]
		if !ok {
			b = &bucket{key: key, kind: kind, seen: make(map[string]bool)}
			bucketByKey[id] = b
			buckets = append(buckets, b)
		}
		if !b.seen[personID] {
			b.seen[personID] = true
			b.members = append(b.members, personID)
		}
	}

	for _, p := range people {
		if _, dup := byID[p.ID]; dup {
			continue
		}
		byID[p.ID] = p
		add(KeyName, NormalizeKey(p.DisplayName), p.ID)
		if p.FirstName != "" && p.LastName != "" {
			add(KeyName, NormalizeKey(p.FullName()), p.ID)
		}
		add(KeyEmail, NormalizeKey(p.Email), p.ID)
	}

	var groups []DuplicateGroup
	groupBySet := make(map[string]int)
	for _, b := range buckets {
		if len(b.members) < 2 {
			continue
		}
		sorted := append([]string(nil), b.members...)
		sort.Strings(sorted)
		setKey := strings.Join(sorted, "\x00")
		if idx, ok := groupBySet[setKey]; ok {
			if b.kind == KeyEmail {
				groups[idx].EmailMatch = true
			}
			continue
		}
		groupBySet[setKey] = len(groups)
		groups = append(groups, DuplicateGroup{
			Key:        b.key,
			KeyKind:    b.kind,
			MemberIDs:  b.members,
			EmailMatch: b.kind == KeyEmail,
		})
	}

	for i := range groups {
		if groups[i].EmailMatch {
			groups[i].Confidence = ConfidenceHigh
			continue
		}
		members := make([]models.Person, 0, len(groups[i].MemberIDs))
		for _, id := range groups[i].MemberIDs {
			members = append(members, byID[id])
		}
		groups[i].Confidence = ScoreConfidence(members)
	}
	return groups
}

// compared fields; each pair of members can match on at most len(matchFields) fields
var matchFields = []func(models.Person) string{
	func(p models.Person) string { return NormalizeKey(p.FirstName) },
	func(p models.Person) string { return NormalizeKey(p.LastName) },
	func(p models.Person) string { return NormalizeKey(p.Email) },
	func(p models.Person) string { return dateKey(p.Birth) },
	func(p models.Person) string { return NormalizeKey(p.BirthPlace) },
}

func dateKey(d models.LifeDate) string {
	if d.Valid && d.Start != nil {
		return d.Start.Format("2006-01-02") + "/" + d.Precision
	}
	return NormalizeKey(d.Original)
}

// ScoreConfidence rates how alike the members are: the share of matching non-empty
// fields over all pairs, high above 0.6, medium above 0.3.
func ScoreConfidence(members []models.Person) Confidence {
	pairs, matches := 0, 0
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			pairs++
			for _, field := range matchFields {
				a, b := field(members[i]), field(members[j])
				if a != "" && a == b {
					matches++
				}
			}
		}
	}
	if pairs == 0 {
		return ConfidenceLow
	}
	ratio := float64(matches) / float64(pairs*len(matchFields))
	switch {
	case ratio > 0.6:
		return ConfidenceHigh
	case ratio > 0.3:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// CompletenessScore rates how much a record knows. relationshipCount is the number of
// edges touching the person.
func CompletenessScore(p models.Person, relationshipCount int) int {
	score := 0
	if p.PhotoURL != "" {
		score += 10
	}
	if p.Email != "" {
		score += 8
	}
	if !p.Birth.IsZero() {
		score += 5
	}
	if p.BirthPlace != "" {
		score += 3
	}
	if p.Occupation != "" {
		score += 3
	}
	if p.Biography != "" {
		score += 5
	}
	if p.FirstName != "" && p.LastName != "" {
		score += 5
	}
	if p.Role != "" {
		score += 5
	}
	if p.Generation != nil {
		score += 3
	}
	return score + 2*relationshipCount
}

// SelectCanonical returns the index of the member that survives a merge: the most
// complete record, the first one on ties.
func SelectCanonical(members []models.Person, relationships []models.Relationship) int {
	if len(members) == 0 {
		return -1
	}
	counts := make(map[string]int, len(members))
	for _, m := range members {
		counts[m.ID] = 0
	}
	for _, r := range relationships {
		if _, ok := counts[r.FromID]; ok {
			counts[r.FromID]++
		}
		if r.ToID != r.FromID {
			if _, ok := counts[r.ToID]; ok {
				counts[r.ToID]++
			}
		}
	}
	best, bestScore := 0, CompletenessScore(members[0], counts[members[0].ID])
	for i := 1; i < len(members); i++ {
		if score := CompletenessScore(members[i], counts[members[i].ID]); score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

// MergeFields copies every non-empty field of dup that canonical lacks. Canonical
// values are never overwritten. It returns the names of the filled fields.
func MergeFields(canonical *models.Person, dup models.Person) []string {
	var filled []string
	fillString := func(name string, dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
			filled = append(filled, name)
		}
	}
	fillDate := func(name string, dst *models.LifeDate, src models.LifeDate) {
		if dst.IsZero() && !src.IsZero() {
			*dst = src
			filled = append(filled, name)
		}
	}

	fillString("first_name", &canonical.FirstName, dup.FirstName)
	fillString("last_name", &canonical.LastName, dup.LastName)
	fillString("middle_name", &canonical.MiddleName, dup.MiddleName)
	fillString("nickname", &canonical.Nickname, dup.Nickname)
	fillString("suffix", &canonical.Suffix, dup.Suffix)
	fillString("title", &canonical.Title, dup.Title)
	fillString("display_name", &canonical.DisplayName, dup.DisplayName)
	if (canonical.Gender == "" || canonical.Gender == models.GenderUnknown) &&
		dup.Gender != "" && dup.Gender != models.GenderUnknown {
		canonical.Gender = dup.Gender
		filled = append(filled, "gender")
	}
	fillDate("birth_date", &canonical.Birth, dup.Birth)
	fillString("birth_place", &canonical.BirthPlace, dup.BirthPlace)
	fillDate("death_date", &canonical.Death, dup.Death)
	fillString("death_place", &canonical.DeathPlace, dup.DeathPlace)
	fillDate("baptism_date", &canonical.Baptism, dup.Baptism)
	fillString("baptism_place", &canonical.BaptismPlace, dup.BaptismPlace)
	fillDate("burial_date", &canonical.Burial, dup.Burial)
	fillString("burial_place", &canonical.BurialPlace, dup.BurialPlace)
	fillString("occupation", &canonical.Occupation, dup.Occupation)
	fillString("education", &canonical.Education, dup.Education)
	fillString("religion", &canonical.Religion, dup.Religion)
	fillString("nationality", &canonical.Nationality, dup.Nationality)
	fillString("email", &canonical.Email, dup.Email)
	fillString("photo_url", &canonical.PhotoURL, dup.PhotoURL)
	fillString("biography", &canonical.Biography, dup.Biography)
	fillString("role", &canonical.Role, dup.Role)
	fillString("address", &canonical.Address, dup.Address)
	if canonical.Generation == nil && dup.Generation != nil {
		g := *dup.Generation
		canonical.Generation = &g
		filled = append(filled, "generation")
	}
	if len(canonical.Events) == 0 && len(dup.Events) > 0 {
		canonical.Events = append(canonical.Events, dup.Events...)
		filled = append(filled, "events")
	}
	if len(canonical.Notes) == 0 && len(dup.Notes) > 0 {
		canonical.Notes = append(canonical.Notes, dup.Notes...)
		filled = append(filled, "notes")
	}
	if len(canonical.Sources) == 0 && len(dup.Sources) > 0 {
		canonical.Sources = append(canonical.Sources, dup.Sources...)
		filled = append(filled, "sources")
	}
	if len(canonical.Media) == 0 && len(dup.Media) > 0 {
		canonical.Media = append(canonical.Media, dup.Media...)
		filled = append(filled, "media")
	}
	return filled
}
