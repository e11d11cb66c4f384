package gedcom

import (
	"strings"

	"github.com/camden-git/familytreebackend/models"
	"github.com/facette/natsort"
	"gorm.io/datatypes"
)

// unresolved endpoints keep the xref behind this prefix so validation can name them
const unresolvedPrefix = "unresolved:"

// linkFamilies fills family membership that only one side of the file recorded:
// a FAMC without the matching CHIL, or a FAMS without HUSB/WIFE.
func (ctx *parseContext) linkFamilies() {
	for _, xref := range sortedKeys(ctx.individuals) {
		indi := ctx.individuals[xref]
		for _, famXref := range indi.ChildFamilies {
			if fam, ok := ctx.families[famXref]; ok && !fam.hasChild(xref) {
				fam.ChildXrefs = append(fam.ChildXrefs, xref)
			}
		}
		for _, famXref := range indi.SpouseFamilies {
			fam, ok := ctx.families[famXref]
			if !ok || fam.HusbandXref == xref || fam.WifeXref == xref {
				continue
			}
			switch {
			case indi.Gender == models.GenderFemale && fam.WifeXref == "":
				fam.WifeXref = xref
			case indi.Gender != models.GenderFemale && fam.HusbandXref == "":
				fam.HusbandXref = xref
			case fam.WifeXref == "":
				fam.WifeXref = xref
			}
		}
	}
}

// transform turns the intermediate records into people and edges, both in natural
// xref order. It returns the number of families.
func (ctx *parseContext) transform(result *Result) int {
	ctx.linkFamilies()

	idByXref := make(map[string]string, len(ctx.individuals))
	for _, xref := range sortedKeys(ctx.individuals) {
		person := ctx.buildPerson(ctx.individuals[xref])
		idByXref[xref] = person.ID
		result.Individuals = append(result.Individuals, person)
	}

	endpoint := func(xref string) string {
		if id, ok := idByXref[xref]; ok {
			return id
		}
		return unresolvedPrefix + xref
	}

	seen := make(map[string]bool)
	addEdge := func(rel models.Relationship) {
		if seen[rel.Key()] {
			return
		}
		seen[rel.Key()] = true
		rel.ID = ctx.opts.NewID()
		rel.TreeID = ctx.opts.TreeID
		result.Relationships = append(result.Relationships, rel)
	}

	familyXrefs := sortedKeys(ctx.families)
	for _, famXref := range familyXrefs {
		fam := ctx.families[famXref]
		if fam.HusbandXref != "" && fam.WifeXref != "" {
			addEdge(models.Relationship{
				FromID:        endpoint(fam.HusbandXref),
				ToID:          endpoint(fam.WifeXref),
				Type:          models.RelationshipSpouse,
				MarriageDate:  fam.MarriageDate,
				MarriagePlace: fam.MarriagePlace,
				Divorced:      fam.Divorced,
				FamilyID:      famXref,
			})
		}
		for _, child := range fam.ChildXrefs {
			for _, parent := range []string{fam.HusbandXref, fam.WifeXref} {
				if parent == "" {
					continue
				}
				addEdge(models.Relationship{
					FromID:   endpoint(parent),
					ToID:     endpoint(child),
					Type:     models.RelationshipParent,
					FamilyID: famXref,
				})
			}
		}
	}
	return len(familyXrefs)
}

func (ctx *parseContext) buildPerson(indi *Individual) models.Person {
	p := models.Person{
		ID:           ctx.opts.NewID(),
		TreeID:       ctx.opts.TreeID,
		SourceXref:   indi.Xref,
		FirstName:    indi.FirstName,
		LastName:     indi.LastName,
		MiddleName:   indi.MiddleName,
		Nickname:     indi.Nickname,
		Suffix:       indi.Suffix,
		Title:        indi.Title,
		DisplayName:  indi.DisplayName,
		Gender:       indi.Gender,
		Birth:        indi.Birth,
		BirthPlace:   indi.BirthPlace,
		Death:        indi.Death,
		DeathPlace:   indi.DeathPlace,
		Baptism:      indi.Baptism,
		BaptismPlace: indi.BaptismPlace,
		Burial:       indi.Burial,
		BurialPlace:  indi.BurialPlace,
		Occupation:   indi.Occupation,
		Education:    indi.Education,
		Religion:     indi.Religion,
		Nationality:  indi.Nationality,
		Email:        indi.Email,
		Address:      indi.Address,
		Events:       datatypes.JSONSlice[models.Event](indi.Events),
	}
	if p.DisplayName == "" {
		p.DisplayName = p.DeriveDisplayName()
	}
	p.IsLiving = ctx.isLiving(indi)

	for _, note := range indi.Notes {
		if text := ctx.resolve(note, ctx.notes); text != "" {
			p.Notes = append(p.Notes, text)
		}
	}
	for _, src := range indi.Sources {
		if text := ctx.resolve(src, ctx.sources); text != "" {
			p.Sources = append(p.Sources, text)
		}
	}
	for _, m := range indi.Media {
		if ref := ctx.resolve(m, ctx.media); ref != "" {
			p.Media = append(p.Media, ref)
		}
	}
	return p
}

// resolve replaces a leading @X1@ pointer with the referenced record text. An unknown
// pointer is kept as written.
func (ctx *parseContext) resolve(value string, records map[string]string) string {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "@") {
		return value
	}
	end := strings.Index(value[1:], "@")
	if end < 0 {
		return value
	}
	pointer, rest := value[:end+2], value[end+2:]
	text, ok := records[pointer]
	if !ok || text == "" {
		return value
	}
	return text + rest
}

func (ctx *parseContext) isLiving(indi *Individual) bool {
	if indi.Deceased || !indi.Death.IsZero() || !indi.Burial.IsZero() {
		return false
	}
	if year := indi.Birth.Year(); year > 0 {
		return ctx.opts.Now().Year()-year <= ctx.opts.MaxLifespanYears
	}
	return true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	natsort.Sort(keys)
	return keys
}
