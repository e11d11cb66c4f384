package gedcom

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/camden-git/familytreebackend/lineage"
	"github.com/camden-git/familytreebackend/models"
)

// CSV columns understood by ParseCSV
const (
	colID          = "id"
	colFullName    = "fullName"
	colFirstName   = "firstName"
	colLastName    = "lastName"
	colMiddleName  = "middleName"
	colNickname    = "nickname"
	colGender      = "gender"
	colBirthDate   = "birthDate"
	colBirthPlace  = "birthPlace"
	colDeathDate   = "deathDate"
	colDeathPlace  = "deathPlace"
	colEmail       = "email"
	colOccupation  = "occupation"
	colNotes       = "notes"
	colFather      = "father"
	colMother      = "mother"
	colSpouse      = "spouse"
	colAddress     = "address"
	colNationality = "nationality"
	colReligion    = "religion"
)

// csvHeaderSynonyms maps a normalized header cell to a column.
var csvHeaderSynonyms = map[string]string{
	"id": colID, "xref": colID, "person id": colID,
	"name": colFullName, "full name": colFullName, "fullname": colFullName,
	"first name": colFirstName, "firstname": colFirstName, "first_name": colFirstName,
	"given name": colFirstName, "given names": colFirstName, "given": colFirstName, "forename": colFirstName,
	"last name": colLastName, "lastname": colLastName, "last_name": colLastName,
	"surname": colLastName, "family name": colLastName,
	"middle name": colMiddleName, "middlename": colMiddleName, "middle_name": colMiddleName,
	"nickname": colNickname, "nick name": colNickname,
	"gender": colGender, "sex": colGender,
	"birth date": colBirthDate, "birthdate": colBirthDate, "birth_date": colBirthDate,
	"born": colBirthDate, "date of birth": colBirthDate, "dob": colBirthDate,
	"birth place": colBirthPlace, "birthplace": colBirthPlace, "birth_place": colBirthPlace,
	"place of birth": colBirthPlace,
	"death date": colDeathDate, "deathdate": colDeathDate, "death_date": colDeathDate,
	"died": colDeathDate, "date of death": colDeathDate, "dod": colDeathDate,
	"death place": colDeathPlace, "deathplace": colDeathPlace, "death_place": colDeathPlace,
	"place of death": colDeathPlace,
	"email": colEmail, "e-mail": colEmail, "email address": colEmail,
	"occupation": colOccupation, "job": colOccupation, "profession": colOccupation,
	"notes": colNotes, "note": colNotes, "biography": colNotes,
	"father": colFather, "father name": colFather,
	"mother": colMother, "mother name": colMother,
	"spouse": colSpouse, "husband": colSpouse, "wife": colSpouse, "partner": colSpouse,
	"address": colAddress, "residence": colAddress,
	"nationality": colNationality,
	"religion": colReligion,
}

type csvRow struct {
	line   int
	person models.Person
	father string
	mother string
	spouse string
}

// ParseCSV reads a spreadsheet export with one person per row. Father, mother and
// spouse cells are resolved by exact "First Last" match against the other rows.
func ParseCSV(input string, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	input = strings.TrimPrefix(input, "\uFEFF")
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}

	reader := csv.NewReader(strings.NewReader(input))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: reading csv header: %v", ErrFormat, err)
	}
	columns := make(map[int]string, len(header))
	for i, cell := range header {
		if col, ok := csvHeaderSynonyms[lineage.NormalizeKey(cell)]; ok {
			columns[i] = col
		}
	}
	if !hasNameColumn(columns) {
		return nil, fmt.Errorf("%w: csv header has no name column", ErrFormat)
	}

	result := newResult(FormatCSV)
	var rows []*csvRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.addIssue(lineWarning(line, "skipping unreadable csv row: %v", err))
			continue
		}
		row := readCSVRow(record, columns, opts)
		if row == nil {
			continue
		}
		row.line = line
		rows = append(rows, row)
	}

	byName := make(map[string][]*csvRow)
	for _, row := range rows {
		if name := row.person.FullName(); name != "" {
			byName[name] = append(byName[name], row)
		}
		result.Individuals = append(result.Individuals, row.person)
	}

	seen := make(map[string]bool)
	addEdge := func(from, to string, relType models.RelationshipType) {
		rel := models.Relationship{FromID: from, ToID: to, Type: relType, TreeID: opts.TreeID}
		if from == to || seen[rel.Key()] {
			return
		}
		seen[rel.Key()] = true
		rel.ID = opts.NewID()
		result.Relationships = append(result.Relationships, rel)
	}
	lookup := func(row *csvRow, column, name string) (string, bool) {
		if name == "" {
			return "", false
		}
		matches := byName[name]
		switch {
		case len(matches) == 0:
			result.addIssue(Issue{Kind: IssueReference, Severity: SeverityWarning, Line: row.line, PersonID: row.person.ID,
				Message: fmt.Sprintf("%s %q of %s does not match any row", column, name, row.person.DisplayName)})
			return "", false
		case len(matches) > 1:
			result.addIssue(Issue{Kind: IssueReference, Severity: SeverityWarning, Line: row.line, PersonID: row.person.ID,
				Message: fmt.Sprintf("%s %q of %s matches %d rows, using the first", column, name, row.person.DisplayName, len(matches))})
		}
		return matches[0].person.ID, true
	}

	families := make(map[string]bool)
	for _, row := range rows {
		fatherID, hasFather := lookup(row, colFather, row.father)
		motherID, hasMother := lookup(row, colMother, row.mother)
		if hasFather {
			addEdge(fatherID, row.person.ID, models.RelationshipParent)
		}
		if hasMother {
			addEdge(motherID, row.person.ID, models.RelationshipParent)
		}
		if hasFather || hasMother {
			families[fatherID+"|"+motherID] = true
		}
		if spouseID, ok := lookup(row, colSpouse, row.spouse); ok {
			addEdge(row.person.ID, spouseID, models.RelationshipSpouse)
		}
	}

	finish(result, opts, len(families))
	return result, nil
}

func hasNameColumn(columns map[int]string) bool {
	for _, col := range columns {
		if col == colFullName || col == colFirstName || col == colLastName {
			return true
		}
	}
	return false
}

func readCSVRow(record []string, columns map[int]string, opts Options) *csvRow {
	values := make(map[string]string, len(columns))
	empty := true
	for i, cell := range record {
		col, ok := columns[i]
		if !ok {
			continue
		}
		if v := strings.TrimSpace(cell); v != "" {
			values[col] = v
			empty = false
		}
	}
	if empty {
		return nil
	}

	p := models.Person{
		ID:          opts.NewID(),
		TreeID:      opts.TreeID,
		SourceXref:  values[colID],
		FirstName:   values[colFirstName],
		LastName:    values[colLastName],
		MiddleName:  values[colMiddleName],
		Nickname:    values[colNickname],
		Gender:      parseGender(values[colGender]),
		Birth:       NormalizeDate(values[colBirthDate]),
		BirthPlace:  values[colBirthPlace],
		Death:       NormalizeDate(values[colDeathDate]),
		DeathPlace:  values[colDeathPlace],
		Email:       values[colEmail],
		Occupation:  values[colOccupation],
		Address:     values[colAddress],
		Nationality: values[colNationality],
		Religion:    values[colReligion],
	}
	if full := values[colFullName]; full != "" && p.FirstName == "" && p.LastName == "" {
		words := strings.Fields(full)
		p.FirstName = words[0]
		if len(words) > 1 {
			p.LastName = words[len(words)-1]
			p.MiddleName = strings.Join(words[1:len(words)-1], " ")
		}
	}
	p.DisplayName = p.DeriveDisplayName()
	if note := values[colNotes]; note != "" {
		p.Notes = append(p.Notes, note)
	}
	p.IsLiving = p.Death.IsZero()
	if year := p.Birth.Year(); year > 0 && opts.Now().Year()-year > opts.MaxLifespanYears {
		p.IsLiving = false
	}

	return &csvRow{
		person: p,
		father: values[colFather],
		mother: values[colMother],
		spouse: values[colSpouse],
	}
}

func parseGender(value string) models.Gender {
	switch lineage.NormalizeKey(value) {
	case "m", "male", "man", "boy":
		return models.GenderMale
	case "f", "female", "woman", "girl":
		return models.GenderFemale
	case "":
		return models.GenderUnknown
	case "u", "unknown", "?":
		return models.GenderUnknown
	default:
		return models.GenderOther
	}
}
