package gedcom

import (
	"testing"

	"github.com/camden-git/familytreebackend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV_FatherColumn(t *testing.T) {
	input := "First Name,Last Name,Father,Birth Date\n" +
		"John,Doe,,1920\n" +
		"Jim,Doe,John Doe,1950\n"

	result, err := ParseCSV(input, testOptions())
	require.NoError(t, err)

	require.Len(t, result.Individuals, 2)
	require.Len(t, result.Relationships, 1)
	rel := result.Relationships[0]
	assert.Equal(t, models.RelationshipParent, rel.Type)
	assert.Equal(t, result.Individuals[0].ID, rel.FromID)
	assert.Equal(t, result.Individuals[1].ID, rel.ToID)
	assert.Equal(t, "tree-1", rel.TreeID)
	assert.Equal(t, FormatCSV, result.Format)
	assert.Equal(t, 1, result.Stats.TotalFamilies)
	assert.Equal(t, 2, result.Stats.Generations)
}

func TestParseCSV_HeaderSynonymsAndFields(t *testing.T) {
	input := "\uFEFFGiven Name , SURNAME,Sex,DOB,Place of Birth,E-mail,Notes\n" +
		"Ann,Lee,F,20 AUG 1948,Boston,ann@example.com,likes tea\n" +
		",,,,,,\n"

	result, err := ParseCSV(input, testOptions())
	require.NoError(t, err)

	require.Len(t, result.Individuals, 1)
	ann := result.Individuals[0]
	assert.Equal(t, "Ann", ann.FirstName)
	assert.Equal(t, "Lee", ann.LastName)
	assert.Equal(t, "Ann Lee", ann.DisplayName)
	assert.Equal(t, models.GenderFemale, ann.Gender)
	assert.Equal(t, 1948, ann.Birth.Year())
	assert.Equal(t, "Boston", ann.BirthPlace)
	assert.Equal(t, "ann@example.com", ann.Email)
	assert.Equal(t, []string{"likes tea"}, []string(ann.Notes))
	assert.True(t, ann.IsLiving)
}

func TestParseCSV_FullNameColumnAndSpouse(t *testing.T) {
	input := "Name,Spouse,Mother\n" +
		"Carl Peter Berg,Dana Berg,\n" +
		"Dana Berg,Carl Berg,\n" +
		"Eli Berg,,Dana Berg\n"

	result, err := ParseCSV(input, testOptions())
	require.NoError(t, err)

	carl := result.Individuals[0]
	assert.Equal(t, "Carl", carl.FirstName)
	assert.Equal(t, "Peter", carl.MiddleName)
	assert.Equal(t, "Berg", carl.LastName)

	var spouses, parents int
	for _, rel := range result.Relationships {
		switch rel.Type {
		case models.RelationshipSpouse:
			spouses++
		case models.RelationshipParent:
			parents++
			assert.Equal(t, result.Individuals[1].ID, rel.FromID)
		}
	}
	assert.Equal(t, 1, spouses, "both directions of the same marriage collapse into one edge")
	assert.Equal(t, 1, parents)
}

func TestParseCSV_UnmatchedAndAmbiguousReferences(t *testing.T) {
	input := "Name,Father\n" +
		"Sam Hill,Nobody Known\n" +
		"Tom Hill,\n" +
		"Tom Hill,\n" +
		"Kid Hill,Tom Hill\n"

	result, err := ParseCSV(input, testOptions())
	require.NoError(t, err)

	refs := result.IssuesOfKind(IssueReference)
	require.Len(t, refs, 2)
	assert.Contains(t, refs[0].Message, "does not match")
	assert.Contains(t, refs[1].Message, "matches 2 rows")
	for _, issue := range refs {
		assert.Equal(t, SeverityWarning, issue.Severity)
	}
	require.Len(t, result.Relationships, 1)
	assert.Equal(t, result.Individuals[1].ID, result.Relationships[0].FromID)
}

func TestParseCSV_Errors(t *testing.T) {
	_, err := ParseCSV("  ", testOptions())
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = ParseCSV("Color,Size\nred,large\n", testOptions())
	assert.ErrorIs(t, err, ErrFormat)
}

func TestParseGender(t *testing.T) {
	tests := map[string]models.Gender{
		"M":       models.GenderMale,
		"female":  models.GenderFemale,
		"":        models.GenderUnknown,
		"?":       models.GenderUnknown,
		"nonbin.": models.GenderOther,
	}
	for input, want := range tests {
		assert.Equal(t, want, parseGender(input), input)
	}
}
