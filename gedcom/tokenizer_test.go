package gedcom

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize_EmptyInput(t *testing.T) {
	for _, input := range []string{"", "   \n\t", "\uFEFF"} {
		_, _, err := Tokenize(input)
		assert.ErrorIs(t, err, ErrEmptyInput)
	}
}

func TestTokenize_NoRecordMarker(t *testing.T) {
	_, _, err := Tokenize("hello world\nthis is not a family file")
	assert.ErrorIs(t, err, ErrFormat)
}

func TestTokenize_Lines(t *testing.T) {
	input := "\uFEFF0 HEAD\r\n1 CHAR UTF-8\r\n0 @I1@ INDI\r\n1 name John /Doe/\r\n2 GIVN John\r0 TRLR\n"

	lines, issues, err := Tokenize(input)
	require.NoError(t, err)
	assert.Empty(t, issues)
	require.Len(t, lines, 6)

	assert.Equal(t, Line{Number: 1, Level: 0, Tag: "HEAD"}, lines[0])
	assert.Equal(t, Line{Number: 3, Level: 0, Xref: "@I1@", Tag: "INDI"}, lines[2])
	assert.Equal(t, Line{Number: 4, Level: 1, Tag: "NAME", Value: "John /Doe/"}, lines[3])
	assert.Equal(t, 2, lines[4].Level)
	assert.Equal(t, "TRLR", lines[5].Tag)
}

func TestTokenize_MalformedLinesAreWarnings(t *testing.T) {
	input := "0 @I1@ INDI\nthis line is junk\n1 NAME Ann //\nX BAD\n"

	lines, issues, err := Tokenize(input)
	require.NoError(t, err)
	assert.Len(t, lines, 2)
	require.Len(t, issues, 2)
	for _, issue := range issues {
		assert.Equal(t, IssueLineParse, issue.Kind)
		assert.Equal(t, SeverityWarning, issue.Severity)
	}
	assert.Equal(t, 2, issues[0].Line)
	assert.Equal(t, 4, issues[1].Line)
}

func TestTokenize_MalformedNonASCIILineKeepsRunes(t *testing.T) {
	junk := strings.Repeat("Å", 40)
	input := "0 @I1@ INDI\n" + junk + "\n"

	_, issues, err := Tokenize(input)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.True(t, utf8.ValidString(issues[0].Message))
	assert.NotContains(t, issues[0].Message, `\x`)
	assert.Contains(t, issues[0].Message, strings.Repeat("Å", 30)+"...")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 60))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
	assert.Equal(t, "é...", truncate("ééé", 3))
	assert.Equal(t, "...", truncate("ééé", 1))
}

func TestBuildHierarchy(t *testing.T) {
	lines, _, err := Tokenize(`0 HEAD
0 @I1@ INDI
1 NAME Ann /Lee/
1 BIRT
2 DATE 1 JAN 1900
2 PLAC Boston
1 NOTE First line
2 CONT second line
2 CONC  continued
0 @F1@ FAM
1 HUSB @I2@
0 TRLR`)
	require.NoError(t, err)

	records := BuildHierarchy(lines)
	require.Len(t, records, 4)

	indi := records[1]
	assert.Equal(t, "@I1@", indi.Xref)
	require.Len(t, indi.Children, 3)
	assert.Equal(t, "1 JAN 1900", indi.Child("BIRT").ChildValue("DATE"))
	assert.Equal(t, "Boston", indi.Child("BIRT").ChildText("PLAC"))
	assert.Equal(t, "First line\nsecond line continued", indi.Child("NOTE").Text())
	assert.Nil(t, indi.Child("DEAT"))

	fam := records[2]
	assert.Equal(t, "FAM", fam.Tag)
	assert.True(t, fam.Child("HUSB").IsPointer())
	assert.False(t, indi.Child("NAME").IsPointer())
}
