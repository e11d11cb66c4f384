// Package gedcom turns GEDCOM-like text and CSV exports into people and typed
// relationships ready for storage.
//
// Parsing is synchronous and does no I/O. Only an empty input or an input without any
// record marker fails; every per-line or per-record problem is collected on the
// Result next to a best-effort graph.
package gedcom

import (
	"bytes"
	"path/filepath"
	"strings"
	"time"

	"github.com/camden-git/familytreebackend/lineage"
)

// Parse reads GEDCOM-like text.
func Parse(input string, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	lines, lineIssues, err := Tokenize(input)
	if err != nil {
		return nil, err
	}

	ctx := newParseContext(opts)
	ctx.issues = append(ctx.issues, lineIssues...)
	ctx.extract(BuildHierarchy(lines))

	result := newResult(FormatGEDCOM)
	families := ctx.transform(result)
	for _, issue := range ctx.issues {
		result.addIssue(issue)
	}
	finish(result, opts, families)
	return result, nil
}

// ParseFile picks the reader from the file name, falling back to sniffing the content.
func ParseFile(filename string, content []byte, opts Options) (*Result, error) {
	if DetectFormat(filename, content) == FormatCSV {
		return ParseCSV(string(content), opts)
	}
	return Parse(string(content), opts)
}

// DetectFormat returns FormatCSV for .csv files, and for unnamed content whose first
// line looks like a comma separated header rather than a level-numbered line.
func DetectFormat(filename string, content []byte) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV
	case ".ged", ".gedcom", ".txt":
		return FormatGEDCOM
	}
	first := content
	if i := bytes.IndexAny(content, "\r\n"); i >= 0 {
		first = content[:i]
	}
	first = bytes.TrimPrefix(bytes.TrimSpace(first), []byte("\uFEFF"))
	if len(first) > 0 && (first[0] < '0' || first[0] > '9') && bytes.Contains(first, []byte(",")) {
		return FormatCSV
	}
	return FormatGEDCOM
}

// finish validates the graph and fills in the statistics.
func finish(result *Result, opts Options, families int) {
	Validate(result, opts)
	result.Stats = Stats{
		TotalPeople:        len(result.Individuals),
		TotalRelationships: len(result.Relationships),
		TotalFamilies:      families,
		Generations:        lineage.CountGenerations(result.Individuals, result.Relationships),
	}
}

func yearsBetween(from, to time.Time) int {
	years := to.Year() - from.Year()
	if to.YearDay() < from.YearDay() {
		years--
	}
	return years
}
