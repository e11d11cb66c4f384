package gedcom

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Line is one tokenized "level [xref] tag [value]" line.
type Line struct {
	Number int    // 1-based line number in the input
	Level  int    // nesting level, 0 for records
	Xref   string // cross-reference id including the @ delimiters, if any
	Tag    string
	Value  string
}

var (
	lineRegex   = regexp.MustCompile(`^\s*(\d{1,2})\s+(?:(@[^@\s]+@)\s+)?([A-Za-z0-9_]+)(?: (.*))?$`)
	headerRegex = regexp.MustCompile(`(?m)^\s*0\s+HEAD\b`)
	recordRegex = regexp.MustCompile(`(?m)^\s*0\s+@[^@\s]+@\s+[A-Za-z0-9_]+`)
)

func normalizeLineEndings(input string) string {
	input = strings.ReplaceAll(input, "\r\n", "\n")
	return strings.ReplaceAll(input, "\r", "\n")
}

// Tokenize splits input into lines. Lines that do not have the expected shape are
// reported as warnings and skipped; only an empty input or an input without any
// header or record marker fails.
func Tokenize(input string) ([]Line, []Issue, error) {
	input = strings.TrimPrefix(input, "\uFEFF")
	if strings.TrimSpace(input) == "" {
		return nil, nil, ErrEmptyInput
	}

	normalized := normalizeLineEndings(input)
	if !headerRegex.MatchString(normalized) && !recordRegex.MatchString(normalized) {
		return nil, nil, ErrFormat
	}

	rawLines := strings.Split(normalized, "\n")
	lines := make([]Line, 0, len(rawLines))
	var issues []Issue
	for i, raw := range rawLines {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		number := i + 1
		m := lineRegex.FindStringSubmatch(raw)
		if m == nil {
			issues = append(issues, lineWarning(number, "skipping malformed line %q", truncate(raw, 60)))
			continue
		}
		level, err := strconv.Atoi(m[1])
		if err != nil {
			issues = append(issues, lineWarning(number, "invalid level %q", m[1]))
			continue
		}
		lines = append(lines, Line{
			Number: number,
			Level:  level,
			Xref:   m[2],
			Tag:    strings.ToUpper(m[3]),
			Value:  m[4],
		})
	}
	return lines, issues, nil
}

// truncate shortens s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
