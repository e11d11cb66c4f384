package gedcom

import (
	"errors"
	"fmt"
)

// Fatal input-shape failures. Nothing is produced when one of these is returned.
var (
	ErrEmptyInput = errors.New("gedcom: input is empty")
	ErrFormat     = errors.New("gedcom: input has no header or cross-referenced record")
)

type IssueKind string

const (
	IssueLineParse    IssueKind = "line_parse"
	IssueReference    IssueKind = "reference"
	IssueChronology   IssueKind = "chronology"
	IssuePlausibility IssueKind = "plausibility"
	IssueNameMissing  IssueKind = "name_missing"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single non-fatal problem found while parsing or validating.
type Issue struct {
	Kind     IssueKind `json:"kind"`
	Severity Severity  `json:"severity"`
	Line     int       `json:"line,omitempty"`
	PersonID string    `json:"person_id,omitempty"`
	Message  string    `json:"message"`
}

func (i Issue) Error() string {
	if i.Line > 0 {
		return fmt.Sprintf("line %d: %s", i.Line, i.Message)
	}
	return i.Message
}

func lineWarning(line int, format string, args ...interface{}) Issue {
	return Issue{Kind: IssueLineParse, Severity: SeverityWarning, Line: line, Message: fmt.Sprintf(format, args...)}
}
