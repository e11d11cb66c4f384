package gedcom

import (
	"time"

	"github.com/camden-git/familytreebackend/models"
	"github.com/google/uuid"
)

// Individual is the intermediate form of an INDI record, keyed by its xref.
type Individual struct {
	Xref string

	FirstName   string
	LastName    string
	MiddleName  string
	Nickname    string
	Suffix      string
	Title       string
	DisplayName string
	Gender      models.Gender

	Birth        models.LifeDate
	BirthPlace   string
	Death        models.LifeDate
	DeathPlace   string
	Baptism      models.LifeDate
	BaptismPlace string
	Burial       models.LifeDate
	BurialPlace  string
	Deceased     bool // a DEAT or BURI record exists, even without a date

	Occupation  string
	Education   string
	Religion    string
	Nationality string
	Email       string
	Address     string

	Events  []models.Event
	Notes   []string // inline text or @N1@ pointers
	Sources []string // inline citations or @S1@ pointers
	Media   []string // file references or @O1@ pointers

	SpouseFamilies []string // FAMS
	ChildFamilies  []string // FAMC

	nameSeen bool
}

// Family is the intermediate form of a FAM record. It only exists to derive edges.
type Family struct {
	Xref          string
	HusbandXref   string
	WifeXref      string
	ChildXrefs    []string
	MarriageDate  models.LifeDate
	MarriagePlace string
	Divorced      bool
	Notes         []string
}

func (f *Family) hasChild(xref string) bool {
	for _, c := range f.ChildXrefs {
		if c == xref {
			return true
		}
	}
	return false
}

const (
	FormatGEDCOM = "gedcom"
	FormatCSV    = "csv"
)

const DefaultMaxLifespanYears = 120

// Options tunes a single parse call.
type Options struct {
	TreeID           string
	NewID            func() string    // id generator for people and relationships
	MaxLifespanYears int              // age at death above this is reported as implausible
	Now              func() time.Time // reference time for the living flag
}

func (o Options) withDefaults() Options {
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	if o.MaxLifespanYears <= 0 {
		o.MaxLifespanYears = DefaultMaxLifespanYears
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Stats summarizes a parse result.
type Stats struct {
	TotalPeople        int `json:"totalPeople"`
	TotalRelationships int `json:"totalRelationships"`
	TotalFamilies      int `json:"totalFamilies"`
	Generations        int `json:"generations"`
}

// Result is what a parse hands to storage and presentation. It is returned even when
// Errors or Warnings are not empty; accepting it is up to the caller.
type Result struct {
	Format        string                `json:"format"`
	Individuals   []models.Person       `json:"individuals"`
	Relationships []models.Relationship `json:"relationships"`
	Stats         Stats                 `json:"stats"`
	Errors        []string              `json:"errors"`
	Warnings      []string              `json:"warnings"`
	Issues        []Issue               `json:"issues,omitempty"`
}

func newResult(format string) *Result {
	return &Result{
		Format:        format,
		Individuals:   []models.Person{},
		Relationships: []models.Relationship{},
		Errors:        []string{},
		Warnings:      []string{},
	}
}

func (r *Result) addIssue(issue Issue) {
	r.Issues = append(r.Issues, issue)
	if issue.Severity == SeverityError {
		r.Errors = append(r.Errors, issue.Error())
	} else {
		r.Warnings = append(r.Warnings, issue.Error())
	}
}

// IssuesOfKind returns the issues with the given kind, in the order they were found.
func (r *Result) IssuesOfKind(kind IssueKind) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Kind == kind {
			out = append(out, i)
		}
	}
	return out
}
