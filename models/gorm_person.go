package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderOther   Gender = "other"
	GenderUnknown Gender = "unknown"
)

// DateQualifier describes how exact a genealogical date is
type DateQualifier string

const (
	QualifierExact       DateQualifier = "exact"
	QualifierAbout       DateQualifier = "about"
	QualifierCalculated  DateQualifier = "calculated"
	QualifierEstimated   DateQualifier = "estimated"
	QualifierBefore      DateQualifier = "before"
	QualifierAfter       DateQualifier = "after"
	QualifierBetween     DateQualifier = "between"
	QualifierFrom        DateQualifier = "from"
	QualifierTo          DateQualifier = "to"
	QualifierInterpreted DateQualifier = "interpreted"
)

// Date precisions, from the most to the least specific.
const (
	PrecisionDay   = "day"
	PrecisionMonth = "month"
	PrecisionYear  = "year"
)

// LifeDate keeps the date text exactly as it was written next to its normalized form.
// Start holds the instant; Start and End together hold a range. Both are nil when the
// text could not be parsed.
type LifeDate struct {
	Original  string        `gorm:"" json:"original_text,omitempty"`
	Qualifier DateQualifier `gorm:"size:16" json:"qualifier,omitempty"`
	Start     *time.Time    `gorm:"" json:"start,omitempty"`
	End       *time.Time    `gorm:"" json:"end,omitempty"`
	Precision string        `gorm:"size:8" json:"precision,omitempty"`
	Valid     bool          `gorm:"not null;default:false" json:"is_valid"`
}

// IsZero reports whether no date text was recorded at all.
func (d LifeDate) IsZero() bool {
	return d.Original == "" && d.Start == nil
}

// IsRange reports whether the date spans two endpoints (BET ... AND ..., FROM ... TO ...).
func (d LifeDate) IsRange() bool {
	return d.Start != nil && d.End != nil
}

// Earliest returns the earliest instant the date may refer to.
func (d LifeDate) Earliest() *time.Time {
	return d.Start
}

// Latest returns the latest instant the date may refer to: the end of a range, widened
// to the last day of its year or month when only that much is known.
func (d LifeDate) Latest() *time.Time {
	t := d.End
	if t == nil {
		t = d.Start
	}
	if t == nil {
		return nil
	}
	var last time.Time
	switch d.Precision {
	case PrecisionYear:
		last = time.Date(t.Year(), time.December, 31, 0, 0, 0, 0, t.Location())
	case PrecisionMonth:
		last = time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location())
	default:
		return t
	}
	return &last
}

// Year returns the year of the start instant, or 0 when the date is not valid.
func (d LifeDate) Year() int {
	if !d.Valid || d.Start == nil {
		return 0
	}
	return d.Start.Year()
}

// Event is a dated, placed fact about a person (residence, census, immigration...).
type Event struct {
	Type  string   `json:"type"`
	Date  LifeDate `json:"date"`
	Place string   `json:"place,omitempty"`
	Notes string   `json:"notes,omitempty"`
}

// Person represents a member of a family tree in the database using GORM.
// It corresponds to the 'people' table.
type Person struct {
	ID         string `gorm:"primaryKey;size:36" json:"id"`
	TreeID     string `gorm:"not null;index" json:"tree_id"`
	SourceXref string `gorm:"size:64" json:"source_xref,omitempty"` // xref in the imported file, e.g. @I12@

	FirstName   string `gorm:"" json:"first_name,omitempty"`
	LastName    string `gorm:"index" json:"last_name,omitempty"`
	MiddleName  string `gorm:"" json:"middle_name,omitempty"`
	Nickname    string `gorm:"" json:"nickname,omitempty"`
	Suffix      string `gorm:"" json:"suffix,omitempty"`
	Title       string `gorm:"" json:"title,omitempty"`
	DisplayName string `gorm:"index" json:"display_name"`

	Gender Gender `gorm:"size:16;not null;default:unknown" json:"gender"`

	Birth        LifeDate `gorm:"embedded;embeddedPrefix:birth_" json:"birth_date"`
	BirthPlace   string   `gorm:"" json:"birth_place,omitempty"`
	Death        LifeDate `gorm:"embedded;embeddedPrefix:death_" json:"death_date"`
	DeathPlace   string   `gorm:"" json:"death_place,omitempty"`
	Baptism      LifeDate `gorm:"embedded;embeddedPrefix:baptism_" json:"baptism_date"`
	BaptismPlace string   `gorm:"" json:"baptism_place,omitempty"`
	Burial       LifeDate `gorm:"embedded;embeddedPrefix:burial_" json:"burial_date"`
	BurialPlace  string   `gorm:"" json:"burial_place,omitempty"`
	IsLiving     bool     `gorm:"not null;default:false" json:"is_living"`

	Occupation  string `gorm:"" json:"occupation,omitempty"`
	Education   string `gorm:"" json:"education,omitempty"`
	Religion    string `gorm:"" json:"religion,omitempty"`
	Nationality string `gorm:"" json:"nationality,omitempty"`
	Email       string `gorm:"index" json:"email,omitempty"`
	PhotoURL    string `gorm:"" json:"photo_url,omitempty"`
	Biography   string `gorm:"type:text" json:"biography,omitempty"`
	Role        string `gorm:"size:32" json:"role,omitempty"` // e.g. "self", "admin" as tagged by the tree owner
	Address     string `gorm:"type:text" json:"address,omitempty"`

	Generation *int `gorm:"index" json:"generation,omitempty"` // Nullable until generations are calculated

	Events  datatypes.JSONSlice[Event]  `gorm:"" json:"events,omitempty"`
	Notes   datatypes.JSONSlice[string] `gorm:"" json:"notes,omitempty"`
	Sources datatypes.JSONSlice[string] `gorm:"" json:"sources,omitempty"`
	Media   datatypes.JSONSlice[string] `gorm:"" json:"media,omitempty"`

	CreatedAt int64 `gorm:"not null" json:"created_at"` // Stored as INTEGER in SQLite, Unix timestamp
	UpdatedAt int64 `gorm:"not null" json:"updated_at"` // Stored as INTEGER in SQLite, Unix timestamp
}

// TableName explicitly sets the table name for GORM.
func (Person) TableName() string {
	return "people"
}

// FullName is "First Last" with empty parts omitted.
func (p *Person) FullName() string {
	return joinNonEmpty(p.FirstName, p.LastName)
}

// DeriveDisplayName builds a display name from the name components.
// It returns an empty string only when every name source is empty.
func (p *Person) DeriveDisplayName() string {
	if name := joinNonEmpty(p.FirstName, p.MiddleName, p.LastName, p.Suffix); name != "" {
		return name
	}
	if p.Nickname != "" {
		return p.Nickname
	}
	return p.Title
}

// HasName reports whether any name information exists.
func (p *Person) HasName() bool {
	return p.DisplayName != "" || p.DeriveDisplayName() != ""
}

func joinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, " ")
}
