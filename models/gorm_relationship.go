package models

type RelationshipType string

const (
	RelationshipParent  RelationshipType = "parent"
	RelationshipSpouse  RelationshipType = "spouse"
	RelationshipSibling RelationshipType = "sibling"
	// RelationshipChild is accepted on input only. It points from the child to the parent
	// and is normalized to a parent edge before any graph work.
	RelationshipChild RelationshipType = "child"
)

// IsValid reports whether t is one of the known relationship types.
func (t RelationshipType) IsValid() bool {
	switch t {
	case RelationshipParent, RelationshipSpouse, RelationshipSibling, RelationshipChild:
		return true
	default:
		return false
	}
}

// Relationship is a typed edge between two people of the same tree, using GORM.
// It corresponds to the 'relationships' table.
// Parent edges point from the parent (FromID) to the child (ToID).
type Relationship struct {
	ID     string           `gorm:"primaryKey;size:36" json:"id"`
	TreeID string           `gorm:"not null;index" json:"tree_id"`
	FromID string           `gorm:"not null;index" json:"from_id"`
	ToID   string           `gorm:"not null;index" json:"to_id"`
	Type   RelationshipType `gorm:"size:16;not null;index" json:"type"`

	MarriageDate  LifeDate `gorm:"embedded;embeddedPrefix:marriage_" json:"marriage_date"`
	MarriagePlace string   `gorm:"" json:"marriage_place,omitempty"`
	Divorced      bool     `gorm:"not null;default:false" json:"divorced"`
	FamilyID      string   `gorm:"size:64" json:"family_id,omitempty"` // owning family xref
	Verified      bool     `gorm:"not null;default:false" json:"verified"`

	CreatedAt int64 `gorm:"not null" json:"created_at"`
	UpdatedAt int64 `gorm:"not null" json:"updated_at"`
}

// TableName explicitly sets the table name for GORM.
func (Relationship) TableName() string {
	return "relationships"
}

// Normalized returns the edge with child-typed edges flipped into parent edges.
func (r Relationship) Normalized() Relationship {
	if r.Type == RelationshipChild {
		r.FromID, r.ToID = r.ToID, r.FromID
		r.Type = RelationshipParent
	}
	return r
}

// Touches reports whether the edge has personID as one of its endpoints.
func (r Relationship) Touches(personID string) bool {
	return r.FromID == personID || r.ToID == personID
}

// Key identifies the edge by endpoints and type. Spouse and sibling edges are
// symmetric, so their endpoints are ordered.
func (r Relationship) Key() string {
	from, to := r.FromID, r.ToID
	if r.Type == RelationshipSpouse || r.Type == RelationshipSibling {
		if to < from {
			from, to = to, from
		}
	}
	return string(r.Type) + "|" + from + "|" + to
}
