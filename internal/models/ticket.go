package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type Ticket struct {
	BaseModel
	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"not null" json:"description"`

	// AI-derived fields, all empty until the analysis pipeline runs
	Summary       string         `gorm:"default:''" json:"summary"`
	Priority      TicketPriority `gorm:"type:varchar(10);default:''" json:"priority"`
	HelpfulNotes  string         `gorm:"default:''" json:"helpfulNotes"`
	RelatedSkills datatypes.JSON `gorm:"type:jsonb" json:"relatedSkills"`

	Status string `gorm:"not null;default:'Todo'" json:"status"`

	CreatedBy  string  `gorm:"type:uuid;not null;index" json:"createdBy"`
	AssignedTo *string `gorm:"type:uuid;index" json:"assignedTo"`

	// ResolvedBy/ResolvedAt are set exactly while status is RESOLVED.
	ResolvedBy *string    `gorm:"type:uuid" json:"resolvedBy"`
	ResolvedAt *time.Time `json:"resolvedAt"`

	// Relations (weak user references, no cascading delete)
	Assignee *User `gorm:"foreignKey:AssignedTo;constraint:OnDelete:SET NULL" json:"assignee,omitempty"`
	Resolver *User `gorm:"foreignKey:ResolvedBy;constraint:OnDelete:SET NULL" json:"resolver,omitempty"`
}

// GetRelatedSkills decodes the jsonb relatedSkills column.
func (t *Ticket) GetRelatedSkills() []string {
	var skills []string
	if len(t.RelatedSkills) > 0 {
		json.Unmarshal(t.RelatedSkills, &skills)
	}
	return skills
}

// SetRelatedSkills encodes the slice into the jsonb relatedSkills column.
func (t *Ticket) SetRelatedSkills(skills []string) {
	if skills == nil {
		skills = []string{}
	}
	raw, _ := json.Marshal(skills)
	t.RelatedSkills = raw
}

// IsResolved reports whether the ticket sits in the resolved state.
func (t *Ticket) IsResolved() bool {
	return t.Status == TicketStatusResolved
}
