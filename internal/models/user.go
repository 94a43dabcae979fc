package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type User struct {
	BaseModel
	Email        string   `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string   `gorm:"not null" json:"-"`
	Role         UserRole `gorm:"type:varchar(20);not null;default:'user'" json:"role"`

	// Moderator triage fields
	Skills         datatypes.JSON `gorm:"type:jsonb" json:"skills"`
	IssuesResolved int            `gorm:"not null;default:0" json:"issuesResolved"`
	Score          int            `gorm:"not null;default:0" json:"score"`

	// Credit ledger. CreditsRemaining never goes negative: the only
	// decrement is the guarded debit in the user repository.
	CreditsRemaining   int                `gorm:"not null;default:5" json:"creditsRemaining"`
	CreditsUsed        int                `gorm:"not null;default:0" json:"creditsUsed"`
	SubscriptionStatus SubscriptionStatus `gorm:"type:varchar(20);not null;default:'inactive'" json:"subscriptionStatus"`

	// Snapshot of the most recent gateway interaction
	GatewayOrderID   string `gorm:"default:''" json:"gatewayOrderId"`
	GatewayPaymentID string `gorm:"default:''" json:"gatewayPaymentId"`

	ResetTokenHash string     `json:"-"`
	ResetTokenExp  *time.Time `json:"-"`

	// Owned history sub-records, lifetime bound to the user
	ResolvedHistory []ResolvedTicketRecord `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	PaymentHistory  []PaymentRecord        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// ResolvedTicketRecord is one entry of a moderator's resolution history.
// TicketID is a weak reference: the ticket row may be gone, in which case
// DeletedAt marks when it was removed.
type ResolvedTicketRecord struct {
	BaseModel
	UserID     string     `gorm:"not null;index" json:"-"`
	TicketID   string     `gorm:"not null;index" json:"ticketId"`
	Title      string     `gorm:"not null" json:"title"`
	ResolvedAt time.Time  `gorm:"not null" json:"resolvedAt"`
	DeletedAt  *time.Time `json:"deletedAt"`
}

// PaymentRecord is one entry of a user's payment history.
type PaymentRecord struct {
	BaseModel
	UserID           string        `gorm:"not null;index" json:"-"`
	GatewayOrderID   string        `gorm:"default:''" json:"gatewayOrderId"`
	GatewayPaymentID string        `gorm:"default:''" json:"gatewayPaymentId"`
	Amount           int64         `gorm:"not null;default:0" json:"amount"`
	Currency         string        `gorm:"default:'INR'" json:"currency"`
	CreditsAdded     int           `gorm:"not null;default:0" json:"creditsAdded"`
	Status           PaymentStatus `gorm:"type:varchar(20);default:'created'" json:"status"`
	VerifiedAt       *time.Time    `json:"verifiedAt"`
}

// GetSkills decodes the jsonb skills column into a string slice.
func (u *User) GetSkills() []string {
	var skills []string
	if len(u.Skills) > 0 {
		json.Unmarshal(u.Skills, &skills)
	}
	return skills
}

// SetSkills encodes the slice into the jsonb skills column.
func (u *User) SetSkills(skills []string) {
	if skills == nil {
		skills = []string{}
	}
	raw, _ := json.Marshal(skills)
	u.Skills = raw
}

// IsModerator reports whether the user holds the moderator role.
func (u *User) IsModerator() bool {
	return u.Role == UserRoleModerator
}
