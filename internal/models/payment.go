package models

import "time"

// Payment is a top-level gateway order record. Status moves one-way through
// created -> verified | failed; verified is terminal and a payment may enter
// it at most once (enforced by the guarded update in the repository).
type Payment struct {
	BaseModel
	UserID string `gorm:"type:uuid;not null;index" json:"userId"`

	OrderID   string `gorm:"not null;uniqueIndex" json:"orderId"`
	PaymentID string `gorm:"default:''" json:"paymentId"`
	Signature string `gorm:"default:''" json:"-"`

	// Amount is in the smallest currency unit (paise for INR).
	Amount   int64  `gorm:"not null" json:"amount"`
	Currency string `gorm:"default:'INR'" json:"currency"`

	Status       PaymentStatus `gorm:"type:varchar(20);not null;default:'created'" json:"status"`
	CreditsAdded int           `gorm:"not null;default:0" json:"creditsAdded"`
	PlanID       string        `gorm:"default:'starter-monthly'" json:"planId"`

	VerifiedAt    *time.Time `json:"verifiedAt"`
	FailureReason string     `gorm:"default:''" json:"failureReason,omitempty"`
}
