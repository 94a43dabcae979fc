package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"helpdesk_backend/internal/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrCreditsExhausted is the sentinel for a guarded debit that matched
	// no row. It is a normal business outcome, not a failure.
	ErrCreditsExhausted = errors.New("no credits remaining")
)

// CreditCounters is the post-update ledger snapshot returned by debit.
type CreditCounters struct {
	CreditsRemaining   int                       `json:"creditsRemaining"`
	CreditsUsed        int                       `json:"creditsUsed"`
	SubscriptionStatus models.SubscriptionStatus `json:"subscriptionStatus"`
}

type UserRepository interface {
	FindByID(id string) (*models.User, error)
	FindByEmail(email string) (*models.User, error)
	Create(user *models.User) error
	FindAll() ([]models.User, error)
	UpdateRoleAndSkills(email string, role models.UserRole, skills []string) error

	// Password reset tokens
	SetResetToken(userID, tokenHash string, expiry time.Time) error
	FindByResetToken(tokenHash string) (*models.User, error)
	UpdatePassword(userID, passwordHash string) error

	// Credit ledger
	DebitOneCredit(userID string) (*CreditCounters, error)
	RefundCredit(userID string) error
	CreditOnVerifiedPayment(userID string, record models.PaymentRecord) (*models.User, error)

	// Moderator scoring and resolution history
	AdjustResolutionScore(userID string, delta int) error
	ReplaceResolvedHistory(userID string, record models.ResolvedTicketRecord) error
	MarkResolvedHistoryDeleted(userID, ticketID string) error
	ListResolvedHistory(userID string, limit int) ([]models.ResolvedTicketRecord, error)

	// Triage directory
	ListModerators() ([]models.User, error)
	ListAdmins() ([]models.User, error)
}

type UserRepositoryImpl struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &UserRepositoryImpl{db: db}
}

func (r *UserRepositoryImpl) FindByID(id string) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) FindByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) Create(user *models.User) error {
	var existing models.User
	if err := r.db.Where("email = ?", user.Email).First(&existing).Error; err == nil {
		return ErrUserAlreadyExists
	}

	return r.db.Create(user).Error
}

func (r *UserRepositoryImpl) FindAll() ([]models.User, error) {
	var users []models.User
	err := r.db.Order("created_at ASC").Find(&users).Error
	return users, err
}

func (r *UserRepositoryImpl) UpdateRoleAndSkills(email string, role models.UserRole, skills []string) error {
	user := &models.User{}
	user.SetSkills(skills)

	result := r.db.Model(&models.User{}).Where("email = ?", email).Updates(map[string]interface{}{
		"role":       role,
		"skills":     user.Skills,
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Password reset tokens

func (r *UserRepositoryImpl) SetResetToken(userID, tokenHash string, expiry time.Time) error {
	result := r.db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"reset_token_hash": tokenHash,
		"reset_token_exp":  expiry,
		"updated_at":       time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepositoryImpl) FindByResetToken(tokenHash string) (*models.User, error) {
	var user models.User
	err := r.db.
		Where("reset_token_hash = ? AND reset_token_exp > ?", tokenHash, time.Now()).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) UpdatePassword(userID, passwordHash string) error {
	result := r.db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"password_hash":    passwordHash,
		"reset_token_hash": "",
		"reset_token_exp":  nil,
		"updated_at":       time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Credit ledger

// DebitOneCredit performs the single guarded write of the credit model: the
// predicate re-checks credits_remaining > 0 at write time, so two concurrent
// requests racing over the last credit cannot both succeed.
func (r *UserRepositoryImpl) DebitOneCredit(userID string) (*CreditCounters, error) {
	result := r.db.Model(&models.User{}).
		Where("id = ? AND credits_remaining > 0", userID).
		UpdateColumns(map[string]interface{}{
			"credits_remaining": gorm.Expr("credits_remaining - 1"),
			"credits_used":      gorm.Expr("credits_used + 1"),
			"updated_at":        time.Now(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrCreditsExhausted
	}

	user, err := r.FindByID(userID)
	if err != nil {
		return nil, err
	}

	return &CreditCounters{
		CreditsRemaining:   user.CreditsRemaining,
		CreditsUsed:        user.CreditsUsed,
		SubscriptionStatus: user.SubscriptionStatus,
	}, nil
}

// RefundCredit is the compensating write for a debit whose downstream step
// failed irrecoverably.
func (r *UserRepositoryImpl) RefundCredit(userID string) error {
	return r.db.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumns(map[string]interface{}{
			"credits_remaining": gorm.Expr("credits_remaining + 1"),
			"credits_used":      gorm.Expr("credits_used - 1"),
			"updated_at":        time.Now(),
		}).Error
}

// CreditOnVerifiedPayment applies the ledger side of a verified payment in
// one transaction: credit grant, subscription activation, gateway snapshot
// and a history row.
func (r *UserRepositoryImpl) CreditOnVerifiedPayment(userID string, record models.PaymentRecord) (*models.User, error) {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.User{}).
			Where("id = ?", userID).
			UpdateColumns(map[string]interface{}{
				"credits_remaining":   gorm.Expr("credits_remaining + ?", record.CreditsAdded),
				"subscription_status": models.SubscriptionStatusActive,
				"gateway_order_id":    record.GatewayOrderID,
				"gateway_payment_id":  record.GatewayPaymentID,
				"updated_at":          time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}

		record.UserID = userID
		return tx.Create(&record).Error
	})
	if err != nil {
		return nil, err
	}

	return r.FindByID(userID)
}

// Moderator scoring and resolution history

// AdjustResolutionScore moves issues_resolved by delta and score by
// delta * ResolutionPoints. Called with +1 on resolve and -1 on reopen, so
// the pair is symmetric and toggling cannot drift the counters.
func (r *UserRepositoryImpl) AdjustResolutionScore(userID string, delta int) error {
	result := r.db.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumns(map[string]interface{}{
			"issues_resolved": gorm.Expr("issues_resolved + ?", delta),
			"score":           gorm.Expr("score + ?", delta*models.ResolutionPoints),
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ReplaceResolvedHistory drops any stale entry for the same ticket before
// inserting, so re-resolving after a reopen keeps a single history row.
func (r *UserRepositoryImpl) ReplaceResolvedHistory(userID string, record models.ResolvedTicketRecord) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("user_id = ? AND ticket_id = ?", userID, record.TicketID).
			Delete(&models.ResolvedTicketRecord{}).Error; err != nil {
			return err
		}

		record.UserID = userID
		return tx.Create(&record).Error
	})
}

// MarkResolvedHistoryDeleted stamps the soft-delete marker on the history
// entry instead of removing it, preserving the audit trail after the ticket
// row is gone.
func (r *UserRepositoryImpl) MarkResolvedHistoryDeleted(userID, ticketID string) error {
	return r.db.Model(&models.ResolvedTicketRecord{}).
		Where("user_id = ? AND ticket_id = ?", userID, ticketID).
		Update("deleted_at", time.Now()).Error
}

func (r *UserRepositoryImpl) ListResolvedHistory(userID string, limit int) ([]models.ResolvedTicketRecord, error) {
	var records []models.ResolvedTicketRecord
	err := r.db.
		Where("user_id = ?", userID).
		Order("resolved_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// Triage directory

func (r *UserRepositoryImpl) ListModerators() ([]models.User, error) {
	var users []models.User
	err := r.db.
		Where("role = ?", models.UserRoleModerator).
		Order("issues_resolved ASC, score ASC, created_at ASC").
		Find(&users).Error
	return users, err
}

func (r *UserRepositoryImpl) ListAdmins() ([]models.User, error) {
	var users []models.User
	err := r.db.
		Where("role = ?", models.UserRoleAdmin).
		Order("created_at ASC").
		Find(&users).Error
	return users, err
}
