package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"helpdesk_backend/internal/models"
)

var ErrPaymentNotFound = errors.New("payment not found")

type PaymentRepository interface {
	Create(payment *models.Payment) error
	FindByOrderID(orderID string) (*models.Payment, error)
	ListByUser(userID string, limit int) ([]models.Payment, error)
	MarkVerified(id, paymentID, signature string, credits int, at time.Time) (bool, error)
	MarkFailed(id, paymentID, reason string) error
}

type PaymentRepositoryImpl struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &PaymentRepositoryImpl{db: db}
}

func (r *PaymentRepositoryImpl) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

func (r *PaymentRepositoryImpl) FindByOrderID(orderID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.First(&payment, "order_id = ?", orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepositoryImpl) ListByUser(userID string, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&payments).Error
	return payments, err
}

// MarkVerified performs the guarded verified-transition. The predicate
// re-checks "status <> verified" at write time; the returned bool reports
// whether this caller won the transition. A false return with no error means
// a concurrent verification already happened and the caller must take the
// idempotent duplicate path.
func (r *PaymentRepositoryImpl) MarkVerified(id, paymentID, signature string, credits int, at time.Time) (bool, error) {
	result := r.db.Model(&models.Payment{}).
		Where("id = ? AND status <> ?", id, models.PaymentStatusVerified).
		Updates(map[string]interface{}{
			"status":        models.PaymentStatusVerified,
			"payment_id":    paymentID,
			"signature":     signature,
			"credits_added": credits,
			"verified_at":   at,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkFailed records a gateway failure without ever demoting a verified
// payment: the same "status <> verified" guard applies.
func (r *PaymentRepositoryImpl) MarkFailed(id, paymentID, reason string) error {
	return r.db.Model(&models.Payment{}).
		Where("id = ? AND status <> ?", id, models.PaymentStatusVerified).
		Updates(map[string]interface{}{
			"status":         models.PaymentStatusFailed,
			"payment_id":     paymentID,
			"failure_reason": reason,
			"updated_at":     time.Now(),
		}).Error
}
