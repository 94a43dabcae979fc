package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"helpdesk_backend/internal/models"
)

var ErrTicketNotFound = errors.New("ticket not found")

// TicketAnalysis is the writeback of the AI pipeline.
type TicketAnalysis struct {
	Summary       string
	Priority      models.TicketPriority
	HelpfulNotes  string
	RelatedSkills []string
}

type TicketRepository interface {
	Create(ticket *models.Ticket) error
	FindByID(id string) (*models.Ticket, error)
	FindByIDWithUsers(id string) (*models.Ticket, error)
	FindByIDForCreator(id, creatorID string) (*models.Ticket, error)
	ListAll() ([]models.Ticket, error)
	ListByCreator(creatorID string) ([]models.Ticket, error)
	ListAssignedUnresolved(moderatorID string) ([]models.Ticket, error)
	UpdateStatus(id, status string) error
	SaveAnalysis(id string, analysis TicketAnalysis, status string) error
	SetAssignee(id string, assigneeID *string) error
	MarkResolved(id, resolverID string, at time.Time) (bool, error)
	Reopen(id, status string) (bool, error)
	Delete(id string) error
}

type TicketRepositoryImpl struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &TicketRepositoryImpl{db: db}
}

func (r *TicketRepositoryImpl) Create(ticket *models.Ticket) error {
	return r.db.Create(ticket).Error
}

func (r *TicketRepositoryImpl) FindByID(id string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.First(&ticket, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *TicketRepositoryImpl) FindByIDWithUsers(id string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.Preload("Assignee").Preload("Resolver").
		First(&ticket, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *TicketRepositoryImpl) FindByIDForCreator(id, creatorID string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.First(&ticket, "id = ? AND created_by = ?", id, creatorID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *TicketRepositoryImpl) ListAll() ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := r.db.Preload("Assignee").Preload("Resolver").
		Order("created_at DESC").
		Find(&tickets).Error
	return tickets, err
}

func (r *TicketRepositoryImpl) ListByCreator(creatorID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := r.db.
		Where("created_by = ?", creatorID).
		Order("created_at DESC").
		Find(&tickets).Error
	return tickets, err
}

func (r *TicketRepositoryImpl) ListAssignedUnresolved(moderatorID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := r.db.Preload("Assignee").Preload("Resolver").
		Where("assigned_to = ? AND status <> ?", moderatorID, models.TicketStatusResolved).
		Order("created_at DESC").
		Find(&tickets).Error
	return tickets, err
}

func (r *TicketRepositoryImpl) UpdateStatus(id, status string) error {
	result := r.db.Model(&models.Ticket{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTicketNotFound
	}
	return nil
}

func (r *TicketRepositoryImpl) SaveAnalysis(id string, analysis TicketAnalysis, status string) error {
	ticket := &models.Ticket{}
	ticket.SetRelatedSkills(analysis.RelatedSkills)

	result := r.db.Model(&models.Ticket{}).Where("id = ?", id).Updates(map[string]interface{}{
		"summary":        analysis.Summary,
		"priority":       analysis.Priority,
		"helpful_notes":  analysis.HelpfulNotes,
		"related_skills": ticket.RelatedSkills,
		"status":         status,
		"updated_at":     time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTicketNotFound
	}
	return nil
}

func (r *TicketRepositoryImpl) SetAssignee(id string, assigneeID *string) error {
	result := r.db.Model(&models.Ticket{}).Where("id = ?", id).Updates(map[string]interface{}{
		"assigned_to": assigneeID,
		"updated_at":  time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTicketNotFound
	}
	return nil
}

// MarkResolved performs the guarded resolved-transition. The predicate
// re-checks the status at write time so two concurrent resolvers cannot
// both win; the caller applies score side effects only when this returns
// true.
func (r *TicketRepositoryImpl) MarkResolved(id, resolverID string, at time.Time) (bool, error) {
	result := r.db.Model(&models.Ticket{}).
		Where("id = ? AND status <> ?", id, models.TicketStatusResolved).
		Updates(map[string]interface{}{
			"status":      models.TicketStatusResolved,
			"resolved_by": resolverID,
			"resolved_at": at,
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Reopen is the guarded inverse: it only fires when the ticket is currently
// resolved, clearing the resolution stamp. Returns false if another request
// already reopened it.
func (r *TicketRepositoryImpl) Reopen(id, status string) (bool, error) {
	result := r.db.Model(&models.Ticket{}).
		Where("id = ? AND status = ?", id, models.TicketStatusResolved).
		Updates(map[string]interface{}{
			"status":      status,
			"resolved_by": nil,
			"resolved_at": nil,
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *TicketRepositoryImpl) Delete(id string) error {
	result := r.db.Delete(&models.Ticket{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTicketNotFound
	}
	return nil
}
