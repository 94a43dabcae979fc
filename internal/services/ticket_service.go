package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"helpdesk_backend/internal/ai"
	"helpdesk_backend/internal/auth"
	"helpdesk_backend/internal/email"
	"helpdesk_backend/internal/events"
	"helpdesk_backend/internal/logger"
	"helpdesk_backend/internal/models"
	"helpdesk_backend/internal/repositories"
	"helpdesk_backend/internal/services/dto"
	"helpdesk_backend/internal/triage"
	"helpdesk_backend/pkg/apperrors"
)

// resolvedHistoryLimit caps the history returned on the assigned view.
const resolvedHistoryLimit = 100

type TicketService interface {
	Create(ctx context.Context, p auth.Principal, req *dto.CreateTicketRequest) (*dto.CreateTicketResponse, error)
	List(ctx context.Context, p auth.Principal) ([]models.Ticket, error)
	Get(ctx context.Context, p auth.Principal, id string) (*models.Ticket, error)
	UpdateStatus(ctx context.Context, p auth.Principal, id, status string) (*models.Ticket, error)
	Delete(ctx context.Context, p auth.Principal, id string) error
	ListAssigned(ctx context.Context, p auth.Principal) (*dto.AssignedTicketsResponse, error)

	// ProcessTicket runs the analysis/triage pipeline for a created ticket.
	// Invoked from the event consumer, or inline when dispatch fails.
	ProcessTicket(ctx context.Context, ticketID string) error
}

type TicketServiceImpl struct {
	ticketRepo    repositories.TicketRepository
	userRepo      repositories.UserRepository
	analyzer      ai.Analyzer
	dispatcher    events.Dispatcher
	emailProvider email.Provider
}

func NewTicketService(
	ticketRepo repositories.TicketRepository,
	userRepo repositories.UserRepository,
	analyzer ai.Analyzer,
	emailProvider email.Provider,
) *TicketServiceImpl {
	return &TicketServiceImpl{
		ticketRepo:    ticketRepo,
		userRepo:      userRepo,
		analyzer:      analyzer,
		emailProvider: emailProvider,
	}
}

// SetDispatcher breaks the construction cycle between the service and the
// dispatcher whose handlers call back into it.
func (s *TicketServiceImpl) SetDispatcher(d events.Dispatcher) {
	s.dispatcher = d
}

// Create debits one credit, persists the ticket, and queues it for triage.
// The debit is the guarded write; if persistence fails afterwards the
// credit is refunded best-effort. Only end users are debited; moderators
// and admins create tickets free.
func (s *TicketServiceImpl) Create(ctx context.Context, p auth.Principal, req *dto.CreateTicketRequest) (*dto.CreateTicketResponse, error) {
	var counters *repositories.CreditCounters
	if p.IsEndUser() {
		var err error
		counters, err = s.userRepo.DebitOneCredit(p.UserID)
		if err != nil {
			if errors.Is(err, repositories.ErrCreditsExhausted) {
				return nil, apperrors.ErrCreditExhausted
			}
			return nil, apperrors.InternalError(err)
		}
	}

	ticket := &models.Ticket{
		Title:       req.Title,
		Description: req.Description,
		Status:      models.TicketStatusNew,
		CreatedBy:   p.UserID,
	}
	if err := s.ticketRepo.Create(ticket); err != nil {
		if counters != nil {
			if refundErr := s.userRepo.RefundCredit(p.UserID); refundErr != nil {
				logger.CtxWithError(ctx, "failed to refund credit after ticket create failure", refundErr, "userId", p.UserID)
			}
		}
		return nil, apperrors.InternalError(err)
	}

	if err := s.dispatcher.DispatchTicketCreated(ctx, events.TicketCreatedEvent{
		TicketID:    ticket.ID,
		Title:       ticket.Title,
		Description: ticket.Description,
		CreatedBy:   ticket.CreatedBy,
	}); err != nil {
		// Broker unavailable: run the same pipeline inline so the ticket is
		// never stranded pre-analysis.
		logger.CtxWithError(ctx, "dispatch failed, processing ticket inline", err, "ticketId", ticket.ID)
		if procErr := s.ProcessTicket(ctx, ticket.ID); procErr != nil {
			logger.CtxWithError(ctx, "inline ticket processing failed", procErr, "ticketId", ticket.ID)
		}
	}

	resp := &dto.CreateTicketResponse{
		Message: "Ticket created and queued for processing",
		Ticket:  ticket,
	}
	if counters != nil {
		resp.Credits = &dto.CreditInfo{
			CreditsRemaining:   counters.CreditsRemaining,
			CreditsUsed:        counters.CreditsUsed,
			SubscriptionStatus: counters.SubscriptionStatus,
		}
	}
	return resp, nil
}

// List returns every ticket for moderators and admins, and only the
// caller's own tickets otherwise.
func (s *TicketServiceImpl) List(ctx context.Context, p auth.Principal) ([]models.Ticket, error) {
	var (
		tickets []models.Ticket
		err     error
	)
	if p.IsEndUser() {
		tickets, err = s.ticketRepo.ListByCreator(p.UserID)
	} else {
		tickets, err = s.ticketRepo.ListAll()
	}
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return tickets, nil
}

func (s *TicketServiceImpl) Get(ctx context.Context, p auth.Principal, id string) (*models.Ticket, error) {
	var (
		ticket *models.Ticket
		err    error
	)
	if p.IsEndUser() {
		ticket, err = s.ticketRepo.FindByIDForCreator(id, p.UserID)
	} else {
		ticket, err = s.ticketRepo.FindByIDWithUsers(id)
	}
	if err != nil {
		if errors.Is(err, repositories.ErrTicketNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}
	return ticket, nil
}

// UpdateStatus moves a ticket between PENDING and RESOLVED. The resolved
// transitions are guarded writes, and the resolver's score adjustments ride
// on whether the guard actually fired, so toggling cannot drift the score.
// Moderators may only touch tickets assigned to them; admins may touch any.
func (s *TicketServiceImpl) UpdateStatus(ctx context.Context, p auth.Principal, id, status string) (*models.Ticket, error) {
	if p.IsEndUser() {
		return nil, apperrors.NewForbiddenError("Forbidden")
	}

	status = strings.ToUpper(strings.TrimSpace(status))
	if status != models.TicketStatusPending && status != models.TicketStatusResolved {
		return nil, apperrors.NewBadRequestError("Status must be PENDING or RESOLVED")
	}

	ticket, err := s.ticketRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrTicketNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}
	if p.IsModerator() && (ticket.AssignedTo == nil || *ticket.AssignedTo != p.UserID) {
		return nil, apperrors.ErrTicketNotAssigned
	}

	switch {
	case status == models.TicketStatusResolved && !ticket.IsResolved():
		if err := s.resolve(ctx, ticket, p.UserID); err != nil {
			return nil, err
		}
	case status != models.TicketStatusResolved && ticket.IsResolved():
		if err := s.reopen(ctx, ticket, status); err != nil {
			return nil, err
		}
	default:
		if err := s.ticketRepo.UpdateStatus(id, status); err != nil {
			return nil, apperrors.InternalError(err)
		}
	}

	updated, err := s.ticketRepo.FindByIDWithUsers(id)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return updated, nil
}

func (s *TicketServiceImpl) resolve(ctx context.Context, ticket *models.Ticket, resolverID string) error {
	now := time.Now()
	won, err := s.ticketRepo.MarkResolved(ticket.ID, resolverID, now)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if !won {
		// A concurrent request resolved it first; nothing left to apply.
		return nil
	}

	resolver, err := s.userRepo.FindByID(resolverID)
	if err != nil {
		logger.CtxWithError(ctx, "resolved ticket but could not load resolver", err, "ticketId", ticket.ID)
		return nil
	}
	if !resolver.IsModerator() {
		return nil
	}

	if err := s.userRepo.AdjustResolutionScore(resolverID, 1); err != nil {
		logger.CtxWithError(ctx, "failed to award resolution score", err, "userId", resolverID)
	}
	record := models.ResolvedTicketRecord{
		UserID:     resolverID,
		TicketID:   ticket.ID,
		Title:      ticket.Title,
		ResolvedAt: now,
	}
	if err := s.userRepo.ReplaceResolvedHistory(resolverID, record); err != nil {
		logger.CtxWithError(ctx, "failed to record resolved history", err, "userId", resolverID)
	}
	return nil
}

func (s *TicketServiceImpl) reopen(ctx context.Context, ticket *models.Ticket, status string) error {
	won, err := s.ticketRepo.Reopen(ticket.ID, status)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if !won {
		return nil
	}

	if ticket.ResolvedBy == nil {
		return nil
	}
	resolver, err := s.userRepo.FindByID(*ticket.ResolvedBy)
	if err != nil || !resolver.IsModerator() {
		return nil
	}

	// Mirror of the award in resolve, so an even number of toggles nets to
	// zero.
	if err := s.userRepo.AdjustResolutionScore(resolver.ID, -1); err != nil {
		logger.CtxWithError(ctx, "failed to reverse resolution score", err, "userId", resolver.ID)
	}
	return nil
}

// Delete removes the ticket but keeps the resolver's history entry as a
// soft-deleted audit record. Admins may delete any ticket, moderators only
// tickets assigned to them.
func (s *TicketServiceImpl) Delete(ctx context.Context, p auth.Principal, id string) error {
	if p.IsEndUser() {
		return apperrors.NewForbiddenError("Forbidden")
	}

	ticket, err := s.ticketRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrTicketNotFound) {
			return apperrors.ErrNotFound(err)
		}
		return apperrors.InternalError(err)
	}
	if p.IsModerator() && (ticket.AssignedTo == nil || *ticket.AssignedTo != p.UserID) {
		return apperrors.ErrTicketNotAssigned
	}

	if err := s.ticketRepo.Delete(id); err != nil {
		return apperrors.InternalError(err)
	}

	if ticket.ResolvedBy != nil {
		if err := s.userRepo.MarkResolvedHistoryDeleted(*ticket.ResolvedBy, id); err != nil {
			logger.CtxWithError(ctx, "failed to mark resolved history deleted", err, "ticketId", id)
		}
	}
	return nil
}

// ListAssigned returns the caller's unresolved assignments together with
// their scoring snapshot and resolved-ticket history.
func (s *TicketServiceImpl) ListAssigned(ctx context.Context, p auth.Principal) (*dto.AssignedTicketsResponse, error) {
	if p.IsEndUser() {
		return nil, apperrors.NewForbiddenError("Forbidden")
	}

	tickets, err := s.ticketRepo.ListAssignedUnresolved(p.UserID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	caller, err := s.userRepo.FindByID(p.UserID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	history, err := s.userRepo.ListResolvedHistory(p.UserID, resolvedHistoryLimit)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &dto.AssignedTicketsResponse{
		Tickets: tickets,
		Stats: dto.ModeratorStats{
			IssuesResolved: caller.IssuesResolved,
			Score:          caller.Score,
		},
		ResolvedHistory: history,
	}, nil
}

// ProcessTicket is the analysis pipeline: force TODO, analyze, write back
// the analysis (defaulted when unavailable), move to PENDING, assign, and
// notify the assignee best-effort.
func (s *TicketServiceImpl) ProcessTicket(ctx context.Context, ticketID string) error {
	ticket, err := s.ticketRepo.FindByID(ticketID)
	if err != nil {
		if errors.Is(err, repositories.ErrTicketNotFound) {
			return events.NonRetriable(fmt.Errorf("ticket %s not found", ticketID))
		}
		return err
	}

	if err := s.ticketRepo.UpdateStatus(ticketID, models.TicketStatusTodo); err != nil {
		return err
	}

	analysis := s.analyze(ctx, ticket)
	if err := s.ticketRepo.SaveAnalysis(ticketID, repositories.TicketAnalysis{
		Summary:       analysis.Summary,
		Priority:      analysis.Priority,
		HelpfulNotes:  analysis.HelpfulNotes,
		RelatedSkills: analysis.RelatedSkills,
	}, models.TicketStatusPending); err != nil {
		return err
	}

	assignee, err := s.selectAssignee(ctx, ticket, analysis.RelatedSkills)
	if err != nil {
		return err
	}

	var assigneeID *string
	if assignee != nil {
		assigneeID = &assignee.ID
	}
	if err := s.ticketRepo.SetAssignee(ticketID, assigneeID); err != nil {
		return err
	}

	if assignee != nil {
		s.notifyAssignee(ctx, assignee, ticket)
	}

	logger.CtxInfo(ctx, "ticket processed", "ticketId", ticketID, "assigned", assignee != nil)
	return nil
}

func (s *TicketServiceImpl) analyze(ctx context.Context, ticket *models.Ticket) *ai.Analysis {
	if s.analyzer == nil {
		return ai.FallbackAnalysis()
	}
	analysis, err := s.analyzer.Analyze(ctx, ticket)
	if err != nil {
		logger.CtxWithError(ctx, "ticket analysis failed, using defaults", err, "ticketId", ticket.ID)
		return ai.FallbackAnalysis()
	}
	if analysis == nil {
		return ai.FallbackAnalysis()
	}
	return analysis
}

func (s *TicketServiceImpl) selectAssignee(ctx context.Context, ticket *models.Ticket, skills []string) (*models.User, error) {
	moderators, err := s.userRepo.ListModerators()
	if err != nil {
		return nil, err
	}
	admins, err := s.userRepo.ListAdmins()
	if err != nil {
		return nil, err
	}

	var creator *models.User
	if ticket.CreatedBy != "" {
		creator, err = s.userRepo.FindByID(ticket.CreatedBy)
		if err != nil && !errors.Is(err, repositories.ErrUserNotFound) {
			return nil, err
		}
	}

	return triage.SelectAssignee(skills, moderators, admins, creator), nil
}

func (s *TicketServiceImpl) notifyAssignee(ctx context.Context, assignee *models.User, ticket *models.Ticket) {
	if s.emailProvider == nil {
		return
	}
	subject, body := email.TicketAssignedEmail(ticket.Title)
	if err := s.emailProvider.Send(assignee.Email, subject, body); err != nil {
		logger.CtxWithError(ctx, "failed to notify assignee", err, "ticketId", ticket.ID)
	}
}
