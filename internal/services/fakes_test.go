package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"helpdesk_backend/internal/ai"
	"helpdesk_backend/internal/events"
	"helpdesk_backend/internal/models"
	"helpdesk_backend/internal/repositories"
	"helpdesk_backend/internal/services/payment"
)

// In-memory repository fakes. They reproduce the guarded-write semantics of
// the real implementations so concurrency-sensitive service logic can be
// exercised without a database.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
	seq   int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (r *fakeUserRepo) addUser(u models.User) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == "" {
		r.seq++
		u.ID = fmt.Sprintf("user-%d", r.seq)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	r.users[u.ID] = &u
	return &u
}

func (r *fakeUserRepo) FindByID(id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) FindByEmail(email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return repositories.ErrUserAlreadyExists
		}
	}
	if user.ID == "" {
		r.seq++
		user.ID = fmt.Sprintf("user-%d", r.seq)
	}
	user.CreatedAt = time.Now()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) FindAll() ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var users []models.User
	for _, u := range r.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (r *fakeUserRepo) UpdateRoleAndSkills(email string, role models.UserRole, skills []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			u.Role = role
			u.SetSkills(skills)
			return nil
		}
	}
	return repositories.ErrUserNotFound
}

func (r *fakeUserRepo) SetResetToken(userID, tokenHash string, expiry time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.ResetTokenHash = tokenHash
	u.ResetTokenExp = &expiry
	return nil
}

func (r *fakeUserRepo) FindByResetToken(tokenHash string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ResetTokenHash == tokenHash && u.ResetTokenExp != nil && u.ResetTokenExp.After(time.Now()) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) UpdatePassword(userID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.ResetTokenHash = ""
	u.ResetTokenExp = nil
	return nil
}

func (r *fakeUserRepo) DebitOneCredit(userID string) (*repositories.CreditCounters, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok || u.CreditsRemaining <= 0 {
		return nil, repositories.ErrCreditsExhausted
	}
	u.CreditsRemaining--
	u.CreditsUsed++
	return &repositories.CreditCounters{
		CreditsRemaining:   u.CreditsRemaining,
		CreditsUsed:        u.CreditsUsed,
		SubscriptionStatus: u.SubscriptionStatus,
	}, nil
}

func (r *fakeUserRepo) RefundCredit(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.CreditsRemaining++
	u.CreditsUsed--
	return nil
}

func (r *fakeUserRepo) CreditOnVerifiedPayment(userID string, record models.PaymentRecord) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	u.CreditsRemaining += record.CreditsAdded
	u.SubscriptionStatus = models.SubscriptionStatusActive
	u.GatewayOrderID = record.GatewayOrderID
	u.GatewayPaymentID = record.GatewayPaymentID
	u.PaymentHistory = append(u.PaymentHistory, record)
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) AdjustResolutionScore(userID string, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.IssuesResolved += delta
	u.Score += delta * models.ResolutionPoints
	return nil
}

func (r *fakeUserRepo) ReplaceResolvedHistory(userID string, record models.ResolvedTicketRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	kept := u.ResolvedHistory[:0]
	for _, h := range u.ResolvedHistory {
		if h.TicketID != record.TicketID {
			kept = append(kept, h)
		}
	}
	u.ResolvedHistory = append(kept, record)
	return nil
}

func (r *fakeUserRepo) MarkResolvedHistoryDeleted(userID, ticketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	now := time.Now()
	for i := range u.ResolvedHistory {
		if u.ResolvedHistory[i].TicketID == ticketID {
			u.ResolvedHistory[i].DeletedAt = &now
		}
	}
	return nil
}

func (r *fakeUserRepo) ListResolvedHistory(userID string, limit int) ([]models.ResolvedTicketRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	history := append([]models.ResolvedTicketRecord(nil), u.ResolvedHistory...)
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	return history, nil
}

func (r *fakeUserRepo) listByRole(role models.UserRole) []models.User {
	var users []models.User
	for _, u := range r.users {
		if u.Role == role {
			users = append(users, *u)
		}
	}
	return users
}

func (r *fakeUserRepo) ListModerators() ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mods := r.listByRole(models.UserRoleModerator)
	sort.Slice(mods, func(i, j int) bool {
		if mods[i].IssuesResolved != mods[j].IssuesResolved {
			return mods[i].IssuesResolved < mods[j].IssuesResolved
		}
		if mods[i].Score != mods[j].Score {
			return mods[i].Score < mods[j].Score
		}
		return mods[i].CreatedAt.Before(mods[j].CreatedAt)
	})
	return mods, nil
}

func (r *fakeUserRepo) ListAdmins() ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	admins := r.listByRole(models.UserRoleAdmin)
	sort.Slice(admins, func(i, j int) bool { return admins[i].CreatedAt.Before(admins[j].CreatedAt) })
	return admins, nil
}

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*models.Ticket
	seq     int

	failCreate bool
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]*models.Ticket)}
}

func (r *fakeTicketRepo) Create(ticket *models.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return errors.New("insert failed")
	}
	r.seq++
	ticket.ID = fmt.Sprintf("ticket-%d", r.seq)
	ticket.CreatedAt = time.Now()
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *fakeTicketRepo) FindByID(id string) (*models.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, repositories.ErrTicketNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *fakeTicketRepo) FindByIDWithUsers(id string) (*models.Ticket, error) {
	return r.FindByID(id)
}

func (r *fakeTicketRepo) FindByIDForCreator(id, creatorID string) (*models.Ticket, error) {
	t, err := r.FindByID(id)
	if err != nil {
		return nil, err
	}
	if t.CreatedBy != creatorID {
		return nil, repositories.ErrTicketNotFound
	}
	return t, nil
}

func (r *fakeTicketRepo) ListAll() ([]models.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var tickets []models.Ticket
	for _, t := range r.tickets {
		tickets = append(tickets, *t)
	}
	return tickets, nil
}

func (r *fakeTicketRepo) ListByCreator(creatorID string) ([]models.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var tickets []models.Ticket
	for _, t := range r.tickets {
		if t.CreatedBy == creatorID {
			tickets = append(tickets, *t)
		}
	}
	return tickets, nil
}

func (r *fakeTicketRepo) ListAssignedUnresolved(moderatorID string) ([]models.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var tickets []models.Ticket
	for _, t := range r.tickets {
		if t.AssignedTo != nil && *t.AssignedTo == moderatorID && t.Status != models.TicketStatusResolved {
			tickets = append(tickets, *t)
		}
	}
	return tickets, nil
}

func (r *fakeTicketRepo) UpdateStatus(id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return repositories.ErrTicketNotFound
	}
	t.Status = status
	return nil
}

func (r *fakeTicketRepo) SaveAnalysis(id string, analysis repositories.TicketAnalysis, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return repositories.ErrTicketNotFound
	}
	t.Summary = analysis.Summary
	t.Priority = analysis.Priority
	t.HelpfulNotes = analysis.HelpfulNotes
	t.SetRelatedSkills(analysis.RelatedSkills)
	t.Status = status
	return nil
}

func (r *fakeTicketRepo) SetAssignee(id string, assigneeID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return repositories.ErrTicketNotFound
	}
	t.AssignedTo = assigneeID
	return nil
}

func (r *fakeTicketRepo) MarkResolved(id, resolverID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return false, nil
	}
	if t.Status == models.TicketStatusResolved {
		return false, nil
	}
	t.Status = models.TicketStatusResolved
	t.ResolvedBy = &resolverID
	t.ResolvedAt = &at
	return true, nil
}

func (r *fakeTicketRepo) Reopen(id, status string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return false, nil
	}
	if t.Status != models.TicketStatusResolved {
		return false, nil
	}
	t.Status = status
	t.ResolvedBy = nil
	t.ResolvedAt = nil
	return true, nil
}

func (r *fakeTicketRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[id]; !ok {
		return repositories.ErrTicketNotFound
	}
	delete(r.tickets, id)
	return nil
}

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[string]*models.Payment
	seq      int
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[string]*models.Payment)}
}

func (r *fakePaymentRepo) Create(p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	p.ID = fmt.Sprintf("payment-%d", r.seq)
	p.CreatedAt = time.Now()
	if p.Status == "" {
		p.Status = models.PaymentStatusCreated
	}
	copied := *p
	r.payments[p.ID] = &copied
	return nil
}

func (r *fakePaymentRepo) FindByOrderID(orderID string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.OrderID == orderID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, repositories.ErrPaymentNotFound
}

func (r *fakePaymentRepo) ListByUser(userID string, limit int) ([]models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var payments []models.Payment
	for _, p := range r.payments {
		if p.UserID == userID {
			payments = append(payments, *p)
		}
	}
	if limit > 0 && len(payments) > limit {
		payments = payments[:limit]
	}
	return payments, nil
}

func (r *fakePaymentRepo) MarkVerified(id, paymentID, signature string, credits int, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok || p.Status == models.PaymentStatusVerified {
		return false, nil
	}
	p.Status = models.PaymentStatusVerified
	p.PaymentID = paymentID
	p.Signature = signature
	p.CreditsAdded = credits
	p.VerifiedAt = &at
	return true, nil
}

func (r *fakePaymentRepo) MarkFailed(id, paymentID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok || p.Status == models.PaymentStatusVerified {
		return nil
	}
	p.Status = models.PaymentStatusFailed
	p.PaymentID = paymentID
	p.FailureReason = reason
	return nil
}

// Collaborator fakes.

type fakeDispatcher struct {
	mu            sync.Mutex
	ticketEvents  []events.TicketCreatedEvent
	resetEvents   []events.PasswordResetEvent
	failDispatch  bool
	dispatchError error
}

func (d *fakeDispatcher) Close() error { return nil }

func (d *fakeDispatcher) DispatchTicketCreated(_ context.Context, ev events.TicketCreatedEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failDispatch {
		if d.dispatchError != nil {
			return d.dispatchError
		}
		return errors.New("broker unavailable")
	}
	d.ticketEvents = append(d.ticketEvents, ev)
	return nil
}

func (d *fakeDispatcher) DispatchPasswordReset(_ context.Context, ev events.PasswordResetEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failDispatch {
		return errors.New("broker unavailable")
	}
	d.resetEvents = append(d.resetEvents, ev)
	return nil
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type fakeEmailProvider struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (p *fakeEmailProvider) Send(to, subject, body string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("smtp down")
	}
	p.sent = append(p.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

type fakeAnalyzer struct {
	analysis *ai.Analysis
	err      error
}

func (a *fakeAnalyzer) Analyze(_ context.Context, _ *models.Ticket) (*ai.Analysis, error) {
	return a.analysis, a.err
}

type fakeGateway struct {
	secret    string
	orders    int
	failOrder bool
}

func (g *fakeGateway) KeyID() string { return "rzp_test_fake" }

func (g *fakeGateway) CreateOrder(_ context.Context, amount int64, currency, _ string) (*payment.Order, error) {
	if g.failOrder {
		return nil, errors.New("gateway down")
	}
	g.orders++
	return &payment.Order{
		ID:       fmt.Sprintf("order_%d", g.orders),
		Amount:   amount,
		Currency: currency,
	}, nil
}

func (g *fakeGateway) VerifyCheckout(orderID, paymentID, signature string) bool {
	return payment.VerifyCheckoutSignature(g.secret, orderID, paymentID, signature)
}
