package handlers

// AppHandlers bundles the HTTP handlers for route registration.
type AppHandlers struct {
	Auth     *AuthHandler
	Tickets  *TicketHandler
	Payments *PaymentHandler
}
