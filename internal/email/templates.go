package email

import "fmt"

// PasswordResetEmail renders the reset message. The link carries a
// single-use token and expires shortly after issue.
func PasswordResetEmail(resetLink string) (subject, body string) {
	subject = "Reset your password"
	body = fmt.Sprintf(`<p>We received a request to reset your password.</p>
<p><a href="%s">Click here to choose a new password</a>. The link expires in 15 minutes.</p>
<p>If you did not request this, you can safely ignore this email.</p>`, resetLink)
	return subject, body
}

// TicketAssignedEmail notifies a moderator that a ticket landed on their
// queue.
func TicketAssignedEmail(ticketTitle string) (subject, body string) {
	subject = "Ticket Assigned"
	body = fmt.Sprintf(`<p>You have been assigned a new ticket.</p>
<p><strong>%s</strong></p>
<p>Please log in to review the details.</p>`, ticketTitle)
	return subject, body
}
