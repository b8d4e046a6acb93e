package mail

import "context"

// Sender delivers the confirmation email. Delivery is best-effort: callers
// dispatch it off the request path and only log failures.
type Sender interface {
	SendConfirmation(ctx context.Context, recipient string, confirmURL string) error
}
