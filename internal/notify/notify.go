package notify

import "context"

// Controls turns a delivery into an actionable offer prompt: the
// receiving surface renders exactly the Accept/Decline pair for the
// offer it names.
type Controls struct {
	OfferID string
}

// Sink delivers one message to one user. Implementations must be safe
// for concurrent use and must not block indefinitely.
type Sink interface {
	Deliver(ctx context.Context, userID, content string, controls *Controls) error
}
