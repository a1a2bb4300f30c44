package handshake

// State is the lifecycle state of one task offer.
type State string

const (
	StateOffered  State = "OFFERED"
	StateAccepted State = "ACCEPTED"
	StateDeclined State = "DECLINED"
	StateTimedOut State = "TIMED_OUT"
)

// IsTerminal reports whether the state is final. Every state except
// Offered is; a resolved offer never transitions again.
func (s State) IsTerminal() bool {
	switch s {
	case StateAccepted, StateDeclined, StateTimedOut:
		return true
	default:
		return false
	}
}
