package checkout

type IntentStatus string

const (
	IntentStatusOrderCreated IntentStatus = "ORDER_CREATED"
	IntentStatusAuthorized   IntentStatus = "CLIENT_AUTHORIZED"
	IntentStatusVerified     IntentStatus = "VERIFIED"
	IntentStatusPersisted    IntentStatus = "PERSISTED"
	IntentStatusFailed       IntentStatus = "FAILED"
	IntentStatusCancelled    IntentStatus = "CANCELLED"
)

func (s IntentStatus) IsTerminal() bool {
	return s == IntentStatusPersisted || s == IntentStatusFailed || s == IntentStatusCancelled
}

// IsPending reports whether the intent still waits on the buyer or the
// gateway. Only pending intents can be cancelled or expired.
func (s IntentStatus) IsPending() bool {
	return s == IntentStatusOrderCreated || s == IntentStatusAuthorized
}

// String representation (for logging)
func (s IntentStatus) String() string {
	return string(s)
}

// CanTransitionTo encodes the one-directional lifecycle. A VERIFIED intent
// can only move forward to PERSISTED; payment already happened, so it must
// never be failed or cancelled after that point.
func CanTransitionTo(from, to IntentStatus) bool {
	switch from {
	case IntentStatusOrderCreated:
		return to == IntentStatusAuthorized || to == IntentStatusFailed || to == IntentStatusCancelled
	case IntentStatusAuthorized:
		return to == IntentStatusVerified || to == IntentStatusFailed || to == IntentStatusCancelled
	case IntentStatusVerified:
		return to == IntentStatusPersisted
	default:
		return false
	}
}
