package reminder

import (
	"context"
)

// FailureKind classifies a failed delivery.
type FailureKind int

const (
	// FailureNone means the message was accepted.
	FailureNone FailureKind = iota
	// FailureTransient failures are retried by a later tick.
	FailureTransient
	// FailurePermanent failures mean the token will never work again.
	FailurePermanent
)

// String returns the lowercase name of the kind.
func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureTransient:
		return "transient"
	case FailurePermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Message is one push message addressed to a single delivery token.
type Message struct {
	Token string
	Title string
	Body  string
	Data  map[string]any
}

// SendResult is the per-message outcome of a batch send. Results are
// positional: the i-th result belongs to the i-th message.
type SendResult struct {
	Kind  FailureKind
	Error string
}

// OK reports whether the message was accepted.
func (r SendResult) OK() bool {
	return r.Kind == FailureNone
}

// Transport delivers push messages. A returned error means the whole
// batch failed and is treated as transient for every message.
type Transport interface {
	SendBatch(ctx context.Context, msgs []Message) ([]SendResult, error)
}
