package payment

import "strings"

// FailureKind classifies why a checkout did not capture funds.
type FailureKind int

const (
	// KindInternal is an unexpected error on our side.
	KindInternal FailureKind = iota
	// KindDeclined is a card decline reported by the processor.
	KindDeclined
	// KindRateLimited means too many processor requests in a short period.
	KindRateLimited
	// KindInvalidRequest means the processor rejected our parameters.
	KindInvalidRequest
	// KindAuthFailed means the processor rejected our credentials.
	KindAuthFailed
	// KindUnavailable covers network failures and timeouts.
	KindUnavailable
	// KindProcessor is any other processor-reported error.
	KindProcessor
)

var kindNames = [...]string{
	KindInternal:       "internal",
	KindDeclined:       "declined",
	KindRateLimited:    "rate_limited",
	KindInvalidRequest: "invalid_request",
	KindAuthFailed:     "auth_failed",
	KindUnavailable:    "unavailable",
	KindProcessor:      "processor",
}

func (k FailureKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

var kindMessages = [...]string{
	KindInternal:       "Serious error occurred. We have been notified",
	KindDeclined:       "Your card was declined",
	KindRateLimited:    "Too many requests made to the API too quickly",
	KindInvalidRequest: "Invalid parameters were supplied to Stripe's API",
	KindAuthFailed:     "Authentication with Stripe's API failed",
	KindUnavailable:    "Network communication with Stripe failed",
	KindProcessor:      "Something went wrong. You were not charged. Please try again",
}

// Failure is a checkout failure of a known kind. Err holds the cause for
// logging and is never shown to the customer.
type Failure struct {
	Kind FailureKind
	// ProcessorMessage is the customer-facing decline reason supplied by the
	// processor. Only used for KindDeclined.
	ProcessorMessage string
	Err              error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return "payment " + f.Kind.String() + ": " + f.Err.Error()
	}
	return "payment " + f.Kind.String()
}

func (f *Failure) Unwrap() error { return f.Err }

// Message is the text shown to the customer.
func (f *Failure) Message() string {
	if f.Kind == KindDeclined {
		if msg := strings.TrimSpace(f.ProcessorMessage); msg != "" {
			return msg
		}
	}
	if int(f.Kind) < len(kindMessages) {
		return kindMessages[f.Kind]
	}
	return kindMessages[KindInternal]
}
