package payment

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailure_Message(t *testing.T) {
	tests := []struct {
		name    string
		failure Failure
		want    string
	}{
		{
			name:    "declined with processor message",
			failure: Failure{Kind: KindDeclined, ProcessorMessage: "Your card has insufficient funds."},
			want:    "Your card has insufficient funds.",
		},
		{
			name:    "declined without processor message",
			failure: Failure{Kind: KindDeclined},
			want:    "Your card was declined",
		},
		{
			name:    "rate limited",
			failure: Failure{Kind: KindRateLimited},
			want:    "Too many requests made to the API too quickly",
		},
		{
			name:    "invalid request",
			failure: Failure{Kind: KindInvalidRequest},
			want:    "Invalid parameters were supplied to Stripe's API",
		},
		{
			name:    "auth failed",
			failure: Failure{Kind: KindAuthFailed},
			want:    "Authentication with Stripe's API failed",
		},
		{
			name:    "unavailable",
			failure: Failure{Kind: KindUnavailable},
			want:    "Network communication with Stripe failed",
		},
		{
			name:    "processor",
			failure: Failure{Kind: KindProcessor, ProcessorMessage: "ignored"},
			want:    "Something went wrong. You were not charged. Please try again",
		},
		{
			name:    "internal",
			failure: Failure{Kind: KindInternal},
			want:    "Serious error occurred. We have been notified",
		},
		{
			name:    "unknown kind",
			failure: Failure{Kind: FailureKind(99)},
			want:    "Serious error occurred. We have been notified",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.failure.Message())
		})
	}
}

func TestFailure_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := errors.Wrap(&Failure{Kind: KindProcessor, Err: cause}, "charge")

	var f *Failure
	require.True(t, errors.As(err, &f))
	assert.Equal(t, KindProcessor, f.Kind)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "payment processor: boom")
}
