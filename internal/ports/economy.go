package ports

import (
	"context"
	"time"
)

// PayoutRequest asks the payment provider to send funds to a wager account.
type PayoutRequest struct {
	// Destination is the wager account reference of the receiver.
	Destination string
	Amount      int64
	Currency    string
	// IdempotencyKey lets a provider drop a retried payout it already executed.
	IdempotencyKey string
	Memo           string
}

// PaymentGateway defines the outbound payout capability.
type PaymentGateway interface {
	// RequestPayout transfers amount to the destination.
	// A nil error means the provider accepted the payout.
	RequestPayout(ctx context.Context, req PayoutRequest) error
}

// StakeRequest asks the provider to collect a player's stake before matchmaking.
type StakeRequest struct {
	PartyID  string
	Identity string
	Amount   int64
	Currency string
	// Reference is the invoice id the core will later resolve or cancel.
	Reference string
}

// Invoice is the provider's answer to a stake request.
type Invoice struct {
	ID string
	// PaymentRequest is the provider-specific string a client pays, if any.
	PaymentRequest string
	// Settled is true when the stake was collected synchronously.
	Settled   bool
	ExpiresAt time.Time
}

// StakeCollector defines the interface for collecting stakes.
type StakeCollector interface {
	RequestStake(ctx context.Context, req StakeRequest) (Invoice, error)
}

// StakeRefunder is implemented by collectors that can return a settled stake.
type StakeRefunder interface {
	RefundStake(ctx context.Context, req StakeRequest) error
}
