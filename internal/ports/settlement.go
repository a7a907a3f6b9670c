package ports

import (
	"context"
	"errors"
	"time"
)

var ErrSettlementNotFound = errors.New("settlement record not found")

// SettlementStatus is the lifecycle state of a settlement record.
type SettlementStatus string

const (
	SettlementPending SettlementStatus = "pending"
	SettlementPaid    SettlementStatus = "paid"
	SettlementFailed  SettlementStatus = "failed"
	// SettlementHouse means a bot won and the stake stays with the house.
	SettlementHouse SettlementStatus = "house"
)

// SettlementRecord is the durable trace of one match payout.
type SettlementRecord struct {
	ID             string
	MatchID        string
	WinnerParty    string
	WinnerIdentity string
	Bet            int64
	WinnerAmount   int64
	PlatformFee    int64
	Currency       string
	Status         SettlementStatus
	WinnerPaid     bool
	FeePaid        bool
	Attempts       int
	LastError      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SettlementLedger stores settlement records.
type SettlementLedger interface {
	// Save inserts or replaces the record keyed by MatchID.
	Save(ctx context.Context, rec *SettlementRecord) error
	Get(ctx context.Context, matchID string) (*SettlementRecord, error)
	// ListRetryable returns failed records with fewer than maxAttempts attempts.
	ListRetryable(ctx context.Context, maxAttempts int) ([]*SettlementRecord, error)
}
