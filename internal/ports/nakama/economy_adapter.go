package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

const payoutCollection = "battleship_payouts"

var ErrInsufficientFunds = errors.New("insufficient wallet balance")

// WalletAdapter pays winners and collects stakes through Nakama wallets.
// Wager identities are Nakama user ids.
type WalletAdapter struct {
	nk        runtime.NakamaModule
	walletKey string
}

var (
	_ ports.PaymentGateway = (*WalletAdapter)(nil)
	_ ports.StakeCollector = (*WalletAdapter)(nil)
	_ ports.StakeRefunder  = (*WalletAdapter)(nil)
)

func NewWalletAdapter(nk runtime.NakamaModule, walletKey string) *WalletAdapter {
	return &WalletAdapter{nk: nk, walletKey: walletKey}
}

// Balance retrieves the current wallet balance for a user.
func (a *WalletAdapter) Balance(ctx context.Context, userID string) (int64, error) {
	account, err := a.nk.AccountGetId(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get account: %w", err)
	}

	var wallet map[string]int64
	if err := json.Unmarshal([]byte(account.Wallet), &wallet); err != nil {
		return 0, fmt.Errorf("failed to unmarshal wallet: %w", err)
	}
	return wallet[a.walletKey], nil
}

// RequestPayout credits the destination once per idempotency key. A storage
// marker written in the same transaction rejects replays.
func (a *WalletAdapter) RequestPayout(ctx context.Context, req ports.PayoutRequest) error {
	if req.Destination == "" {
		return fmt.Errorf("payout destination is required")
	}
	if req.Amount <= 0 {
		return fmt.Errorf("payout amount must be positive")
	}

	marker, err := json.Marshal(map[string]interface{}{
		"amount":  req.Amount,
		"memo":    req.Memo,
		"paid_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payout marker: %w", err)
	}

	writes := []*runtime.StorageWrite{{
		Collection:      payoutCollection,
		Key:             req.IdempotencyKey,
		UserID:          req.Destination,
		Value:           string(marker),
		Version:         "*",
		PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
		PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
	}}
	updates := []*runtime.WalletUpdate{{
		UserID:    req.Destination,
		Changeset: map[string]int64{a.walletKey: req.Amount},
		Metadata: map[string]interface{}{
			"idempotency_key": req.IdempotencyKey,
			"memo":            req.Memo,
		},
	}}

	if _, _, err := a.nk.MultiUpdate(ctx, nil, writes, nil, updates, true); err != nil {
		if errors.Is(err, runtime.ErrStorageRejectedVersion) {
			return nil
		}
		return fmt.Errorf("failed to pay %s: %w", req.Destination, err)
	}
	return nil
}

// RequestStake debits the stake immediately, so the invoice is always settled.
func (a *WalletAdapter) RequestStake(ctx context.Context, req ports.StakeRequest) (ports.Invoice, error) {
	balance, err := a.Balance(ctx, req.Identity)
	if err != nil {
		return ports.Invoice{}, err
	}
	if balance < req.Amount {
		return ports.Invoice{}, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, balance, req.Amount)
	}

	metadata := map[string]interface{}{"reference": req.Reference, "reason": "battleship_stake"}
	if _, _, err := a.nk.WalletUpdate(ctx, req.Identity, map[string]int64{a.walletKey: -req.Amount}, metadata, true); err != nil {
		return ports.Invoice{}, fmt.Errorf("failed to collect stake from %s: %w", req.Identity, err)
	}
	return ports.Invoice{ID: req.Reference, Settled: true}, nil
}

// RefundStake credits back a stake collected by RequestStake.
func (a *WalletAdapter) RefundStake(ctx context.Context, req ports.StakeRequest) error {
	metadata := map[string]interface{}{"reference": req.Reference, "reason": "battleship_stake_refund"}
	if _, _, err := a.nk.WalletUpdate(ctx, req.Identity, map[string]int64{a.walletKey: req.Amount}, metadata, true); err != nil {
		return fmt.Errorf("failed to refund stake to %s: %w", req.Identity, err)
	}
	return nil
}
