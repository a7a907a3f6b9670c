package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/config"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/ports"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/jonboulle/clockwork"
)

// SettlementRequest describes a finished match that needs paying out.
type SettlementRequest struct {
	MatchID        string
	Bet            int64
	WinnerParty    string
	WinnerIdentity string
	WinnerIsBot    bool
}

// SettlementOutcome is reported back into the match for player notification.
type SettlementOutcome struct {
	Record  *ports.SettlementRecord
	Message string
	Err     error
}

// Settlement computes payouts from the bet tier table and asks the payment
// gateway to execute them. Every attempt is recorded in the ledger.
type Settlement struct {
	gateway ports.PaymentGateway
	ledger  ports.SettlementLedger
	cfg     *config.GameConfig
	logger  runtime.Logger
	clock   clockwork.Clock
}

func NewSettlement(gateway ports.PaymentGateway, ledger ports.SettlementLedger, cfg *config.GameConfig, logger runtime.Logger, clock clockwork.Clock) *Settlement {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Settlement{
		gateway: gateway,
		ledger:  ledger,
		cfg:     cfg,
		logger:  logger,
		clock:   clock,
	}
}

// Settle pays the winner and the platform fee. Bots never get paid; the house keeps the stake.
func (s *Settlement) Settle(ctx context.Context, req SettlementRequest) SettlementOutcome {
	payout, err := s.cfg.Payout(req.Bet)
	if err != nil {
		s.logger.Error("Settle: match %s has no payout for bet %d: %v", req.MatchID, req.Bet, err)
		return SettlementOutcome{
			Message: "Payout could not be computed for this bet. Support has been notified.",
			Err:     fmt.Errorf("failed to look up payout: %w", err),
		}
	}

	now := s.clock.Now()
	rec := &ports.SettlementRecord{
		ID:             uuid.NewString(),
		MatchID:        req.MatchID,
		WinnerParty:    req.WinnerParty,
		WinnerIdentity: req.WinnerIdentity,
		Bet:            req.Bet,
		WinnerAmount:   payout.Winner,
		PlatformFee:    payout.PlatformFee,
		Currency:       s.cfg.Currency,
		Status:         ports.SettlementPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if req.WinnerIsBot {
		rec.Status = ports.SettlementHouse
		s.save(ctx, rec)
		s.logger.Info("Settle: match %s won by bot, stake of %d retained", req.MatchID, req.Bet)
		return SettlementOutcome{Record: rec, Message: "The house wins this round. No payout was sent."}
	}

	if err := s.attempt(ctx, rec); err != nil {
		return SettlementOutcome{
			Record:  rec,
			Message: "Your winnings could not be sent right now. We will retry automatically.",
			Err:     err,
		}
	}
	return SettlementOutcome{
		Record:  rec,
		Message: fmt.Sprintf("Payout of %d %s sent to the winner.", rec.WinnerAmount, rec.Currency),
	}
}

// RetryFailed re-attempts failed settlements that still have attempts left.
// It returns the number of records that became paid.
func (s *Settlement) RetryFailed(ctx context.Context) (int, error) {
	recs, err := s.ledger.ListRetryable(ctx, s.cfg.MaxSettlementAttempts)
	if err != nil {
		return 0, fmt.Errorf("failed to list retryable settlements: %w", err)
	}
	paid := 0
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return paid, err
		}
		if err := s.attempt(ctx, rec); err != nil {
			s.logger.Warn("RetryFailed: match %s attempt %d failed: %v", rec.MatchID, rec.Attempts, err)
			continue
		}
		paid++
	}
	return paid, nil
}

// attempt runs the unpaid legs of rec. Legs already paid are skipped, and each
// leg carries a stable idempotency key.
func (s *Settlement) attempt(ctx context.Context, rec *ports.SettlementRecord) error {
	rec.Attempts++
	err := s.payLegs(ctx, rec)
	rec.UpdatedAt = s.clock.Now()
	if err != nil {
		rec.Status = ports.SettlementFailed
		rec.LastError = err.Error()
		s.logger.Error("Settle: match %s payout failed: %v", rec.MatchID, err)
	} else {
		rec.Status = ports.SettlementPaid
		rec.LastError = ""
		s.logger.Info("Settle: match %s paid %d to %s, fee %d", rec.MatchID, rec.WinnerAmount, rec.WinnerIdentity, rec.PlatformFee)
	}
	s.save(ctx, rec)
	return err
}

func (s *Settlement) payLegs(ctx context.Context, rec *ports.SettlementRecord) error {
	if s.gateway == nil {
		return fmt.Errorf("%w: no payment gateway configured", ErrPayout)
	}
	if !rec.WinnerPaid {
		if err := s.gateway.RequestPayout(ctx, ports.PayoutRequest{
			Destination:    rec.WinnerIdentity,
			Amount:         rec.WinnerAmount,
			Currency:       rec.Currency,
			IdempotencyKey: rec.MatchID + ":winner",
			Memo:           "Battleship winnings for match " + rec.MatchID,
		}); err != nil {
			return fmt.Errorf("%w: winner: %w", ErrPayout, err)
		}
		rec.WinnerPaid = true
	}
	if !rec.FeePaid && rec.PlatformFee > 0 {
		if err := s.gateway.RequestPayout(ctx, ports.PayoutRequest{
			Destination:    s.cfg.PlatformAccount,
			Amount:         rec.PlatformFee,
			Currency:       rec.Currency,
			IdempotencyKey: rec.MatchID + ":fee",
			Memo:           "Platform fee for match " + rec.MatchID,
		}); err != nil {
			return fmt.Errorf("%w: platform fee: %w", ErrPayout, err)
		}
	}
	rec.FeePaid = true
	return nil
}

func (s *Settlement) save(ctx context.Context, rec *ports.SettlementRecord) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.Save(ctx, rec); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("Settle: failed to record settlement for match %s: %v", rec.MatchID, err)
	}
}
