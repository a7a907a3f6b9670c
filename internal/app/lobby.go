package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/config"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/ports"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/jonboulle/clockwork"
)

// Cancellation reasons carried by join_cancelled.
const (
	CancelPaymentFailed  = "payment_failed"
	CancelPaymentTimeout = "payment_timeout"
	CancelDisconnected   = "disconnected"
	CancelByParty        = "cancelled"
)

// PendingJoin is a join request waiting for its stake to be paid.
type PendingJoin struct {
	InvoiceID      string
	PartyID        string
	Identity       string
	Bet            int64
	PaymentRequest string
	CreatedAt      time.Time
	ExpiresAt      time.Time

	timer clockwork.Timer
}

// Lobby holds pending joins and hands paid ones to the registry.
type Lobby struct {
	mu      sync.Mutex
	pending map[string]*PendingJoin // invoice id -> join
	byParty map[string]string       // party id -> invoice id

	registry *Registry
	stakes   ports.StakeCollector
	emitter  Emitter
	cfg      *config.GameConfig
	logger   runtime.Logger
	clock    clockwork.Clock
}

func NewLobby(registry *Registry, stakes ports.StakeCollector, emitter Emitter, cfg *config.GameConfig, logger runtime.Logger, clock clockwork.Clock) *Lobby {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Lobby{
		pending:  make(map[string]*PendingJoin),
		byParty:  make(map[string]string),
		registry: registry,
		stakes:   stakes,
		emitter:  emitter,
		cfg:      cfg,
		logger:   logger,
		clock:    clock,
	}
}

// RequestJoin asks the stake collector for the party's stake. A synchronously
// settled stake joins immediately and returns the match; otherwise the join
// stays pending until its invoice is resolved, cancelled or expires.
func (l *Lobby) RequestJoin(ctx context.Context, partyID, identity string, bet int64) (*PendingJoin, *Match, error) {
	if _, err := l.cfg.Tier(bet); err != nil {
		return nil, nil, err
	}
	if _, ok := l.registry.InMatch(partyID); ok {
		return nil, nil, ErrAlreadyInMatch
	}

	reference := uuid.NewString()
	l.mu.Lock()
	if _, ok := l.byParty[partyID]; ok {
		l.mu.Unlock()
		return nil, nil, ErrAlreadyPending
	}
	// Reserve the party slot while the collector is called.
	l.byParty[partyID] = reference
	l.mu.Unlock()

	stake := ports.StakeRequest{
		PartyID:   partyID,
		Identity:  identity,
		Amount:    bet,
		Currency:  l.cfg.Currency,
		Reference: reference,
	}
	inv, err := l.stakes.RequestStake(ctx, stake)
	if err != nil {
		l.release(partyID, reference)
		return nil, nil, fmt.Errorf("failed to request stake: %w", err)
	}

	now := l.clock.Now()
	pj := &PendingJoin{
		InvoiceID:      reference,
		PartyID:        partyID,
		Identity:       identity,
		Bet:            bet,
		PaymentRequest: inv.PaymentRequest,
		CreatedAt:      now,
		ExpiresAt:      now.Add(l.cfg.PaymentTimeout()),
	}
	if inv.ID != "" {
		pj.InvoiceID = inv.ID
	}
	if !inv.ExpiresAt.IsZero() {
		pj.ExpiresAt = inv.ExpiresAt
	}

	if inv.Settled {
		l.release(partyID, reference)
		m, err := l.registry.Join(partyID, identity, bet)
		if err != nil {
			l.logger.Error("Lobby: settled stake %s could not be matched for %s: %v", pj.InvoiceID, partyID, err)
			l.refund(ctx, stake)
			l.emit(ctx, Event{
				Kind:       EventErrorNotice,
				Payload:    ErrorNoticePayload{Message: "Your stake was collected but matchmaking failed. It is being returned."},
				Recipients: []string{partyID},
			})
			return nil, nil, err
		}
		return pj, m, nil
	}

	l.mu.Lock()
	l.byParty[partyID] = pj.InvoiceID
	l.pending[pj.InvoiceID] = pj
	invoiceID := pj.InvoiceID
	pj.timer = l.clock.AfterFunc(pj.ExpiresAt.Sub(now), func() {
		if err := l.CancelPendingJoin(invoiceID, CancelPaymentTimeout); err == nil {
			l.logger.Info("Lobby: pending join %s for %s expired", invoiceID, partyID)
		}
	})
	view := *pj
	l.mu.Unlock()

	l.logger.Info("Lobby: party %s awaiting payment of %d on invoice %s", partyID, bet, pj.InvoiceID)
	l.emit(ctx, Event{
		Kind: EventPaymentRequired,
		Payload: PaymentRequiredPayload{
			InvoiceID:        pj.InvoiceID,
			Amount:           bet,
			Currency:         l.cfg.Currency,
			PaymentRequest:   pj.PaymentRequest,
			ExpiresInSeconds: int(pj.ExpiresAt.Sub(now).Seconds()),
		},
		Recipients: []string{partyID},
	})
	return &view, nil, nil
}

// ResolvePendingJoin is called once the invoice is paid. It moves the party into matchmaking.
func (l *Lobby) ResolvePendingJoin(ctx context.Context, invoiceID string) (*Match, error) {
	pj, err := l.take(invoiceID)
	if err != nil {
		return nil, err
	}
	m, err := l.registry.Join(pj.PartyID, pj.Identity, pj.Bet)
	if err != nil {
		l.logger.Error("Lobby: paid invoice %s could not be matched for %s: %v", invoiceID, pj.PartyID, err)
		l.emit(ctx, Event{
			Kind:       EventErrorNotice,
			Payload:    ErrorNoticePayload{Message: "Your payment was received but matchmaking failed. Please contact support."},
			Recipients: []string{pj.PartyID},
		})
		return nil, fmt.Errorf("failed to join after payment: %w", err)
	}
	return m, nil
}

// CancelPendingJoin drops the pending join and notifies the party.
func (l *Lobby) CancelPendingJoin(invoiceID, reason string) error {
	pj, err := l.take(invoiceID)
	if err != nil {
		return err
	}
	l.logger.Info("Lobby: cancelled pending join %s for %s (%s)", invoiceID, pj.PartyID, reason)
	l.emit(context.Background(), Event{
		Kind:       EventJoinCancelled,
		Payload:    JoinCancelledPayload{InvoiceID: invoiceID, Reason: reason},
		Recipients: []string{pj.PartyID},
	})
	return nil
}

// Disconnect cancels the party's pending join and routes the drop to its match.
func (l *Lobby) Disconnect(partyID string) {
	l.mu.Lock()
	invoiceID, ok := l.byParty[partyID]
	l.mu.Unlock()
	if ok {
		_ = l.CancelPendingJoin(invoiceID, CancelDisconnected)
	}
	l.registry.Disconnect(partyID)
}

// Pending returns a copy of the party's pending join.
func (l *Lobby) Pending(partyID string) (PendingJoin, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id, ok := l.byParty[partyID]
	if !ok {
		return PendingJoin{}, false
	}
	pj, ok := l.pending[id]
	if !ok {
		return PendingJoin{}, false
	}
	view := *pj
	view.timer = nil
	return view, true
}

func (l *Lobby) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

func (l *Lobby) take(invoiceID string) (*PendingJoin, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pj, ok := l.pending[invoiceID]
	if !ok {
		return nil, ErrPendingJoinNotFound
	}
	delete(l.pending, invoiceID)
	if l.byParty[pj.PartyID] == invoiceID {
		delete(l.byParty, pj.PartyID)
	}
	if pj.timer != nil {
		pj.timer.Stop()
	}
	return pj, nil
}

// refund returns a settled stake. Collectors that cannot refund leave a
// refund-needed record in the log.
func (l *Lobby) refund(ctx context.Context, stake ports.StakeRequest) {
	refunder, ok := l.stakes.(ports.StakeRefunder)
	if !ok {
		l.logger.Error("Lobby: refund needed for %s: %d %s on %s", stake.Identity, stake.Amount, stake.Currency, stake.Reference)
		return
	}
	if err := refunder.RefundStake(ctx, stake); err != nil {
		l.logger.Error("Lobby: refund needed for %s: %d %s on %s: %v", stake.Identity, stake.Amount, stake.Currency, stake.Reference, err)
		return
	}
	l.logger.Info("Lobby: refunded %d %s to %s", stake.Amount, stake.Currency, stake.Identity)
}

func (l *Lobby) release(partyID, reference string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.byParty[partyID] == reference {
		delete(l.byParty, partyID)
	}
}

func (l *Lobby) emit(ctx context.Context, ev Event) {
	if l.emitter == nil {
		return
	}
	if err := l.emitter.Emit(ctx, []Event{ev}); err != nil {
		l.logger.Warn("Lobby: failed to emit %s: %v", ev.Kind, err)
	}
}
