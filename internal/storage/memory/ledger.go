package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/ports"
)

// Ledger keeps settlement records in process memory.
type Ledger struct {
	mu      sync.RWMutex
	records map[string]ports.SettlementRecord
}

var _ ports.SettlementLedger = (*Ledger)(nil)

func NewLedger() *Ledger {
	return &Ledger{records: make(map[string]ports.SettlementRecord)}
}

func (l *Ledger) Save(_ context.Context, rec *ports.SettlementRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[rec.MatchID] = *rec
	return nil
}

func (l *Ledger) Get(_ context.Context, matchID string) (*ports.SettlementRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.records[matchID]
	if !ok {
		return nil, ports.ErrSettlementNotFound
	}
	return &rec, nil
}

func (l *Ledger) ListRetryable(_ context.Context, maxAttempts int) ([]*ports.SettlementRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []*ports.SettlementRecord
	for _, rec := range l.records {
		if rec.Status == ports.SettlementFailed && rec.Attempts < maxAttempts {
			rec := rec
			out = append(out, &rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
