package memory

import (
	"context"
	"testing"
	"time"

	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/ports"

	"github.com/stretchr/testify/require"
)

func TestLedgerSaveAndGet(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()

	_, err := l.Get(ctx, "missing")
	require.ErrorIs(t, err, ports.ErrSettlementNotFound)

	rec := &ports.SettlementRecord{MatchID: "m1", Status: ports.SettlementPending, WinnerAmount: 500}
	require.NoError(t, l.Save(ctx, rec))

	// The ledger stores a copy.
	rec.Status = ports.SettlementPaid
	got, err := l.Get(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, ports.SettlementPending, got.Status)
	require.EqualValues(t, 500, got.WinnerAmount)
}

func TestLedgerListRetryable(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	records := []ports.SettlementRecord{
		{MatchID: "paid", Status: ports.SettlementPaid, CreatedAt: base},
		{MatchID: "late", Status: ports.SettlementFailed, Attempts: 1, CreatedAt: base.Add(2 * time.Minute)},
		{MatchID: "early", Status: ports.SettlementFailed, Attempts: 2, CreatedAt: base.Add(time.Minute)},
		{MatchID: "exhausted", Status: ports.SettlementFailed, Attempts: 3, CreatedAt: base},
		{MatchID: "house", Status: ports.SettlementHouse, CreatedAt: base},
	}
	for i := range records {
		require.NoError(t, l.Save(ctx, &records[i]))
	}

	got, err := l.ListRetryable(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "early", got[0].MatchID)
	require.Equal(t, "late", got[1].MatchID)
}
