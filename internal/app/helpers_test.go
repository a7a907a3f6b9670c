package app

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/config"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/domain"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/ports"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/storage/memory"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

const testBet = 300

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

// recorder collects every emitted event.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Emit(_ context.Context, events []Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *recorder) forParty(partyID string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		for _, id := range ev.Recipients {
			if id == partyID {
				out = append(out, ev)
				break
			}
		}
	}
	return out
}

func (r *recorder) count(kind EventKind, partyID string) int {
	n := 0
	for _, ev := range r.forParty(partyID) {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) last(kind EventKind, partyID string) (Event, bool) {
	evs := r.forParty(partyID)
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Kind == kind {
			return evs[i], true
		}
	}
	return Event{}, false
}

// fakeGateway records payouts and fails the ones fail matches.
type fakeGateway struct {
	mu    sync.Mutex
	calls []ports.PayoutRequest
	fail  func(req ports.PayoutRequest) error
}

func (g *fakeGateway) RequestPayout(_ context.Context, req ports.PayoutRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, req)
	if g.fail != nil {
		return g.fail(req)
	}
	return nil
}

func (g *fakeGateway) setFail(fail func(req ports.PayoutRequest) error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail = fail
}

func (g *fakeGateway) requests() []ports.PayoutRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]ports.PayoutRequest(nil), g.calls...)
}

var errProviderDown = errors.New("provider down")

type harness struct {
	cfg        *config.GameConfig
	clock      *clockwork.FakeClock
	events     *recorder
	gateway    *fakeGateway
	ledger     *memory.Ledger
	settlement *Settlement
	registry   *Registry
}

func newHarness(t *testing.T, mutate func(cfg *config.GameConfig), opts ...RegistryOption) *harness {
	t.Helper()
	cfg := config.DefaultGameConfig()
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())

	h := &harness{
		cfg:     cfg,
		clock:   clockwork.NewFakeClock(),
		events:  &recorder{},
		gateway: &fakeGateway{},
		ledger:  memory.NewLedger(),
	}
	h.settlement = NewSettlement(h.gateway, h.ledger, cfg, noopLogger{}, h.clock)
	base := []RegistryOption{WithClock(h.clock), WithRand(rand.New(rand.NewSource(7)))}
	h.registry = NewRegistry(cfg, h.events, h.settlement, noopLogger{}, append(base, opts...)...)
	return h
}

// advance moves the fake clock and waits for cond.
func (h *harness) advance(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	h.clock.Advance(d)
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

// standardFleet lays the roster out on rows 0..4, left aligned.
func standardFleet() []domain.Placement {
	return []domain.Placement{
		{Name: "Carrier", Positions: []int{0, 1, 2, 3, 4}},
		{Name: "Battleship", Positions: []int{9, 10, 11, 12}},
		{Name: "Cruiser", Positions: []int{18, 19, 20}},
		{Name: "Submarine", Positions: []int{27, 28, 29}},
		{Name: "Destroyer", Positions: []int{36, 37}},
	}
}

func standardShipCells() []int {
	var cells []int
	for _, p := range standardFleet() {
		cells = append(cells, p.Positions...)
	}
	return cells
}

// startHumanMatch seats alice and bob, places both fleets and waits for combat.
func (h *harness) startHumanMatch(t *testing.T) *Match {
	t.Helper()
	m, err := h.registry.Join("alice", "alice@wallet", testBet)
	require.NoError(t, err)
	m2, err := h.registry.Join("bob", "bob@wallet", testBet)
	require.NoError(t, err)
	require.Same(t, m, m2)

	h.advance(t, h.cfg.PlacementGrace(), func() bool { return m.Phase() == PhasePlacement })
	require.NoError(t, h.registry.PlaceShips(m.ID(), "alice", standardFleet()))
	require.NoError(t, h.registry.PlaceShips(m.ID(), "bob", standardFleet()))
	require.Equal(t, PhaseInProgress, m.Phase())
	return m
}

func other(partyID string) string {
	if partyID == "alice" {
		return "bob"
	}
	return "alice"
}
