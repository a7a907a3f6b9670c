package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/bot"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/config"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/domain"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/random"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/jonboulle/clockwork"
)

// Registry owns every active match of the process and routes party commands to them.
type Registry struct {
	// joinMu serializes find-or-create so two joiners never open two matches for one tier.
	// It also guards rng.
	joinMu sync.Mutex
	// mu guards the maps only. It is never held while a match lock is taken.
	mu      sync.Mutex
	matches map[string]*Match
	parties map[string]string // party id -> match id

	cfg        *config.GameConfig
	emitter    Emitter
	settlement *Settlement
	logger     runtime.Logger
	clock      clockwork.Clock
	rng        *rand.Rand
	identities *bot.Identities
	ctx        context.Context
	bots       bool
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

func WithClock(c clockwork.Clock) RegistryOption {
	return func(r *Registry) { r.clock = c }
}

func WithRand(rng *rand.Rand) RegistryOption {
	return func(r *Registry) { r.rng = rng }
}

func WithIdentities(ids *bot.Identities) RegistryOption {
	return func(r *Registry) { r.identities = ids }
}

// WithContext sets the context handed to emitters and the payment gateway.
func WithContext(ctx context.Context) RegistryOption {
	return func(r *Registry) { r.ctx = ctx }
}

// WithBots toggles automated opponents for lone players.
func WithBots(enabled bool) RegistryOption {
	return func(r *Registry) { r.bots = enabled }
}

func NewRegistry(cfg *config.GameConfig, emitter Emitter, settlement *Settlement, logger runtime.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		matches:    make(map[string]*Match),
		parties:    make(map[string]string),
		cfg:        cfg,
		emitter:    emitter,
		settlement: settlement,
		logger:     logger,
		clock:      clockwork.NewRealClock(),
		identities: bot.DefaultIdentities(),
		ctx:        context.Background(),
		bots:       true,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.rng == nil {
		seed, err := random.NewSeed()
		if err != nil {
			logger.Warn("Registry: falling back to a clock seed: %v", err)
			seed = r.clock.Now().UnixNano()
		}
		r.rng = rand.New(rand.NewSource(seed))
	}
	return r
}

// Join seats a party in an open match of the bet tier, creating one if none is open.
// A lone player gets a bot opponent after a randomized delay unless a human arrives first.
func (r *Registry) Join(partyID, identity string, bet int64) (*Match, error) {
	if _, err := r.cfg.Tier(bet); err != nil {
		return nil, err
	}

	r.joinMu.Lock()
	defer r.joinMu.Unlock()

	if _, ok := r.InMatch(partyID); ok {
		return nil, ErrAlreadyInMatch
	}

	var lastErr error
	for attempt := 0; attempt < maxJoinAttempts; attempt++ {
		m, created := r.findOrCreateMatchLocked(bet)
		err := m.AddPlayer(partyID, identity, false)
		if errors.Is(err, ErrMatchFull) || errors.Is(err, ErrMatchClosed) {
			// A bot injection or a cleanup won the race for this match.
			lastErr = err
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to join match %s: %w", m.ID(), err)
		}

		if !r.track(partyID, m) {
			return nil, ErrMatchClosed
		}
		r.logger.Info("Registry: party %s joined match %s (bet %d, created=%v)", partyID, m.ID(), bet, created)
		if created && r.bots {
			r.scheduleBotInjectionLocked(m)
		}
		return m, nil
	}
	return nil, fmt.Errorf("failed to find an open match after %d attempts: %w", maxJoinAttempts, lastErr)
}

// FindOrCreateMatch returns a match with exactly one seated party for the bet, or a new one.
// Join runs the same lookup under its own hold of joinMu.
func (r *Registry) FindOrCreateMatch(bet int64) (*Match, bool, error) {
	if _, err := r.cfg.Tier(bet); err != nil {
		return nil, false, err
	}
	r.joinMu.Lock()
	defer r.joinMu.Unlock()
	m, created := r.findOrCreateMatchLocked(bet)
	return m, created, nil
}

// findOrCreateMatchLocked scans published match state only, so a match busy
// settling or firing never delays matchmaking. Callers hold joinMu.
func (r *Registry) findOrCreateMatchLocked(bet int64) (*Match, bool) {
	for _, m := range r.list() {
		if m.openFor(bet) {
			return m, false
		}
	}

	id := uuid.NewString()
	m := newMatch(id, bet, matchDeps{
		ctx:        r.ctx,
		cfg:        r.cfg,
		clock:      r.clock,
		rng:        rand.New(rand.NewSource(r.rng.Int63())),
		emitter:    r.emitter,
		settlement: r.settlement,
		logger:     r.logger,
		onClosed:   r.remove,
	})
	r.mu.Lock()
	r.matches[id] = m
	r.mu.Unlock()
	r.logger.Debug("Registry: created match %s for bet %d", id, bet)
	return m, true
}

// ScheduleBotInjection adds a bot to m after delay if m still has a single party.
// The timer is cancelled when a second human joins first.
func (r *Registry) ScheduleBotInjection(m *Match, delay time.Duration) {
	m.armMatchmaking(delay, func() { r.injectBot(m) })
}

func (r *Registry) scheduleBotInjectionLocked(m *Match) {
	delays := r.cfg.BotJoinDelays()
	if len(delays) == 0 {
		return
	}
	r.ScheduleBotInjection(m, delays[r.rng.Intn(len(delays))])
}

func (r *Registry) injectBot(m *Match) {
	r.joinMu.Lock()
	defer r.joinMu.Unlock()

	identity := r.identities.Get(r.rng.Intn(max(r.identities.Len(), 1)))
	partyID := bot.NewPartyID()
	injected, err := m.InjectBot(partyID, identity.DisplayName)
	if err != nil {
		r.logger.Error("Registry: failed to inject bot into match %s: %v", m.ID(), err)
		return
	}
	if !injected {
		return
	}
	r.track(partyID, m)
	r.logger.Info("Registry: bot %s (%s, account %s) joined match %s", partyID, identity.DisplayName, identity.Account, m.ID())
}

// track indexes the party under m unless m has already been removed.
func (r *Registry) track(partyID string, m *Match) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.matches[m.ID()]; !ok {
		return false
	}
	r.parties[partyID] = m.ID()
	return true
}

// remove is the match's close hook. It runs after the match lock is released.
func (r *Registry) remove(m *Match) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.matches[m.ID()]; !ok {
		return
	}
	delete(r.matches, m.ID())
	for party, id := range r.parties {
		if id == m.ID() {
			delete(r.parties, party)
		}
	}
	r.logger.Debug("Registry: removed match %s, %d active", m.ID(), len(r.matches))
}

func (r *Registry) list() []*Match {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Match, 0, len(r.matches))
	for _, m := range r.matches {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (r *Registry) Get(matchID string) (*Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[matchID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return m, nil
}

// InMatch returns the id of the match the party is seated in.
func (r *Registry) InMatch(partyID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.parties[partyID]
	return id, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.matches)
}

// matchFor resolves a client-supplied match id and checks the party is seated in it.
func (r *Registry) matchFor(matchID, partyID string) (*Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[matchID]
	if !ok || r.parties[partyID] != matchID {
		return nil, ErrMatchNotFound
	}
	return m, nil
}

func (r *Registry) PlaceShips(matchID, partyID string, placements []domain.Placement) error {
	m, err := r.matchFor(matchID, partyID)
	if err != nil {
		return err
	}
	return m.PlaceShips(partyID, placements)
}

func (r *Registry) Fire(matchID, partyID string, pos int) (domain.ShotOutcome, error) {
	m, err := r.matchFor(matchID, partyID)
	if err != nil {
		return domain.ShotOutcome{}, err
	}
	return m.Fire(partyID, pos)
}

func (r *Registry) Cancel(matchID, partyID string) error {
	m, err := r.matchFor(matchID, partyID)
	if err != nil {
		return err
	}
	return m.Cancel(partyID)
}

func (r *Registry) Snapshot(matchID, partyID string) (MatchView, error) {
	m, err := r.matchFor(matchID, partyID)
	if err != nil {
		return MatchView{}, err
	}
	return m.Snapshot(partyID)
}

// Disconnect routes a transport-level drop to the party's match, if any.
func (r *Registry) Disconnect(partyID string) {
	id, ok := r.InMatch(partyID)
	if !ok {
		return
	}
	m, err := r.Get(id)
	if err != nil {
		return
	}
	m.Disconnect(partyID)
}

// RegistryStats summarizes active matches.
type RegistryStats struct {
	Matches int            `json:"matches"`
	Parties int            `json:"parties"`
	Bots    int            `json:"bots"`
	ByPhase map[string]int `json:"byPhase"`
	ByTier  map[int64]int  `json:"byTier"`
}

func (r *Registry) Stats() RegistryStats {
	stats := RegistryStats{
		ByPhase: make(map[string]int),
		ByTier:  make(map[int64]int),
	}
	for _, m := range r.list() {
		s := m.Summary()
		stats.Matches++
		stats.Parties += s.Players
		if s.HasBot {
			stats.Bots++
		}
		stats.ByPhase[s.Phase]++
		stats.ByTier[s.Bet]++
	}
	return stats
}

// Summaries lists active matches ordered by id.
func (r *Registry) Summaries() []MatchSummary {
	ms := r.list()
	out := make([]MatchSummary, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Summary())
	}
	return out
}

// Shutdown closes every active match.
func (r *Registry) Shutdown() {
	for _, m := range r.list() {
		m.Cleanup(ReasonShutdown)
	}
	r.logger.Info("Registry: shutdown complete")
}
