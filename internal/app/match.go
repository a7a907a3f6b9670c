package app

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/bot"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/config"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/domain"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/random"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/jonboulle/clockwork"
)

// Phase represents the lifecycle stage of a match.
type Phase int

const (
	PhaseWaiting Phase = iota
	PhasePlacement
	PhaseInProgress
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhasePlacement:
		return "placement"
	case PhaseInProgress:
		return "in_progress"
	case PhaseFinished:
		return "finished"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// matchDeps are the collaborators a match is built with.
type matchDeps struct {
	ctx        context.Context
	cfg        *config.GameConfig
	clock      clockwork.Clock
	rng        *rand.Rand
	emitter    Emitter
	settlement *Settlement
	logger     runtime.Logger
	onClosed   func(*Match)
}

// Match is one game's state machine. All state is guarded by mu; timer callbacks
// take the same lock and re-check state, so a stale timer never mutates anything.
type Match struct {
	mu sync.Mutex
	// emitMu keeps events of consecutive critical sections in order.
	emitMu sync.Mutex

	id             string
	bet            int64
	cfg            *config.GameConfig
	grid           domain.Grid
	fleet          []domain.ShipType
	totalShipCells int
	tuning         bot.Tuning

	players map[string]*Player
	order   []string // party ids in join order
	phase   Phase
	turn    string
	winner  string
	closed  bool
	removed bool

	// state is republished on every unlock so registry scans never wait on a busy match.
	state atomic.Pointer[matchState]
	// settle is taken by unlock and paid out after every lock is released.
	settle *pendingSettlement

	matchmakingTimer clockwork.Timer
	graceTimer       clockwork.Timer
	botTimer         clockwork.Timer
	placementTimers  map[string]clockwork.Timer

	outbox []Event

	ctx        context.Context
	clock      clockwork.Clock
	rng        *rand.Rand
	emitter    Emitter
	settlement *Settlement
	logger     runtime.Logger
	onClosed   func(*Match)
}

// matchState is the lock-free view of a match used for matchmaking and stats.
type matchState struct {
	phase   Phase
	players int
	hasBot  bool
	closed  bool
}

type pendingSettlement struct {
	req        SettlementRequest
	recipients []string
}

func newMatch(id string, bet int64, d matchDeps) *Match {
	m := &Match{
		id:             id,
		bet:            bet,
		cfg:            d.cfg,
		grid:           d.cfg.Grid(),
		fleet:          d.cfg.Fleet(),
		totalShipCells: d.cfg.TotalShipCells(),
		tuning: bot.Tuning{
			HuntBias:       d.cfg.HuntBias,
			SweepThreshold: d.cfg.SweepThreshold,
		},
		players:         make(map[string]*Player, PlayersPerMatch),
		placementTimers: make(map[string]clockwork.Timer),
		ctx:             d.ctx,
		clock:           d.clock,
		rng:             d.rng,
		emitter:         d.emitter,
		settlement:      d.settlement,
		logger:          d.logger,
		onClosed:        d.onClosed,
	}
	m.state.Store(&matchState{phase: PhaseWaiting})
	return m
}

// ID returns the match id.
func (m *Match) ID() string { return m.id }

// Bet returns the stake tier both parties joined with.
func (m *Match) Bet() int64 { return m.bet }

// String identifies the match in logs.
func (m *Match) String() string { return "match:" + m.id }

// unlock releases the match and delivers the events queued while it was held.
// emitMu is taken before mu is released so a later critical section cannot overtake this one.
func (m *Match) unlock() {
	events := m.outbox
	m.outbox = nil
	settle := m.settle
	m.settle = nil
	closeNow := m.closed && !m.removed
	if closeNow {
		m.removed = true
	}
	m.publishLocked()

	m.emitMu.Lock()
	m.mu.Unlock()
	if len(events) > 0 && m.emitter != nil {
		if err := m.emitter.Emit(m.ctx, events); err != nil {
			m.logger.Warn("Match %s: failed to emit %d events: %v", m.id, len(events), err)
		}
	}
	m.emitMu.Unlock()

	if closeNow && m.onClosed != nil {
		m.onClosed(m)
	}
	if settle != nil {
		m.runSettlement(settle)
	}
}

func (m *Match) publishLocked() {
	st := &matchState{phase: m.phase, players: len(m.players), closed: m.closed}
	for _, p := range m.players {
		if p.IsBot {
			st.hasBot = true
		}
	}
	m.state.Store(st)
}

// runSettlement pays out a finished match and reports the result to the humans
// that were connected when it ended. No match lock is held here.
func (m *Match) runSettlement(p *pendingSettlement) {
	res := m.settlement.Settle(m.ctx, p.req)
	if res.Err != nil {
		m.logger.Error("Match %s: settlement failed: %v", m.id, res.Err)
	}
	if len(p.recipients) == 0 || m.emitter == nil {
		return
	}
	ev := Event{
		Kind:       EventSettlementResult,
		MatchID:    m.id,
		Payload:    SettlementResultPayload{Success: res.Err == nil, Message: res.Message},
		Recipients: p.recipients,
	}
	m.emitMu.Lock()
	defer m.emitMu.Unlock()
	if err := m.emitter.Emit(m.ctx, []Event{ev}); err != nil {
		m.logger.Warn("Match %s: failed to emit settlement result: %v", m.id, err)
	}
}

func (m *Match) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

func (m *Match) Turn() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.turn
}

func (m *Match) Winner() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.winner
}

func (m *Match) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Match) PlayerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.players)
}

// openFor reports whether a joiner staking bet can take the second seat.
// It reads the published state, so AddPlayer still re-checks under the lock.
func (m *Match) openFor(bet int64) bool {
	st := m.state.Load()
	return !st.closed && st.phase == PhaseWaiting && m.bet == bet && st.players == 1
}

// MatchSummary is the registry-level view used for stats.
type MatchSummary struct {
	ID      string `json:"id"`
	Bet     int64  `json:"bet"`
	Phase   string `json:"phase"`
	Players int    `json:"players"`
	HasBot  bool   `json:"hasBot"`
}

// Summary is built from the published state and never waits on the match lock.
func (m *Match) Summary() MatchSummary {
	st := m.state.Load()
	return MatchSummary{ID: m.id, Bet: m.bet, Phase: st.phase.String(), Players: st.players, HasBot: st.hasBot}
}

// Snapshot returns the match as viewer sees it.
func (m *Match) Snapshot(viewer string) (MatchView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[viewer]
	if !ok {
		return MatchView{}, ErrPlayerNotFound
	}
	view := MatchView{
		MatchID: m.id,
		Bet:     m.bet,
		Phase:   m.phase.String(),
		Turn:    m.turn,
		Winner:  m.winner,
		You:     p.ownView(),
	}
	if opp := m.opponentOf(p); opp != nil {
		view.Opponent = opp.opponentView()
	}
	return view, nil
}

// Shots returns a copy of a player's shot log.
func (m *Match) Shots(partyID string) []ShotRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[partyID]
	if !ok {
		return nil
	}
	return append([]ShotRecord(nil), p.Shots...)
}

// AddPlayer seats a party. Bots get their fleet auto-placed and are ready immediately.
// When the second party joins, placement starts after a short grace delay.
func (m *Match) AddPlayer(partyID, identity string, isBot bool) error {
	m.mu.Lock()
	defer m.unlock()
	return m.addPlayerLocked(partyID, identity, isBot)
}

func (m *Match) addPlayerLocked(partyID, identity string, isBot bool) error {
	if m.closed {
		return ErrMatchClosed
	}
	if _, ok := m.players[partyID]; ok {
		return ErrAlreadyJoined
	}
	if len(m.players) >= PlayersPerMatch || m.phase != PhaseWaiting {
		return ErrMatchFull
	}

	seedSource := identity
	if isBot {
		seedSource = partyID
	}
	p := &Player{
		PartyID:   partyID,
		Identity:  identity,
		IsBot:     isBot,
		Board:     domain.NewBoard(m.grid),
		Connected: true,
		rng:       random.New(random.SeedFor(seedSource, m.clock.Now())),
	}
	if isBot {
		ships, err := bot.AutoPlace(m.grid, m.fleet, p.rng)
		if err != nil {
			m.logger.Error("Match %s: failed to place bot fleet: %v", m.id, err)
			m.abortLocked(ReasonConfiguration)
			return fmt.Errorf("failed to place bot fleet: %w", err)
		}
		p.Board.Apply(ships)
		p.Ready = true
		p.agent = bot.NewAgent(partyID, identity, m.grid, p.rng, m.tuning)
	}

	m.players[partyID] = p
	m.order = append(m.order, partyID)
	m.logger.Info("Match %s: party %s joined (bot=%v, players=%d, seed=%d)", m.id, partyID, isBot, len(m.players), p.rng.Seed())

	m.emit(EventJoined, JoinedPayload{MatchID: m.id, PartyID: partyID, Bet: m.bet}, partyID)
	switch len(m.players) {
	case 1:
		m.emit(EventWaitingForOpponent, WaitingPayload{Bet: m.bet}, partyID)
	case PlayersPerMatch:
		stopTimer(&m.matchmakingTimer)
		m.graceTimer = m.clock.AfterFunc(m.cfg.PlacementGrace(), m.onGraceElapsed)
	}
	return nil
}

// armMatchmaking starts the bot injection timer while the match waits alone.
func (m *Match) armMatchmaking(delay time.Duration, inject func()) {
	m.mu.Lock()
	defer m.unlock()
	if m.closed || m.phase != PhaseWaiting || len(m.players) != 1 {
		return
	}
	stopTimer(&m.matchmakingTimer)
	m.matchmakingTimer = m.clock.AfterFunc(delay, inject)
}

// InjectBot seats an automated opponent if the match still has exactly one player.
func (m *Match) InjectBot(partyID, identity string) (bool, error) {
	m.mu.Lock()
	defer m.unlock()
	if m.closed || m.phase != PhaseWaiting || len(m.players) != 1 {
		m.logger.Debug("Match %s: skipping stale bot injection", m.id)
		return false, nil
	}
	m.matchmakingTimer = nil
	if err := m.addPlayerLocked(partyID, identity, true); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Match) onGraceElapsed() {
	m.mu.Lock()
	defer m.unlock()
	if m.closed || m.phase != PhaseWaiting || len(m.players) != PlayersPerMatch {
		m.logger.Debug("Match %s: ignoring stale placement grace timer", m.id)
		return
	}
	m.graceTimer = nil
	m.startPlacementLocked()
}

func (m *Match) startPlacementLocked() {
	m.phase = PhasePlacement

	specs := make([]ShipSpecView, 0, len(m.fleet))
	for _, st := range m.fleet {
		specs = append(specs, ShipSpecView{Name: st.Name, Size: st.Size})
	}
	for _, id := range m.order {
		p := m.players[id]
		opponent := ""
		if opp := m.opponentOf(p); opp != nil {
			opponent = opp.Identity
		}
		m.emit(EventPlacementStart, PlacementStartPayload{
			Opponent:         opponent,
			TimeLimitSeconds: m.cfg.PlacementTimeoutSeconds,
			GridWidth:        m.grid.Width,
			GridHeight:       m.grid.Height,
			Ships:            specs,
		}, id)

		if p.IsBot || p.Ready {
			continue
		}
		partyID := id
		m.placementTimers[partyID] = m.clock.AfterFunc(m.cfg.PlacementTimeout(), func() {
			m.onPlacementTimeout(partyID)
		})
	}
	m.checkBothReadyLocked()
}

// PlaceShips validates and applies a human player's fleet. A rejected placement
// changes nothing and leaves the player not ready.
func (m *Match) PlaceShips(partyID string, placements []domain.Placement) error {
	m.mu.Lock()
	defer m.unlock()

	p, ok := m.players[partyID]
	if !ok {
		return ErrPlayerNotFound
	}
	if p.IsBot {
		return ErrBotCannotAct
	}
	if m.closed || (m.phase != PhaseWaiting && m.phase != PhasePlacement) {
		return ErrPlacementClosed
	}

	ships, err := domain.BuildFleet(m.grid, m.fleet, placements)
	if err != nil {
		return err
	}
	m.applyFleetLocked(p, ships, EventPlacementConfirmed)
	return nil
}

func (m *Match) onPlacementTimeout(partyID string) {
	m.mu.Lock()
	defer m.unlock()
	if m.closed || m.phase != PhasePlacement {
		m.logger.Debug("Match %s: ignoring stale placement timer for %s", m.id, partyID)
		return
	}
	p, ok := m.players[partyID]
	if !ok || p.Ready {
		return
	}
	delete(m.placementTimers, partyID)

	ships, err := bot.AutoPlace(m.grid, m.fleet, p.rng)
	if err != nil {
		m.logger.Error("Match %s: failed to auto-place fleet for %s: %v", m.id, partyID, err)
		m.abortLocked(ReasonConfiguration)
		return
	}
	m.logger.Info("Match %s: placement timed out for %s, fleet auto-placed", m.id, partyID)
	m.applyFleetLocked(p, ships, EventPlacementAutoApplied)
}

func (m *Match) applyFleetLocked(p *Player, ships []*domain.Ship, kind EventKind) {
	p.Board.Apply(ships)
	p.Ready = true
	if t, ok := m.placementTimers[p.PartyID]; ok {
		t.Stop()
		delete(m.placementTimers, p.PartyID)
	}

	ready := m.readyCount()
	views := shipViews(ships)
	m.emit(EventBoardUpdate, BoardUpdatePayload{
		ReadyCount: ready,
		Grid:       cellNames(p.Board.Cells),
		Ships:      views,
	}, p.PartyID)
	m.emit(kind, PlacementPayload{Ships: views}, p.PartyID)
	if opp := m.opponentOf(p); opp != nil {
		m.emit(EventReadyCount, ReadyCountPayload{ReadyCount: ready}, opp.PartyID)
	}
	m.checkBothReadyLocked()
}

func (m *Match) checkBothReadyLocked() {
	if m.phase != PhasePlacement || len(m.players) != PlayersPerMatch {
		return
	}
	if m.readyCount() == PlayersPerMatch {
		m.startMatchLocked()
	}
}

// startMatchLocked picks the first turn uniformly at random.
func (m *Match) startMatchLocked() {
	m.phase = PhaseInProgress
	m.turn = m.order[m.rng.Intn(len(m.order))]
	m.logger.Info("Match %s: started, first turn %s", m.id, m.turn)
	m.broadcast(EventMatchStart, MatchStartPayload{Turn: m.turn})
	m.scheduleBotTurnLocked()
}

// Fire resolves a human shot. Only the current turn holder may fire.
func (m *Match) Fire(partyID string, pos int) (domain.ShotOutcome, error) {
	m.mu.Lock()
	defer m.unlock()

	p, ok := m.players[partyID]
	if !ok {
		return domain.ShotOutcome{}, ErrPlayerNotFound
	}
	if m.winner != "" || m.phase == PhaseFinished || m.closed {
		return domain.ShotOutcome{}, ErrMatchFinished
	}
	if p.IsBot {
		return domain.ShotOutcome{}, ErrBotCannotAct
	}
	if m.phase != PhaseInProgress {
		return domain.ShotOutcome{}, ErrNotInProgress
	}
	if m.turn != partyID {
		return domain.ShotOutcome{}, ErrNotYourTurn
	}
	return m.resolveShotLocked(p, pos)
}

// resolveShotLocked is the single source of truth for hit, sink, turn and win rules.
// The turn passes only on a miss.
func (m *Match) resolveShotLocked(shooter *Player, pos int) (domain.ShotOutcome, error) {
	opp := m.opponentOf(shooter)
	if opp == nil {
		return domain.ShotOutcome{}, ErrPlayerNotFound
	}
	out, err := opp.Board.ReceiveShot(pos)
	if err != nil {
		return domain.ShotOutcome{}, err
	}

	rec := ShotRecord{Position: pos, Hit: out.Hit, Sunk: out.Sunk}
	payload := FireResultPayload{Shooter: shooter.PartyID, Position: pos, Hit: out.Hit, Sunk: out.Sunk}
	if out.Sunk && out.Ship != nil {
		rec.Ship = out.Ship.Name
		payload.Ship = out.Ship.Name
	}
	shooter.Shots = append(shooter.Shots, rec)
	m.broadcast(EventFireResult, payload)

	if out.Hit {
		shooter.Hits++
		if shooter.Hits >= m.totalShipCells {
			m.endGameLocked(shooter.PartyID, ReasonFleetDestroyed, true)
		}
		return out, nil
	}

	m.turn = opp.PartyID
	m.broadcast(EventTurnChanged, TurnChangedPayload{Turn: m.turn})
	m.scheduleBotTurnLocked()
	return out, nil
}

// Disconnect handles a transport-level drop of a party.
func (m *Match) Disconnect(partyID string) {
	m.mu.Lock()
	defer m.unlock()
	if p, ok := m.players[partyID]; ok {
		p.Connected = false
	}
	m.leaveLocked(partyID)
}

// Cancel is an explicit leave. Before the match starts it cancels the match;
// afterwards it forfeits.
func (m *Match) Cancel(partyID string) error {
	m.mu.Lock()
	defer m.unlock()
	if _, ok := m.players[partyID]; !ok {
		return ErrPlayerNotFound
	}
	if m.closed {
		return ErrMatchClosed
	}
	m.leaveLocked(partyID)
	return nil
}

func (m *Match) leaveLocked(partyID string) {
	p, ok := m.players[partyID]
	if !ok || m.closed {
		return
	}

	switch m.phase {
	case PhaseWaiting, PhasePlacement:
		m.logger.Info("Match %s: party %s left before start, cancelling", m.id, partyID)
		m.cleanupLocked(ReasonCancelled)
		delete(m.players, partyID)
		m.order = removeID(m.order, partyID)
	case PhaseInProgress:
		opp := m.opponentOf(p)
		if opp == nil {
			m.cleanupLocked(ReasonCancelled)
			return
		}
		m.logger.Info("Match %s: party %s left mid-game, %s wins by forfeit", m.id, partyID, opp.PartyID)
		settle := m.cfg.ForfeitPayout && !opp.IsBot
		m.endGameLocked(opp.PartyID, ReasonForfeit, settle)
	}
}

// endGameLocked sets the winner once and always cleans up. A requested settlement
// is queued and paid by unlock once the match lock is released.
func (m *Match) endGameLocked(winnerID, reason string, settle bool) {
	if m.winner != "" {
		return
	}
	m.winner = winnerID
	m.phase = PhaseFinished
	m.stopTimersLocked()
	m.logger.Info("Match %s: finished, winner %s (%s)", m.id, winnerID, reason)

	for _, id := range m.order {
		m.emit(EventMatchEnd, MatchEndPayload{
			Winner:  winnerID,
			Reason:  reason,
			Message: endMessage(id == winnerID, reason),
		}, id)
	}

	if settle && m.settlement != nil {
		winner := m.players[winnerID]
		m.settle = &pendingSettlement{
			req: SettlementRequest{
				MatchID:        m.id,
				Bet:            m.bet,
				WinnerParty:    winnerID,
				WinnerIdentity: winner.Identity,
				WinnerIsBot:    winner.IsBot,
			},
			recipients: m.humans(m.order...),
		}
	}

	m.cleanupLocked(ReasonFinished)
}

func endMessage(won bool, reason string) string {
	switch {
	case won && reason == ReasonForfeit:
		return "Your opponent left the battle. You win by forfeit!"
	case won:
		return "Victory! You sank the enemy fleet."
	case reason == ReasonForfeit:
		return "You left the battle and forfeited the match."
	default:
		return "Defeat. Your fleet has been destroyed."
	}
}

// Cleanup cancels every timer, notifies connected humans and releases the match. Idempotent.
func (m *Match) Cleanup(reason string) {
	m.mu.Lock()
	defer m.unlock()
	m.cleanupLocked(reason)
}

func (m *Match) cleanupLocked(reason string) {
	if m.closed {
		return
	}
	m.closed = true
	m.phase = PhaseFinished
	m.stopTimersLocked()
	m.broadcast(EventMatchClosed, MatchClosedPayload{Reason: reason})
}

// abortLocked ends the match after a configuration failure. Other matches are unaffected.
func (m *Match) abortLocked(reason string) {
	m.broadcast(EventErrorNotice, ErrorNoticePayload{Message: "This match could not continue and was cancelled."})
	m.cleanupLocked(reason)
}

func (m *Match) stopTimersLocked() {
	stopTimer(&m.matchmakingTimer)
	stopTimer(&m.graceTimer)
	stopTimer(&m.botTimer)
	for id, t := range m.placementTimers {
		t.Stop()
		delete(m.placementTimers, id)
	}
}

func stopTimer(t *clockwork.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

func (m *Match) readyCount() int {
	n := 0
	for _, p := range m.players {
		if p.Ready {
			n++
		}
	}
	return n
}

func (m *Match) opponentOf(p *Player) *Player {
	for _, id := range m.order {
		if id != p.PartyID {
			return m.players[id]
		}
	}
	return nil
}

// humans filters ids down to the connected human players.
func (m *Match) humans(ids ...string) []string {
	var out []string
	for _, id := range ids {
		p, ok := m.players[id]
		if !ok || p.IsBot || !p.Connected {
			continue
		}
		out = append(out, id)
	}
	return out
}

// emit queues an event for the connected humans among recipients.
func (m *Match) emit(kind EventKind, payload any, recipients ...string) {
	humans := m.humans(recipients...)
	if len(humans) == 0 {
		return
	}
	m.outbox = append(m.outbox, Event{Kind: kind, MatchID: m.id, Payload: payload, Recipients: humans})
}

func (m *Match) broadcast(kind EventKind, payload any) {
	m.emit(kind, payload, m.order...)
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
