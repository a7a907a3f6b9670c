package app

import (
	"fmt"
	"time"

	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/domain"
)

// scheduleBotTurnLocked arms the thinking delay when the turn holder is a bot.
func (m *Match) scheduleBotTurnLocked() {
	stopTimer(&m.botTimer)
	if m.closed || m.phase != PhaseInProgress {
		return
	}
	p, ok := m.players[m.turn]
	if !ok || !p.IsBot {
		return
	}
	botID := p.PartyID
	m.botTimer = m.clock.AfterFunc(m.botThinkDelay(), func() {
		m.onBotTurn(botID)
	})
}

func (m *Match) botThinkDelay() time.Duration {
	lo, hi := m.cfg.BotThinkRange()
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(m.rng.Int63n(int64(hi-lo)+1))
}

func (m *Match) onBotTurn(botID string) {
	m.mu.Lock()
	defer m.unlock()
	if m.closed || m.phase != PhaseInProgress || m.turn != botID {
		m.logger.Debug("Match %s: ignoring stale bot timer for %s", m.id, botID)
		return
	}
	m.botTimer = nil

	if err := m.playBotTurnLocked(botID); err != nil {
		err = fmt.Errorf("%w: %w", ErrBotTurn, err)
		m.logger.Error("Match %s: bot %s turn failed, passing turn: %v", m.id, botID, err)
		m.forceTurnSwitchLocked(botID)
	}
}

// playBotTurnLocked fires one decided shot and, when it sinks a ship, sweeps that
// ship's line. Panics are converted to errors so the match never stalls.
func (m *Match) playBotTurnLocked(botID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bot turn panicked: %v", r)
		}
	}()

	p := m.players[botID]
	opp := m.opponentOf(p)
	if p.agent == nil || opp == nil {
		return fmt.Errorf("bot %s has no agent or opponent", botID)
	}

	decision, err := p.agent.NextShot(opp.Board)
	if err != nil {
		return fmt.Errorf("failed to decide shot: %w", err)
	}
	out, err := m.resolveShotLocked(p, decision.Position)
	if err != nil {
		return fmt.Errorf("failed to resolve shot %d (%s): %w", decision.Position, decision.Rule, err)
	}
	p.agent.Observe(out)
	m.logger.Debug("Match %s: bot %s fired %d via %s, hit=%v", m.id, botID, decision.Position, decision.Rule, out.Hit)

	if out.Sunk && out.Ship != nil && m.botStillActing(botID) {
		err := p.agent.SweepSunkLine(out.Ship.Name, func(pos int) (domain.ShotOutcome, bool, error) {
			res, err := m.resolveShotLocked(p, pos)
			if err != nil {
				return domain.ShotOutcome{}, false, err
			}
			return res, m.botStillActing(botID), nil
		})
		if err != nil {
			return fmt.Errorf("failed to sweep sunk line: %w", err)
		}
	}

	// A hit keeps the turn; resolveShotLocked already rescheduled after a miss.
	if m.botStillActing(botID) && m.botTimer == nil {
		m.scheduleBotTurnLocked()
	}
	return nil
}

func (m *Match) botStillActing(botID string) bool {
	return !m.closed && m.winner == "" && m.phase == PhaseInProgress && m.turn == botID
}

// forceTurnSwitchLocked hands the turn to the other party after a failed bot turn.
func (m *Match) forceTurnSwitchLocked(botID string) {
	if m.closed || m.phase != PhaseInProgress || m.turn != botID {
		return
	}
	p := m.players[botID]
	opp := m.opponentOf(p)
	if opp == nil {
		return
	}
	m.turn = opp.PartyID
	m.broadcast(EventTurnChanged, TurnChangedPayload{Turn: m.turn})
	m.scheduleBotTurnLocked()
}
