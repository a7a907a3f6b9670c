package app

import (
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/bot"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/domain"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/random"
)

// Player holds state for one party of a match.
type Player struct {
	PartyID string
	// Identity is the opaque wager account reference payouts are sent to.
	Identity  string
	IsBot     bool
	Board     *domain.Board
	Ready     bool
	Connected bool
	// Hits counts this player's successful shots on the opponent.
	Hits  int
	Shots []ShotRecord

	rng   *random.SeededRandom
	agent *bot.Agent
}

// ShotRecord is one entry of a player's shot log.
type ShotRecord struct {
	Position int
	Hit      bool
	Sunk     bool
	Ship     string
}

// MatchView is a viewer-specific projection of a match.
type MatchView struct {
	MatchID  string      `json:"matchId"`
	Bet      int64       `json:"bet"`
	Phase    string      `json:"phase"`
	Turn     string      `json:"turn,omitempty"`
	Winner   string      `json:"winner,omitempty"`
	You      *PlayerView `json:"you,omitempty"`
	Opponent *PlayerView `json:"opponent,omitempty"`
}

type PlayerView struct {
	PartyID string     `json:"partyId"`
	IsBot   bool       `json:"isBot"`
	Ready   bool       `json:"ready"`
	Hits    int        `json:"hits"`
	Grid    []string   `json:"grid"`
	Ships   []ShipView `json:"ships"`
}

func (p *Player) ownView() *PlayerView {
	return &PlayerView{
		PartyID: p.PartyID,
		IsBot:   p.IsBot,
		Ready:   p.Ready,
		Hits:    p.Hits,
		Grid:    cellNames(p.Board.Cells),
		Ships:   shipViews(p.Board.Ships),
	}
}

// opponentView hides intact ship cells and reveals only sunk ships.
func (p *Player) opponentView() *PlayerView {
	var sunk []*domain.Ship
	for _, s := range p.Board.Ships {
		if s.Sunk {
			sunk = append(sunk, s)
		}
	}
	return &PlayerView{
		PartyID: p.PartyID,
		Ready:   p.Ready,
		Hits:    p.Hits,
		Grid:    cellNames(p.Board.Masked()),
		Ships:   shipViews(sunk),
	}
}
