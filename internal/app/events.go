package app

import (
	"context"

	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/domain"
)

// EventKind identifies emitted match events for transport dispatch.
type EventKind string

const (
	EventJoined               EventKind = "joined"
	EventWaitingForOpponent   EventKind = "waiting_for_opponent"
	EventPlacementStart       EventKind = "placement_start"
	EventBoardUpdate          EventKind = "board_update" // send privately
	EventReadyCount           EventKind = "ready_count"
	EventPlacementConfirmed   EventKind = "placement_confirmed"
	EventPlacementAutoApplied EventKind = "placement_auto_applied"
	EventMatchStart           EventKind = "match_start"
	EventFireResult           EventKind = "fire_result"
	EventTurnChanged          EventKind = "turn_changed"
	EventMatchEnd             EventKind = "match_end"
	EventSettlementResult     EventKind = "settlement_result"
	EventMatchClosed          EventKind = "match_closed"
	EventErrorNotice          EventKind = "error_notice"
	EventPaymentRequired      EventKind = "payment_required"
	EventJoinCancelled        EventKind = "join_cancelled"
)

// Event is an outbound match event addressed to specific parties.
type Event struct {
	Kind       EventKind
	MatchID    string
	Payload    any
	Recipients []string // party IDs, never empty
}

// Emitter delivers events to parties. Implementations must not call back into a match.
type Emitter interface {
	Emit(ctx context.Context, events []Event) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, events []Event) error

func (f EmitterFunc) Emit(ctx context.Context, events []Event) error {
	return f(ctx, events)
}

// End reasons carried by match_end and match_closed.
const (
	ReasonFleetDestroyed = "fleet_destroyed"
	ReasonForfeit        = "forfeit"
	ReasonCancelled      = "cancelled"
	ReasonConfiguration  = "configuration_error"
	ReasonFinished       = "finished"
	ReasonShutdown       = "shutdown"
)

type JoinedPayload struct {
	MatchID string `json:"matchId"`
	PartyID string `json:"partyId"`
	Bet     int64  `json:"bet"`
}

type WaitingPayload struct {
	Bet int64 `json:"bet"`
}

type ShipSpecView struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

type PlacementStartPayload struct {
	Opponent         string         `json:"opponent"`
	TimeLimitSeconds int            `json:"timeLimitSeconds"`
	GridWidth        int            `json:"gridWidth"`
	GridHeight       int            `json:"gridHeight"`
	Ships            []ShipSpecView `json:"ships"`
}

type ShipView struct {
	Name        string             `json:"name"`
	Positions   []int              `json:"positions"`
	Orientation domain.Orientation `json:"orientation"`
	Hits        int                `json:"hits"`
	Sunk        bool               `json:"sunk"`
}

type BoardUpdatePayload struct {
	ReadyCount int        `json:"readyCount"`
	Grid       []string   `json:"grid"`
	Ships      []ShipView `json:"ships"`
}

type ReadyCountPayload struct {
	ReadyCount int `json:"readyCount"`
}

type PlacementPayload struct {
	Ships []ShipView `json:"ships"`
}

type MatchStartPayload struct {
	Turn string `json:"turn"`
}

type FireResultPayload struct {
	Shooter  string `json:"shooter"`
	Position int    `json:"position"`
	Hit      bool   `json:"hit"`
	Sunk     bool   `json:"sunk"`
	Ship     string `json:"ship,omitempty"` // set only when sunk
}

type TurnChangedPayload struct {
	Turn string `json:"turn"`
}

type MatchEndPayload struct {
	Winner  string `json:"winner"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type SettlementResultPayload struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type MatchClosedPayload struct {
	Reason string `json:"reason"`
}

type ErrorNoticePayload struct {
	Message string `json:"message"`
}

type PaymentRequiredPayload struct {
	InvoiceID        string `json:"invoiceId"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	PaymentRequest   string `json:"paymentRequest,omitempty"`
	ExpiresInSeconds int    `json:"expiresInSeconds"`
}

type JoinCancelledPayload struct {
	InvoiceID string `json:"invoiceId"`
	Reason    string `json:"reason"`
}

func shipViews(ships []*domain.Ship) []ShipView {
	out := make([]ShipView, 0, len(ships))
	for _, s := range ships {
		out = append(out, ShipView{
			Name:        s.Name,
			Positions:   append([]int(nil), s.Positions...),
			Orientation: s.Orientation,
			Hits:        s.Hits,
			Sunk:        s.Sunk,
		})
	}
	return out
}

func cellNames(cells []domain.Cell) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = c.String()
	}
	return out
}
