package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/domain"
)

var (
	ErrUnknownBetTier = errors.New("unknown bet tier")
	ErrInvalidConfig  = errors.New("invalid game config")
)

// ShipSpec names one ship of the fleet roster.
type ShipSpec struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// BetTier is an accepted stake together with its payout split.
type BetTier struct {
	ID           string `json:"id"`
	Amount       int64  `json:"amount"`
	WinnerPayout int64  `json:"winner_payout"`
	PlatformFee  int64  `json:"platform_fee"`
}

// Payout is what a human winner and the platform receive for one tier.
type Payout struct {
	Winner      int64
	PlatformFee int64
}

type GameConfig struct {
	GridWidth  int        `json:"grid_width"`
	GridHeight int        `json:"grid_height"`
	Ships      []ShipSpec `json:"ships"`
	Tiers      []BetTier  `json:"tiers"`

	Currency        string `json:"currency"`
	PlatformAccount string `json:"platform_account"`

	PlacementTimeoutSeconds int `json:"placement_timeout_seconds"`
	// PlacementGraceMillis delays the placement phase after the second player joins.
	PlacementGraceMillis  int   `json:"placement_grace_millis"`
	BotJoinDelaysSeconds  []int `json:"bot_join_delays_seconds"`
	BotThinkMinMillis     int   `json:"bot_think_min_millis"`
	BotThinkMaxMillis     int   `json:"bot_think_max_millis"`
	PaymentTimeoutSeconds int   `json:"payment_timeout_seconds"`

	HuntBias       float64 `json:"hunt_bias"`
	SweepThreshold int     `json:"sweep_threshold"`

	// ForfeitPayout settles a mid-game disconnect in favour of the remaining human.
	ForfeitPayout         bool `json:"forfeit_payout"`
	MaxSettlementAttempts int  `json:"max_settlement_attempts"`
}

// DefaultGameConfig returns the production roster, tiers and timings.
func DefaultGameConfig() *GameConfig {
	return &GameConfig{
		GridWidth:  9,
		GridHeight: 7,
		Ships: []ShipSpec{
			{Name: "Carrier", Size: 5},
			{Name: "Battleship", Size: 4},
			{Name: "Cruiser", Size: 3},
			{Name: "Submarine", Size: 3},
			{Name: "Destroyer", Size: 2},
		},
		Tiers: []BetTier{
			{ID: "bronze", Amount: 300, WinnerPayout: 500, PlatformFee: 100},
			{ID: "silver", Amount: 500, WinnerPayout: 800, PlatformFee: 200},
			{ID: "gold", Amount: 1000, WinnerPayout: 1700, PlatformFee: 300},
			{ID: "platinum", Amount: 5000, WinnerPayout: 8000, PlatformFee: 2000},
			{ID: "diamond", Amount: 10000, WinnerPayout: 17000, PlatformFee: 3000},
		},
		Currency:                "SATS",
		PlatformAccount:         "platform",
		PlacementTimeoutSeconds: 45,
		PlacementGraceMillis:    500,
		BotJoinDelaysSeconds:    []int{8, 10, 13, 15},
		BotThinkMinMillis:       1000,
		BotThinkMaxMillis:       3000,
		PaymentTimeoutSeconds:   300,
		HuntBias:                0.1,
		SweepThreshold:          3,
		MaxSettlementAttempts:   3,
	}
}

// LoadGameConfig reads a JSON file over the defaults, so a file only needs the keys it changes.
func LoadGameConfig(path string) (*GameConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read game config: %w", err)
	}

	c := DefaultGameConfig()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate reports the first inconsistency that would make matches unplayable.
func (c *GameConfig) Validate() error {
	if c.GridWidth <= 0 || c.GridHeight <= 0 {
		return fmt.Errorf("%w: grid %dx%d", ErrInvalidConfig, c.GridWidth, c.GridHeight)
	}
	if len(c.Ships) == 0 {
		return fmt.Errorf("%w: empty ship roster", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(c.Ships))
	for _, s := range c.Ships {
		if s.Name == "" || s.Size <= 0 {
			return fmt.Errorf("%w: bad ship %q size %d", ErrInvalidConfig, s.Name, s.Size)
		}
		if s.Size > c.GridWidth && s.Size > c.GridHeight {
			return fmt.Errorf("%w: ship %s does not fit the grid", ErrInvalidConfig, s.Name)
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: duplicate ship %s", ErrInvalidConfig, s.Name)
		}
		seen[s.Name] = true
	}
	if c.TotalShipCells() > c.GridWidth*c.GridHeight {
		return fmt.Errorf("%w: roster larger than grid", ErrInvalidConfig)
	}
	if len(c.Tiers) == 0 {
		return fmt.Errorf("%w: no bet tiers", ErrInvalidConfig)
	}
	for _, t := range c.Tiers {
		if t.Amount <= 0 || t.WinnerPayout <= 0 || t.PlatformFee < 0 {
			return fmt.Errorf("%w: tier %d has no payout", ErrInvalidConfig, t.Amount)
		}
	}
	if len(c.BotJoinDelaysSeconds) == 0 {
		return fmt.Errorf("%w: no bot join delays", ErrInvalidConfig)
	}
	if c.BotThinkMinMillis < 0 || c.BotThinkMinMillis > c.BotThinkMaxMillis {
		return fmt.Errorf("%w: bot thinking range %d..%d", ErrInvalidConfig, c.BotThinkMinMillis, c.BotThinkMaxMillis)
	}
	if c.HuntBias < 0 || c.HuntBias > 1 {
		return fmt.Errorf("%w: hunt bias %v", ErrInvalidConfig, c.HuntBias)
	}
	return nil
}

func (c *GameConfig) Grid() domain.Grid {
	return domain.Grid{Width: c.GridWidth, Height: c.GridHeight}
}

// Fleet returns the roster as domain ship types, in configured order.
func (c *GameConfig) Fleet() []domain.ShipType {
	out := make([]domain.ShipType, 0, len(c.Ships))
	for _, s := range c.Ships {
		out = append(out, domain.ShipType{Name: s.Name, Size: s.Size})
	}
	return out
}

func (c *GameConfig) TotalShipCells() int {
	total := 0
	for _, s := range c.Ships {
		total += s.Size
	}
	return total
}

// Tier returns the tier accepting the given stake.
func (c *GameConfig) Tier(amount int64) (BetTier, error) {
	for _, t := range c.Tiers {
		if t.Amount == amount {
			return t, nil
		}
	}
	return BetTier{}, fmt.Errorf("%w: %d", ErrUnknownBetTier, amount)
}

// Payout looks up the payout table for a stake.
func (c *GameConfig) Payout(amount int64) (Payout, error) {
	t, err := c.Tier(amount)
	if err != nil {
		return Payout{}, err
	}
	return Payout{Winner: t.WinnerPayout, PlatformFee: t.PlatformFee}, nil
}

func (c *GameConfig) PlacementTimeout() time.Duration {
	return time.Duration(c.PlacementTimeoutSeconds) * time.Second
}

func (c *GameConfig) PlacementGrace() time.Duration {
	return time.Duration(c.PlacementGraceMillis) * time.Millisecond
}

func (c *GameConfig) PaymentTimeout() time.Duration {
	return time.Duration(c.PaymentTimeoutSeconds) * time.Second
}

func (c *GameConfig) BotJoinDelays() []time.Duration {
	out := make([]time.Duration, 0, len(c.BotJoinDelaysSeconds))
	for _, s := range c.BotJoinDelaysSeconds {
		out = append(out, time.Duration(s)*time.Second)
	}
	return out
}

// BotThinkRange returns the min and max delay before a bot shot.
func (c *GameConfig) BotThinkRange() (time.Duration, time.Duration) {
	return time.Duration(c.BotThinkMinMillis) * time.Millisecond, time.Duration(c.BotThinkMaxMillis) * time.Millisecond
}
