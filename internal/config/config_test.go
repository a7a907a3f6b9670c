package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultGameConfigIsValid(t *testing.T) {
	c := DefaultGameConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if got := c.TotalShipCells(); got != 17 {
		t.Fatalf("total ship cells = %d, want 17", got)
	}
	if got := c.Grid().Size(); got != 63 {
		t.Fatalf("grid size = %d, want 63", got)
	}
}

func TestPayoutTable(t *testing.T) {
	c := DefaultGameConfig()
	tests := []struct {
		bet    int64
		winner int64
		fee    int64
	}{
		{300, 500, 100},
		{500, 800, 200},
		{1000, 1700, 300},
		{5000, 8000, 2000},
		{10000, 17000, 3000},
	}
	for _, tt := range tests {
		p, err := c.Payout(tt.bet)
		if err != nil {
			t.Fatalf("payout(%d) error: %v", tt.bet, err)
		}
		if p.Winner != tt.winner || p.PlatformFee != tt.fee {
			t.Fatalf("payout(%d) = %+v, want winner %d fee %d", tt.bet, p, tt.winner, tt.fee)
		}
	}

	if _, err := c.Payout(42); !errors.Is(err, ErrUnknownBetTier) {
		t.Fatalf("payout(42) err = %v, want ErrUnknownBetTier", err)
	}
}

func TestLoadGameConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.json")
	if err := os.WriteFile(path, []byte(`{"placement_timeout_seconds": 30, "forfeit_payout": true}`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	c, err := LoadGameConfig(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if c.PlacementTimeoutSeconds != 30 {
		t.Fatalf("placement timeout = %d, want 30", c.PlacementTimeoutSeconds)
	}
	if !c.ForfeitPayout {
		t.Fatalf("forfeit payout should be enabled")
	}
	if c.GridWidth != 9 || len(c.Ships) != 5 {
		t.Fatalf("defaults lost: %+v", c)
	}
}

func TestLoadGameConfigMissingFile(t *testing.T) {
	if _, err := LoadGameConfig(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *GameConfig)
	}{
		{"empty grid", func(c *GameConfig) { c.GridWidth = 0 }},
		{"no ships", func(c *GameConfig) { c.Ships = nil }},
		{"duplicate ship", func(c *GameConfig) { c.Ships = append(c.Ships, ShipSpec{Name: "Carrier", Size: 5}) }},
		{"ship too long", func(c *GameConfig) { c.Ships[0].Size = 10 }},
		{"roster too large", func(c *GameConfig) { c.GridWidth, c.GridHeight = 5, 3 }},
		{"no tiers", func(c *GameConfig) { c.Tiers = nil }},
		{"tier without payout", func(c *GameConfig) { c.Tiers[0].WinnerPayout = 0 }},
		{"no bot delays", func(c *GameConfig) { c.BotJoinDelaysSeconds = nil }},
		{"inverted thinking range", func(c *GameConfig) { c.BotThinkMinMillis = 5000 }},
		{"bias out of range", func(c *GameConfig) { c.HuntBias = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultGameConfig()
			tt.mutate(c)
			if err := c.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("validate err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoadServerConfig(t *testing.T) {
	t.Setenv("BATTLESHIP_JWT_SECRET", "s3cret")
	t.Setenv("BATTLESHIP_ALLOWED_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("WS_MESSAGE_BURST", "5")

	c, err := LoadServerConfig(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if c.JWTSecret != "s3cret" {
		t.Fatalf("jwt secret = %q", c.JWTSecret)
	}
	if len(c.AllowedOrigins) != 2 {
		t.Fatalf("allowed origins = %v", c.AllowedOrigins)
	}
	if c.MessageBurst != 5 || c.ListenAddr != ":8080" {
		t.Fatalf("unexpected config %+v", c)
	}
}
