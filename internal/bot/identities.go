package bot

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// BotPartyPrefix marks party ids that belong to automated opponents.
const BotPartyPrefix = "bot-"

type BotIdentity struct {
	DisplayName string `json:"display_name"`
	// Account is the wager account reference reported for the bot. Bots never receive payouts.
	Account string `json:"account"`
}

// Identities is the pool of names bots are given when they join a match.
type Identities struct {
	pool []BotIdentity
}

// DefaultIdentities returns the built-in pool.
func DefaultIdentities() *Identities {
	return &Identities{pool: []BotIdentity{
		{DisplayName: "Admiral Byte", Account: "house"},
		{DisplayName: "Captain Kelp", Account: "house"},
		{DisplayName: "Commodore Null", Account: "house"},
		{DisplayName: "Ensign Static", Account: "house"},
	}}
}

// LoadIdentities loads the bot profiles from the given path.
func LoadIdentities(path string) (*Identities, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bot identities: %w", err)
	}

	var pool []BotIdentity
	if err := json.Unmarshal(data, &pool); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bot identities: %w", err)
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("bot identities file %s is empty", path)
	}
	return &Identities{pool: pool}, nil
}

// Get returns an identity by index (mod pool size).
func (i *Identities) Get(index int) BotIdentity {
	if i == nil || len(i.pool) == 0 {
		return BotIdentity{
			DisplayName: fmt.Sprintf("AI Player %d", index),
			Account:     "house",
		}
	}
	if index < 0 {
		index = -index
	}
	return i.pool[index%len(i.pool)]
}

func (i *Identities) Len() int {
	if i == nil {
		return 0
	}
	return len(i.pool)
}

// NewPartyID returns a fresh bot party id.
func NewPartyID() string {
	return BotPartyPrefix + uuid.NewString()
}

// IsBot reports whether the given party id belongs to a bot.
func IsBot(partyID string) bool {
	return strings.HasPrefix(partyID, BotPartyPrefix)
}
