package bot

import (
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/domain"
)

// Random is the slice of a generator the bot needs. *random.SeededRandom satisfies it.
type Random interface {
	Float64() float64
	Intn(n int) int
}

// Decision represents the shot chosen by the AI and the rule that produced it.
type Decision struct {
	Position int
	Rule     string
}

// Brain is the interface that all bot firing strategies must implement.
type Brain interface {
	NextShot(opponent *domain.Board) (Decision, error)
	Observe(outcome domain.ShotOutcome)
}
