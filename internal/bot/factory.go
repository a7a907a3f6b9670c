package bot

import (
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/bot/brain"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/domain"
)

// NewAgent creates a bot that fires on grid g with the default rule pipeline.
func NewAgent(id, name string, g domain.Grid, rng Random, tuning Tuning) *Agent {
	memory := brain.NewMemory(g)
	return &Agent{
		ID:        id,
		Name:      name,
		Memory:    memory,
		estimator: brain.NewEstimator(memory),
		rng:       rng,
		rules:     DefaultRules(),
		tuning:    tuning,
	}
}
