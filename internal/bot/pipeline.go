package bot

import (
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/bot/brain"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/domain"
)

// TargetContext holds the state one firing decision is made from.
type TargetContext struct {
	Memory    *brain.GameMemory
	Estimator *brain.Estimator
	// Opponent is the real board. Only the sweep and hunt-bias rules read its ships.
	Opponent *domain.Board
	RNG      Random
	Tuning   Tuning
}

// Rule is one step of the firing pipeline. Rules are evaluated in order and the
// first one that returns a position wins.
type Rule interface {
	Name() string
	Pick(ctx *TargetContext) (int, bool)
}

// DefaultRules returns the pipeline in priority order: sweep, destroy, target, hunt.
func DefaultRules() []Rule {
	return []Rule{&SweepRule{}, &DestroyRule{}, &TargetRule{}, &HuntRule{}}
}

// SweepRule fires at a remaining ship cell once few enough are left.
type SweepRule struct{}

func (r *SweepRule) Name() string { return "sweep" }

func (r *SweepRule) Pick(ctx *TargetContext) (int, bool) {
	remaining := untriedShipCells(ctx)
	if len(remaining) == 0 || len(remaining) > ctx.Tuning.SweepThreshold {
		return -1, false
	}
	return remaining[ctx.RNG.Intn(len(remaining))], true
}

// DestroyRule extends the hit-line of a target whose orientation is known.
type DestroyRule struct{}

func (r *DestroyRule) Name() string { return "destroy" }

func (r *DestroyRule) Pick(ctx *TargetContext) (int, bool) {
	for _, t := range ctx.Memory.ActiveTargets() {
		if pos, ok := ctx.Estimator.ExtendLine(t); ok {
			return pos, true
		}
	}
	return -1, false
}

// TargetRule works the queue of cells adjacent to confirmed hits.
type TargetRule struct{}

func (r *TargetRule) Name() string { return "target" }

func (r *TargetRule) Pick(ctx *TargetContext) (int, bool) {
	for _, t := range ctx.Memory.ActiveTargets() {
		if pos, ok := t.NextPending(ctx.Memory.IsTried); ok {
			return pos, true
		}
	}
	return -1, false
}

// HuntRule picks a random untried cell, occasionally biased toward a ship.
type HuntRule struct{}

func (r *HuntRule) Name() string { return "hunt" }

func (r *HuntRule) Pick(ctx *TargetContext) (int, bool) {
	untried := ctx.Memory.Untried()
	if len(untried) == 0 {
		return -1, false
	}
	if ctx.RNG.Float64() < ctx.Tuning.HuntBias {
		if ships := untriedShipCells(ctx); len(ships) > 0 {
			return ships[ctx.RNG.Intn(len(ships))], true
		}
	}
	return untried[ctx.RNG.Intn(len(untried))], true
}

func untriedShipCells(ctx *TargetContext) []int {
	if ctx.Opponent == nil {
		return nil
	}
	var out []int
	for _, pos := range ctx.Opponent.RemainingShipCells() {
		if !ctx.Memory.IsTried(pos) {
			out = append(out, pos)
		}
	}
	return out
}
