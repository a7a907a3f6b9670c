package bot

import (
	"errors"
	"fmt"

	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/bot/brain"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/domain"
)

var ErrNoTarget = errors.New("no untried cell left to fire at")

// Agent represents an autonomous opponent.
type Agent struct {
	ID     string
	Name   string
	Memory *brain.GameMemory

	estimator *brain.Estimator
	rng       Random
	rules     []Rule
	tuning    Tuning
}

var _ Brain = (*Agent)(nil)

// NextShot runs the rule pipeline and returns the first position chosen.
func (a *Agent) NextShot(opponent *domain.Board) (Decision, error) {
	ctx := &TargetContext{
		Memory:    a.Memory,
		Estimator: a.estimator,
		Opponent:  opponent,
		RNG:       a.rng,
		Tuning:    a.tuning,
	}
	for _, rule := range a.rules {
		if pos, ok := rule.Pick(ctx); ok {
			if a.Memory.IsTried(pos) {
				return Decision{}, fmt.Errorf("rule %s picked tried cell %d", rule.Name(), pos)
			}
			return Decision{Position: pos, Rule: rule.Name()}, nil
		}
	}
	return Decision{}, ErrNoTarget
}

// Observe feeds a resolved shot back into memory.
func (a *Agent) Observe(outcome domain.ShotOutcome) {
	if outcome.Hit && outcome.Ship != nil {
		a.Memory.RecordHit(outcome.Position, outcome.Ship.Name, outcome.Sunk)
		return
	}
	if outcome.Hit {
		a.Memory.RecordHit(outcome.Position, "", outcome.Sunk)
		return
	}
	a.Memory.RecordMiss(outcome.Position)
}

// FireFunc resolves a shot for the agent. It reports false once the match has ended.
type FireFunc func(pos int) (domain.ShotOutcome, bool, error)

// SweepSunkLine keeps firing along the axis of a ship the agent just sank:
// forward past its far end, then backward past its near end. The sweep stops at the
// first shot that is not a hit, or when the match ends.
func (a *Agent) SweepSunkLine(ship string, fire FireFunc) error {
	rec := a.Memory.Target(ship)
	if rec == nil || !rec.Sunk || rec.Orientation == domain.OrientationUnknown {
		return nil
	}
	line := rec.Line()
	ends := []struct {
		from    int
		forward bool
	}{
		{line[len(line)-1], true},
		{line[0], false},
	}

	for _, end := range ends {
		cursor := end.from
		for {
			next, ok := a.estimator.NextAlongLine(cursor, rec.Orientation, end.forward)
			if !ok {
				break
			}
			out, live, err := fire(next)
			if err != nil {
				return err
			}
			a.Observe(out)
			if !live || !out.Hit {
				return nil
			}
			cursor = next
		}
	}
	return nil
}
