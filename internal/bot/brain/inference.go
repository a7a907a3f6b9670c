package brain

import (
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/domain"
)

// Estimator answers line questions about a target using memory.
type Estimator struct {
	Memory *GameMemory
}

// NewEstimator creates a new reasoning engine.
func NewEstimator(m *GameMemory) *Estimator {
	return &Estimator{Memory: m}
}

// ExtendLine picks the next untried cell on the target's known axis.
// Gaps between known hits come first, then the cell past the far end, then the cell before the near end.
func (e *Estimator) ExtendLine(t *TargetRecord) (int, bool) {
	if t == nil || t.Sunk || t.Orientation == domain.OrientationUnknown || len(t.Hits) == 0 {
		return -1, false
	}
	line := t.Line()
	g := e.Memory.Grid

	for pos := line[0]; pos != line[len(line)-1]; {
		next, ok := g.Step(pos, t.Orientation, true)
		if !ok {
			break
		}
		if !e.Memory.IsTried(next) {
			return next, true
		}
		pos = next
	}

	if next, ok := e.NextAlongLine(line[len(line)-1], t.Orientation, true); ok {
		return next, true
	}
	return e.NextAlongLine(line[0], t.Orientation, false)
}

// NextAlongLine returns the cell adjacent to from along o if it is on the grid and untried.
func (e *Estimator) NextAlongLine(from int, o domain.Orientation, forward bool) (int, bool) {
	next, ok := e.Memory.Grid.Step(from, o, forward)
	if !ok || e.Memory.IsTried(next) {
		return -1, false
	}
	return next, true
}
