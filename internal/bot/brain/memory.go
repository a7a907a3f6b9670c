package brain

import (
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/domain"
)

// CellStatus represents what the bot knows about a cell of the opponent grid.
type CellStatus int

const (
	StatusUnknown CellStatus = iota // Not fired at yet
	StatusMiss
	StatusHit
	StatusSunk // Hit and part of a ship known to be sunk
)

// GameMemory stores the bot's private view of the opponent grid.
type GameMemory struct {
	Grid  domain.Grid
	Cells []CellStatus
	// Shots is every position fired at, in order.
	Shots []int
	// Targets holds one record per ship the bot has hit, in order of first hit.
	Targets []*TargetRecord
}

// NewMemory initializes a fresh memory state.
func NewMemory(g domain.Grid) *GameMemory {
	return &GameMemory{
		Grid:  g,
		Cells: make([]CellStatus, g.Size()),
	}
}

// IsTried reports whether the bot already fired at pos. Out-of-bounds cells count as tried.
func (m *GameMemory) IsTried(pos int) bool {
	if !m.Grid.InBounds(pos) {
		return true
	}
	return m.Cells[pos] != StatusUnknown
}

// Untried lists every cell not fired at yet, in index order.
func (m *GameMemory) Untried() []int {
	out := make([]int, 0, len(m.Cells)-len(m.Shots))
	for i, s := range m.Cells {
		if s == StatusUnknown {
			out = append(out, i)
		}
	}
	return out
}

// RecordMiss marks pos as water.
func (m *GameMemory) RecordMiss(pos int) {
	if m.IsTried(pos) {
		return
	}
	m.Cells[pos] = StatusMiss
	m.Shots = append(m.Shots, pos)
}

// RecordHit marks pos as a hit on ship and updates that ship's target record.
// On the second hit the record's orientation is inferred from the two positions.
func (m *GameMemory) RecordHit(pos int, ship string, sunk bool) *TargetRecord {
	if m.IsTried(pos) {
		return m.Target(ship)
	}
	m.Cells[pos] = StatusHit
	m.Shots = append(m.Shots, pos)

	rec := m.Target(ship)
	if rec == nil {
		rec = NewTargetRecord(ship)
		m.Targets = append(m.Targets, rec)
	}
	rec.Hits = append(rec.Hits, pos)
	if len(rec.Hits) == 2 && rec.Orientation == domain.OrientationUnknown {
		rec.Orientation = m.Grid.InferOrientation(rec.Hits[0], rec.Hits[1])
	}
	for _, n := range m.Grid.Neighbors(pos) {
		if !m.IsTried(n) {
			rec.Enqueue(n)
		}
	}

	if sunk {
		rec.Sunk = true
		rec.Pending = nil
		for _, h := range rec.Hits {
			m.Cells[h] = StatusSunk
		}
	}
	return rec
}

// Target returns the record for ship, or nil when it was never hit.
func (m *GameMemory) Target(ship string) *TargetRecord {
	for _, t := range m.Targets {
		if t.ShipName == ship {
			return t
		}
	}
	return nil
}

// ActiveTargets returns the hit-but-unsunk ships, oldest first.
func (m *GameMemory) ActiveTargets() []*TargetRecord {
	var out []*TargetRecord
	for _, t := range m.Targets {
		if !t.Sunk {
			out = append(out, t)
		}
	}
	return out
}
