package brain

import (
	"sort"

	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/domain"
)

// TargetRecord tracks a ship the bot has hit but not necessarily sunk.
type TargetRecord struct {
	ShipName    string
	Hits        []int
	Orientation domain.Orientation
	// Pending holds cells orthogonally adjacent to the hits, in discovery order.
	Pending []int
	Sunk    bool
}

// NewTargetRecord initializes a record for a newly hit ship.
func NewTargetRecord(ship string) *TargetRecord {
	return &TargetRecord{ShipName: ship}
}

// Enqueue adds pos to the pending queue unless it is already queued.
func (t *TargetRecord) Enqueue(pos int) {
	for _, p := range t.Pending {
		if p == pos {
			return
		}
	}
	t.Pending = append(t.Pending, pos)
}

// NextPending pops queued cells until it finds one that has not been tried.
func (t *TargetRecord) NextPending(tried func(int) bool) (int, bool) {
	for len(t.Pending) > 0 {
		pos := t.Pending[0]
		t.Pending = t.Pending[1:]
		if !tried(pos) {
			return pos, true
		}
	}
	return -1, false
}

// Line returns the hits sorted along the ship axis.
func (t *TargetRecord) Line() []int {
	line := append([]int(nil), t.Hits...)
	sort.Ints(line)
	return line
}
