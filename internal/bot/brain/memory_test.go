package brain

import (
	"testing"

	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/domain"
)

var grid = domain.Grid{Width: 9, Height: 7}

func TestGameMemory(t *testing.T) {
	m := NewMemory(grid)

	if got := len(m.Untried()); got != 63 {
		t.Fatalf("untried = %d, want 63", got)
	}

	m.RecordMiss(0)
	if !m.IsTried(0) || m.Cells[0] != StatusMiss {
		t.Fatalf("cell 0 should be a miss")
	}
	if !m.IsTried(-1) || !m.IsTried(63) {
		t.Fatalf("out of bounds cells count as tried")
	}

	rec := m.RecordHit(10, "Cruiser", false)
	if rec == nil || rec.ShipName != "Cruiser" {
		t.Fatalf("expected a cruiser record, got %+v", rec)
	}
	if len(rec.Pending) != 4 {
		t.Fatalf("pending = %v, want the 4 neighbors of 10", rec.Pending)
	}
	m.RecordHit(40, "Destroyer", false)
	if active := m.ActiveTargets(); len(active) != 2 || active[0] != rec {
		t.Fatalf("active targets = %+v, want cruiser first", active)
	}
}

func TestOrientationInference(t *testing.T) {
	tests := []struct {
		name   string
		hits   [2]int
		expect domain.Orientation
	}{
		{"same row", [2]int{20, 21}, domain.OrientationHorizontal},
		{"same row reversed", [2]int{22, 21}, domain.OrientationHorizontal},
		{"same column", [2]int{20, 29}, domain.OrientationVertical},
		{"same column gap", [2]int{2, 20}, domain.OrientationVertical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMemory(grid)
			rec := m.RecordHit(tt.hits[0], "Battleship", false)
			if rec.Orientation != domain.OrientationUnknown {
				t.Fatalf("orientation known after one hit")
			}
			m.RecordHit(tt.hits[1], "Battleship", false)
			if rec.Orientation != tt.expect {
				t.Fatalf("orientation = %q, want %q", rec.Orientation, tt.expect)
			}
		})
	}
}

func TestSunkClearsTarget(t *testing.T) {
	m := NewMemory(grid)
	m.RecordHit(30, "Destroyer", false)
	rec := m.RecordHit(31, "Destroyer", true)
	if !rec.Sunk || len(rec.Pending) != 0 {
		t.Fatalf("sunk record = %+v", rec)
	}
	if len(m.ActiveTargets()) != 0 {
		t.Fatalf("no active target expected after sinking")
	}
	if m.Cells[30] != StatusSunk || m.Cells[31] != StatusSunk {
		t.Fatalf("sunk cells not marked")
	}
}

func TestNextPendingSkipsTried(t *testing.T) {
	m := NewMemory(grid)
	rec := m.RecordHit(10, "Cruiser", false)
	m.RecordMiss(rec.Pending[0])
	m.RecordMiss(rec.Pending[1])

	pos, ok := rec.NextPending(m.IsTried)
	if !ok || m.IsTried(pos) {
		t.Fatalf("NextPending returned %d, %v", pos, ok)
	}
}

func TestExtendLine(t *testing.T) {
	m := NewMemory(grid)
	e := NewEstimator(m)

	m.RecordHit(20, "Carrier", false)
	rec := m.RecordHit(21, "Carrier", false)
	if pos, ok := e.ExtendLine(rec); !ok || pos != 22 {
		t.Fatalf("extend = %d, %v, want 22", pos, ok)
	}

	m.RecordMiss(22)
	if pos, ok := e.ExtendLine(rec); !ok || pos != 19 {
		t.Fatalf("extend after far miss = %d, %v, want 19", pos, ok)
	}

	m.RecordHit(24, "Carrier", false)
	if pos, ok := e.ExtendLine(rec); !ok || pos != 23 {
		t.Fatalf("gap between hits should be filled first, got %d, %v", pos, ok)
	}
}

func TestExtendLineStopsAtEdge(t *testing.T) {
	m := NewMemory(grid)
	e := NewEstimator(m)
	m.RecordHit(7, "Destroyer", false)
	rec := m.RecordHit(8, "Destroyer", false)
	if pos, ok := e.ExtendLine(rec); !ok || pos != 6 {
		t.Fatalf("extend at right edge = %d, %v, want 6", pos, ok)
	}
}
