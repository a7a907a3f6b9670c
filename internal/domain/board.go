package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPosition = errors.New("position out of bounds")
	ErrAlreadyTried    = errors.New("position already targeted")
)

// Cell is the state of one grid square.
type Cell uint8

const (
	CellWater Cell = iota
	CellShip
	CellHit
	CellMiss
)

func (c Cell) String() string {
	switch c {
	case CellWater:
		return "water"
	case CellShip:
		return "ship"
	case CellHit:
		return "hit"
	case CellMiss:
		return "miss"
	default:
		return fmt.Sprintf("cell(%d)", uint8(c))
	}
}

// ShipType is one entry of the configured fleet roster.
type ShipType struct {
	Name string
	Size int
}

// Ship is a placed ship and its damage.
type Ship struct {
	Name        string
	Size        int
	Positions   []int
	Orientation Orientation
	Hits        int
	Sunk        bool
}

// Board is one player's grid together with the ships on it.
type Board struct {
	Grid  Grid
	Cells []Cell
	Ships []*Ship
}

// NewBoard returns an all-water board.
func NewBoard(g Grid) *Board {
	return &Board{Grid: g, Cells: make([]Cell, g.Size())}
}

// Apply resets the board to water and draws the given ships on it.
func (b *Board) Apply(ships []*Ship) {
	for i := range b.Cells {
		b.Cells[i] = CellWater
	}
	b.Ships = ships
	for _, s := range ships {
		for _, p := range s.Positions {
			b.Cells[p] = CellShip
		}
	}
}

// ShipAt returns the ship covering pos, or nil.
func (b *Board) ShipAt(pos int) *Ship {
	for _, s := range b.Ships {
		for _, p := range s.Positions {
			if p == pos {
				return s
			}
		}
	}
	return nil
}

// Tried reports whether pos was already fired at.
func (b *Board) Tried(pos int) bool {
	if !b.Grid.InBounds(pos) {
		return false
	}
	c := b.Cells[pos]
	return c == CellHit || c == CellMiss
}

// ShotOutcome describes the resolution of a single shot.
type ShotOutcome struct {
	Position int
	Hit      bool
	// Ship is set on a hit.
	Ship *Ship
	Sunk bool
}

// ReceiveShot resolves a shot against the board, marking the cell and damaging the ship.
func (b *Board) ReceiveShot(pos int) (ShotOutcome, error) {
	if !b.Grid.InBounds(pos) {
		return ShotOutcome{}, fmt.Errorf("%w: %d", ErrInvalidPosition, pos)
	}
	switch b.Cells[pos] {
	case CellHit, CellMiss:
		return ShotOutcome{}, fmt.Errorf("%w: %d", ErrAlreadyTried, pos)
	case CellShip:
		b.Cells[pos] = CellHit
		out := ShotOutcome{Position: pos, Hit: true}
		if s := b.ShipAt(pos); s != nil {
			s.Hits++
			if s.Hits >= s.Size {
				s.Sunk = true
			}
			out.Ship = s
			out.Sunk = s.Sunk
		}
		return out, nil
	default:
		b.Cells[pos] = CellMiss
		return ShotOutcome{Position: pos}, nil
	}
}

// RemainingShipCells lists ship cells not hit yet, in index order.
func (b *Board) RemainingShipCells() []int {
	var out []int
	for i, c := range b.Cells {
		if c == CellShip {
			out = append(out, i)
		}
	}
	return out
}

// OccupiedCells counts cells covered by ships, hit or not.
func (b *Board) OccupiedCells() int {
	n := 0
	for _, c := range b.Cells {
		if c == CellShip || c == CellHit {
			n++
		}
	}
	return n
}

// Masked returns the board as the opponent sees it, with intact ship cells shown as water.
func (b *Board) Masked() []Cell {
	out := make([]Cell, len(b.Cells))
	for i, c := range b.Cells {
		if c == CellShip {
			out[i] = CellWater
			continue
		}
		out[i] = c
	}
	return out
}
