package domain

import (
	"errors"
	"fmt"
	"sort"
)

var ErrInvalidPlacement = errors.New("invalid ship placement")

// Placement is a client-submitted ship position list.
type Placement struct {
	Name      string `json:"name"`
	Positions []int  `json:"positions"`
}

// PlacementError explains why a placement was rejected.
type PlacementError struct {
	Ship   string
	Reason string
}

func (e *PlacementError) Error() string {
	if e.Ship == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidPlacement, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrInvalidPlacement, e.Ship, e.Reason)
}

func (e *PlacementError) Unwrap() error { return ErrInvalidPlacement }

func placementErr(ship, format string, args ...any) error {
	return &PlacementError{Ship: ship, Reason: fmt.Sprintf(format, args...)}
}

// BuildFleet validates placements against the roster and returns the resulting ships.
// Checks run in order: count, names and sizes, then geometry and overlap. Nothing is
// returned unless every ship is valid.
func BuildFleet(g Grid, roster []ShipType, placements []Placement) ([]*Ship, error) {
	if len(placements) != len(roster) {
		return nil, placementErr("", "expected %d ships, got %d", len(roster), len(placements))
	}

	sizes := make(map[string]int, len(roster))
	for _, st := range roster {
		sizes[st.Name] = st.Size
	}
	used := make(map[string]bool, len(placements))
	for _, p := range placements {
		size, ok := sizes[p.Name]
		if !ok {
			return nil, placementErr(p.Name, "unknown ship")
		}
		if used[p.Name] {
			return nil, placementErr(p.Name, "placed more than once")
		}
		used[p.Name] = true
		if len(p.Positions) != size {
			return nil, placementErr(p.Name, "needs %d cells, got %d", size, len(p.Positions))
		}
	}

	occupied := make(map[int]string)
	ships := make([]*Ship, 0, len(placements))
	for _, p := range placements {
		cells, orientation, err := normalizeSpan(g, p)
		if err != nil {
			return nil, err
		}
		for _, c := range cells {
			if other, taken := occupied[c]; taken {
				return nil, placementErr(p.Name, "overlaps %s at %d", other, c)
			}
			occupied[c] = p.Name
		}
		ships = append(ships, &Ship{
			Name:        p.Name,
			Size:        len(cells),
			Positions:   cells,
			Orientation: orientation,
		})
	}
	return ships, nil
}

// normalizeSpan sorts the cells and checks they form one straight contiguous line.
func normalizeSpan(g Grid, p Placement) ([]int, Orientation, error) {
	cells := append([]int(nil), p.Positions...)
	sort.Ints(cells)
	for _, c := range cells {
		if !g.InBounds(c) {
			return nil, "", placementErr(p.Name, "cell %d out of bounds", c)
		}
	}
	if len(cells) == 1 {
		return cells, OrientationHorizontal, nil
	}

	orientation := g.InferOrientation(cells[0], cells[1])
	if orientation == OrientationUnknown {
		return nil, "", placementErr(p.Name, "cells are not axis-aligned")
	}
	for i := 1; i < len(cells); i++ {
		next, ok := g.Step(cells[i-1], orientation, true)
		if !ok || next != cells[i] {
			return nil, "", placementErr(p.Name, "cells are not contiguous")
		}
	}
	return cells, orientation, nil
}

// NewShip builds a ship from a span the caller already checked.
func NewShip(st ShipType, cells []int, o Orientation) *Ship {
	return &Ship{Name: st.Name, Size: st.Size, Positions: cells, Orientation: o}
}
