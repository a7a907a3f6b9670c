package bot

import (
	"errors"
	"fmt"

	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/domain"
)

const maxPlacementAttempts = 100

var ErrPlacementExhausted = errors.New("ship placement exhausted its attempts")

// AutoPlace lays out the fleet in roster order using rng.
// Each ship draws an orientation and an anchor until its span fits on free cells,
// giving up after maxPlacementAttempts.
func AutoPlace(g domain.Grid, fleet []domain.ShipType, rng Random) ([]*domain.Ship, error) {
	occupied := make([]bool, g.Size())
	ships := make([]*domain.Ship, 0, len(fleet))

	for _, st := range fleet {
		placed := false
		for attempt := 0; attempt < maxPlacementAttempts; attempt++ {
			orientation := domain.OrientationHorizontal
			if rng.Float64() >= 0.5 {
				orientation = domain.OrientationVertical
			}
			anchor := rng.Intn(g.Size())

			cells, ok := g.Span(anchor, st.Size, orientation)
			if !ok || anyOccupied(occupied, cells) {
				continue
			}
			for _, c := range cells {
				occupied[c] = true
			}
			ships = append(ships, domain.NewShip(st, cells, orientation))
			placed = true
			break
		}
		if !placed {
			return nil, fmt.Errorf("%w: %s", ErrPlacementExhausted, st.Name)
		}
	}
	return ships, nil
}

func anyOccupied(occupied []bool, cells []int) bool {
	for _, c := range cells {
		if occupied[c] {
			return true
		}
	}
	return false
}
