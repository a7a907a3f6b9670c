package bot

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/domain"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/random"
)

var (
	testGrid  = domain.Grid{Width: 9, Height: 7}
	testFleet = []domain.ShipType{
		{Name: "Carrier", Size: 5},
		{Name: "Battleship", Size: 4},
		{Name: "Cruiser", Size: 3},
		{Name: "Submarine", Size: 3},
		{Name: "Destroyer", Size: 2},
	}
)

// fixedRandom replays a scripted sequence, repeating the last value.
type fixedRandom struct {
	floats []float64
	ints   []int
}

func (r *fixedRandom) Float64() float64 {
	v := r.floats[0]
	if len(r.floats) > 1 {
		r.floats = r.floats[1:]
	}
	return v
}

func (r *fixedRandom) Intn(n int) int {
	v := r.ints[0]
	if len(r.ints) > 1 {
		r.ints = r.ints[1:]
	}
	return v % n
}

func placementsOf(ships []*domain.Ship) []domain.Placement {
	out := make([]domain.Placement, 0, len(ships))
	for _, s := range ships {
		out = append(out, domain.Placement{Name: s.Name, Positions: s.Positions})
	}
	return out
}

func TestAutoPlaceProducesValidFleet(t *testing.T) {
	for seed := uint32(0); seed < 200; seed++ {
		ships, err := AutoPlace(testGrid, testFleet, random.New(seed))
		if err != nil {
			t.Fatalf("seed %d: autoplace error: %v", seed, err)
		}
		if _, err := domain.BuildFleet(testGrid, testFleet, placementsOf(ships)); err != nil {
			t.Fatalf("seed %d: autoplaced fleet is invalid: %v", seed, err)
		}
		b := domain.NewBoard(testGrid)
		b.Apply(ships)
		if got := b.OccupiedCells(); got != 17 {
			t.Fatalf("seed %d: occupied = %d, want 17", seed, got)
		}
	}
}

func TestAutoPlaceIsDeterministic(t *testing.T) {
	a, err := AutoPlace(testGrid, testFleet, random.New(4242))
	if err != nil {
		t.Fatalf("autoplace error: %v", err)
	}
	b, err := AutoPlace(testGrid, testFleet, random.New(4242))
	if err != nil {
		t.Fatalf("autoplace error: %v", err)
	}
	if !reflect.DeepEqual(placementsOf(a), placementsOf(b)) {
		t.Fatalf("same seed produced different fleets:\n%v\n%v", placementsOf(a), placementsOf(b))
	}
}

func TestAutoPlaceExhausted(t *testing.T) {
	// A 2x2 grid cannot hold a ship of size 5.
	_, err := AutoPlace(domain.Grid{Width: 2, Height: 2}, testFleet[:1], random.New(1))
	if !errors.Is(err, ErrPlacementExhausted) {
		t.Fatalf("err = %v, want ErrPlacementExhausted", err)
	}
}

func newBoard(t *testing.T, seed uint32) *domain.Board {
	t.Helper()
	ships, err := AutoPlace(testGrid, testFleet, random.New(seed))
	if err != nil {
		t.Fatalf("autoplace error: %v", err)
	}
	b := domain.NewBoard(testGrid)
	b.Apply(ships)
	return b
}

func TestAgentNeverRepeatsAShot(t *testing.T) {
	for seed := uint32(1); seed <= 25; seed++ {
		board := newBoard(t, seed)
		agent := NewAgent("bot-1", "Admiral", testGrid, random.New(seed*7), DefaultTuning)

		seen := make(map[int]bool)
		hits := 0
		for shots := 0; hits < 17; shots++ {
			if shots > testGrid.Size() {
				t.Fatalf("seed %d: more shots than cells", seed)
			}
			dec, err := agent.NextShot(board)
			if err != nil {
				t.Fatalf("seed %d: next shot error: %v", seed, err)
			}
			if seen[dec.Position] {
				t.Fatalf("seed %d: repeated shot at %d (rule %s)", seed, dec.Position, dec.Rule)
			}
			seen[dec.Position] = true

			out, err := board.ReceiveShot(dec.Position)
			if err != nil {
				t.Fatalf("seed %d: receive shot error: %v", seed, err)
			}
			agent.Observe(out)
			if out.Hit {
				hits++
			}
			if len(agent.Memory.Shots) != len(seen) {
				t.Fatalf("tried set must grow by exactly one per shot")
			}
		}
	}
}

func TestRulePriority(t *testing.T) {
	board := domain.NewBoard(testGrid)
	ships, err := domain.BuildFleet(testGrid, testFleet, []domain.Placement{
		{Name: "Carrier", Positions: []int{0, 1, 2, 3, 4}},
		{Name: "Battleship", Positions: []int{9, 10, 11, 12}},
		{Name: "Cruiser", Positions: []int{18, 19, 20}},
		{Name: "Submarine", Positions: []int{27, 28, 29}},
		{Name: "Destroyer", Positions: []int{36, 37}},
	})
	if err != nil {
		t.Fatalf("build fleet error: %v", err)
	}
	board.Apply(ships)

	rng := &fixedRandom{floats: []float64{0.99}, ints: []int{0}}
	agent := NewAgent("bot-1", "Admiral", testGrid, rng, DefaultTuning)

	fire := func(pos int) domain.ShotOutcome {
		out, err := board.ReceiveShot(pos)
		if err != nil {
			t.Fatalf("receive shot %d: %v", pos, err)
		}
		agent.Observe(out)
		return out
	}

	// Nothing hit yet: hunt picks the first untried cell.
	dec, err := agent.NextShot(board)
	if err != nil || dec.Rule != "hunt" || dec.Position != 0 {
		t.Fatalf("first decision = %+v, %v", dec, err)
	}
	fire(dec.Position)

	// One hit, no orientation: follow the adjacent queue.
	dec, _ = agent.NextShot(board)
	if dec.Rule != "target" {
		t.Fatalf("after one hit rule = %s, want target", dec.Rule)
	}
	if dec.Position != 9 {
		t.Fatalf("target position = %d, want 9 (down from 0)", dec.Position)
	}
	fire(dec.Position)

	// 9 is the battleship; the carrier target still has queued neighbor 1.
	dec, _ = agent.NextShot(board)
	if dec.Rule != "target" || dec.Position != 1 {
		t.Fatalf("decision = %+v, want target at 1", dec)
	}
	fire(dec.Position)

	// Two carrier hits in the same row: destroy extends the line.
	dec, _ = agent.NextShot(board)
	if dec.Rule != "destroy" || dec.Position != 2 {
		t.Fatalf("decision = %+v, want destroy at 2", dec)
	}
	if agent.Memory.Target("Carrier").Orientation != domain.OrientationHorizontal {
		t.Fatalf("carrier orientation should be horizontal")
	}
}

func TestSweepRuleNearEndgame(t *testing.T) {
	board := newBoard(t, 3)
	agent := NewAgent("bot-1", "Admiral", testGrid, random.New(3), Tuning{SweepThreshold: 3})

	remaining := board.RemainingShipCells()
	for _, pos := range remaining[:len(remaining)-3] {
		out, err := board.ReceiveShot(pos)
		if err != nil {
			t.Fatalf("receive shot: %v", err)
		}
		agent.Observe(out)
	}

	dec, err := agent.NextShot(board)
	if err != nil {
		t.Fatalf("next shot error: %v", err)
	}
	if dec.Rule != "sweep" {
		t.Fatalf("rule = %s, want sweep", dec.Rule)
	}
	if board.Cells[dec.Position] != domain.CellShip {
		t.Fatalf("sweep should target a remaining ship cell, got %d", dec.Position)
	}
}

func TestHuntBiasTargetsShip(t *testing.T) {
	board := newBoard(t, 11)
	rng := &fixedRandom{floats: []float64{0.0}, ints: []int{5}}
	agent := NewAgent("bot-1", "Admiral", testGrid, rng, Tuning{HuntBias: 0.5, SweepThreshold: 0})

	dec, err := agent.NextShot(board)
	if err != nil {
		t.Fatalf("next shot error: %v", err)
	}
	if dec.Rule != "hunt" || board.Cells[dec.Position] != domain.CellShip {
		t.Fatalf("biased hunt = %+v on %s", dec, board.Cells[dec.Position])
	}
}

func TestSweepSunkLineStopsAtFirstMiss(t *testing.T) {
	board := domain.NewBoard(testGrid)
	ships, err := domain.BuildFleet(testGrid, testFleet, []domain.Placement{
		{Name: "Carrier", Positions: []int{22, 23, 24, 25, 26}},
		{Name: "Battleship", Positions: []int{0, 1, 2, 3}},
		{Name: "Cruiser", Positions: []int{36, 37, 38}},
		{Name: "Submarine", Positions: []int{45, 46, 47}},
		{Name: "Destroyer", Positions: []int{20, 21}},
	})
	if err != nil {
		t.Fatalf("build fleet error: %v", err)
	}
	board.Apply(ships)
	agent := NewAgent("bot-1", "Admiral", testGrid, random.New(1), DefaultTuning)

	for _, pos := range []int{20, 21} {
		out, err := board.ReceiveShot(pos)
		if err != nil {
			t.Fatalf("receive shot: %v", err)
		}
		agent.Observe(out)
	}

	var fired []int
	err = agent.SweepSunkLine("Destroyer", func(pos int) (domain.ShotOutcome, bool, error) {
		fired = append(fired, pos)
		out, err := board.ReceiveShot(pos)
		return out, true, err
	})
	if err != nil {
		t.Fatalf("sweep error: %v", err)
	}
	// Forward runs through the carrier at 22..26 and stops on the edge; backward misses at 19.
	want := []int{22, 23, 24, 25, 26, 19}
	if !reflect.DeepEqual(fired, want) {
		t.Fatalf("sweep fired %v, want %v", fired, want)
	}
	if !agent.Memory.Target("Carrier").Sunk {
		t.Fatalf("carrier should be sunk by the sweep")
	}
}

func TestIdentities(t *testing.T) {
	ids := DefaultIdentities()
	if ids.Get(0).DisplayName == "" || ids.Get(ids.Len()+1) != ids.Get(1) {
		t.Fatalf("identities should wrap around the pool")
	}

	path := filepath.Join(t.TempDir(), "bots.json")
	if err := os.WriteFile(path, []byte(`[{"display_name":"Solo","account":"house"}]`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	loaded, err := LoadIdentities(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if loaded.Get(7).DisplayName != "Solo" {
		t.Fatalf("unexpected identity %+v", loaded.Get(7))
	}

	id := NewPartyID()
	if !IsBot(id) || IsBot("user-1") {
		t.Fatalf("IsBot misclassified ids")
	}
}
