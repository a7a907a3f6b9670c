package domain

// Orientation is the axis a ship lies on.
type Orientation string

const (
	// OrientationUnknown is used until two hits on the same ship are known.
	OrientationUnknown    Orientation = ""
	OrientationHorizontal Orientation = "horizontal"
	OrientationVertical   Orientation = "vertical"
)

// Grid is a fixed-size board addressed by a single 0-based index.
// row = index / Width, col = index % Width.
type Grid struct {
	Width  int
	Height int
}

// Size returns the number of cells on the grid.
func (g Grid) Size() int {
	return g.Width * g.Height
}

// InBounds reports whether pos addresses a cell of the grid.
func (g Grid) InBounds(pos int) bool {
	return pos >= 0 && pos < g.Size()
}

func (g Grid) Row(pos int) int { return pos / g.Width }
func (g Grid) Col(pos int) int { return pos % g.Width }

// Index returns the cell index for a row and column, or -1 when outside the grid.
func (g Grid) Index(row, col int) int {
	if row < 0 || row >= g.Height || col < 0 || col >= g.Width {
		return -1
	}
	return row*g.Width + col
}

// Neighbors returns the orthogonally adjacent in-bounds cells of pos.
// Order is up, down, left, right.
func (g Grid) Neighbors(pos int) []int {
	row, col := g.Row(pos), g.Col(pos)
	out := make([]int, 0, 4)
	for _, d := range [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		if idx := g.Index(row+d[0], col+d[1]); idx >= 0 {
			out = append(out, idx)
		}
	}
	return out
}

// Step moves one cell from pos along o. Forward is right for horizontal and down for vertical.
// It returns false when the move leaves the grid; rows never wrap.
func (g Grid) Step(pos int, o Orientation, forward bool) (int, bool) {
	delta := 1
	if !forward {
		delta = -1
	}
	row, col := g.Row(pos), g.Col(pos)
	var next int
	switch o {
	case OrientationHorizontal:
		next = g.Index(row, col+delta)
	case OrientationVertical:
		next = g.Index(row+delta, col)
	default:
		return -1, false
	}
	return next, next >= 0
}

// Span computes the cells a ship of the given size covers from anchor.
// It returns false if any cell falls outside the grid.
func (g Grid) Span(anchor, size int, o Orientation) ([]int, bool) {
	if !g.InBounds(anchor) || size <= 0 {
		return nil, false
	}
	cells := make([]int, 0, size)
	cells = append(cells, anchor)
	pos := anchor
	for i := 1; i < size; i++ {
		next, ok := g.Step(pos, o, true)
		if !ok {
			return nil, false
		}
		cells = append(cells, next)
		pos = next
	}
	return cells, true
}

// InferOrientation derives a ship axis from two of its cells.
func (g Grid) InferOrientation(a, b int) Orientation {
	switch {
	case a == b:
		return OrientationUnknown
	case g.Row(a) == g.Row(b):
		return OrientationHorizontal
	case g.Col(a) == g.Col(b):
		return OrientationVertical
	default:
		return OrientationUnknown
	}
}
