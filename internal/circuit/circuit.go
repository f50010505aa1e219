// Package circuit owns the racetrack grid and the players racing on it: the
// immutable cell layout, line-of-sight validity between two grid points, and
// the atomic application of a player's move.
package circuit

import (
	"fmt"
	"math"
)

// Cell is a tagged track value. A cell is traversable iff its value is >= 0.
type Cell int

const (
	Wall       Cell = -1
	Empty      Cell = 0
	Start      Cell = 1
	Unknown    Cell = 2
	NotVisible Cell = 3
	Goal       Cell = 100
)

// Traversable reports whether a player may occupy or pass through this cell.
func (c Cell) Traversable() bool {
	return c >= 0
}

// Pos is a (row, col) grid position.
type Pos struct {
	Row, Col int
}

// Add returns the component-wise sum of two positions/deltas.
func (p Pos) Add(q Pos) Pos {
	return Pos{Row: p.Row + q.Row, Col: p.Col + q.Col}
}

// Track is the immutable grid of cells and the ordered list of start cells.
type Track struct {
	Height, Width int
	cells         []Cell // row-major, length Height*Width
	Starts        []Pos
}

// NewTrack builds a Track from a dense row-major grid. rows must all share
// the same length.
func NewTrack(rows [][]int, starts []Pos) (*Track, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("circuit: track has no rows")
	}
	width := len(rows[0])
	cells := make([]Cell, 0, len(rows)*width)
	for _, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("circuit: ragged track row (want width %d)", width)
		}
		for _, v := range row {
			cells = append(cells, Cell(v))
		}
	}
	t := &Track{Height: len(rows), Width: width, cells: cells, Starts: starts}
	for _, s := range starts {
		if c, ok := t.At(s); !ok || c != Start {
			return nil, fmt.Errorf("circuit: start position %v does not index a Start cell", s)
		}
	}
	return t, nil
}

// At returns the cell at p and whether p is in bounds.
func (t *Track) At(p Pos) (Cell, bool) {
	if p.Row < 0 || p.Row >= t.Height || p.Col < 0 || p.Col >= t.Width {
		return 0, false
	}
	return t.cells[p.Row*t.Width+p.Col], true
}

// Rows returns the track as a dense row-major [][]int, for replay serialization.
func (t *Track) Rows() [][]int {
	out := make([][]int, t.Height)
	for r := 0; r < t.Height; r++ {
		row := make([]int, t.Width)
		for c := 0; c < t.Width; c++ {
			row[c] = int(t.cells[r*t.Width+c])
		}
		out[r] = row
	}
	return out
}

// inBounds reports whether p lies within [0,Height) x [0,Width).
func (t *Track) inBounds(p Pos) bool {
	return p.Row >= 0 && p.Row < t.Height && p.Col >= 0 && p.Col < t.Width
}

// ValidLine reports whether the discrete line segment from p1 to p2 passes
// only through traversable cells under the two-cell-wall policy: a diagonal
// path is blocked only when BOTH neighboring cells straddling the segment at
// a given step are non-traversable. Both the row-parameterized and the
// column-parameterized sweep must pass.
func (t *Track) ValidLine(p1, p2 Pos) bool {
	if !t.inBounds(p1) || !t.inBounds(p2) {
		return false
	}
	dr := p2.Row - p1.Row
	dc := p2.Col - p1.Col

	if dr == 0 && dc == 0 {
		c, _ := t.At(p1)
		return c.Traversable()
	}
	if dr != 0 {
		slope := float64(dc) / float64(dr)
		d := sign(dr)
		for i := 0; i <= abs(dr); i++ {
			x := p1.Row + i*d
			y := float64(p1.Col) + float64(i*d)*slope
			yCeil := int(math.Ceil(y))
			yFloor := int(math.Floor(y))
			cc, _ := t.At(Pos{Row: x, Col: yCeil})
			cf, _ := t.At(Pos{Row: x, Col: yFloor})
			if !cc.Traversable() && !cf.Traversable() {
				return false
			}
		}
	}
	if dc != 0 {
		slope := float64(dr) / float64(dc)
		d := sign(dc)
		for i := 0; i <= abs(dc); i++ {
			x := float64(p1.Row) + float64(i*d)*slope
			y := p1.Col + i*d
			xCeil := int(math.Ceil(x))
			xFloor := int(math.Floor(x))
			cc, _ := t.At(Pos{Row: xCeil, Col: y})
			cf, _ := t.At(Pos{Row: xFloor, Col: y})
			if !cc.Traversable() && !cf.Traversable() {
				return false
			}
		}
	}
	return true
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Player is a racer's mutable state, addressed by stable index.
type Player struct {
	Ind int
	Pos Pos
	Vel Pos
}

// ErrInvalidMove is returned by MovePlayer when the requested delta would
// violate track bounds, line-of-sight, or collide with another player.
type ErrInvalidMove struct {
	Reason string
}

func (e *ErrInvalidMove) Error() string { return e.Reason }

// Circuit owns a Track plus the ordered list of players racing on it.
type Circuit struct {
	Track   *Track
	Players []*Player
}

// New creates an empty Circuit over track; players are registered with
// AddPlayer and placed with ResetPlayers.
func New(track *Track) *Circuit {
	return &Circuit{Track: track}
}

// AddPlayer registers a new player with the next stable index. It must be
// called at most len(Track.Starts) times.
func (c *Circuit) AddPlayer() (*Player, error) {
	if len(c.Players) >= len(c.Track.Starts) {
		return nil, fmt.Errorf("circuit: too many players added")
	}
	p := &Player{Ind: len(c.Players), Pos: Pos{-1, -1}}
	c.Players = append(c.Players, p)
	return p, nil
}

// ResetPlayers places every player at its corresponding start position with
// zero velocity.
func (c *Circuit) ResetPlayers() {
	for i, p := range c.Players {
		p.Pos = c.Track.Starts[i]
		p.Vel = Pos{}
	}
}

// PlayerAt returns the player occupying pos, if any.
func (c *Circuit) PlayerAt(pos Pos) *Player {
	for _, p := range c.Players {
		if p.Pos == pos {
			return p
		}
	}
	return nil
}

// MovePlayer applies delta (each component in {-1,0,1}) to player i's
// velocity and integrates position. On success the new position and
// velocity are committed atomically; on failure the player is left
// unchanged and an *ErrInvalidMove describes why.
func (c *Circuit) MovePlayer(i int, delta Pos) error {
	if delta.Row < -1 || delta.Row > 1 || delta.Col < -1 || delta.Col > 1 {
		return &ErrInvalidMove{Reason: "invalid direction value"}
	}
	player := c.Players[i]
	newVel := player.Vel.Add(delta)
	newPos := player.Pos.Add(newVel)

	if !c.Track.ValidLine(player.Pos, newPos) {
		return &ErrInvalidMove{Reason: fmt.Sprintf("player %d left the track", i)}
	}
	if other := c.PlayerAt(newPos); other != nil && other != player {
		return &ErrInvalidMove{Reason: fmt.Sprintf("player %d collided with player %d", i, other.Ind)}
	}
	player.Pos = newPos
	player.Vel = newVel
	return nil
}

// StopPlayer zeroes a player's velocity, leaving position unchanged.
func (c *Circuit) StopPlayer(i int) {
	c.Players[i].Vel = Pos{}
}

// PlayerWon reports whether player i currently occupies a Goal cell.
func (c *Circuit) PlayerWon(i int) bool {
	cell, _ := c.Track.At(c.Players[i].Pos)
	return cell == Goal
}

// PlayerIter is a round-robin cursor over a Circuit's players that skips
// players who have already won, stopping once all of them have.
type PlayerIter struct {
	c            *Circuit
	next         int
	endCountdown int
}

// IterPlayers returns a fresh round-robin cursor over c's players.
func (c *Circuit) IterPlayers() *PlayerIter {
	return &PlayerIter{c: c, endCountdown: len(c.Players)}
}

// Next returns the next non-won player index, or ok=false once every player
// has won.
func (it *PlayerIter) Next() (int, bool) {
	for {
		if len(it.c.Players) == 0 {
			return 0, false
		}
		player := it.next
		it.next = (it.next + 1) % len(it.c.Players)
		if it.c.PlayerWon(player) {
			it.endCountdown--
			if it.endCountdown <= 0 {
				return 0, false
			}
			continue
		}
		it.endCountdown = len(it.c.Players)
		return player, true
	}
}
