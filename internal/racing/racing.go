// Package racing implements the grid-race Environment: the racing physics
// and turn scheduler built on top of internal/circuit, satisfying the
// internal/env.Environment contract.
package racing

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lox/gridrace/internal/circuit"
	"github.com/lox/gridrace/internal/env"
	"github.com/lox/gridrace/internal/replay"
)

// InvalidActionPenalty is the number of subsequent scheduled turns a player
// skips after an invalid move.
const InvalidActionPenalty = 5

// DefaultMaxTurns is used when a match config omits max_turns.
const DefaultMaxTurns = 500

// move is the parsed player input: an acceleration delta.
type move struct {
	dx, dy int
}

// Env is the racing Environment: N players on a Circuit, scheduled
// round-robin with a sentinel "phantom N" slot that advances the turn
// counter, and a penalty backoff for invalid moves.
type Env struct {
	numPlayers       int
	visibilityRadius int
	maxTurns         int
	circuit          *circuit.Circuit

	turns      int
	scores     []int
	penalties  []*int
	iterCursor int
	turnCapped bool
	Replay     *replay.Replay
}

// New constructs a racing environment with numPlayers players registered on
// circ. circ must have at least numPlayers start positions.
func New(numPlayers, visibilityRadius int, circ *circuit.Circuit, maxTurns int) (*Env, error) {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	for i := 0; i < numPlayers; i++ {
		if _, err := circ.AddPlayer(); err != nil {
			return nil, fmt.Errorf("racing: %w", err)
		}
	}
	return &Env{
		numPlayers:       numPlayers,
		visibilityRadius: visibilityRadius,
		maxTurns:         maxTurns,
		circuit:          circ,
	}, nil
}

// Reset places players at their starts, resets scores/turns/penalties, and
// returns the "H W N R" broadcast string.
func (e *Env) Reset() string {
	e.circuit.ResetPlayers()
	e.scores = make([]int, e.numPlayers)
	for i := range e.scores {
		e.scores[i] = e.maxTurns + 1
	}
	e.turns = 0
	e.penalties = make([]*int, e.numPlayers)
	e.iterCursor = 0
	e.turnCapped = false

	e.Replay = replay.New(e.circuit.Track.Rows(), e.numPlayers)
	e.Replay.AppendState(e.saveState())

	return fmt.Sprintf("%d %d %d %d", e.circuit.Track.Height, e.circuit.Track.Width, e.numPlayers, e.visibilityRadius)
}

func (e *Env) saveState() replay.State {
	players := make([]replay.PlayerState, len(e.circuit.Players))
	for i, p := range e.circuit.Players {
		players[i] = replay.PlayerState{X: p.Pos.Row, Y: p.Pos.Col, VelX: p.Vel.Row, VelY: p.Vel.Col}
	}
	return replay.State{Turn: e.turns, Players: players}
}

func (e *Env) saveStep(s replay.Step) {
	e.Replay.AppendStep(s)
	e.Replay.AppendState(e.saveState())
}

// advanceIterator steps the round-robin cursor over [0..numPlayers], where
// numPlayers is the sentinel "phantom" slot.
func (e *Env) advanceIterator() int {
	v := e.iterCursor
	e.iterCursor = (e.iterCursor + 1) % (e.numPlayers + 1)
	return v
}

// NextPlayer advances the scheduler. current is nil before the first turn.
func (e *Env) NextPlayer(current *int) *int {
	if current == nil {
		first := e.advanceIterator()
		if first != 0 {
			panic("racing: scheduler cursor did not start at player 0")
		}
		zero := 0
		return &zero
	}

	for {
		// Once every player has won the match is over; stop before the
		// phantom slot can advance the turn counter any further.
		allWon := true
		for p := 0; p < e.numPlayers; p++ {
			if !e.circuit.PlayerWon(p) {
				allWon = false
				break
			}
		}
		if allWon {
			return nil
		}

		candidate := -1
		found := false
		for i := 0; i < e.numPlayers+1; i++ {
			next := e.advanceIterator()
			if next == e.numPlayers {
				e.turns++
				if e.turns >= e.maxTurns {
					e.turnCapped = true
					return nil
				}
				continue
			}
			if e.circuit.PlayerWon(next) {
				continue
			}
			candidate = next
			found = true
			break
		}
		if !found {
			// Every player has won; nothing left to schedule.
			return nil
		}

		if e.penalties[candidate] != nil {
			if *e.penalties[candidate] == 0 {
				e.penalties[candidate] = nil
				return &candidate
			}
			*e.penalties[candidate]--
			e.saveStep(replay.NewFailureStep(candidate, "Player is in penalty, skipping their turn."))
			continue
		}
		if e.circuit.PlayerWon(candidate) {
			return nil
		}
		return &candidate
	}
}

// Observation renders player i's view: their own "py px vy vx", every
// player's "py px" in index order (no velocity for other players), then a
// (2R+1)x(2R+1) local window of the track.
func (e *Env) Observation(i int) string {
	self := e.circuit.Players[i]
	r := e.visibilityRadius
	size := 2*r + 1

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d %d %d %d\n", self.Pos.Row, self.Pos.Col, self.Vel.Row, self.Vel.Col)
	for _, p := range e.circuit.Players {
		fmt.Fprintf(&sb, "%d %d\n", p.Pos.Row, p.Pos.Col)
	}

	lines := make([]string, size)
	for row := 0; row < size; row++ {
		cells := make([]string, size)
		for col := 0; col < size; col++ {
			x := self.Pos.Row + row - r
			y := self.Pos.Col + col - r
			dist := math.Hypot(float64(x-self.Pos.Row), float64(y-self.Pos.Col))
			var v circuit.Cell
			switch {
			case dist > float64(r):
				v = circuit.NotVisible
			case x < 0 || x >= e.circuit.Track.Height || y < 0 || y >= e.circuit.Track.Width:
				v = circuit.Wall
			default:
				v, _ = e.circuit.Track.At(circuit.Pos{Row: x, Col: y})
				if v == circuit.Unknown {
					v = circuit.NotVisible
				}
			}
			cells[col] = strconv.Itoa(int(v))
		}
		lines[row] = strings.Join(cells, " ")
	}
	sb.WriteString(strings.Join(lines, "\n"))
	return sb.String()
}

// ReadPlayerInput parses "dx dy" from one line; returns nil on any parse
// failure.
func (e *Env) ReadPlayerInput(r env.LineReader) interface{} {
	line, err := r.ReadLine()
	if err != nil {
		return nil
	}
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return nil
	}
	dx, err1 := strconv.Atoi(fields[0])
	dy, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil {
		return nil
	}
	return move{dx: dx, dy: dy}
}

// InvalidPlayerInput records a failure step for an unparseable reply or a
// step timeout.
func (e *Env) InvalidPlayerInput(i int) {
	e.saveStep(replay.NewFailureStep(i, "Invalid input or timeout."))
}

// Step applies a validated move. An illegal move zeroes velocity and sets a
// penalty instead of aborting the match.
func (e *Env) Step(i int, input interface{}) {
	m, ok := input.(move)
	if !ok {
		panic("racing: Step called with input not produced by ReadPlayerInput")
	}
	if e.circuit.PlayerWon(i) {
		panic(fmt.Sprintf("racing: Step called for player %d who has already won", i))
	}

	var step replay.Step
	err := e.circuit.MovePlayer(i, circuit.Pos{Row: m.dx, Col: m.dy})
	if err != nil {
		penalty := InvalidActionPenalty
		e.penalties[i] = &penalty
		e.circuit.StopPlayer(i)
		step = replay.NewFailureStep(i, fmt.Sprintf("Invalid move: (%d, %d).", m.dx, m.dy))
	} else {
		step = replay.NewSuccessStep(i, m.dx, m.dy)
	}

	if e.circuit.PlayerWon(i) {
		e.scores[i] = e.turns
	}
	e.saveStep(step)
}

// MaxTurnsReached reports whether the scheduler stopped because the turn
// cap was hit (as opposed to every player finishing), along with the turn
// count at termination. It lets callers distinguish the two nil-NextPlayer
// outcomes for logging/monitoring.
func (e *Env) MaxTurnsReached() (bool, int) {
	return e.turnCapped, e.turns
}

// Scores returns the final per-player scores.
func (e *Env) Scores() []int {
	return e.scores
}

// NumPlayers returns the number of registered players.
func (e *Env) NumPlayers() int {
	return e.numPlayers
}

var _ env.Environment = (*Env)(nil)
