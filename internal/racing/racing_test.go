package racing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/gridrace/internal/circuit"
)

func newTestEnv(t *testing.T, track *circuit.Track, numPlayers, maxTurns int) *Env {
	t.Helper()
	circ := circuit.New(track)
	e, err := New(numPlayers, 2, circ, maxTurns)
	require.NoError(t, err)
	e.Reset()
	return e
}

// TestNextPlayerPhantomIncrementsOncePerRound verifies the scheduler visits
// every player once before the sentinel "phantom" slot advances the turn
// counter, so an N-player round costs exactly one scheduled turn.
func TestNextPlayerPhantomIncrementsOncePerRound(t *testing.T) {
	e := newTestEnv(t, circuit.PlayableMap(), 2, 100)

	first := e.NextPlayer(nil)
	require.NotNil(t, first)
	assert.Equal(t, 0, *first)
	assert.Equal(t, 0, e.turns)
	e.Step(*first, move{dx: 0, dy: 0})

	second := e.NextPlayer(first)
	require.NotNil(t, second)
	assert.Equal(t, 1, *second)
	assert.Equal(t, 0, e.turns, "turn counter must not advance until the phantom slot is reached")
	e.Step(*second, move{dx: 0, dy: 0})

	third := e.NextPlayer(second)
	require.NotNil(t, third)
	assert.Equal(t, 0, *third)
	assert.Equal(t, 1, e.turns, "one full round over both players must cost exactly one scheduled turn")
}

// TestPenaltySkipsFiveTurns verifies an invalid move costs the offending
// player exactly five scheduled turns before it is scheduled again.
func TestPenaltySkipsFiveTurns(t *testing.T) {
	e := newTestEnv(t, circuit.MinimalTrack(), 1, 1000)

	first := e.NextPlayer(nil)
	require.NotNil(t, first)
	assert.Equal(t, 0, *first)

	// (1,1) -> vel (-1,0) -> pos (0,1), which is a wall row: blocked.
	e.Step(0, move{dx: -1, dy: 0})
	require.Len(t, e.Replay.Steps, 1)
	assert.False(t, e.Replay.Steps[0].Success)

	next := e.NextPlayer(first)
	require.NotNil(t, next)
	assert.Equal(t, 0, *next)

	require.Len(t, e.Replay.Steps, 6, "one invalid-move step plus five penalty-skip steps")
	for i := 1; i < 6; i++ {
		step := e.Replay.Steps[i]
		assert.False(t, step.Success)
		assert.Equal(t, "Player is in penalty, skipping their turn.", step.Status)
	}
	assert.Equal(t, 6, e.turns, "each of the five penalty retries and the one successful re-schedule costs a phantom turn")
}

// TestScoreSetAtTurnOfWin verifies the score recorded for a winning player is
// the scheduled turn counter at the moment they reach the goal, and that the
// scheduler reports a normal (non-turn-capped) end once every player has won.
func TestScoreSetAtTurnOfWin(t *testing.T) {
	e := newTestEnv(t, circuit.PlayableMap(), 1, 1000)

	current := e.NextPlayer(nil)
	require.NotNil(t, current)

	moves := []move{{dx: 0, dy: 1}, {dx: 0, dy: 0}, {dx: 0, dy: 0}, {dx: 0, dy: 0}}
	for _, m := range moves {
		e.Step(*current, m)
		current = e.NextPlayer(current)
	}

	assert.Nil(t, current, "scheduler must stop once the only player has won")
	require.Equal(t, []int{3}, e.Scores())

	reached, turns := e.MaxTurnsReached()
	assert.False(t, reached, "match ended because the player won, not because of the turn cap")
	assert.Equal(t, 3, turns)
}

// TestMaxTurnsReached verifies the scheduler distinguishes hitting the turn
// cap from every player finishing.
func TestMaxTurnsReached(t *testing.T) {
	e := newTestEnv(t, circuit.PlayableMap(), 1, 2)

	current := e.NextPlayer(nil)
	require.NotNil(t, current)
	e.Step(*current, move{dx: 0, dy: 0})
	current = e.NextPlayer(current)
	require.NotNil(t, current)
	e.Step(*current, move{dx: 0, dy: 0})
	current = e.NextPlayer(current)

	assert.Nil(t, current)
	reached, turns := e.MaxTurnsReached()
	assert.True(t, reached)
	assert.Equal(t, 2, turns)
}
