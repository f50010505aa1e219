package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidLineSymmetry(t *testing.T) {
	track := MinimalTrack()
	for r1 := 0; r1 < track.Height; r1++ {
		for c1 := 0; c1 < track.Width; c1++ {
			for r2 := 0; r2 < track.Height; r2++ {
				for c2 := 0; c2 < track.Width; c2++ {
					a := Pos{r1, c1}
					b := Pos{r2, c2}
					assert.Equal(t, track.ValidLine(a, b), track.ValidLine(b, a), "a=%v b=%v", a, b)
				}
			}
		}
	}
}

func TestValidLineZeroLength(t *testing.T) {
	track := MinimalTrack()
	assert.True(t, track.ValidLine(Pos{1, 1}, Pos{1, 1}))
	assert.False(t, track.ValidLine(Pos{0, 0}, Pos{0, 0}))
}

func TestValidLineBlockedByTwoCellWall(t *testing.T) {
	track := MinimalTrack()
	// Straight down the Start column: every cell traversable.
	assert.True(t, track.ValidLine(Pos{1, 1}, Pos{3, 1}))
	// Straight across row 2 passes directly through the wall cell (2,2).
	assert.False(t, track.ValidLine(Pos{2, 1}, Pos{2, 3}))
	// Diagonal from the Start column into the open corridor is unobstructed.
	assert.True(t, track.ValidLine(Pos{1, 2}, Pos{2, 1}))
	// Out of bounds endpoints are always invalid.
	assert.False(t, track.ValidLine(Pos{-1, 0}, Pos{1, 1}))
}

func TestMovePlayerIntegratesVelocity(t *testing.T) {
	track := MinimalTrack()
	c := New(track)
	_, err := c.AddPlayer()
	require.NoError(t, err)
	c.ResetPlayers()

	require.NoError(t, c.MovePlayer(0, Pos{0, 1}))
	assert.Equal(t, Pos{1, 2}, c.Players[0].Pos)
	assert.Equal(t, Pos{0, 1}, c.Players[0].Vel)

	require.NoError(t, c.MovePlayer(0, Pos{0, 0}))
	assert.Equal(t, Pos{1, 3}, c.Players[0].Pos)
	assert.Equal(t, Pos{0, 1}, c.Players[0].Vel)
}

func TestMovePlayerRejectsOutOfRangeDelta(t *testing.T) {
	c := New(MinimalTrack())
	_, err := c.AddPlayer()
	require.NoError(t, err)
	c.ResetPlayers()

	err = c.MovePlayer(0, Pos{2, 0})
	require.Error(t, err)
	var invalid *ErrInvalidMove
	require.ErrorAs(t, err, &invalid)
}

func TestMovePlayerRejectsLeavingTrack(t *testing.T) {
	c := New(MinimalTrack())
	_, err := c.AddPlayer()
	require.NoError(t, err)
	c.ResetPlayers()

	err = c.MovePlayer(0, Pos{-1, -1})
	require.Error(t, err)
	assert.Equal(t, Pos{1, 1}, c.Players[0].Pos)
	assert.Equal(t, Pos{0, 0}, c.Players[0].Vel)
}

func TestCollisionExclusion(t *testing.T) {
	c := New(MinimalTrack())
	for i := 0; i < 3; i++ {
		_, err := c.AddPlayer()
		require.NoError(t, err)
	}
	c.ResetPlayers()

	// Player 0 moves from (1,1) to (2,1), where player 1 sits.
	err := c.MovePlayer(0, Pos{1, 0})
	require.Error(t, err)
	var invalid *ErrInvalidMove
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, Pos{1, 1}, c.Players[0].Pos)
}

func TestStopPlayerZeroesVelocity(t *testing.T) {
	c := New(MinimalTrack())
	_, err := c.AddPlayer()
	require.NoError(t, err)
	c.ResetPlayers()
	require.NoError(t, c.MovePlayer(0, Pos{0, 1}))
	c.StopPlayer(0)
	assert.Equal(t, Pos{}, c.Players[0].Vel)
}

func TestPlayerWon(t *testing.T) {
	c := New(MinimalTrack())
	p, err := c.AddPlayer()
	require.NoError(t, err)
	p.Pos = Pos{3, 6}
	assert.True(t, c.PlayerWon(0))
}

func TestIterPlayersSkipsWinnersAndStops(t *testing.T) {
	c := New(MinimalTrack())
	for i := 0; i < 3; i++ {
		_, err := c.AddPlayer()
		require.NoError(t, err)
	}
	c.ResetPlayers()
	c.Players[1].Pos = Pos{3, 6} // already at goal

	it := c.IterPlayers()
	seen := map[int]bool{}
	for i := 0; i < 10; i++ {
		p, ok := it.Next()
		if !ok {
			t.Fatalf("iterator stopped early at i=%d", i)
		}
		seen[p] = true
		if seen[0] && seen[2] {
			break
		}
	}
	assert.True(t, seen[0])
	assert.True(t, seen[2])
	assert.False(t, seen[1], "winning player must be skipped")
}

func TestIterPlayersStopsWhenAllWon(t *testing.T) {
	c := New(MinimalTrack())
	for i := 0; i < 2; i++ {
		_, err := c.AddPlayer()
		require.NoError(t, err)
	}
	c.Players[0].Pos = Pos{3, 6}
	c.Players[1].Pos = Pos{3, 6}

	it := c.IterPlayers()
	_, ok := it.Next()
	assert.False(t, ok)
}
