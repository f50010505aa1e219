package circuit

// MinimalTrack is the fixed 5x8 reference track used across tests and as the
// "minimal" built-in track of the match config's "track" field. It has a single goal reachable only by
// threading between two interior wall columns.
func MinimalTrack() *Track {
	rows := [][]int{
		{-1, -1, -1, -1, -1, -1, -1, -1},
		{-1, 1, 0, 0, 2, -1, -1, -1},
		{-1, 1, -1, 0, 2, -1, -1, -1},
		{-1, 1, -1, 0, 2, 0, 100, -1},
		{-1, -1, -1, -1, -1, -1, -1, -1},
	}
	starts := []Pos{{1, 1}, {2, 1}, {3, 1}}
	t, err := NewTrack(rows, starts)
	if err != nil {
		panic("circuit: MinimalTrack fixture is malformed: " + err.Error())
	}
	return t
}

// PlayableMap is a second fixed 5x8 track with a wide-open goal area,
// carried from the original implementation alongside MinimalTrack.
func PlayableMap() *Track {
	rows := [][]int{
		{-1, -1, -1, -1, -1, -1, -1, -1},
		{-1, 1, 0, 0, 2, 100, 100, -1},
		{-1, 1, 0, 0, 2, 100, 100, -1},
		{-1, 1, 0, 0, 2, 100, 100, -1},
		{-1, -1, -1, -1, -1, -1, -1, -1},
	}
	starts := []Pos{{1, 1}, {2, 1}, {3, 1}}
	t, err := NewTrack(rows, starts)
	if err != nil {
		panic("circuit: PlayableMap fixture is malformed: " + err.Error())
	}
	return t
}
