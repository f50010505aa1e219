// Package replay records a byte-reproducible log of a match: the track and
// player count, a snapshot before the first step and after every step, and
// the outcome of each step attempt. len(States) == len(Steps)+1 always holds.
package replay

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/lox/gridrace/internal/fileutil"
)

// EnvInfo captures the static, per-match environment description.
type EnvInfo struct {
	Track      [][]int `json:"track"`
	NumPlayers int     `json:"num_players"`
}

// PlayerState snapshots one player's position and velocity.
type PlayerState struct {
	X    int `json:"x"`
	Y    int `json:"y"`
	VelX int `json:"vel_x"`
	VelY int `json:"vel_y"`
}

// State is a full snapshot of all players at a point in the match.
type State struct {
	Turn    int           `json:"turn"`
	Players []PlayerState `json:"players"`
}

// Step is one turn attempt: success carries the applied delta, failure
// carries a human-readable reason.
type Step struct {
	PlayerInd int    `json:"player_ind"`
	Success   bool   `json:"success"`
	Status    string `json:"status"`
	Dx        *int   `json:"dx"`
	Dy        *int   `json:"dy"`
}

// NewSuccessStep builds a recorded successful move.
func NewSuccessStep(playerInd, dx, dy int) Step {
	return Step{PlayerInd: playerInd, Success: true, Dx: &dx, Dy: &dy}
}

// NewFailureStep builds a recorded failed turn with a non-empty reason.
func NewFailureStep(playerInd int, status string) Step {
	if status == "" {
		panic("replay: failure step requires a non-empty status")
	}
	return Step{PlayerInd: playerInd, Success: false, Status: status}
}

// Replay is the append-only log for one match.
type Replay struct {
	EnvInfo EnvInfo `json:"env_info"`
	States  []State `json:"states"`
	Steps   []Step  `json:"steps"`
	Version int     `json:"version"`
}

// New creates a Replay for a match over the given track/player count. Call
// AppendState once before the first step to record the initial snapshot.
func New(track [][]int, numPlayers int) *Replay {
	return &Replay{
		EnvInfo: EnvInfo{Track: track, NumPlayers: numPlayers},
		Version: 1,
	}
}

// AppendState records a state snapshot.
func (r *Replay) AppendState(s State) {
	r.States = append(r.States, s)
}

// AppendStep records one step outcome. Callers must follow it with
// AppendState to preserve the len(States) == len(Steps)+1 invariant.
func (r *Replay) AppendStep(s Step) {
	r.Steps = append(r.Steps, s)
}

// CheckInvariant verifies the length relation between states and steps.
func (r *Replay) CheckInvariant() error {
	if len(r.States) != len(r.Steps)+1 {
		return fmt.Errorf("replay: invariant violated: %d states, %d steps", len(r.States), len(r.Steps))
	}
	return nil
}

// Serialise writes the replay as UTF-safe JSON to w.
func Serialise(r *Replay, w io.Writer) error {
	enc := json.NewEncoder(w)
	return enc.Encode(r)
}

// WriteFile atomically writes the replay to filename.
func WriteFile(r *Replay, filename string) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("replay: marshal: %w", err)
	}
	return fileutil.WriteFileAtomic(filename, data, 0o644)
}

// Deserialise reads a replay back from a reader, for the bonus replay viewer.
func Deserialise(r io.Reader) (*Replay, error) {
	var out Replay
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("replay: decode: %w", err)
	}
	return &out, nil
}

// ReadFile reads a replay file from disk.
func ReadFile(filename string) (*Replay, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Deserialise(f)
}
