package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load([]byte(`{"track_file":"track.png","visibility_radius":3,"max_turns":500}`))
	require.NoError(t, err)
	assert.Equal(t, "track.png", cfg.TrackFile)
	assert.Equal(t, 3, cfg.VisibilityRadius)
	assert.Equal(t, 500, cfg.MaxTurns)
}

func TestLoadRejectsMissingVisibilityRadius(t *testing.T) {
	_, err := Load([]byte(`{"track_file":"track.png"}`))
	require.Error(t, err)
}

func TestLoadRejectsUnknownProperty(t *testing.T) {
	_, err := Load([]byte(`{"visibility_radius":3,"bogus":1}`))
	require.Error(t, err)
}

func TestLoadRejectsInvalidJSON(t *testing.T) {
	_, err := Load([]byte(`{not json`))
	require.Error(t, err)
}

func TestApplyNumPlayersOverridesAndReportsPrevious(t *testing.T) {
	cfg := &MatchConfig{NumPlayers: 2}
	had, prev := cfg.ApplyNumPlayers(4)
	assert.True(t, had)
	assert.Equal(t, 2, prev)
	assert.Equal(t, 4, cfg.NumPlayers)
}

func TestApplyNumPlayersNoPriorValue(t *testing.T) {
	cfg := &MatchConfig{}
	had, _ := cfg.ApplyNumPlayers(3)
	assert.False(t, had)
	assert.Equal(t, 3, cfg.NumPlayers)
}
