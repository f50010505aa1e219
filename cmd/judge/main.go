// Command judge runs the grid-race Judge Runtime: it accepts bot
// connections, drives the racing environment's turn loop, and writes a
// replay and final scores.
package main

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/lox/gridrace/internal/circuit"
	"github.com/lox/gridrace/internal/config"
	"github.com/lox/gridrace/internal/env"
	"github.com/lox/gridrace/internal/fileutil"
	"github.com/lox/gridrace/internal/gameid"
	"github.com/lox/gridrace/internal/racing"
	"github.com/lox/gridrace/internal/replay"
	"github.com/lox/gridrace/internal/runner"
	"github.com/lox/gridrace/internal/trackio"
)

// CLI mirrors the original judge's argparse surface: a positional config
// file and player count, plus the connection/timeout/replay/output flags.
type CLI struct {
	ConfigFile      string `arg:"" name:"config_file" help:"Path to the environment config file."`
	NumPlayers      int    `arg:"" name:"num_players" help:"Number of players."`
	ReplayFile      string `kong:"name='replay_file',help='Path to save the replay file to. Optional.'"`
	OutputFile      string `kong:"name='output_file',help='Path to save the final scores JSON to. Optional.'"`
	Timeout         float64 `kong:"name='timeout',default='1.0',help='Timeout in seconds for player responses.'"`
	ConnTimeout     float64 `kong:"name='connection_timeout',default='10',help='Timeout in seconds for player connections.'"`
	ClientAddresses string `kong:"name='client_addresses',help='Semicolon-separated list of expected client addresses.'"`
	Debug           bool   `kong:"help='Enable debug logging.'"`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("judge"),
		kong.Description("Judge program of the Grid Race environment."),
		kong.UsageOnError(),
	)

	level := zerolog.InfoLevel
	if cli.Debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	runID := gameid.Generate()
	logger.Info().Str("run_id", runID).Msg("Grid Race Tier 2")

	if err := run(cli, logger, runID); err != nil {
		logger.Fatal().Err(err).Msg("judge exited with error")
	}
}

func run(cli CLI, logger zerolog.Logger, runID string) error {
	raw, err := os.ReadFile(cli.ConfigFile)
	if err != nil {
		return err
	}
	cfg, err := config.Load(raw)
	if err != nil {
		return err
	}
	if had, prev := cfg.ApplyNumPlayers(cli.NumPlayers); had {
		logger.Warn().Int("config_value", prev).Int("cli_value", cli.NumPlayers).
			Msg("number of players specified in configuration file, overriding with command line argument value")
	}

	var clientAddresses []string
	if cli.ClientAddresses != "" {
		clientAddresses = strings.Split(cli.ClientAddresses, ";")
		if len(clientAddresses) != cli.NumPlayers {
			return errClientAddressCount(len(clientAddresses), cli.NumPlayers)
		}
	}

	track, err := loadTrack(cfg)
	if err != nil {
		return err
	}
	circ := circuit.New(track)
	racingEnv, err := racing.New(cfg.NumPlayers, cfg.VisibilityRadius, circ, cfg.MaxTurns)
	if err != nil {
		return err
	}

	r := runner.New(runner.Config{
		NumPlayers:        cfg.NumPlayers,
		StepTimeout:       time.Duration(cli.Timeout * float64(time.Second)),
		ConnectionTimeout: time.Duration(cli.ConnTimeout * float64(time.Second)),
		ClientAddresses:   clientAddresses,
		Clock:             quartz.NewReal(),
		Logger:            logger,
	})

	if err := r.Accept(); err != nil {
		return err
	}
	defer r.Close()

	var e env.Environment = racingEnv
	scores, err := r.Run(e)
	if err != nil {
		return err
	}

	if cli.ReplayFile != "" {
		logger.Info().Str("path", cli.ReplayFile).Msg("Saving replay")
		if err := replay.WriteFile(racingEnv.Replay, cli.ReplayFile); err != nil {
			logger.Error().Err(err).Msg("failed to write replay file")
		}
	}
	if cli.OutputFile != "" {
		logger.Info().Str("path", cli.OutputFile).Msg("Saving final scores")
		data, err := json.Marshal(scores)
		if err != nil {
			return err
		}
		if err := fileutil.WriteFileAtomic(cli.OutputFile, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func loadTrack(cfg *config.MatchConfig) (*circuit.Track, error) {
	if cfg.Track != "" {
		return trackio.LoadNamed(cfg.Track)
	}
	return trackio.LoadFile(cfg.TrackFile)
}

func errClientAddressCount(got, want int) error {
	return &addressCountError{got: got, want: want}
}

type addressCountError struct{ got, want int }

func (e *addressCountError) Error() string {
	return "judge: number of client addresses must equal the number of players"
}
