// Command clientbridge launches a bot process and proxies its stdin,
// stdout, and stderr to a running judge over TCP.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"

	"github.com/lox/gridrace/internal/bridge"
	"github.com/lox/gridrace/internal/runner"
)

// CLI mirrors the original client_bridge.py argparse surface: the bot
// executable and arguments, plus judge address and logging flags.
type CLI struct {
	JudgeAddress string   `kong:"name='judge_address',default='localhost',help='Address of the judge to connect to.'"`
	LogDir       string   `kong:"name='log_dir',help='Directory to write a communication log to. Optional.'"`
	RunID        string   `kong:"name='run_id',help='Run identifier used to name the communication log.'"`
	Debug        bool     `kong:"help='Enable debug logging.'"`
	Command      []string `arg:"" name:"command" help:"Bot executable and arguments."`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("clientbridge"),
		kong.Description("Client bridge: launches a bot and proxies it to the judge."),
		kong.UsageOnError(),
	)

	level := zerolog.InfoLevel
	if cli.Debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	if err := run(cli, logger); err != nil {
		logger.Fatal().Err(err).Msg("clientbridge exited with error")
	}
}

func run(cli CLI, logger zerolog.Logger) error {
	cmdArgs, err := bridge.ResolveCommand(cli.Command[0])
	if err != nil {
		return err
	}
	cmdArgs = append(cmdArgs, cli.Command[1:]...)

	var comm *bridge.CommLogger
	if cli.LogDir != "" {
		runID := cli.RunID
		if runID == "" {
			runID = "unknown"
		}
		comm, err = bridge.NewCommLogger(cli.LogDir, runID)
		if err != nil {
			return err
		}
		defer comm.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info().Msg("received interrupt, shutting down")
		cancel()
	}()

	b, err := bridge.Dial(ctx, cli.JudgeAddress, runner.JudgePort, cmdArgs, logger, comm)
	if err != nil {
		return err
	}
	defer b.Close()

	return b.Run(ctx)
}
