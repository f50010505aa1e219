// Package bridge implements the Client Bridge: it launches a bot subprocess
// and proxies its stdin/stdout/stderr to the judge's wire protocol over
// three cooperative tasks joined with an errgroup. Run returns once all three
// tasks have returned. End of stream on a bot pipe or on the judge
// connection ends only that task, without an error. An error from one task
// cancels the group's context, which the judge listener checks only between
// frames; a task blocked in a read is not interrupted by it.
package bridge

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os/exec"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lox/gridrace/internal/wire"
)

// Bridge owns one bot subprocess and its judge connection.
type Bridge struct {
	conn   net.Conn
	cmd    *exec.Cmd
	logger zerolog.Logger
	comm   *CommLogger
}

// Dial connects to the judge at host:JudgePort and prepares cmd to be
// started by Run.
func Dial(ctx context.Context, judgeAddr string, judgePort int, cmdArgs []string, logger zerolog.Logger, comm *CommLogger) (*Bridge, error) {
	conn, err := net.Dial("tcp", fmt.Sprintf("%s:%d", judgeAddr, judgePort))
	if err != nil {
		return nil, fmt.Errorf("bridge: dial judge: %w", err)
	}

	cmd := exec.CommandContext(ctx, cmdArgs[0], cmdArgs[1:]...)
	return &Bridge{conn: conn, cmd: cmd, logger: logger, comm: comm}, nil
}

// Run starts the bot subprocess and proxies its streams until the bot exits,
// the judge connection closes, or ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	stdout, err := b.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("bridge: stdout pipe: %w", err)
	}
	stderr, err := b.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("bridge: stderr pipe: %w", err)
	}
	stdin, err := b.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("bridge: stdin pipe: %w", err)
	}

	if err := b.cmd.Start(); err != nil {
		return fmt.Errorf("bridge: start bot: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.readStdout(stdout) })
	g.Go(func() error { return b.readStderr(stderr) })
	g.Go(func() error { return b.listenToJudge(ctx, stdin) })

	runErr := g.Wait()
	waitErr := b.cmd.Wait()
	if runErr != nil {
		return runErr
	}
	return waitErr
}

// readStdout frames each bot stdout line as a "data" message to the judge.
func (b *Bridge) readStdout(stdout io.Reader) error {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if b.comm != nil {
			b.comm.WriteStdout(line)
		}
		if err := wire.SendData(b.conn, line); err != nil {
			return fmt.Errorf("bridge: send to judge: %w", err)
		}
	}
	return scanner.Err()
}

// readStderr logs the bot's stderr without forwarding it anywhere.
func (b *Bridge) readStderr(stderr io.Reader) error {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := scanner.Text()
		if b.comm != nil {
			b.comm.WriteStderr(line)
		}
		b.logger.Debug().Str("stream", "stderr").Msg(line)
	}
	return scanner.Err()
}

// listenToJudge reads framed messages from the judge and writes their
// payload (with trailing newline intact) to the bot's stdin.
func (b *Bridge) listenToJudge(ctx context.Context, stdin io.WriteCloser) error {
	defer stdin.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		payload, err := wire.RecvData(b.conn)
		if err != nil {
			if err == wire.ErrClosed {
				return nil
			}
			return fmt.Errorf("bridge: recv from judge: %w", err)
		}
		if b.comm != nil {
			b.comm.WriteStdin(payload)
		}
		if _, err := io.WriteString(stdin, payload); err != nil {
			return fmt.Errorf("bridge: write to bot stdin: %w", err)
		}
	}
}

// Close terminates the bot subprocess and the judge connection.
func (b *Bridge) Close() {
	if b.cmd.Process != nil {
		b.cmd.Process.Kill()
	}
	b.conn.Close()
}
