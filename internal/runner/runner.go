// Package runner drives the Turn Runner: it accepts client connections,
// broadcasts the environment's reset string, loops the environment's
// scheduler under per-step timeouts, and finally signals the end of the
// match to every slot. It never touches the environment's replay state
// directly; that is owned entirely by the environment.
package runner

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/lox/gridrace/internal/env"
	"github.com/lox/gridrace/internal/wire"
)

// EndSentinel is the reserved observation that signals match termination.
// Environments must never produce it in a normal observation.
const EndSentinel = "~~~END~~~\n"

// Config configures one match run.
type Config struct {
	NumPlayers        int
	StepTimeout       time.Duration
	ConnectionTimeout time.Duration
	// ClientAddresses, if non-empty, must have len == NumPlayers. Each
	// accepted peer's IP must appear in this list and at most once; any
	// other address is rejected, and list entries that never connect leave
	// a permanently disconnected slot.
	ClientAddresses []string
	Clock           quartz.Clock
	Logger          zerolog.Logger
	Monitor         Monitor
	// ListenAddr overrides the fixed judge port; empty means ":10000". Tests
	// use "127.0.0.1:0" to bind an ephemeral port.
	ListenAddr string
}

func (c *Config) normalize() {
	if c.Clock == nil {
		c.Clock = quartz.NewReal()
	}
	if c.Monitor == nil {
		c.Monitor = NullMonitor{}
	}
	if c.ListenAddr == "" {
		c.ListenAddr = fmt.Sprintf(":%d", JudgePort)
	}
}

// slot wraps one client connection. A dead slot silently drops sends and
// immediately yields a failed read, but is never removed from the player
// list so indices stay stable.
type slot struct {
	conn net.Conn
	dead bool
}

// Runner is the accept-broadcast-loop-terminate state machine for one match.
type Runner struct {
	cfg      Config
	listener net.Listener
	slots    []*slot
}

// New constructs a Runner. Call Accept then Run.
func New(cfg Config) *Runner {
	cfg.normalize()
	return &Runner{cfg: cfg}
}

// JudgePort is the fixed listening port for the wire protocol.
const JudgePort = 10000

// Listen opens the listening socket without accepting any connections yet,
// so callers (and tests) can learn the bound address before the accept loop
// starts blocking.
func (r *Runner) Listen() error {
	ln, err := net.Listen("tcp", r.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("runner: listen: %w", err)
	}
	r.listener = ln
	return nil
}

// Accept opens the listening socket (if Listen hasn't already been called)
// and accepts up to NumPlayers connections within ConnectionTimeout,
// honoring the ClientAddresses allow-list if set. Slots that never connect
// are left permanently disconnected rather than failing the match (a
// "startup error" per the error-handling design).
func (r *Runner) Accept() error {
	if r.listener == nil {
		if err := r.Listen(); err != nil {
			return err
		}
	}
	ln := r.listener
	defer ln.Close()

	if tl, ok := ln.(*net.TCPListener); ok {
		tl.SetDeadline(time.Now().Add(r.cfg.ConnectionTimeout))
	}

	r.cfg.Monitor.OnWaitingForPlayers(r.cfg.NumPlayers)
	r.cfg.Logger.Info().Msg("Waiting for players to connect...")

	byAddr := make(map[string]net.Conn)
	order := make([]net.Conn, 0, r.cfg.NumPlayers)

	for i := 0; i < r.cfg.NumPlayers; i++ {
		conn, err := ln.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				r.cfg.Logger.Warn().Msg("connection timed out; may not have enough players")
				break
			}
			return fmt.Errorf("runner: accept: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(r.cfg.StepTimeout))

		addr := hostOf(conn.RemoteAddr())
		if len(r.cfg.ClientAddresses) > 0 {
			if _, dup := byAddr[addr]; dup {
				return fmt.Errorf("runner: multiple connections from the same address: %s", addr)
			}
		}
		byAddr[addr] = conn
		order = append(order, conn)
		r.cfg.Monitor.OnPlayerConnected(i, addr)
		r.cfg.Logger.Info().Str("addr", addr).Msg("Player connected")
	}

	r.slots = make([]*slot, r.cfg.NumPlayers)
	if len(r.cfg.ClientAddresses) > 0 {
		allowed := make(map[string]bool, len(r.cfg.ClientAddresses))
		for _, a := range r.cfg.ClientAddresses {
			allowed[a] = true
		}
		for addr := range byAddr {
			if !allowed[addr] {
				return fmt.Errorf("runner: got invalid connection from %s", addr)
			}
		}
		for i, want := range r.cfg.ClientAddresses {
			if conn, ok := byAddr[want]; ok {
				r.slots[i] = &slot{conn: conn}
			} else {
				r.cfg.Logger.Info().Str("addr", want).Msg("No connection from expected address")
				r.cfg.Monitor.OnPlayerMissing(i)
				r.slots[i] = &slot{dead: true}
			}
		}
	} else {
		i := 0
		for _, conn := range order {
			r.slots[i] = &slot{conn: conn}
			i++
		}
		for ; i < r.cfg.NumPlayers; i++ {
			r.cfg.Monitor.OnPlayerMissing(i)
			r.slots[i] = &slot{dead: true}
		}
	}
	return nil
}

func hostOf(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

// Run drives the environment's scheduler to completion: broadcast reset,
// loop next_player/observation/read/step, then signal the end and return
// scores.
func (r *Runner) Run(e env.Environment) ([]int, error) {
	r.cfg.Monitor.OnMatchStart()
	r.cfg.Logger.Info().Msg("Started the run.")

	initial := ensureTrailingNewline(e.Reset())
	for i := range r.slots {
		r.sendTo(i, initial)
	}

	var current *int
	for {
		next := e.NextPlayer(current)
		if next == nil {
			break
		}
		current = next
		i := *current

		obs := ensureTrailingNewline(e.Observation(i))
		r.sendTo(i, obs)

		input, timedOut := r.readFrom(i, e)
		if timedOut || input == nil {
			r.cfg.Monitor.OnInvalidInput(i)
			r.cfg.Logger.Warn().Int("slot", i).Msg("Invalid input or timeout")
			e.InvalidPlayerInput(i)
		} else {
			e.Step(i, input)
		}
	}

	if mt, ok := e.(maxTurnsReporter); ok {
		if reached, turns := mt.MaxTurnsReached(); reached {
			r.cfg.Monitor.OnMaxTurnsReached(turns)
			r.cfg.Logger.Info().Int("turns", turns).Msg("Reached max turn limit")
		}
	}

	r.cfg.Logger.Info().Msg("Run ends, sending the end signal to everyone...")
	for i := range r.slots {
		r.sendTo(i, EndSentinel)
	}

	scores := e.Scores()
	r.cfg.Monitor.OnMatchComplete(scores)
	r.cfg.Logger.Info().Ints("scores", scores).Msg("Final scores")
	return scores, nil
}

// maxTurnsReporter is an optional capability an Environment may implement so
// Run can distinguish a turn-cap termination from every player finishing;
// both present as NextPlayer returning nil.
type maxTurnsReporter interface {
	MaxTurnsReached() (bool, int)
}

func ensureTrailingNewline(s string) string {
	if s == "" || s[len(s)-1] != '\n' {
		return s + "\n"
	}
	return s
}

// sendTo writes an observation to a slot; dead or disconnected slots are
// silently skipped, and a failed send marks the slot dead.
func (r *Runner) sendTo(i int, payload string) {
	s := r.slots[i]
	if s.dead || s.conn == nil {
		return
	}
	if err := wire.SendData(s.conn, payload); err != nil {
		r.cfg.Logger.Warn().Int("slot", i).Err(err).Msg("failed to send to player")
		s.dead = true
	}
}

// lineReader adapts one slot's connection into env.LineReader, enforcing the
// configured step deadline and reporting it distinctly from protocol errors.
type lineReader struct {
	s *slot
}

func (lr *lineReader) ReadLine() (string, error) {
	if lr.s.dead || lr.s.conn == nil {
		return "", errors.New("runner: player not connected")
	}
	data, err := wire.RecvData(lr.s.conn)
	if err != nil {
		if ne, ok := err.(net.Error); !ok || !ne.Timeout() {
			lr.s.dead = true
		}
		return "", err
	}
	return data, nil
}

// readFrom times the whole ReadPlayerInput call with the configured clock,
// matching the reference implementation's wall-clock deadline check: the
// cost charged to a turn is the full call, not just the underlying recv.
func (r *Runner) readFrom(i int, e env.Environment) (input interface{}, timedOut bool) {
	s := r.slots[i]
	if s.conn != nil {
		s.conn.SetReadDeadline(time.Now().Add(r.cfg.StepTimeout))
	}

	start := r.cfg.Clock.Now()
	input = e.ReadPlayerInput(&lineReader{s: s})
	elapsed := r.cfg.Clock.Now().Sub(start)

	if elapsed > r.cfg.StepTimeout {
		return nil, true
	}
	return input, false
}

// Addr returns the listener's bound address, valid after a successful Accept.
func (r *Runner) Addr() net.Addr {
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// Close releases the listener and any still-open client connections.
func (r *Runner) Close() {
	if r.listener != nil {
		r.listener.Close()
	}
	for _, s := range r.slots {
		if s != nil && s.conn != nil {
			s.conn.Close()
		}
	}
}
