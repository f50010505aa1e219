package bridge

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// CommLogger records every line crossing the bridge's stdout/stderr/stdin
// streams to a single timestamped file, guarded by a mutex so the three
// concurrent tasks never interleave partial lines.
type CommLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewCommLogger opens "communication.<runID>.log" in dir.
func NewCommLogger(dir, runID string) (*CommLogger, error) {
	path := fmt.Sprintf("%s/communication.%s.log", dir, runID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("bridge: open comm log: %w", err)
	}
	return &CommLogger{file: f}, nil
}

func (l *CommLogger) write(stream, line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.file, "%s [%s] %s\n", time.Now().Format(time.RFC3339Nano), stream, line)
}

// WriteStdout records a line read from the bot's stdout.
func (l *CommLogger) WriteStdout(line string) { l.write("stdout", line) }

// WriteStderr records a line read from the bot's stderr.
func (l *CommLogger) WriteStderr(line string) { l.write("stderr", line) }

// WriteStdin records a line written to the bot's stdin.
func (l *CommLogger) WriteStdin(line string) { l.write("stdin", line) }

// Close closes the underlying log file.
func (l *CommLogger) Close() error {
	return l.file.Close()
}
