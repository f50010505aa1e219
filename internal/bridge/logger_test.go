package bridge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommLoggerWritesAllStreams(t *testing.T) {
	dir := t.TempDir()
	l, err := NewCommLogger(dir, "run123")
	require.NoError(t, err)

	l.WriteStdout("1 0")
	l.WriteStderr("debug info")
	l.WriteStdin("5 8 1 3\n")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(filepath.Join(dir, "communication.run123.log"))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "[stdout] 1 0")
	assert.Contains(t, content, "[stderr] debug info")
	assert.Contains(t, content, "[stdin] 5 8 1 3")
}
