package bridge

import (
	"fmt"
	"path/filepath"
)

// ResolveCommand turns a bot file argument into an executable command line,
// dispatching on file extension the way the original bot launcher does:
// ".py" runs under an unbuffered interpreter, ".mjs"/".js" under node, and an
// extensionless file is executed directly.
func ResolveCommand(path string) ([]string, error) {
	switch filepath.Ext(path) {
	case ".py":
		return []string{"python3", "-u", path}, nil
	case ".mjs", ".js":
		return []string{"node", path}, nil
	case "":
		return []string{path}, nil
	default:
		return nil, fmt.Errorf("bridge: don't know how to execute %s", path)
	}
}
