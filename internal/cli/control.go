package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// readPID parses the decimal PID out of the lock file named by path.
func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read lock file %s: %w", path, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("malformed lock file %s", path)
	}
	return pid, nil
}
