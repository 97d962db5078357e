package control

import (
	"bufio"
	"fmt"
	"os"
)

// readProcMounts returns /proc/mounts verbatim, one line per entry, for
// the "dump" command's "Dumping mounted filesystems" section.
func readProcMounts() ([]string, error) {
	f, err := os.Open("/proc/mounts")
	if err != nil {
		return nil, fmt.Errorf("open /proc/mounts: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}
