package fsdriver

import (
	"fmt"
	"os/exec"
)

// run shells out to name with args, returning combined output on
// failure for log context -- the same pattern the teacher's
// mountmanager.go uses for every "mount"/"qemu-nbd"/"sfdisk" call.
func run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %v: %w: %s", name, args, err, out)
	}
	return nil
}
