// Package fstrim implements the control socket's "fstrim dotrim"
// command, which walks every currently mounted filesystem and issues a
// discard trim against it, mirroring fstrim_filesystems() in the
// original vold.
package fstrim

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

var skipFsTypes = map[string]bool{
	"proc": true, "sysfs": true, "devtmpfs": true, "devpts": true,
	"tmpfs": true, "cgroup": true, "cgroup2": true, "pstore": true,
	"debugfs": true, "tracefs": true, "mqueue": true, "securityfs": true,
	"autofs": true, "rpc_pipefs": true,
}

// TrimAll runs fstrim against every real mountpoint in /proc/mounts,
// continuing past individual failures and returning the first one
// encountered -- the same best-effort, keep-going behavior
// fstrim_filesystems applies across /proc/mounts.
func TrimAll() error {
	mounts, err := mountpoints()
	if err != nil {
		return err
	}

	var firstErr error
	for _, m := range mounts {
		if err := exec.Command("fstrim", m).Run(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("fstrim %s: %w", m, err)
		}
	}
	return firstErr
}

func mountpoints() ([]string, error) {
	f, err := os.Open("/proc/mounts")
	if err != nil {
		return nil, fmt.Errorf("open /proc/mounts: %w", err)
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		mountPoint, fsType := fields[1], fields[2]
		if skipFsTypes[fsType] {
			continue
		}
		out = append(out, mountPoint)
	}
	return out, scanner.Err()
}
