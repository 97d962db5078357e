package fsdriver

import "fmt"

// NTFS shells out to ntfs-3g (via the generic "mount" front-end),
// mirroring Ntfs::doMount in the original vold.
type NTFS struct{}

func (NTFS) Name() string { return "ntfs" }

func (NTFS) Probe(devicePath, stagingDir string, permMask int) error {
	opts := fmt.Sprintf("rw,uid=media_rw,gid=media_rw,umask=%03o", permMask)
	return run("mount", "-t", "ntfs-3g", "-o", opts, devicePath, stagingDir)
}

func (NTFS) Check(devicePath string) error {
	return run("ntfsfix", "-n", devicePath)
}

func (NTFS) Format(devicePath string, wipe bool) error {
	args := []string{devicePath}
	if wipe {
		args = append([]string{"-Q"}, args...)
	}
	return run("mkntfs", args...)
}
