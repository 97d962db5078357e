package fsdriver

import "fmt"

// EXFAT shells out to exfat-fuse/mount.exfat, mirroring Exfat::doMount.
// It is the last filesystem tried in the fixed probe order (spec.md §8
// property 9).
type EXFAT struct{}

func (EXFAT) Name() string { return "exfat" }

func (EXFAT) Probe(devicePath, stagingDir string, permMask int) error {
	opts := fmt.Sprintf("rw,uid=media_rw,gid=media_rw,umask=%03o", permMask)
	return run("mount", "-t", "exfat", "-o", opts, devicePath, stagingDir)
}

func (EXFAT) Check(devicePath string) error {
	return run("fsck.exfat", devicePath)
}

func (EXFAT) Format(devicePath string, _ bool) error {
	return run("mkfs.exfat", devicePath)
}
