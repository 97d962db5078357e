// Package container implements the ASEC/OBB/ISO loopback container
// lifecycle spec.md §4.6 names: secure application containers, OBB
// expansion files, and ISO images are all "a file, loop-mounted
// somewhere under a daemon-owned directory", differing only in naming
// convention and default filesystem.
package container

import "time"

// Kind distinguishes the three container flavors spec.md §4.6 covers.
// They share the same mount/unmount machinery; only their backing
// directory and id-to-path naming differ.
type Kind int

const (
	KindASEC Kind = iota
	KindOBB
	KindISO
)

func (k Kind) String() string {
	switch k {
	case KindASEC:
		return "asec"
	case KindOBB:
		return "obb"
	case KindISO:
		return "iso"
	default:
		return "unknown"
	}
}

// Container is one mounted (or about-to-be-mounted) loopback container,
// the Go stand-in for the bookkeeping VolumeManager::mActiveContainers
// keeps per id in the original vold.
type Container struct {
	Kind       Kind
	ID         string
	ImagePath  string
	MountPoint string
	LoopDevice string
	ReadOnly   bool
	HostLabel  string // volume this container depends on, for cleanup ordering
	MountedAt  time.Time
}
