// Package volume implements the per-volume state machine, mount/unmount/
// format orchestration, and kernel-uevent-driven partition discovery
// spec.md §3-§4 describe as Volume/DirectVolume.
package volume

import "fmt"

// State is one of the ten volume lifecycle states spec.md §3 names.
type State int

const (
	StateInit State = iota
	StateNoMedia
	StateIdle
	StatePending
	StateChecking
	StateMounted
	StateUnmounting
	StateFormatting
	StateShared
	StateSharedMounted
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateNoMedia:
		return "NoMedia"
	case StateIdle:
		return "Idle"
	case StatePending:
		return "Pending"
	case StateChecking:
		return "Checking"
	case StateMounted:
		return "Mounted"
	case StateUnmounting:
		return "Unmounting"
	case StateFormatting:
		return "Formatting"
	case StateShared:
		return "Shared"
	case StateSharedMounted:
		return "SharedMounted"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Flags is the bitset over {provides_asec, non_removable, encryptable}
// spec.md §3 names.
type Flags int

const (
	FlagProvidesASEC Flags = 1 << iota
	FlagNonRemovable
	FlagEncryptable
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// PartitionWholeDevice is the sentinel PartitionIndex value meaning "no
// specific partition -- the disk itself", spec.md §3's "whole device".
const PartitionWholeDevice = -1

// MaxPartitions bounds PARTN, matching MAX_PARTITIONS in the original
// vold (DirectVolume::handlePartitionAdded validates against it).
const MaxPartitions = 31

// DeviceInfo is the (major, minor, partition index, cached partition
// minor) tuple a volume can save and later restore across a decrypt/
// revert cycle (spec.md §3: "saved original (...) to support reversion").
type DeviceInfo struct {
	DiskMajor  int
	DiskMinor  int
	PartIndex  int
	PartMinor0 int // only index 0 of part_minors[] is ever populated; see directvolume.go
}
