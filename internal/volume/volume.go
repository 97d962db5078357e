package volume

import (
	"fmt"

	"github.com/kvold/vold/internal/netlink"
	"github.com/kvold/vold/internal/responsecode"
)

// Volume is the tagged-variant interface spec.md §9's design notes call
// for in place of a base-class/derived-class pair: one interface, one
// concrete implementation (DirectVolume) today, with room for another
// (e.g. a network-share volume) without touching the orchestration code
// in mount.go/unmount.go/format.go.
type Volume interface {
	Label() string
	MountPoint() string
	PublicMountPoint() string
	FuseMountpoint() string
	State() State
	SetState(s State)
	Flags() Flags
	SysfsPaths() []string
	RetryMount() bool
	SetRetryMount(bool)
	IsDecrypted() bool
	Uuid() string
	UserLabel() string
	SetUuid(string)
	SetUserLabel(string)

	// Mount/Unmount/Format are the shared orchestration methods Base
	// implements once; DirectVolume (and any future Volume subtype)
	// gets them by embedding *Base.
	Mount() error
	Unmount(force, revert bool) error
	Format(wipe bool) error

	// HandleBlockEvent processes one kernel uevent already matched to
	// this volume by VolumeManager's sysfs-path dispatch (spec.md §4.1).
	HandleBlockEvent(evt netlink.Event) error

	// GetDeviceNodes enumerates the (major, minor) candidates mountVol
	// should try, in probe order (spec.md §4.3 step 2).
	GetDeviceNodes() ([]DeviceNode, error)

	// UpdateDeviceInfo rewrites the volume's device identity after a
	// successful decrypt (spec.md §4.3 step 3), saving the original for
	// RevertDeviceInfo.
	UpdateDeviceInfo(newMajor, newMinor int, newSysfsPath string) error
	// RevertDeviceInfo undoes UpdateDeviceInfo.
	RevertDeviceInfo()

	DiskDevice() DeviceNode
}

// DeviceNode is a (major, minor) pair, the Go stand-in for dev_t.
type DeviceNode struct {
	Major int
	Minor int
}

func (d DeviceNode) String() string { return fmt.Sprintf("%d:%d", d.Major, d.Minor) }

// Base implements every method of Volume that doesn't depend on the
// concrete subtype's notion of "where are my device nodes", plus the
// shared Mount/Unmount/Format orchestration in mount.go/unmount.go/
// format.go. Concrete types embed *Base and override
// HandleBlockEvent/GetDeviceNodes/UpdateDeviceInfo/RevertDeviceInfo.
type Base struct {
	label            string
	mountPoint       string
	publicMountPoint string
	fuseMountPoint   string
	flags            Flags
	partIndex        int
	uuid             string
	userLabel        string
	state            atomicState
	currentKdev      *DeviceNode
	isDecrypted      bool
	savedDeviceInfo  *DeviceInfo
	retryMount       bool
	sysfsPaths       []string

	deps Deps
	// self lets Base's orchestration methods call the concrete type's
	// overridden GetDeviceNodes/UpdateDeviceInfo/RevertDeviceInfo --
	// the same "call back into the most-derived type" trick C++
	// achieves with virtual dispatch, done explicitly in Go since there
	// is no implicit vtable.
	self Volume
}

// NewBase constructs the shared volume state. Concrete constructors
// call this, then set b.self to themselves.
func NewBase(label, mountPoint, publicMountPoint string, flags Flags, partIndex int, sysfsPaths []string, deps Deps) *Base {
	b := &Base{
		label:            label,
		mountPoint:       mountPoint,
		publicMountPoint: publicMountPoint,
		fuseMountPoint:   publicMountPoint,
		flags:            flags,
		partIndex:        partIndex,
		sysfsPaths:       sysfsPaths,
		deps:             deps,
	}
	b.state.store(StateInit)
	return b
}

// BindSelf records the most-derived Volume so Base's template-method
// style orchestration can call back into subtype overrides.
func (b *Base) BindSelf(self Volume) { b.self = self }

func (b *Base) Label() string            { return b.label }
func (b *Base) MountPoint() string       { return b.mountPoint }
func (b *Base) PublicMountPoint() string { return b.publicMountPoint }
func (b *Base) FuseMountpoint() string   { return b.fuseMountPoint }
func (b *Base) Flags() Flags             { return b.flags }
func (b *Base) SysfsPaths() []string     { return b.sysfsPaths }
func (b *Base) RetryMount() bool         { return b.retryMount }
func (b *Base) SetRetryMount(v bool)     { b.retryMount = v }
func (b *Base) IsDecrypted() bool        { return b.isDecrypted }
func (b *Base) Uuid() string             { return b.uuid }
func (b *Base) UserLabel() string        { return b.userLabel }

func (b *Base) State() State { return b.state.load() }

// SetState performs the transition bookkeeping Volume::setState does:
// silently dedup no-op transitions, clear a stale retryMount flag
// when leaving Pending for anything but Idle, and broadcast
// VolumeStateChange (spec.md §3 invariants, §7 "every terminal state
// change emits VolumeStateChange").
func (b *Base) SetState(s State) {
	old := b.state.load()
	if old == s {
		return
	}
	if old == StatePending && s != StateIdle {
		b.retryMount = false
	}
	b.state.store(s)

	if b.deps.Broadcaster != nil {
		msg := fmt.Sprintf("Volume %s %s state changed from %d (%s) to %d (%s)",
			b.label, b.fuseMountPoint, int(old), old, int(s), s)
		b.deps.Broadcaster.SendBroadcast(responsecode.VolumeStateChange, msg, false)
	}
}

func (b *Base) SetUuid(uuid string) {
	b.uuid = uuid
	var msg string
	if uuid != "" {
		msg = fmt.Sprintf("%s %s \"%s\"", b.label, b.fuseMountPoint, uuid)
	} else {
		msg = fmt.Sprintf("%s %s", b.label, b.fuseMountPoint)
	}
	if b.deps.Broadcaster != nil {
		b.deps.Broadcaster.SendBroadcast(responsecode.VolumeUuidChange, msg, false)
	}
}

func (b *Base) SetUserLabel(label string) {
	b.userLabel = label
	var msg string
	if label != "" {
		msg = fmt.Sprintf("%s %s \"%s\"", b.label, b.fuseMountPoint, label)
	} else {
		msg = fmt.Sprintf("%s %s", b.label, b.fuseMountPoint)
	}
	if b.deps.Broadcaster != nil {
		b.deps.Broadcaster.SendBroadcast(responsecode.VolumeUserLabelChange, msg, false)
	}
}

func (b *Base) DiskDevice() DeviceNode {
	if b.currentKdev != nil {
		return *b.currentKdev
	}
	return DeviceNode{}
}

