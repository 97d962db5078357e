package volume

import (
	"sync/atomic"
	"time"

	"github.com/kvold/vold/internal/cryptfs"
	"github.com/kvold/vold/internal/devicenode"
	"github.com/kvold/vold/internal/fsdriver"
	"github.com/kvold/vold/internal/processkiller"
)

// ContainerCoordinator is the slice of VolumeManager/ContainerRegistry
// that unmountVol needs: draining dependent ISO and ASEC containers
// before the host volume itself comes down (spec.md §4.4 step 2). Drain
// holds the container lock for its entire duration -- including the
// pause between the ISO and ASEC passes -- so a concurrent asec/obb/iso
// command for the same host can never race the teardown (spec.md §4.1's
// "Key cross-cutting contract", §8 property 10).
type ContainerCoordinator interface {
	Drain(hostLabel string, force bool, asecDelay time.Duration) error
}

// ShareCoordinator is the slice of VolumeManager that
// handlePartitionRemoved needs: asking it to unshare a volume that was
// lent out for mass storage when its backing partition disappears
// (spec.md §4.2 Remove(partition)).
type ShareCoordinator interface {
	UnshareVolume(label, method string) error
}

// PropertyWriter models the Android-style init property service vold
// writes ctl.start/ctl.stop to in order to start/stop the FUSE
// projection (spec.md §6). Out of scope per spec.md §1; stubbed here.
type PropertyWriter interface {
	SetProperty(key, value string)
}

// NullPropertyWriter discards every property write.
type NullPropertyWriter struct{}

func (NullPropertyWriter) SetProperty(string, string) {}

// Deps bundles every external collaborator a Volume's orchestration
// methods need, injected once at construction the way the teacher's
// MountManager stores its dependencies (logger, format, nbdDeviceExplicit)
// as plain struct fields rather than threading them through every call.
type Deps struct {
	Broadcaster    Broadcaster
	FsDrivers      *fsdriver.Registry
	DeviceNodes    *devicenode.Manager
	Killer         processkiller.Killer
	Crypto         cryptfs.Service
	Containers     ContainerCoordinator
	Shares         ShareCoordinator
	PropertyWriter PropertyWriter
	StagingDir     string
	AsecBindDir    string
}

// atomicState backs Volume.State()/SetState so the Checking spin-wait in
// handlePartitionRemoved (which in this implementation runs on the same
// single dispatch goroutine as every other state mutation, but is kept
// atomic per spec.md §5's own call-out -- see SPEC_FULL.md §7) never
// races a plain int field.
type atomicState struct {
	v atomic.Int32
}

func (a *atomicState) load() State     { return State(a.v.Load()) }
func (a *atomicState) store(s State)   { a.v.Store(int32(s)) }
