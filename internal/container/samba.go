package container

import (
	"context"
	"os"
	"time"

	"github.com/kvold/vold/internal/fsdriver"
	"github.com/kvold/vold/internal/mountops"
	"github.com/kvold/vold/internal/volerrors"
)

// SambaMounts tracks active CIFS mounts, separately from the loopback-
// backed ASEC/OBB/ISO containers since a Samba share has no loop device
// to release on teardown -- only a mountpoint to unmount, matching
// VolumeManager::mountSamba/unmountSamba's narrower bookkeeping.
type SambaMounts struct {
	registry *Registry
}

// NewSambaMounts builds a SambaMounts helper sharing the Registry's
// lock and killer so concurrent samba and asec/obb/iso commands don't
// race each other, matching the single lockActiveContainers() scope the
// original vold takes around every container command.
func NewSambaMounts(registry *Registry) *SambaMounts {
	return &SambaMounts{registry: registry}
}

// Mount probes reachability with go-smb2 before exec'ing mount.cifs,
// matching VolumeManager::mountSamba's shape: host, share, mountpoint,
// credentials, and ro/noexec option flags (spec.md §4.6).
func (s *SambaMounts) Mount(host, share, mountPoint, user, pass string, ro, noexec bool) error {
	s.registry.lockActiveContainers()
	defer s.registry.unlockActiveContainers()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fsdriver.Reachable(ctx, host, share, user, pass); err != nil {
		return err
	}

	if err := os.MkdirAll(mountPoint, 0o755); err != nil {
		return err
	}

	return fsdriver.MountShare(host, share, mountPoint, user, pass, ro, noexec)
}

// Unmount tears down a previously mounted Samba share at mountPoint.
func (s *SambaMounts) Unmount(mountPoint string, force bool) error {
	s.registry.lockActiveContainers()
	defer s.registry.unlockActiveContainers()

	if mounted, _ := mountops.IsMounted(mountPoint); !mounted {
		return volerrors.ErrNotMounted
	}
	return mountops.DoUnmount(mountPoint, force, s.registry.killer)
}
