package volumemanager

import (
	"fmt"

	"github.com/kvold/vold/internal/container"
	"github.com/kvold/vold/internal/volerrors"
	"github.com/kvold/vold/internal/volume"
)

func (m *Manager) findOrErr(label string) (volume.Volume, error) {
	v := m.Find(label)
	if v == nil {
		return nil, fmt.Errorf("%w: no such volume %s", volerrors.ErrInvalidArgument, label)
	}
	return v, nil
}

// MountVolume implements the `volume mount <path>` command, dispatching
// to the named volume's Mount, matching VolumeManager::mountVolume.
func (m *Manager) MountVolume(label string) error {
	v, err := m.findOrErr(label)
	if err != nil {
		return err
	}
	return v.Mount()
}

// Mount is Dispatch's retry-mount entry point, identical to MountVolume;
// kept as a separate name so manager.go's retry goroutine reads as
// calling a scheduled action rather than handling a client command.
func (m *Manager) Mount(label string) error {
	return m.MountVolume(label)
}

// UnmountVolume implements `volume unmount <path> [force|force_and_revert]`.
func (m *Manager) UnmountVolume(label string, force, revert bool) error {
	v, err := m.findOrErr(label)
	if err != nil {
		return err
	}
	return v.Unmount(force, revert)
}

// FormatVolume implements `volume format <path> [wipe]`.
func (m *Manager) FormatVolume(label string, wipe bool) error {
	v, err := m.findOrErr(label)
	if err != nil {
		return err
	}
	return v.Format(wipe)
}

// ShareVolume implements `volume share <path> <method>` -- only the
// "ums" (USB mass storage) method spec.md names is supported; any other
// method is rejected the way VolumeManager::shareVolume rejects a
// method it has no ShareCoordinator for.
func (m *Manager) ShareVolume(label, method string) error {
	if method != "ums" {
		return fmt.Errorf("%w: unsupported share method %s", volerrors.ErrInvalidArgument, method)
	}
	v, err := m.findOrErr(label)
	if err != nil {
		return err
	}
	if v.State() != volume.StateMounted {
		return volerrors.ErrNotMounted
	}
	v.SetState(volume.StateShared)
	return nil
}

// UnshareVolume implements volume.ShareCoordinator, called both from
// the `volume unshare` command and from DirectVolume's
// handlePartitionRemoved when a shared volume's backing partition
// disappears (spec.md §4.2 Remove(partition)).
func (m *Manager) UnshareVolume(label, method string) error {
	if method != "ums" {
		return fmt.Errorf("%w: unsupported share method %s", volerrors.ErrInvalidArgument, method)
	}
	v := m.Find(label)
	if v == nil {
		return fmt.Errorf("%w: no such volume %s", volerrors.ErrInvalidArgument, label)
	}
	if v.State() != volume.StateShared {
		return nil
	}
	v.SetState(volume.StateMounted)
	return nil
}

// ShareEnabled implements `volume shared <path> <method>`.
func (m *Manager) ShareEnabled(label, method string) (bool, error) {
	if method != "ums" {
		return false, fmt.Errorf("%w: unsupported share method %s", volerrors.ErrInvalidArgument, method)
	}
	v, err := m.findOrErr(label)
	if err != nil {
		return false, err
	}
	return v.State() == volume.StateShared, nil
}

// MountAsec, UnmountAsec, CreateAsec, DestroyAsec, RenameAsec, AsecPath
// forward to the container registry, taking the Manager's container
// lock for the duration (the registry also takes its own Registry.mu
// inside each call) -- the Go equivalent of every
// CommandListener::AsecCmd handler bracketing its body with
// lockActiveContainers()/unlockActiveContainers().
func (m *Manager) MountAsec(id, key string, ownerUID int) (string, error) {
	defer m.lockActiveContainers()()
	_ = key // key-management backend out of scope, spec.md §1
	return m.containers.Mount(container.KindASEC, id, m.containers.AsecImagePath(id), false)
}

func (m *Manager) UnmountAsec(id string, force bool) error {
	defer m.lockActiveContainers()()
	return m.containers.Unmount(container.KindASEC, id, force)
}

func (m *Manager) CreateAsec(id string, sizeMB int, fstype, key string, ownerUID int) error {
	defer m.lockActiveContainers()()
	_ = key
	return m.containers.CreateAsec(id, container.SectorsForSizeMB(sizeMB), fstype, ownerUID)
}

func (m *Manager) DestroyAsec(id string, force bool) error {
	defer m.lockActiveContainers()()
	return m.containers.DestroyAsec(id, force)
}

func (m *Manager) RenameAsec(oldID, newID string) error {
	defer m.lockActiveContainers()()
	return m.containers.RenameAsec(oldID, newID)
}

func (m *Manager) AsecPath(id string) (string, error) {
	defer m.lockActiveContainers()()
	return m.containers.Path(container.KindASEC, id)
}

// MountObb, UnmountObb implement `obb mount <filename> <key> <ownerGid>`
// and `obb unmount <filename> [force]`.
func (m *Manager) MountObb(filename, key string, ownerGID int) (string, error) {
	defer m.lockActiveContainers()()
	_ = key
	return m.containers.MountObb(filename, filename)
}

func (m *Manager) UnmountObb(filename string, force bool) error {
	defer m.lockActiveContainers()()
	return m.containers.UnmountObb(filename, force)
}

// MountISO, UnmountISO implement `iso mount <filename>` and
// `iso unmount <path> [force]`.
func (m *Manager) MountISO(id, imagePath, hostLabel string) (string, error) {
	defer m.lockActiveContainers()()
	return m.containers.MountISO(id, imagePath, hostLabel)
}

func (m *Manager) UnmountISO(id string, force bool) error {
	defer m.lockActiveContainers()()
	return m.containers.UnmountISO(id, force)
}

// MountSamba, UnmountSamba implement
// `samba mount <host> <share> <mountpoint> <user> <pass> <ro> <noexec>`
// and `samba unmount <mountpoint> [force]`.
func (m *Manager) MountSamba(host, share, mountPoint, user, pass string, ro, noexec bool) error {
	defer m.lockActiveContainers()()
	return m.samba.Mount(host, share, mountPoint, user, pass, ro, noexec)
}

func (m *Manager) UnmountSamba(mountPoint string, force bool) error {
	defer m.lockActiveContainers()()
	return m.samba.Unmount(mountPoint, force)
}
