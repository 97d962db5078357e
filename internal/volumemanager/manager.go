// Package volumemanager owns the set of configured volumes, dispatches
// kernel uevents to the one whose declared sysfs paths match, and
// exposes the mount/unmount/format/share command surface the control
// socket calls into. It is constructed explicitly -- spec.md §9's design
// note against a VolumeManager::Instance() singleton -- so every caller,
// test included, builds its own.
package volumemanager

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kvold/vold/internal/container"
	"github.com/kvold/vold/internal/netlink"
	"github.com/kvold/vold/internal/volerrors"
	"github.com/kvold/vold/internal/volume"
)

// Manager dispatches kernel events to volumes and exposes the command
// surface internal/control calls into.
type Manager struct {
	log zerolog.Logger

	volsMu sync.RWMutex
	vols   []volume.Volume

	containerLock sync.Mutex
	containers    *container.Registry
	samba         *container.SambaMounts

	broadcaster *Broadcaster
}

// New builds a Manager over an already-constructed set of volumes.
// Volumes are built by the caller (cmd/vold/main.go, or a test) from
// config.VolumeSpec entries via volume.NewDirectVolume, since
// constructing them requires the shared volume.Deps bundle this package
// doesn't own.
func New(log zerolog.Logger, vols []volume.Volume, containers *container.Registry, samba *container.SambaMounts, broadcaster *Broadcaster) *Manager {
	return &Manager{
		log:         log,
		vols:        vols,
		containers:  containers,
		samba:       samba,
		broadcaster: broadcaster,
	}
}

// lockActiveContainers mirrors VolumeManager::lockActiveContainers,
// returning the unlock half so call sites read as
// `defer vm.lockActiveContainers()()`.
func (m *Manager) lockActiveContainers() func() {
	m.containerLock.Lock()
	return m.containerLock.Unlock
}

// Volumes returns the configured volume set.
func (m *Manager) Volumes() []volume.Volume {
	m.volsMu.RLock()
	defer m.volsMu.RUnlock()
	out := make([]volume.Volume, len(m.vols))
	copy(out, m.vols)
	return out
}

// Broadcaster returns the shared Broadcaster every configured volume's
// volume.Deps was constructed with, so cmd/vold/main.go and
// internal/control can both reach it without a separate wiring path.
func (m *Manager) Broadcaster() *Broadcaster { return m.broadcaster }

// Find returns the volume with the given label, or nil.
func (m *Manager) Find(label string) volume.Volume {
	m.volsMu.RLock()
	defer m.volsMu.RUnlock()
	for _, v := range m.vols {
		if v.Label() == label {
			return v
		}
	}
	return nil
}

// Dispatch implements spec.md §4.1's ownership algorithm: the event
// belongs to whichever volume has a SysfsPaths entry that is a prefix of
// evt.DevPath. Ties are resolved by declaration order, the same
// first-match-wins rule VolumeManager::handleBlockEvent applies when
// walking mVolumes.
func (m *Manager) Dispatch(evt netlink.Event) error {
	m.volsMu.RLock()
	vols := m.vols
	m.volsMu.RUnlock()

	for _, v := range vols {
		for _, prefix := range v.SysfsPaths() {
			if strings.HasPrefix(evt.DevPath, prefix) {
				wasPending := v.State() == volume.StatePending
				if err := v.HandleBlockEvent(evt); err != nil {
					return err
				}
				if wasPending && v.State() == volume.StateIdle && v.RetryMount() {
					v.SetRetryMount(false)
					label := v.Label()
					go func() {
						if err := m.Mount(label); err != nil {
							m.log.Warn().Err(err).Str("volume", label).Msg("retry mount failed")
						}
					}()
				}
				return nil
			}
		}
	}
	return fmt.Errorf("%w: %s", volerrors.ErrNotHandled, evt.DevPath)
}
