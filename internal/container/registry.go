package container

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kvold/vold/internal/container/looppool"
	"github.com/kvold/vold/internal/fsdriver"
	"github.com/kvold/vold/internal/mountops"
	"github.com/kvold/vold/internal/processkiller"
	"github.com/kvold/vold/internal/volerrors"
)

// Registry tracks every mounted ASEC/OBB/ISO container and serializes
// all container operations behind one mutex, the Go equivalent of
// VolumeManager::lockActiveContainers()/unlockActiveContainers() --
// the original vold takes a single process-wide lock around every asec/
// obb/iso command rather than locking per-container, and this keeps
// that same coarse-grained contract (spec.md §4.6).
type Registry struct {
	mu sync.Mutex

	containers map[string]*Container // keyed by Kind.String()+":"+ID
	loops      *looppool.Pool
	killer     processkiller.Killer
	fsDrivers  *fsdriver.Registry
	log        zerolog.Logger

	asecDir  string
	obbDir   string
	isoDir   string
}

// New builds an empty Registry rooted at the given per-kind directories
// (spec.md §6: /mnt/asec, /mnt/obb, /mnt/iso by default).
func New(asecDir, obbDir, isoDir string, loops *looppool.Pool, killer processkiller.Killer, fsDrivers *fsdriver.Registry, log zerolog.Logger) *Registry {
	return &Registry{
		containers: make(map[string]*Container),
		loops:      loops,
		killer:     killer,
		fsDrivers:  fsDrivers,
		log:        log,
		asecDir:    asecDir,
		obbDir:     obbDir,
		isoDir:     isoDir,
	}
}

func key(kind Kind, id string) string { return kind.String() + ":" + id }

// AsecImagePath returns the backing-file path CreateAsec/DestroyAsec/
// Mount(KindASEC, ...) all derive id's image path from.
func (r *Registry) AsecImagePath(id string) string {
	return filepath.Join(r.asecDir, id+".asec")
}

func (r *Registry) dirFor(kind Kind) string {
	switch kind {
	case KindASEC:
		return r.asecDir
	case KindOBB:
		return r.obbDir
	case KindISO:
		return r.isoDir
	default:
		return ""
	}
}

// lockActiveContainers and unlockActiveContainers are split out as
// named methods, even though they're a one-line mutex lock/unlock,
// because every container command in the original vold brackets its
// body with exactly these two calls -- keeping them named documents
// that relationship instead of burying it in an anonymous defer.
func (r *Registry) lockActiveContainers()   { r.mu.Lock() }
func (r *Registry) unlockActiveContainers() { r.mu.Unlock() }

// Mount loop-attaches imagePath and mounts it at the container's
// standard path (<kindDir>/<id>), matching the mountAsec/mountObb/
// mountIso shape: attach, mkdir, mount, record.
func (r *Registry) Mount(kind Kind, id, imagePath string, readOnly bool) (string, error) {
	r.lockActiveContainers()
	defer r.unlockActiveContainers()

	k := key(kind, id)
	if existing, ok := r.containers[k]; ok {
		return existing.MountPoint, nil
	}

	if _, err := os.Stat(imagePath); err != nil {
		return "", fmt.Errorf("%w: %s", volerrors.ErrNoDevice, imagePath)
	}

	dev, err := r.loops.Acquire(imagePath, readOnly)
	if err != nil {
		return "", err
	}

	mountPoint := filepath.Join(r.dirFor(kind), id)
	if err := os.MkdirAll(mountPoint, 0o755); err != nil {
		_ = r.loops.Release(imagePath)
		return "", err
	}

	driver := r.fsDriverFor(kind)
	if err := driver.Probe(dev, mountPoint, 0); err != nil {
		_ = r.loops.Release(imagePath)
		return "", fmt.Errorf("mount %s container %s: %w", kind, id, err)
	}

	r.containers[k] = &Container{
		Kind: kind, ID: id, ImagePath: imagePath,
		MountPoint: mountPoint, LoopDevice: dev, ReadOnly: readOnly,
	}
	return mountPoint, nil
}

// Unmount tears down a previously Mounted container: doUnmount its
// mountpoint, then release its loop device.
func (r *Registry) Unmount(kind Kind, id string, force bool) error {
	r.lockActiveContainers()
	defer r.unlockActiveContainers()
	return r.unmountLocked(kind, id, force)
}

// unmountLocked is Unmount's body, factored out so callers that already
// hold r.mu for a multi-step sequence (DestroyAsec, Drain) don't have to
// recursively lock a non-reentrant mutex.
func (r *Registry) unmountLocked(kind Kind, id string, force bool) error {
	k := key(kind, id)
	c, ok := r.containers[k]
	if !ok {
		return volerrors.ErrNotMounted
	}

	if err := mountops.DoUnmount(c.MountPoint, force, r.killer); err != nil {
		return err
	}
	if err := r.loops.Release(c.ImagePath); err != nil {
		r.log.Warn().Err(err).Str("container", id).Msg("failed to release loop device")
	}

	delete(r.containers, k)
	return nil
}

// List returns a snapshot of every currently mounted container of kind.
func (r *Registry) List(kind Kind) []Container {
	r.lockActiveContainers()
	defer r.unlockActiveContainers()

	var out []Container
	for _, c := range r.containers {
		if c.Kind == kind {
			out = append(out, *c)
		}
	}
	return out
}

// Path returns the mount path of a container, or ErrNotMounted.
func (r *Registry) Path(kind Kind, id string) (string, error) {
	r.lockActiveContainers()
	defer r.unlockActiveContainers()
	return r.pathLocked(kind, id)
}

func (r *Registry) pathLocked(kind Kind, id string) (string, error) {
	c, ok := r.containers[key(kind, id)]
	if !ok {
		return "", volerrors.ErrNotMounted
	}
	return c.MountPoint, nil
}

func (r *Registry) fsDriverFor(kind Kind) fsdriver.FsDriver {
	if kind == KindISO {
		if d := r.fsDrivers.Get("iso9660"); d != nil {
			return d
		}
	}
	return r.fsDrivers.Get("fat")
}

// Drain implements volume.ContainerCoordinator: unmounts every ISO
// container associated with hostLabel, optionally pauses, then unmounts
// every ASEC container associated with hostLabel (spec.md §4.4 step 2's
// ISO-then-ASEC order) -- all under a single hold of the container
// lock, so a concurrent asec/obb/iso command for the same host can't
// observe or race a partially-drained state (spec.md §4.1, §8
// property 10).
func (r *Registry) Drain(hostLabel string, force bool, asecDelay time.Duration) error {
	r.lockActiveContainers()
	defer r.unlockActiveContainers()

	isoErr := r.cleanupHostContainersLocked(KindISO, hostLabel, force)
	if asecDelay > 0 {
		time.Sleep(asecDelay)
	}
	asecErr := r.cleanupHostContainersLocked(KindASEC, hostLabel, force)
	if isoErr != nil {
		return isoErr
	}
	return asecErr
}

// cleanupHostContainersLocked assumes r.mu is already held.
func (r *Registry) cleanupHostContainersLocked(kind Kind, hostLabel string, force bool) error {
	var toUnmount []string
	for k, c := range r.containers {
		if c.Kind == kind && c.HostLabel == hostLabel {
			toUnmount = append(toUnmount, k)
		}
	}

	var firstErr error
	for _, k := range toUnmount {
		c, ok := r.containers[k]
		if !ok {
			continue
		}
		if err := r.unmountLocked(c.Kind, c.ID, force); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
