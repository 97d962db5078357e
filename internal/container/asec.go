package container

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/kvold/vold/internal/volerrors"
)

// sectorSize is the 512-byte sector unit AsecCmd::runCommand's size
// computation uses ((atoi(argv[3]) * (1024*1024)) / 512).
const sectorSize = 512

// SectorsForSizeMB converts a requested ASEC size in megabytes to a
// sector count, lifted directly from
// original_source/CommandListener.cpp's AsecCmd create handler.
func SectorsForSizeMB(sizeMB int) int {
	return (sizeMB * 1024 * 1024) / sectorSize
}

// CreateAsec allocates a fresh, zero-filled backing file under a
// randomly generated staging name, formats it with the requested
// filesystem's registered FsDriver (falling back to the "fat" driver
// when fstype has none registered), and only
// then renames it into its id-addressed final path, mirroring
// VolumeManager::createAsec minus the key-management and ownership
// steps spec.md §1 places out of scope. Staging under a fresh name
// (rather than allocating/formatting directly at <id>.asec) means a
// crash or failed format never leaves a half-written file visible to a
// later Mount/Path/List("asec") lookup for id.
func (r *Registry) CreateAsec(id string, sectors int, fstype string, ownerUID int) error {
	r.lockActiveContainers()
	defer r.unlockActiveContainers()

	if _, ok := r.containers[key(KindASEC, id)]; ok {
		return fmt.Errorf("%w: asec %s already exists", volerrors.ErrInvalidArgument, id)
	}

	imagePath := filepath.Join(r.asecDir, id+".asec")
	stagingPath := filepath.Join(r.asecDir, "."+uuid.New().String()+".asec-staging")
	if err := allocateImage(stagingPath, int64(sectors)*sectorSize); err != nil {
		return err
	}
	defer os.Remove(stagingPath)

	driver := r.fsDrivers.Get(fstype)
	if driver == nil {
		driver = r.fsDrivers.Get("fat")
	}
	if driver == nil {
		return volerrors.ErrUnsupportedFS
	}

	dev, err := r.loops.Acquire(stagingPath, false)
	if err != nil {
		return err
	}
	defer r.loops.Release(stagingPath)

	if err := driver.Format(dev, false); err != nil {
		return fmt.Errorf("format asec %s: %w", id, err)
	}

	if err := os.Rename(stagingPath, imagePath); err != nil {
		return fmt.Errorf("finalize asec %s: %w", id, err)
	}
	return nil
}

// DestroyAsec removes an ASEC container's backing file, unmounting it
// first if still mounted; an unmount failure aborts the destroy unless
// force was requested. The lookup, unmount,
// and file removal all happen under one hold of the container lock so a
// concurrent "asec create" for the same id can't race the destroy
// (spec.md §8 property 10).
func (r *Registry) DestroyAsec(id string, force bool) error {
	r.lockActiveContainers()
	defer r.unlockActiveContainers()

	if _, err := r.pathLocked(KindASEC, id); err == nil {
		if err := r.unmountLocked(KindASEC, id, force); err != nil && !force {
			return err
		}
	}
	imagePath := filepath.Join(r.asecDir, id+".asec")
	return os.Remove(imagePath)
}

// RenameAsec moves an ASEC container's backing file under a new id,
// only valid while unmounted, matching VolumeManager::renameAsec's
// "must not be currently mounted" precondition.
func (r *Registry) RenameAsec(oldID, newID string) error {
	r.lockActiveContainers()
	defer r.unlockActiveContainers()

	if _, ok := r.containers[key(KindASEC, oldID)]; ok {
		return volerrors.ErrBusy
	}

	oldPath := filepath.Join(r.asecDir, oldID+".asec")
	newPath := filepath.Join(r.asecDir, newID+".asec")
	return os.Rename(oldPath, newPath)
}

// allocateImage creates a sparse, zero-filled regular file of size
// bytes at path, the Go equivalent of dd'ing /dev/zero into a new asec
// image.
func allocateImage(path string, size int64) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := f.Truncate(size); err != nil {
		return fmt.Errorf("truncate %s: %w", path, err)
	}
	return nil
}

