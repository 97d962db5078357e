// Package fsdriver implements the FsDriver capability spec.md §2 and §4.3
// describe as an abstract adapter per filesystem. Each driver shells out
// to the filesystem-specific mount helper the way the teacher
// (larsks-pmount) shells out to "mount"/"qemu-nbd" for every operation;
// the CIFS driver additionally uses go-smb2 to probe reachability before
// exec'ing mount.cifs.
package fsdriver

// FsDriver adapts one filesystem type to vold's mount/probe/format
// vocabulary. Implementations never need to know about Volume's state
// machine; they're a pure capability the mount orchestration calls.
type FsDriver interface {
	// Name identifies the filesystem for logging, e.g. "ntfs".
	Name() string
	// Probe attempts to mount devicePath at stagingDir using this
	// filesystem's mount helper. A non-nil error means "this is not
	// (or vold couldn't mount it as) this filesystem" -- callers move
	// on to the next driver in probe order, never treating it as fatal
	// on its own.
	Probe(devicePath, stagingDir string, permMask int) error
	// Check runs the filesystem's consistency checker against
	// devicePath, used ahead of mount in stricter deployments. Optional:
	// drivers without a checker return nil.
	Check(devicePath string) error
	// Format writes a fresh filesystem of this type to devicePath.
	Format(devicePath string, wipe bool) error
}

// ProbeOrder is the fixed filesystem probe order spec.md §4.3 step 5 and
// §8 property 9 require: NTFS before FAT before EXT before EXFAT.
var ProbeOrder = []string{"ntfs", "fat", "ext", "exfat"}

// Registry holds one FsDriver per name and exposes them in ProbeOrder.
type Registry struct {
	drivers map[string]FsDriver
}

// NewRegistry builds an empty registry; call Register for each driver.
func NewRegistry() *Registry {
	return &Registry{drivers: make(map[string]FsDriver)}
}

// Register adds (or replaces) a driver under its own Name().
func (r *Registry) Register(d FsDriver) {
	r.drivers[d.Name()] = d
}

// Get returns the driver for name, or nil if none is registered.
func (r *Registry) Get(name string) FsDriver {
	return r.drivers[name]
}

// Ordered returns the registered drivers in ProbeOrder, skipping any
// name that has no registered driver.
func (r *Registry) Ordered() []FsDriver {
	out := make([]FsDriver, 0, len(ProbeOrder))
	for _, name := range ProbeOrder {
		if d, ok := r.drivers[name]; ok {
			out = append(out, d)
		}
	}
	return out
}
