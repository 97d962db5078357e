package container

// MountObb loop-mounts an OBB expansion file read-only at
// <obbDir>/<id>, matching VolumeManager::mountObb's "no formatting,
// just expose" contract -- OBB files arrive already formatted by the
// app that built them.
func (r *Registry) MountObb(id, filename string) (string, error) {
	return r.Mount(KindOBB, id, filename, true)
}

// UnmountObb tears down a previously mounted OBB container.
func (r *Registry) UnmountObb(id string, force bool) error {
	return r.Unmount(KindOBB, id, force)
}

// ListObbs returns every currently mounted OBB container.
func (r *Registry) ListObbs() []Container {
	return r.List(KindOBB)
}
