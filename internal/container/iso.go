package container

// MountISO loop-mounts an ISO 9660 image read-only at <isoDir>/<id>,
// associating it with hostLabel so it drains during that volume's
// unmountVol (spec.md §4.4 step 2).
func (r *Registry) MountISO(id, imagePath, hostLabel string) (string, error) {
	mountPoint, err := r.Mount(KindISO, id, imagePath, true)
	if err != nil {
		return "", err
	}

	r.lockActiveContainers()
	if c, ok := r.containers[key(KindISO, id)]; ok {
		c.HostLabel = hostLabel
	}
	r.unlockActiveContainers()

	return mountPoint, nil
}

// UnmountISO tears down a previously mounted ISO container.
func (r *Registry) UnmountISO(id string, force bool) error {
	return r.Unmount(KindISO, id, force)
}
