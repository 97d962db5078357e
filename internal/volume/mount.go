package volume

import (
	"os"
	"path/filepath"

	"github.com/kvold/vold/internal/fsdriver"
	"github.com/kvold/vold/internal/mountops"
	"github.com/kvold/vold/internal/responsecode"
	"github.com/kvold/vold/internal/volerrors"
)

// permMaskExternal/permMaskSecure are the 0002/0007 umask values
// mountVol passes to the filesystem driver, matching the providesAsec
// branch in Volume::mountVol.
const (
	permMaskExternal = 0002
	permMaskSecure   = 0007
)

// Mount implements Volume::mountVol (spec.md §4.3): precondition checks,
// device-node enumeration, an optional decrypt detour, fixed-order
// filesystem probing into the staging directory, ASEC bind-mount
// exposure, and the move-mount that publishes the volume at its public
// mountpoint.
func (b *Base) Mount() error {
	providesAsec := b.flags.Has(FlagProvidesASEC)

	decryptPending := b.deps.Crypto != nil && b.deps.Crypto.DecryptPending()
	encryptInProgress := b.deps.Crypto != nil && b.deps.Crypto.EncryptInProgress()

	if b.State() == StateNoMedia || ((decryptPending || encryptInProgress) && providesAsec) {
		if b.deps.Broadcaster != nil {
			msg := b.label + " " + b.fuseMountPoint + " mount failed - no media"
			b.deps.Broadcaster.SendBroadcast(responsecode.VolumeMountFailedNoMedia, msg, false)
		}
		return volerrors.ErrNoMedia
	}

	if b.State() != StateIdle {
		if b.State() == StatePending {
			b.retryMount = true
		}
		return volerrors.ErrBusy
	}

	if mounted, _ := mountops.IsMounted(b.mountPoint); mounted {
		// "Volume is idle but appears to be mounted - fixing", the same
		// self-healing Volume::mountVol performs rather than failing
		// outright.
		b.SetState(StateMounted)
		return nil
	}

	nodes, err := b.self.GetDeviceNodes()
	if err != nil || len(nodes) == 0 {
		return volerrors.ErrNoDevice
	}

	isEncryptable := b.flags.Has(FlagNonRemovable) && b.flags.Has(FlagEncryptable)
	if providesAsec && isEncryptable && b.deps.Crypto != nil && b.deps.Crypto.IsEncrypted() && !b.self.IsDecrypted() {
		if len(nodes) != 1 {
			return volerrors.ErrInternal
		}

		dec, err := b.deps.Crypto.Decrypt(b.label, nodes[0].Major, nodes[0].Minor)
		if err != nil {
			return err
		}

		if b.deps.DeviceNodes != nil {
			if _, err := b.deps.DeviceNodes.Create(dec.Major, dec.Minor); err != nil {
				return err
			}
		}

		if err := b.self.UpdateDeviceInfo(dec.Major, dec.Minor, dec.SysfsPath); err != nil {
			return err
		}

		nodes, err = b.self.GetDeviceNodes()
		if err != nil || len(nodes) == 0 {
			return volerrors.ErrNoDevice
		}
	}

	permMask := permMaskExternal
	if providesAsec {
		permMask = permMaskSecure
	}

	var lastErr error
	for _, node := range nodes {
		devicePath := node.String()
		if b.deps.DeviceNodes != nil {
			devicePath = b.deps.DeviceNodes.Path(node.Major, node.Minor)
		}

		b.SetState(StateChecking)

		driver, probeErr := b.probeFilesystem(devicePath, permMask)
		if driver == nil {
			lastErr = probeErr
			if b.State() == StateChecking {
				b.SetState(StateIdle)
			}
			continue
		}

		extractMetadata(b.self, devicePath)

		if providesAsec {
			if err := b.mountAsecExternal(); err != nil {
				_ = mountops.DoUnmount(b.deps.StagingDir, true, b.deps.Killer)
				if b.State() == StateChecking {
					b.SetState(StateIdle)
				}
				return err
			}
		}

		if err := mountops.MoveMount(b.deps.StagingDir, b.mountPoint, false, b.deps.Killer); err != nil {
			if providesAsec {
				_ = mountops.DoUnmount(b.deps.AsecBindDir, true, b.deps.Killer)
			}
			_ = mountops.DoUnmount(b.deps.StagingDir, true, b.deps.Killer)
			if b.State() == StateChecking {
				b.SetState(StateIdle)
			}
			return err
		}

		if b.deps.PropertyWriter != nil {
			b.deps.PropertyWriter.SetProperty("ctl.start", "fuse_"+b.label)
		}

		kdev := node
		b.currentKdev = &kdev
		b.SetState(StateMounted)
		return nil
	}

	if b.State() == StateChecking {
		b.SetState(StateIdle)
	}
	if lastErr != nil {
		return lastErr
	}
	return volerrors.ErrUnsupportedFS
}

// probeFilesystem tries each registered FsDriver in ProbeOrder against
// devicePath, stopping at the first that mounts successfully onto the
// staging directory (spec.md §4.3 step 5 / §8 property 9: NTFS before
// FAT before EXT before EXFAT).
func (b *Base) probeFilesystem(devicePath string, permMask int) (driver fsdriver.FsDriver, err error) {
	if b.deps.FsDrivers == nil {
		return nil, volerrors.ErrUnsupportedFS
	}
	var lastErr error
	for _, d := range b.deps.FsDrivers.Ordered() {
		if probeErr := d.Probe(devicePath, b.deps.StagingDir, permMask); probeErr != nil {
			lastErr = probeErr
			continue
		}
		return d, nil
	}
	if lastErr == nil {
		lastErr = volerrors.ErrUnsupportedFS
	}
	return nil, lastErr
}

// mountAsecExternal bind-mounts the volume's `.android_secure` directory
// (recovering the legacy unprefixed name if present) onto the daemon's
// ASEC exposure point, mirroring Volume::mountAsecExternal.
func (b *Base) mountAsecExternal() error {
	legacy := filepath.Join(b.deps.StagingDir, "android_secure")
	secure := filepath.Join(b.deps.StagingDir, ".android_secure")

	if err := recoverLegacyAsecDir(legacy, secure); err != nil {
		return err
	}
	if err := ensureDir(secure); err != nil {
		return err
	}
	return mountops.Bind(secure, b.deps.AsecBindDir)
}

// recoverLegacyAsecDir renames the pre-rename `android_secure` directory
// to `.android_secure` if the legacy name still exists and the new one
// doesn't, matching Volume::mountAsecExternal's recovery step.
func recoverLegacyAsecDir(legacy, secure string) error {
	_, legacyErr := os.Stat(legacy)
	_, secureErr := os.Stat(secure)
	if legacyErr == nil && secureErr != nil {
		if err := os.Rename(legacy, secure); err != nil {
			return err
		}
	}
	return nil
}

// ensureDir makes sure path exists and is a directory, creating it if
// absent, matching Volume::mountAsecExternal's access()/mkdir() dance.
func ensureDir(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return os.Mkdir(path, 0o777)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return volerrors.ErrInternal
	}
	return nil
}
