package volume

import (
	"github.com/kvold/vold/internal/mountops"
	"github.com/kvold/vold/internal/volerrors"
)

// initializeMbr writes a fresh MBR to devicePath holding a single
// active FAT32 partition spanning the device.
// Only reached when formatEntireDevice is true, which with the dead
// branch below never happens in practice -- kept as a distinct function
// anyway so the call site in Format reads the same as
// Volume::formatVol's.
func initializeMbr(devicePath string) error {
	return mountops.InitializeMbr(devicePath)
}

// Format implements Volume::formatVol (spec.md §4.5), including the
// formatEntireDevice dead-branch bug: the original computes
// formatEntireDevice from mPartIdx, then immediately overwrites it to
// false two lines later (the "MStar Android Patch" block visible in
// original_source/Volume.cpp around Volume::formatVol). The MBR
// initialization path it guards is consequently unreachable from any
// caller today. This is preserved verbatim per spec.md §9 -- the first
// assignment stays, even though the second makes it dead, because a
// silent "fix" here would change formatVol's observable behavior for
// whole-device volumes in a way nothing in this codebase has ever
// exercised or tested.
func (b *Base) Format(wipe bool) error {
	if b.State() == StateNoMedia {
		return volerrors.ErrNoDevice
	}
	if b.State() != StateIdle {
		return volerrors.ErrBusy
	}

	if mounted, _ := mountops.IsMounted(b.mountPoint); mounted {
		b.SetState(StateMounted)
		return volerrors.ErrBusy
	}

	formatEntireDevice := b.partIndex == PartitionWholeDevice
	diskNode := b.self.DiskDevice()

	// MStar Android Patch: partNode is pinned to the disk node and
	// formatEntireDevice is forced false, making the block above dead.
	partNode := diskNode
	formatEntireDevice = false

	b.SetState(StateFormatting)

	formatErr := func() error {
		if formatEntireDevice {
			devicePath := diskNode.String()
			if b.deps.DeviceNodes != nil {
				devicePath = b.deps.DeviceNodes.Path(diskNode.Major, diskNode.Minor)
			}
			if err := initializeMbr(devicePath); err != nil {
				return err
			}
		}

		devicePath := partNode.String()
		if b.deps.DeviceNodes != nil {
			devicePath = b.deps.DeviceNodes.Path(partNode.Major, partNode.Minor)
		}

		driver := b.fatDriver()
		if driver == nil {
			return volerrors.ErrUnsupportedFS
		}
		if err := driver.Format(devicePath, wipe); err != nil {
			return err
		}

		extractMetadata(b.self, devicePath)
		return nil
	}()

	if b.State() == StateFormatting {
		b.SetState(StateIdle)
	} else {
		b.SetState(StateNoMedia)
	}
	return formatErr
}

// fatDriver is the only FsDriver formatVol ever calls, matching
// Volume::formatVol's unconditional Fat::format call -- formatting
// always writes FAT, regardless of what was previously on the device.
func (b *Base) fatDriver() interface {
	Format(devicePath string, wipe bool) error
} {
	if b.deps.FsDrivers == nil {
		return nil
	}
	d := b.deps.FsDrivers.Get("fat")
	if d == nil {
		return nil
	}
	return d
}
