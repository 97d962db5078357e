package volume

import (
	"time"

	"github.com/kvold/vold/internal/mountops"
	"github.com/kvold/vold/internal/volerrors"
)

// Unmount implements Volume::unmountVol (spec.md §4.4). It deliberately
// preserves the original's brittle-looking ordering: the volume is
// already back in State_Idle (by way of State_Unmounting) before any of
// the actual teardown work -- container cleanup, the bind-mount removal,
// doUnmount itself -- even runs. A caller racing a new mountVol against
// this window would see Idle and could, in principle, try to remount a
// device still being torn down; the original vold has carried this
// ordering since its first commit and nothing here changes it
// (spec.md §9).
func (b *Base) Unmount(force, revert bool) error {
	providesAsec := b.flags.Has(FlagProvidesASEC)

	if b.State() != StateMounted {
		return volerrors.ErrNotMounted
	}

	b.SetState(StateUnmounting)
	b.SetState(StateIdle)

	if b.deps.Containers != nil {
		asecDelay := time.Duration(0)
		if providesAsec {
			asecDelay = 1 * time.Second
		}
		// Drain holds the container lock across both the ISO pass and
		// the ASEC pass (and the pause between them), so a concurrent
		// asec/obb/iso command for this host can't race the teardown.
		if err := b.deps.Containers.Drain(b.label, true, asecDelay); err != nil {
			// "Failed to cleanup ASEC - unmount will probably fail!" --
			// logged and ignored in the original, not a gate.
		}
	} else if providesAsec {
		time.Sleep(1 * time.Second)
	}

	if b.deps.PropertyWriter != nil {
		b.deps.PropertyWriter.SetProperty("ctl.stop", "fuse_"+b.label)
	}

	if providesAsec {
		if err := mountops.DoUnmount(b.deps.AsecBindDir, force, b.deps.Killer); err != nil {
			b.SetState(StateMounted)
			return err
		}
	}

	if err := mountops.DoUnmount(b.mountPoint, force, b.deps.Killer); err != nil {
		if providesAsec {
			if remErr := b.mountAsecExternal(); remErr != nil {
				b.SetState(StateNoMedia)
				return err
			}
			b.SetState(StateMounted)
			return err
		}
		b.SetState(StateMounted)
		return err
	}

	if revert && b.self.IsDecrypted() {
		if b.deps.Crypto != nil {
			_ = b.deps.Crypto.Revert(b.label)
		}
		b.self.RevertDeviceInfo()
	}

	b.currentKdev = nil
	return nil
}
