package volume

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvold/vold/internal/responsecode"
)

// recordingBroadcaster captures every broadcast for assertions, the
// test-only Broadcaster fakes every Volume test in this package uses
// instead of a real control-socket listener.
type recordingBroadcaster struct {
	codes    []int
	messages []string
}

func (r *recordingBroadcaster) SendBroadcast(code int, message string, includeErrno bool) {
	r.codes = append(r.codes, code)
	r.messages = append(r.messages, message)
}

func newTestVolume(deps Deps) *DirectVolume {
	return NewDirectVolume("sdcard", "/storage/sdcard0", "/storage/sdcard0", 0, PartitionWholeDevice, []string{"/devices/platform/sdhci"}, deps)
}

func TestNewDirectVolumeStartsInNoMedia(t *testing.T) {
	dv := newTestVolume(Deps{Broadcaster: NullBroadcaster{}})
	assert.Equal(t, StateNoMedia, dv.State())
}

func TestSetStateDedupesNoOpTransitions(t *testing.T) {
	b := &recordingBroadcaster{}
	dv := newTestVolume(Deps{Broadcaster: b})

	before := len(b.codes)
	dv.SetState(StateNoMedia) // already NoMedia; must not broadcast again
	assert.Len(t, b.codes, before, "SetState to the same state must not broadcast again")

	dv.SetState(StateIdle)
	require.Len(t, b.codes, before+1, "SetState to a new state should broadcast exactly once")
	assert.Equal(t, responsecode.VolumeStateChange, b.codes[len(b.codes)-1])
}

func TestSetStateClearsRetryMountLeavingPendingForAnythingButIdle(t *testing.T) {
	dv := newTestVolume(Deps{Broadcaster: NullBroadcaster{}})
	dv.SetState(StatePending)
	dv.SetRetryMount(true)

	dv.SetState(StateNoMedia)
	assert.False(t, dv.RetryMount(), "leaving Pending for NoMedia should clear retryMount")
}

func TestSetStateKeepsRetryMountWhenGoingToIdle(t *testing.T) {
	dv := newTestVolume(Deps{Broadcaster: NullBroadcaster{}})
	dv.SetState(StatePending)
	dv.SetRetryMount(true)

	dv.SetState(StateIdle)
	assert.True(t, dv.RetryMount(), "leaving Pending for Idle should preserve retryMount")
}

func TestMountWhenNoMediaFailsWithNoMedia(t *testing.T) {
	b := &recordingBroadcaster{}
	dv := newTestVolume(Deps{Broadcaster: b})
	// NewDirectVolume already leaves it in NoMedia.

	err := dv.Mount()
	require.Error(t, err, "Mount() on a NoMedia volume should fail")
	require.NotEmpty(t, b.codes)
	assert.Equal(t, responsecode.VolumeMountFailedNoMedia, b.codes[len(b.codes)-1])
}

func TestMountWhenPendingMarksRetryAndFailsBusy(t *testing.T) {
	dv := newTestVolume(Deps{Broadcaster: NullBroadcaster{}})
	dv.SetState(StatePending)

	err := dv.Mount()
	require.Error(t, err, "Mount() while Pending should fail")
	assert.True(t, dv.RetryMount(), "Mount() while Pending should set retryMount for a later automatic retry")
}

func TestMountWhenFormattingFailsBusyWithoutRetry(t *testing.T) {
	dv := newTestVolume(Deps{Broadcaster: NullBroadcaster{}})
	dv.SetState(StateFormatting)

	err := dv.Mount()
	require.Error(t, err, "Mount() while Formatting should fail")
	assert.False(t, dv.RetryMount(), "Mount() while Formatting (not Pending) should not set retryMount")
}

func TestUnmountWhenNotMountedFails(t *testing.T) {
	dv := newTestVolume(Deps{Broadcaster: NullBroadcaster{}})
	// Freshly constructed volume is NoMedia, never Mounted.
	err := dv.Unmount(false, false)
	require.Error(t, err, "Unmount() on a volume that was never mounted should fail")
}

func TestFormatWhenNoMediaFails(t *testing.T) {
	dv := newTestVolume(Deps{Broadcaster: NullBroadcaster{}})
	err := dv.Format(false)
	require.Error(t, err, "Format() on a NoMedia volume should fail")
}

func TestFormatWhenMountedFailsBusy(t *testing.T) {
	dv := newTestVolume(Deps{Broadcaster: NullBroadcaster{}})
	dv.SetState(StateIdle)
	dv.SetState(StateMounted)

	err := dv.Format(false)
	require.Error(t, err, "Format() on a Mounted volume should fail busy")
}
