package volume

import (
	"testing"

	"github.com/kvold/vold/internal/netlink"
)

type fakeShares struct {
	unshared []string
}

func (f *fakeShares) UnshareVolume(label, method string) error {
	f.unshared = append(f.unshared, label+":"+method)
	return nil
}

func diskAddEvent(major, minor, nparts int) netlink.Event {
	return netlink.Event{
		Action:  netlink.ActionAdd,
		DevType: netlink.DevTypeDisk,
		Major:   major,
		Minor:   minor,
		NParts:  nparts,
		PartN:   -1,
	}
}

func partAddEvent(major, minor, partN int) netlink.Event {
	return netlink.Event{
		Action:  netlink.ActionAdd,
		DevType: netlink.DevTypePartition,
		Major:   major,
		Minor:   minor,
		NParts:  -1,
		PartN:   partN,
	}
}

func TestHandleDiskAddedNoPartitionsGoesIdle(t *testing.T) {
	dv := newTestVolume(Deps{Broadcaster: NullBroadcaster{}})
	dv.partIndex = PartitionWholeDevice

	if err := dv.HandleBlockEvent(diskAddEvent(179, 0, 0)); err != nil {
		t.Fatalf("HandleBlockEvent() error = %v", err)
	}
	if dv.State() != StateIdle {
		t.Fatalf("State() = %v, want Idle after a disk with no partitions is added", dv.State())
	}
	if dv.DiskDevice() != (DeviceNode{Major: 179, Minor: 0}) {
		t.Fatalf("DiskDevice() = %v, want {179 0}", dv.DiskDevice())
	}
}

func TestHandleDiskAddedWithPartitionsGoesPending(t *testing.T) {
	dv := newTestVolume(Deps{Broadcaster: NullBroadcaster{}})
	dv.partIndex = 1

	if err := dv.HandleBlockEvent(diskAddEvent(179, 0, 1)); err != nil {
		t.Fatalf("HandleBlockEvent() error = %v", err)
	}
	if dv.State() != StatePending {
		t.Fatalf("State() = %v, want Pending while a partition is still expected", dv.State())
	}
}

func TestHandlePartitionAddedClearsMaskAndGoesIdle(t *testing.T) {
	dv := newTestVolume(Deps{Broadcaster: NullBroadcaster{}})
	dv.partIndex = 1

	if err := dv.HandleBlockEvent(diskAddEvent(179, 0, 1)); err != nil {
		t.Fatalf("disk add error = %v", err)
	}
	if err := dv.HandleBlockEvent(partAddEvent(179, 1, 1)); err != nil {
		t.Fatalf("partition add error = %v", err)
	}
	if dv.State() != StateIdle {
		t.Fatalf("State() = %v, want Idle once the only expected partition arrives", dv.State())
	}

	nodes, err := dv.GetDeviceNodes()
	if err != nil {
		t.Fatalf("GetDeviceNodes() error = %v", err)
	}
	if len(nodes) != 1 || nodes[0] != (DeviceNode{Major: 179, Minor: 1}) {
		t.Fatalf("GetDeviceNodes() = %v, want [{179 1}]", nodes)
	}
}

func TestPartMinorsOnlyTracksIndexZero(t *testing.T) {
	// Preserved-verbatim behavior: handlePartitionAdded always writes
	// partMinors[0], regardless of which partition number fired, so a
	// later, higher-numbered partition silently clobbers an earlier one.
	dv := newTestVolume(Deps{Broadcaster: NullBroadcaster{}})
	dv.partIndex = 2
	dv.numParts = 2
	dv.diskMajor = 179

	_ = dv.HandleBlockEvent(partAddEvent(179, 5, 1))
	if dv.partMinors[0] != 5 {
		t.Fatalf("partMinors[0] = %d after first partition, want 5", dv.partMinors[0])
	}

	_ = dv.HandleBlockEvent(partAddEvent(179, 6, 2))
	if dv.partMinors[0] != 6 {
		t.Fatalf("partMinors[0] = %d after second partition, want 6 (clobbered, as in the original)", dv.partMinors[0])
	}
}

func TestHandleDiskRemovedFromPendingGoesNoMedia(t *testing.T) {
	dv := newTestVolume(Deps{Broadcaster: NullBroadcaster{}})
	dv.partIndex = 1
	_ = dv.HandleBlockEvent(diskAddEvent(179, 0, 1))
	if dv.State() != StatePending {
		t.Fatalf("precondition: State() = %v, want Pending", dv.State())
	}

	removeEvt := netlink.Event{Action: netlink.ActionRemove, DevType: netlink.DevTypeDisk, Major: 179, Minor: 0, PartN: -1, NParts: -1}
	if err := dv.HandleBlockEvent(removeEvt); err != nil {
		t.Fatalf("HandleBlockEvent() error = %v", err)
	}
	if dv.State() != StateNoMedia {
		t.Fatalf("State() = %v, want NoMedia after disk removed while Pending", dv.State())
	}
}

func TestHandlePartitionRemovedFromSharedUnsharesVolume(t *testing.T) {
	shares := &fakeShares{}
	dv := newTestVolume(Deps{Broadcaster: NullBroadcaster{}, Shares: shares})
	dv.SetState(StateShared)

	removeEvt := netlink.Event{Action: netlink.ActionRemove, DevType: netlink.DevTypePartition, Major: 179, Minor: 1, PartN: 1, NParts: -1}
	if err := dv.HandleBlockEvent(removeEvt); err != nil {
		t.Fatalf("HandleBlockEvent() error = %v", err)
	}
	if dv.State() != StateNoMedia {
		t.Fatalf("State() = %v, want NoMedia after a shared volume's partition disappears", dv.State())
	}
	if len(shares.unshared) != 1 || shares.unshared[0] != "sdcard:ums" {
		t.Fatalf("expected UnshareVolume(sdcard, ums) to be called once, got %v", shares.unshared)
	}
}

func TestUpdateAndRevertDeviceInfo(t *testing.T) {
	dv := newTestVolume(Deps{Broadcaster: NullBroadcaster{}})
	dv.partIndex = 1
	dv.diskMajor = 179
	dv.diskMinor = 0
	dv.partMinors[0] = 1

	if err := dv.UpdateDeviceInfo(253, 4, "/devices/virtual/block/dm-4"); err != nil {
		t.Fatalf("UpdateDeviceInfo() error = %v", err)
	}
	if !dv.IsDecrypted() {
		t.Fatal("UpdateDeviceInfo should mark the volume decrypted")
	}
	if dv.diskMajor != 253 || dv.partMinors[0] != 4 {
		t.Fatalf("device identity not updated: major=%d partMinor0=%d", dv.diskMajor, dv.partMinors[0])
	}

	dv.RevertDeviceInfo()
	if dv.IsDecrypted() {
		t.Fatal("RevertDeviceInfo should clear isDecrypted")
	}
	if dv.diskMajor != 179 || dv.partMinors[0] != 1 {
		t.Fatalf("RevertDeviceInfo did not restore original identity: major=%d partMinor0=%d", dv.diskMajor, dv.partMinors[0])
	}
}

func TestUpdateDeviceInfoRejectsWholeDiskVolume(t *testing.T) {
	dv := newTestVolume(Deps{Broadcaster: NullBroadcaster{}})
	dv.partIndex = PartitionWholeDevice

	if err := dv.UpdateDeviceInfo(253, 4, "/devices/virtual/block/dm-4"); err == nil {
		t.Fatal("UpdateDeviceInfo on a whole-disk volume should fail")
	}
}
