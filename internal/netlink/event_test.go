package netlink

import "testing"

func uevent(fields ...string) []byte {
	var out []byte
	out = append(out, "add@/devices/platform/sdhci/block/mmcblk0/mmcblk0p1"...)
	out = append(out, 0)
	for _, f := range fields {
		out = append(out, f...)
		out = append(out, 0)
	}
	return out
}

func TestDecodeParsesDiskAddEvent(t *testing.T) {
	payload := uevent(
		"ACTION=add",
		"DEVPATH=/devices/platform/sdhci/block/mmcblk0",
		"DEVNAME=mmcblk0",
		"DEVTYPE=disk",
		"MAJOR=179",
		"MINOR=0",
		"NPARTS=1",
	)

	evt := Decode(payload)
	if evt.Action != ActionAdd {
		t.Errorf("Action = %q, want add", evt.Action)
	}
	if evt.DevType != DevTypeDisk {
		t.Errorf("DevType = %q, want disk", evt.DevType)
	}
	if evt.Major != 179 || evt.Minor != 0 {
		t.Errorf("Major:Minor = %d:%d, want 179:0", evt.Major, evt.Minor)
	}
	if evt.NParts != 1 {
		t.Errorf("NParts = %d, want 1", evt.NParts)
	}
	if evt.PartN != -1 {
		t.Errorf("PartN = %d, want -1 (absent)", evt.PartN)
	}
}

func TestDecodeParsesPartitionAddEvent(t *testing.T) {
	payload := uevent(
		"ACTION=add",
		"DEVPATH=/devices/platform/sdhci/block/mmcblk0/mmcblk0p1",
		"DEVNAME=mmcblk0p1",
		"DEVTYPE=partition",
		"MAJOR=179",
		"MINOR=1",
		"PARTN=1",
	)

	evt := Decode(payload)
	if evt.DevType != DevTypePartition {
		t.Errorf("DevType = %q, want partition", evt.DevType)
	}
	if evt.PartN != 1 {
		t.Errorf("PartN = %d, want 1", evt.PartN)
	}
	if evt.NParts != -1 {
		t.Errorf("NParts = %d, want -1 (absent)", evt.NParts)
	}
}

func TestDecodeMissingNumericFieldsDefaultToZero(t *testing.T) {
	payload := uevent("ACTION=change", "DEVTYPE=disk")
	evt := Decode(payload)
	if evt.Major != 0 || evt.Minor != 0 {
		t.Errorf("Major:Minor = %d:%d, want 0:0 when absent", evt.Major, evt.Minor)
	}
}

func TestEventParam(t *testing.T) {
	evt := Decode(uevent("ACTION=add", "SEQNUM=42"))
	if got := evt.Param("SEQNUM"); got != "42" {
		t.Errorf("Param(SEQNUM) = %q, want 42", got)
	}
	if got := evt.Param("NONEXISTENT"); got != "" {
		t.Errorf("Param(NONEXISTENT) = %q, want empty", got)
	}
}
