// Package netlink parses Linux kernel hotplug ("uevent") notifications
// into a structured Event and, on Linux, reads them directly off an
// AF_NETLINK/NETLINK_KOBJECT_UEVENT socket.
package netlink

import "strconv"

// Action is the kernel uevent action keyword.
type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
	ActionChange Action = "change"
)

// DevType is the kernel DEVTYPE uevent parameter.
type DevType string

const (
	DevTypeDisk      DevType = "disk"
	DevTypePartition DevType = "partition"
)

// Event is a parsed kernel block-device uevent. Only the parameters
// spec.md §6 names are surfaced as typed fields; everything else stays
// in Raw for completeness (e.g. "storage users" style debugging).
type Event struct {
	Action  Action
	DevPath string
	DevName string
	DevType DevType
	Major   int
	Minor   int
	// NParts is -1 when the kernel omitted NPARTS.
	NParts int
	// PartN is -1 when the kernel omitted PARTN.
	PartN int
	Raw   map[string]string
}

// Param returns the raw string value for a uevent key, or "" if absent,
// mirroring NetlinkEvent::findParam in the original vold.
func (e *Event) Param(key string) string {
	return e.Raw[key]
}

// parseBody turns a NUL-separated uevent body ("ACTION=add\x00DEVPATH=...
// \x00MAJOR=8\x00...") into an Event. The first line (before the first
// NUL) is the synthetic "ACTION@DEVPATH" header kobject uevents carry;
// it's informational only, every field comes from the KEY=VALUE records
// that follow.
func parseBody(fields []string) Event {
	raw := make(map[string]string, len(fields))
	for _, f := range fields {
		key, val, ok := splitKV(f)
		if !ok {
			continue
		}
		raw[key] = val
	}

	evt := Event{
		Action:  Action(raw["ACTION"]),
		DevPath: raw["DEVPATH"],
		DevName: raw["DEVNAME"],
		DevType: DevType(raw["DEVTYPE"]),
		Raw:     raw,
		NParts:  -1,
		PartN:   -1,
	}
	if v, err := strconv.Atoi(raw["MAJOR"]); err == nil {
		evt.Major = v
	}
	if v, err := strconv.Atoi(raw["MINOR"]); err == nil {
		evt.Minor = v
	}
	if v, err := strconv.Atoi(raw["NPARTS"]); err == nil {
		evt.NParts = v
	}
	if v, err := strconv.Atoi(raw["PARTN"]); err == nil {
		evt.PartN = v
	}
	return evt
}

func splitKV(s string) (key, val string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}
