//go:build linux

package netlink

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// Source reads kernel hotplug uevents from a raw AF_NETLINK socket bound
// to NETLINK_KOBJECT_UEVENT and decodes them into Events, the Go
// equivalent of vold's NetlinkHandler/NetlinkEvent pairing.
type Source struct {
	fd int
}

// Open binds a netlink kobject-uevent socket. The kernel multicasts one
// copy of every uevent to every bound socket in group 1, which is the
// group vold itself subscribes to.
func Open() (*Source, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_DGRAM, unix.NETLINK_KOBJECT_UEVENT)
	if err != nil {
		return nil, fmt.Errorf("open netlink socket: %w", err)
	}

	addr := &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: 1}
	if err := unix.Bind(fd, addr); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("bind netlink socket: %w", err)
	}

	return &Source{fd: fd}, nil
}

// Close releases the underlying socket.
func (s *Source) Close() error {
	return unix.Close(s.fd)
}

// Read blocks for the next uevent and returns its parsed form. Callers
// typically run this in a loop on a dedicated goroutine, pushing results
// onto a channel the single dispatch goroutine drains (spec.md §5).
func (s *Source) Read() (Event, error) {
	buf := make([]byte, 64*1024)
	n, _, err := unix.Recvfrom(s.fd, buf, 0)
	if err != nil {
		return Event{}, fmt.Errorf("recvfrom netlink socket: %w", err)
	}
	return Decode(buf[:n]), nil
}

// Decode parses a raw kobject-uevent payload. Exported so tests can feed
// in canned payloads without a real netlink socket.
func Decode(payload []byte) Event {
	parts := bytes.Split(payload, []byte{0})
	fields := make([]string, 0, len(parts))
	for i, p := range parts {
		s := string(p)
		if s == "" {
			continue
		}
		if i == 0 && !strings.Contains(s, "=") {
			// Leading "ACTION@DEVPATH" synthetic header; ignore.
			continue
		}
		fields = append(fields, s)
	}
	return parseBody(fields)
}
