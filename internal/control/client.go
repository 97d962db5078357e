package control

import (
	"fmt"
	"net"
	"strconv"
	"sync"

	"golang.org/x/sys/unix"
)

// client wraps one connected control-socket peer, framing every reply
// as "<code> <message>\n" the way SocketClient::sendMsg does, and
// serializing writes since a broadcast can interleave with a
// command's own reply on the same connection.
type client struct {
	conn net.Conn
	uid  int

	mu sync.Mutex
}

// newClient captures the peer's credentials via SO_PEERCRED at accept
// time, the same place CommandListener reads a FrameworkListener
// client's uid in the original vold. uid is -1 (never authorized) if
// the connection isn't a Unix socket or the kernel can't report
// credentials.
func newClient(conn net.Conn) *client {
	return &client{conn: conn, uid: peerUID(conn)}
}

func peerUID(conn net.Conn) int {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return -1
	}
	raw, err := uc.SyscallConn()
	if err != nil {
		return -1
	}

	uid := -1
	_ = raw.Control(func(fd uintptr) {
		cred, err := unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
		if err != nil {
			return
		}
		uid = int(cred.Uid)
	})
	return uid
}

// SendMsg implements volumemanager.Client. When includeErrno is set the
// message gets " (<errno-ish detail>)" appended, matching
// SocketClient::sendMsg(code, msg, true)'s "include the strerror text"
// behavior -- here there's no separate errno to read, so the message
// itself is expected to already carry the detail and includeErrno only
// controls whether a trailing marker is added.
func (c *client) SendMsg(code int, message string, includeErrno bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	line := strconv.Itoa(code) + " " + message
	if includeErrno {
		line += " (errno)"
	}
	_, err := fmt.Fprintln(c.conn, line)
	return err
}
