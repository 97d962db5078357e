// Package control implements the Unix-domain command socket front end:
// one listener, one goroutine per connected client, a naive
// whitespace-tokenized line protocol, and a dispatch table mirroring
// CommandListener's registerCmd calls in the original vold.
package control

import (
	"bufio"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kvold/vold/internal/cryptfs"
	"github.com/kvold/vold/internal/processkiller"
	"github.com/kvold/vold/internal/responsecode"
	"github.com/kvold/vold/internal/volumemanager"
	"github.com/kvold/vold/internal/xwarp"
)

// Listener accepts connections on a Unix-domain socket and dispatches
// each line a client sends as one command.
type Listener struct {
	log        zerolog.Logger
	vm         *volumemanager.Manager
	cryptfs    cryptfs.AdminService
	xwarp      *xwarp.Mirror
	proc       processkiller.Killer
	socketPath string

	mu     sync.Mutex
	ln     net.Listener
	closed bool
}

// New builds a Listener over an already-constructed Manager. cryptfsAdmin
// and xw may be nil, in which case the corresponding commands always
// report failure -- the same as a Stub-backed Service would.
func New(log zerolog.Logger, socketPath string, vm *volumemanager.Manager, cryptfsAdmin cryptfs.AdminService, xw *xwarp.Mirror) *Listener {
	if cryptfsAdmin == nil {
		cryptfsAdmin = cryptfs.StubAdmin{}
	}
	return &Listener{log: log, socketPath: socketPath, vm: vm, cryptfs: cryptfsAdmin, xwarp: xw, proc: processkiller.New()}
}

// Serve listens on l.socketPath until Close is called or Accept fails.
// It removes any stale socket file left by a prior unclean shutdown
// before binding, matching the "unlink then bind" idiom every AF_UNIX
// server in this corpus follows. Close returning nil from Serve (rather
// than an error) is how a caller distinguishes a requested shutdown
// from a real Accept failure.
func (l *Listener) Serve() error {
	if err := os.RemoveAll(l.socketPath); err != nil {
		return err
	}

	ln, err := net.Listen("unix", l.socketPath)
	if err != nil {
		return err
	}
	defer ln.Close()

	l.mu.Lock()
	l.ln = ln
	l.mu.Unlock()

	l.log.Info().Str("socket", l.socketPath).Msg("control socket listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			l.mu.Lock()
			shuttingDown := l.closed
			l.mu.Unlock()
			if shuttingDown {
				return nil
			}
			return err
		}
		go l.handleConn(conn)
	}
}

// Close unblocks a running Serve by closing its listener.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if l.ln == nil {
		return nil
	}
	return l.ln.Close()
}

// handleConn serves one client connection. Every connection is
// registered with the Manager's Broadcaster for the duration so
// unsolicited VolumeStateChange/DiskInserted/DiskRemoved lines can
// interleave with command replies, mirroring how every FrameworkListener
// client in the original vold is also a broadcast recipient.
func (l *Listener) handleConn(conn net.Conn) {
	defer conn.Close()
	c := newClient(conn)

	if b := l.vm.Broadcaster(); b != nil {
		b.Attach(c)
		defer b.Detach(c)
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		args := strings.Fields(line)
		l.dispatch(c, args)
	}
}

// dispatch routes one tokenized command line to its handler, matching
// FrameworkListener's "first token selects the registered VoldCommand"
// lookup.
func (l *Listener) dispatch(c *client, args []string) {
	if len(args) == 0 {
		return
	}

	switch args[0] {
	case "dump":
		l.dumpCmd(c, args)
	case "volume":
		l.volumeCmd(c, args)
	case "storage":
		l.storageCmd(c, args)
	case "asec":
		l.asecCmd(c, args)
	case "obb":
		l.obbCmd(c, args)
	case "iso":
		l.isoCmd(c, args)
	case "samba":
		l.sambaCmd(c, args)
	case "xwarp":
		l.xwarpCmd(c, args)
	case "cryptfs":
		l.cryptfsCmd(c, args)
	case "fstrim":
		l.fstrimCmd(c, args)
	default:
		_ = c.SendMsg(responsecode.CommandSyntaxError, "Unknown command", false)
	}
}
