package volumemanager

import (
	"sync"

	"github.com/rs/zerolog"
)

// Client is the slice of a control-socket connection Broadcaster needs:
// write one already-framed response line. internal/control's client
// type implements this; tests can substitute a channel-backed fake.
type Client interface {
	SendMsg(code int, message string, includeErrno bool) error
}

// Broadcaster implements volume.Broadcaster by fanning a message out to
// every attached control-socket client, mirroring
// VolumeManager::getBroadcaster()->sendBroadcast. internal/control
// attaches every accepted connection for its lifetime, so a client that
// only sends one command still receives broadcasts until it closes.
type Broadcaster struct {
	log     zerolog.Logger
	mu      sync.Mutex
	clients map[Client]struct{}
}

// NewBroadcaster builds an empty fan-out set.
func NewBroadcaster(log zerolog.Logger) *Broadcaster {
	return &Broadcaster{log: log, clients: make(map[Client]struct{})}
}

// Attach registers c to receive future broadcasts.
func (b *Broadcaster) Attach(c Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[c] = struct{}{}
}

// Detach stops sending c future broadcasts.
func (b *Broadcaster) Detach(c Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.clients, c)
}

// SendBroadcast implements volume.Broadcaster.
func (b *Broadcaster) SendBroadcast(code int, message string, includeErrno bool) {
	b.mu.Lock()
	clients := make([]Client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.Unlock()

	for _, c := range clients {
		if err := c.SendMsg(code, message, includeErrno); err != nil {
			// A write failure means the client is gone; internal/control's
			// connection loop is responsible for noticing the closed
			// socket and calling Detach, not this fan-out.
			b.log.Debug().Err(err).Msg("broadcast to client failed")
		}
	}
}
