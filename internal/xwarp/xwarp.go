// Package xwarp implements the wire contract of the "xwarp" control
// command -- a boolean mirroring toggle the original vold exposes via
// Xwarp::enable/disable/status -- without a real mirroring target,
// since no such hardware exists in this environment. It satisfies the
// command surface spec.md §6 lists so `xwarp enable|disable|status`
// round-trips instead of erroring out unconditionally.
package xwarp

import "sync"

// Mirror tracks xwarp's in-memory enabled/position state. There is
// nothing behind it to actually mirror writes to; Enable/Disable just
// flip the reported state the way a stub backend would.
type Mirror struct {
	mu       sync.Mutex
	enabled  bool
	position uint32
	maxSize  uint32
}

// New builds a Mirror with the given reported capacity.
func New(maxSize uint32) *Mirror {
	return &Mirror{maxSize: maxSize}
}

func (m *Mirror) Enable() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = true
	m.position = 0
	return nil
}

func (m *Mirror) Disable() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = false
	return nil
}

// Status reports (ready, mirrorPos, maxSize), matching Xwarp::status's
// out parameters.
func (m *Mirror) Status() (bool, uint32, uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled, m.position, m.maxSize
}
