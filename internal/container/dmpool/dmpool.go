// Package dmpool names device-mapper targets for the encrypted-ASEC
// layering step, generalizing looppool's scan-then-attach pattern one
// level up: /dev/mapper/<name> instead of /dev/loopN, dmsetup instead
// of losetup.
package dmpool

import (
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// Pool creates and removes named dm-crypt mappings over an already
// loop-attached device, tracking the mapping name per backing device.
type Pool struct {
	mu      sync.Mutex
	mapped  map[string]string // backing device path -> mapper name
}

// New builds an empty Pool.
func New() *Pool {
	return &Pool{mapped: make(map[string]string)}
}

// Map creates /dev/mapper/<name> backed by device using the given
// dm-crypt table line, matching the "create, remember" half of
// findFreeNBDDevice/attachImageWithNBD's lifecycle, one layer up the
// stack.
func (p *Pool) Map(name, device, table string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.mapped[device]; ok {
		return "/dev/mapper/" + existing, nil
	}

	cmd := exec.Command("dmsetup", "create", name)
	cmd.Stdin = strings.NewReader(table)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("dmsetup create %s: %w: %s", name, err, out)
	}

	p.mapped[device] = name
	return "/dev/mapper/" + name, nil
}

// Unmap removes the dm-crypt mapping backed by device, if any.
func (p *Pool) Unmap(device string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	name, ok := p.mapped[device]
	if !ok {
		return nil
	}

	out, err := exec.Command("dmsetup", "remove", name).CombinedOutput()
	if err != nil {
		return fmt.Errorf("dmsetup remove %s: %w: %s", name, err, out)
	}
	delete(p.mapped, device)
	return nil
}
