package cryptfs

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/kvold/vold/internal/container/dmpool"
	"github.com/kvold/vold/internal/devicenode"
)

// DMCrypt is a Service backed by a real device-mapper crypt target: it
// maps an already-identified encrypted block device onto a dm-crypt
// device via dmpool, using a caller-supplied cipher spec and
// already-derived key. Deriving that key from a user passphrase is the
// key-management subsystem spec.md §1 places out of scope -- DMCrypt
// only does the mechanical dm-crypt table setup, matching
// cryptfs_setup_volume's load_crypto_mapping_table step.
type DMCrypt struct {
	pool        *dmpool.Pool
	deviceNodes *devicenode.Manager
	cipher      string // dm-crypt table cipher spec, e.g. "aes-cbc-essiv:sha256"
	key         string // hex-encoded cipher key

	mu     sync.Mutex
	labels map[string]string // label -> backing device path, for Revert
}

// NewDMCrypt builds a DMCrypt service over pool, mapping devices with
// the given cipher/key pair.
func NewDMCrypt(pool *dmpool.Pool, deviceNodes *devicenode.Manager, cipher, key string) *DMCrypt {
	return &DMCrypt{pool: pool, deviceNodes: deviceNodes, cipher: cipher, key: key, labels: make(map[string]string)}
}

func (d *DMCrypt) DecryptPending() bool    { return false }
func (d *DMCrypt) EncryptInProgress() bool { return false }
func (d *DMCrypt) IsEncrypted() bool       { return true }

// Decrypt maps the block device at (major, minor) onto a dm-crypt
// device named "crypt-<label>", returning the new (major, minor) of
// /dev/mapper/crypt-<label> for Base.Mount to probe instead of the raw
// encrypted device.
func (d *DMCrypt) Decrypt(label string, major, minor int) (DecryptedDevice, error) {
	source := d.deviceNodes.Path(major, minor)
	sectors, err := deviceSectors(source)
	if err != nil {
		return DecryptedDevice{}, fmt.Errorf("decrypt %s: %w", label, err)
	}

	name := "crypt-" + label
	table := fmt.Sprintf("0 %d crypt %s %s 0 %s 0\n", sectors, d.cipher, d.key, source)
	mapperPath, err := d.pool.Map(name, source, table)
	if err != nil {
		return DecryptedDevice{}, err
	}

	devMajor, devMinor, err := statRdev(mapperPath)
	if err != nil {
		return DecryptedDevice{}, err
	}

	d.mu.Lock()
	d.labels[label] = source
	d.mu.Unlock()

	return DecryptedDevice{Major: devMajor, Minor: devMinor, SysfsPath: mapperPath}, nil
}

// Revert unmaps the dm-crypt device previously created for label.
func (d *DMCrypt) Revert(label string) error {
	d.mu.Lock()
	source, ok := d.labels[label]
	delete(d.labels, label)
	d.mu.Unlock()

	if !ok {
		return nil
	}
	return d.pool.Unmap(source)
}

// deviceSectors shells out to blockdev to read a device's 512-byte
// sector count, the size dmsetup's table line requires.
func deviceSectors(devicePath string) (int64, error) {
	out, err := exec.Command("blockdev", "--getsz", devicePath).Output()
	if err != nil {
		return 0, fmt.Errorf("blockdev --getsz %s: %w", devicePath, err)
	}
	return strconv.ParseInt(strings.TrimSpace(string(out)), 10, 64)
}

// statRdev reads the (major, minor) of a block-special device file.
func statRdev(devicePath string) (major, minor int, err error) {
	var st unix.Stat_t
	if err := unix.Stat(devicePath, &st); err != nil {
		return 0, 0, fmt.Errorf("stat %s: %w", devicePath, err)
	}
	return int(unix.Major(uint64(st.Rdev))), int(unix.Minor(uint64(st.Rdev))), nil
}
