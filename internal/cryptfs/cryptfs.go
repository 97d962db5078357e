// Package cryptfs is the opaque "decrypt this block device" boundary
// spec.md §1 names: the encrypted-filesystem key-management subsystem is
// out of scope, specified only by this interface.
package cryptfs

import "errors"

// ErrNotConfigured is returned by the stub Service when no real
// key-management backend is wired in -- mount.go treats this the same
// as any other decrypt failure (spec.md §4.3 step 3).
var ErrNotConfigured = errors.New("cryptfs: no key-management backend configured")

// DecryptedDevice is the new block device cryptfs hands back once a
// volume has been decrypted, matching cryptfs_setup_volume's out
// parameters in the original vold.
type DecryptedDevice struct {
	Major     int
	Minor     int
	SysfsPath string
}

// Service is the key-management boundary. A real implementation lives
// outside this repo's scope (spec.md §1); Stub satisfies the interface
// for daemons that don't support encrypted volumes.
type Service interface {
	// DecryptPending reports whether the vold.decrypt property marks a
	// decrypt as pending. Mount.go treats a pending decrypt as grounds
	// to fail mountVol with NoMedia.
	DecryptPending() bool
	// EncryptInProgress mirrors the vold.encrypt_progress property.
	EncryptInProgress() bool
	// IsEncrypted mirrors the ro.crypto.state property being "encrypted".
	IsEncrypted() bool
	// Decrypt maps (major, minor) of an encrypted partition to a new
	// decrypted block device, or returns ErrNotConfigured.
	Decrypt(label string, major, minor int) (DecryptedDevice, error)
	// Revert undoes a prior Decrypt mapping for label.
	Revert(label string) error
}

// Stub is a Service that reports no encryption support whatsoever --
// the correct default for a daemon with no key-management backend wired
// in.
type Stub struct{}

func (Stub) DecryptPending() bool    { return false }
func (Stub) EncryptInProgress() bool { return false }
func (Stub) IsEncrypted() bool       { return false }

func (Stub) Decrypt(string, int, int) (DecryptedDevice, error) {
	return DecryptedDevice{}, ErrNotConfigured
}

func (Stub) Revert(string) error { return nil }

// AdminService is the passwd/field backend the control socket's
// "cryptfs" command talks to (checkpw, restart, cryptocomplete,
// enablecrypto, changepw, verifypw, getfield, setfield), matching
// cryptfs_check_passwd and friends in the original vold. It is a
// separate interface from Service because the control command and the
// mount-path decrypt hook have no callers in common.
type AdminService interface {
	CheckPassword(passwd string) int
	Restart() int
	CryptoComplete() int
	EnableCrypto(mode, passwd string) int
	ChangePassword(newPasswd string) int
	VerifyPassword(passwd string) int
	GetField(name string) (string, int)
	SetField(name, value string) int
}

// StubAdmin reports failure (rc -1, the original's generic errno-style
// negative return) for every operation -- the correct default for a
// daemon with no key-management backend wired in.
type StubAdmin struct{}

func (StubAdmin) CheckPassword(string) int       { return -1 }
func (StubAdmin) Restart() int                   { return -1 }
func (StubAdmin) CryptoComplete() int             { return -1 }
func (StubAdmin) EnableCrypto(string, string) int { return -1 }
func (StubAdmin) ChangePassword(string) int       { return -1 }
func (StubAdmin) VerifyPassword(string) int       { return -1 }
func (StubAdmin) GetField(string) (string, int)   { return "", -1 }
func (StubAdmin) SetField(string, string) int     { return -1 }
