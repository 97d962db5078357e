// Package config loads the daemon's declarative volume table (the
// fstab-equivalent spec.md §3 says volumes are created from at startup)
// and the handful of daemon-wide settings (socket path, staging/asec
// directories, log level).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// VolumeFlag names one bit of volume.Flags in the config file's
// vocabulary, kept as strings on disk so the YAML stays readable.
type VolumeFlag string

const (
	FlagProvidesASEC  VolumeFlag = "provides_asec"
	FlagNonRemovable  VolumeFlag = "non_removable"
	FlagEncryptable   VolumeFlag = "encryptable"
)

// VolumeSpec is one declarative volume entry, the Go-side equivalent of
// a single fstab_rec the original vold parses from vold.fstab.
type VolumeSpec struct {
	Label          string       `yaml:"label"`
	MountPoint     string       `yaml:"mount_point"`
	PublicMountPoint string     `yaml:"public_mount_point,omitempty"`
	PartitionIndex int          `yaml:"partition_index"` // -1 means "whole device"
	Flags          []VolumeFlag `yaml:"flags,omitempty"`
	SysfsPaths     []string     `yaml:"sysfs_paths"`
}

// Config is the full daemon configuration.
type Config struct {
	SocketPath   string       `yaml:"socket_path"`
	StagingDir   string       `yaml:"staging_dir"`
	AsecBindDir  string       `yaml:"asec_bind_dir"`
	AsecDir      string       `yaml:"asec_dir"`
	ObbDir       string       `yaml:"obb_dir"`
	IsoDir       string       `yaml:"iso_dir"`
	SambaDir     string       `yaml:"samba_dir"`
	DeviceDir    string       `yaml:"device_dir"`
	Debug        bool         `yaml:"debug"`
	// DMCryptCipher/DMCryptKey configure internal/cryptfs.DMCrypt as the
	// decrypt backend for encryptable volumes. Both empty (the default)
	// means no key-management backend is configured and encryptable
	// volumes are treated as never-encrypted, matching cryptfs.Stub.
	// Deriving DMCryptKey from a user passphrase is out of scope; it is
	// expected to already be a hex-encoded cipher key.
	DMCryptCipher string       `yaml:"dmcrypt_cipher,omitempty"`
	DMCryptKey    string       `yaml:"dmcrypt_key,omitempty"`
	Volumes       []VolumeSpec `yaml:"volumes"`
}

// Default returns the configuration used when no config file is given,
// matching the path layout spec.md §6 names.
func Default() Config {
	return Config{
		SocketPath:  "/dev/socket/vold",
		StagingDir:  "/mnt/secure/staging",
		AsecBindDir: "/mnt/secure/asec",
		AsecDir:     "/mnt/asec",
		ObbDir:      "/mnt/obb",
		IsoDir:      "/mnt/iso",
		SambaDir:    "/mnt/samba",
		DeviceDir:   "/dev/block/vold",
	}
}

// Load reads and parses a YAML config file, filling in defaults for any
// field the file left zero-valued.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	// Unmarshal onto the defaulted struct so an omitted field in the
	// file keeps its Default() value rather than zeroing out.
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	for i, v := range cfg.Volumes {
		if v.Label == "" {
			return Config{}, fmt.Errorf("volume entry %d: label is required", i)
		}
		if v.MountPoint == "" {
			return Config{}, fmt.Errorf("volume %s: mount_point is required", v.Label)
		}
		if v.PublicMountPoint == "" {
			cfg.Volumes[i].PublicMountPoint = v.MountPoint
		}
		if len(v.SysfsPaths) == 0 {
			return Config{}, fmt.Errorf("volume %s: sysfs_paths is required", v.Label)
		}
	}

	return cfg, nil
}
