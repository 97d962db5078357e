// Command vold is the daemon entrypoint: it loads the volume table,
// wires every collaborator package together, and runs the netlink
// reader, control socket, and dispatch loop until interrupted --
// the Go equivalent of vold's main.cpp registering a CommandListener
// and a VolumeManager on a single-threaded event loop.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/kvold/vold/internal/config"
	"github.com/kvold/vold/internal/container"
	"github.com/kvold/vold/internal/container/dmpool"
	"github.com/kvold/vold/internal/container/looppool"
	"github.com/kvold/vold/internal/control"
	"github.com/kvold/vold/internal/cryptfs"
	"github.com/kvold/vold/internal/devicenode"
	"github.com/kvold/vold/internal/fsdriver"
	"github.com/kvold/vold/internal/netlink"
	"github.com/kvold/vold/internal/processkiller"
	"github.com/kvold/vold/internal/version"
	"github.com/kvold/vold/internal/volume"
	"github.com/kvold/vold/internal/volumemanager"
	"github.com/kvold/vold/internal/xwarp"
)

var (
	configPath   = pflag.StringP("config", "c", "", "path to daemon config file (defaults baked in if omitted)")
	socketPath   = pflag.StringP("socket", "s", "", "override the control socket path from the config file")
	debug        = pflag.BoolP("debug", "d", false, "enable debug-level logging")
	printVersion = pflag.BoolP("version", "v", false, "print version and exit")
)

func main() {
	pflag.Parse()

	if *printVersion {
		fmt.Println(version.GetVersion("vold"))
		return
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("failed to load config")
		}
		cfg = loaded
	}
	if *socketPath != "" {
		cfg.SocketPath = *socketPath
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("vold exited")
	}
}

func run(cfg config.Config, log zerolog.Logger) error {
	for _, dir := range []string{cfg.StagingDir, cfg.AsecBindDir, cfg.AsecDir, cfg.ObbDir, cfg.IsoDir, cfg.SambaDir, cfg.DeviceDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	fsDrivers := fsdriver.NewRegistry()
	fsDrivers.Register(fsdriver.NTFS{})
	fsDrivers.Register(fsdriver.FAT{})
	fsDrivers.Register(fsdriver.EXT{})
	fsDrivers.Register(fsdriver.EXFAT{})
	fsDrivers.Register(fsdriver.ISO9660{})
	fsDrivers.Register(fsdriver.CIFS{})

	killer := processkiller.New()
	deviceNodes := devicenode.New(cfg.DeviceDir, log.With().Str("component", "devicenode").Logger())

	loops := looppool.New(64)

	var crypto cryptfs.Service = cryptfs.Stub{}
	if cfg.DMCryptCipher != "" && cfg.DMCryptKey != "" {
		crypto = cryptfs.NewDMCrypt(dmpool.New(), deviceNodes, cfg.DMCryptCipher, cfg.DMCryptKey)
	}

	containers := container.New(cfg.AsecDir, cfg.ObbDir, cfg.IsoDir, loops, killer, fsDrivers, log.With().Str("component", "container").Logger())
	samba := container.NewSambaMounts(containers)

	broadcaster := volumemanager.NewBroadcaster(log.With().Str("component", "broadcaster").Logger())

	// shares resolves to the Manager built below. A volume's Deps is
	// needed to construct the volume, but the Manager needs the
	// constructed volume slice -- this indirection breaks that cycle
	// without volume importing volumemanager.
	shares := &managerShareCoordinator{}

	vols := make([]volume.Volume, 0, len(cfg.Volumes))
	for _, spec := range cfg.Volumes {
		deps := volume.Deps{
			Broadcaster: broadcaster,
			FsDrivers:   fsDrivers,
			DeviceNodes: deviceNodes,
			Killer:      killer,
			Crypto:      crypto,
			Containers:  containers,
			Shares:      shares,
			StagingDir:  cfg.StagingDir,
			AsecBindDir: cfg.AsecBindDir,
		}
		vols = append(vols, volume.NewDirectVolume(spec.Label, spec.MountPoint, spec.PublicMountPoint, flagsFromSpec(spec.Flags), spec.PartitionIndex, spec.SysfsPaths, deps))
	}

	vm := volumemanager.New(log.With().Str("component", "volumemanager").Logger(), vols, containers, samba, broadcaster)
	shares.vm = vm

	listener := control.New(log.With().Str("component", "control").Logger(), cfg.SocketPath, vm, cryptfs.StubAdmin{}, xwarp.New(0))

	nlSource, err := netlink.Open()
	if err != nil {
		return fmt.Errorf("open netlink socket: %w", err)
	}
	defer nlSource.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, gctx := errgroup.WithContext(ctx)

	events := make(chan netlink.Event, 64)
	group.Go(func() error {
		defer close(events)
		for {
			evt, err := nlSource.Read()
			if err != nil {
				return fmt.Errorf("netlink read: %w", err)
			}
			select {
			case events <- evt:
			case <-gctx.Done():
				return nil
			}
		}
	})

	group.Go(func() error {
		for {
			select {
			case evt, ok := <-events:
				if !ok {
					return nil
				}
				if err := vm.Dispatch(evt); err != nil {
					log.Debug().Err(err).Str("devpath", evt.DevPath).Msg("event not handled")
				}
			case <-gctx.Done():
				return nil
			}
		}
	})

	group.Go(func() error {
		return listener.Serve()
	})

	// Unblock the netlink reader and the control socket's Accept loop
	// once the group context is cancelled, whether that's from a signal
	// or from one of the other goroutines returning an error.
	group.Go(func() error {
		<-gctx.Done()
		_ = nlSource.Close()
		_ = listener.Close()
		return nil
	})

	return group.Wait()
}

// managerShareCoordinator lets a volume.Deps.Shares field be filled in
// before its volumemanager.Manager exists, forwarding once vm is set.
type managerShareCoordinator struct {
	vm *volumemanager.Manager
}

func (s *managerShareCoordinator) UnshareVolume(label, method string) error {
	return s.vm.UnshareVolume(label, method)
}

func flagsFromSpec(flags []config.VolumeFlag) volume.Flags {
	var f volume.Flags
	for _, flag := range flags {
		switch flag {
		case config.FlagProvidesASEC:
			f |= volume.FlagProvidesASEC
		case config.FlagNonRemovable:
			f |= volume.FlagNonRemovable
		case config.FlagEncryptable:
			f |= volume.FlagEncryptable
		}
	}
	return f
}
