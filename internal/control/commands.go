package control

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/kvold/vold/internal/fstrim"
	"github.com/kvold/vold/internal/responsecode"
	"github.com/kvold/vold/internal/volerrors"
)

// reply sends the standard "<verb> operation succeeded/failed" pair
// every VoldCommand::runCommand ends on, translating err through
// volerrors.ToResponseCode the way ResponseCode::convertFromErrno does.
func reply(c *client, err error, verb string) {
	code, includeErrno := volerrors.ToResponseCode(err)
	if err == nil {
		_ = c.SendMsg(code, verb+" operation succeeded", includeErrno)
		return
	}
	_ = c.SendMsg(code, verb+" operation failed: "+err.Error(), includeErrno)
}

func syntaxError(c *client, usage string) {
	_ = c.SendMsg(responsecode.CommandSyntaxError, usage, false)
}

// systemUID is AID_SYSTEM, the Android system user. cryptfs and fstrim
// are the two commands spec.md §6 restricts to uid 0 or system.
const systemUID = 1000

func authorized(c *client) bool {
	return c.uid == 0 || c.uid == systemUID
}

func (l *Listener) dumpCmd(c *client, args []string) {
	_ = c.SendMsg(0, "Dumping mounted filesystems", false)
	lines, err := readProcMounts()
	if err != nil {
		_ = c.SendMsg(responsecode.OperationFailed, "Failed to read /proc/mounts", true)
	} else {
		for _, line := range lines {
			_ = c.SendMsg(0, line, false)
		}
	}
	_ = c.SendMsg(responsecode.CommandOkay, "dump complete", false)
}

func (l *Listener) volumeCmd(c *client, args []string) {
	if len(args) < 2 {
		syntaxError(c, "Missing Argument")
		return
	}

	switch args[1] {
	case "list":
		for _, v := range l.vm.Volumes() {
			_ = c.SendMsg(0, fmt.Sprintf("%s %s %d", v.Label(), v.MountPoint(), int(v.State())), false)
		}
		_ = c.SendMsg(responsecode.CommandOkay, "volume list complete", false)
		return
	case "debug":
		if len(args) != 3 || (args[2] != "on" && args[2] != "off") {
			syntaxError(c, "Usage: volume debug <off/on>")
			return
		}
		if args[2] == "on" {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
		reply(c, nil, "volume")
		return
	case "mount":
		if len(args) != 3 {
			syntaxError(c, "Usage: volume mount <path>")
			return
		}
		reply(c, l.vm.MountVolume(args[2]), "volume")
		return
	case "unmount":
		if len(args) < 3 || len(args) > 4 {
			syntaxError(c, "Usage: volume unmount <path> [force|force_and_revert]")
			return
		}
		force, revert := false, false
		if len(args) == 4 {
			switch args[3] {
			case "force":
				force = true
			case "force_and_revert":
				force, revert = true, true
			default:
				syntaxError(c, "Usage: volume unmount <path> [force|force_and_revert]")
				return
			}
		}
		reply(c, l.vm.UnmountVolume(args[2], force, revert), "volume")
		return
	case "format":
		if len(args) < 3 || len(args) > 4 || (len(args) == 4 && args[3] != "wipe") {
			syntaxError(c, "Usage: volume format <path> [wipe]")
			return
		}
		reply(c, l.vm.FormatVolume(args[2], len(args) == 4), "volume")
		return
	case "label":
		if len(args) != 3 {
			syntaxError(c, "Usage: volume label <path>")
			return
		}
		v := l.vm.Find(args[2])
		if v == nil {
			reply(c, volerrors.ErrInvalidArgument, "volume")
			return
		}
		_ = c.SendMsg(responsecode.CommandOkay, v.UserLabel(), false)
		return
	case "uuid":
		if len(args) != 3 {
			syntaxError(c, "Usage: volume uuid <path>")
			return
		}
		v := l.vm.Find(args[2])
		if v == nil {
			reply(c, volerrors.ErrInvalidArgument, "volume")
			return
		}
		_ = c.SendMsg(responsecode.CommandOkay, v.Uuid(), false)
		return
	case "share":
		if len(args) != 4 {
			syntaxError(c, "Usage: volume share <path> <method>")
			return
		}
		reply(c, l.vm.ShareVolume(args[2], args[3]), "volume")
		return
	case "unshare":
		if len(args) != 4 {
			syntaxError(c, "Usage: volume unshare <path> <method>")
			return
		}
		reply(c, l.vm.UnshareVolume(args[2], args[3]), "volume")
		return
	case "shared":
		if len(args) != 4 {
			syntaxError(c, "Usage: volume shared <path> <method>")
			return
		}
		enabled, err := l.vm.ShareEnabled(args[2], args[3])
		if err != nil {
			_ = c.SendMsg(responsecode.OperationFailed, "Failed to determine share enable state", true)
			return
		}
		msg := "Share disabled"
		if enabled {
			msg = "Share enabled"
		}
		_ = c.SendMsg(responsecode.ShareEnabledResult, msg, false)
		return
	default:
		syntaxError(c, "Unknown volume cmd")
	}
}

func (l *Listener) asecCmd(c *client, args []string) {
	if len(args) < 2 {
		syntaxError(c, "Missing Argument")
		return
	}

	switch args[1] {
	case "create":
		if len(args) != 8 {
			syntaxError(c, "Usage: asec create <container-id> <size_mb> <fstype> <key> <ownerUid> <isExternal>")
			return
		}
		sizeMB, _ := strconv.Atoi(args[3])
		ownerUID, _ := strconv.Atoi(args[6])
		reply(c, l.vm.CreateAsec(args[2], sizeMB, args[4], args[5], ownerUID), "asec")
	case "destroy":
		if len(args) < 3 {
			syntaxError(c, "Usage: asec destroy <container-id> [force]")
			return
		}
		reply(c, l.vm.DestroyAsec(args[2], len(args) > 3 && args[3] == "force"), "asec")
	case "mount":
		if len(args) != 5 {
			syntaxError(c, "Usage: asec mount <namespace-id> <key> <ownerUid>")
			return
		}
		ownerUID, _ := strconv.Atoi(args[4])
		_, err := l.vm.MountAsec(args[2], args[3], ownerUID)
		reply(c, err, "asec")
	case "unmount":
		if len(args) < 3 {
			syntaxError(c, "Usage: asec unmount <container-id> [force]")
			return
		}
		reply(c, l.vm.UnmountAsec(args[2], len(args) > 3 && args[3] == "force"), "asec")
	case "rename":
		if len(args) != 4 {
			syntaxError(c, "Usage: asec rename <old_id> <new_id>")
			return
		}
		reply(c, l.vm.RenameAsec(args[2], args[3]), "asec")
	case "path":
		if len(args) != 3 {
			syntaxError(c, "Usage: asec path <container-id>")
			return
		}
		path, err := l.vm.AsecPath(args[2])
		if err != nil {
			reply(c, err, "asec")
			return
		}
		_ = c.SendMsg(responsecode.AsecPathResult, path, false)
	default:
		syntaxError(c, "Unknown asec cmd")
	}
}

func (l *Listener) obbCmd(c *client, args []string) {
	if len(args) < 2 {
		syntaxError(c, "Missing Argument")
		return
	}

	switch args[1] {
	case "mount":
		if len(args) != 5 {
			syntaxError(c, "Usage: obb mount <filename> <key> <ownerGid>")
			return
		}
		ownerGID, _ := strconv.Atoi(args[4])
		_, err := l.vm.MountObb(args[2], args[3], ownerGID)
		reply(c, err, "obb")
	case "unmount":
		if len(args) < 3 {
			syntaxError(c, "Usage: obb unmount <source file> [force]")
			return
		}
		reply(c, l.vm.UnmountObb(args[2], len(args) > 3 && args[3] == "force"), "obb")
	default:
		syntaxError(c, "Unknown obb cmd")
	}
}

func (l *Listener) isoCmd(c *client, args []string) {
	if len(args) < 2 {
		syntaxError(c, "Missing Argument")
		return
	}

	switch args[1] {
	case "mount":
		if len(args) != 3 {
			syntaxError(c, "Usage: iso mount <filename>")
			return
		}
		_, err := l.vm.MountISO(args[2], args[2], "")
		reply(c, err, "iso")
	case "unmount":
		if len(args) < 3 {
			syntaxError(c, "Usage: iso unmount <source file> [force]")
			return
		}
		reply(c, l.vm.UnmountISO(args[2], len(args) > 3 && args[3] == "force"), "iso")
	default:
		syntaxError(c, "Unknown iso cmd")
	}
}

func (l *Listener) sambaCmd(c *client, args []string) {
	if len(args) < 2 {
		syntaxError(c, "Missing Argument")
		return
	}

	switch args[1] {
	case "mount":
		if len(args) != 9 {
			syntaxError(c, "Usage: samba mount <host> <share directory> <mount point> <user name> <password> <ro> <noexec>")
			return
		}
		ro := args[7] == "ro"
		noexec := args[8] == "noexec"
		reply(c, l.vm.MountSamba(args[2], args[3], args[4], args[5], args[6], ro, noexec), "samba")
	case "unmount":
		if len(args) < 3 {
			syntaxError(c, "Usage: samba unmount <mount point> [force]")
			return
		}
		reply(c, l.vm.UnmountSamba(args[2], len(args) > 3 && args[3] == "force"), "samba")
	default:
		syntaxError(c, "Unknown samba cmd")
	}
}

func (l *Listener) xwarpCmd(c *client, args []string) {
	if len(args) < 2 {
		syntaxError(c, "Missing Argument")
		return
	}
	if l.xwarp == nil {
		_ = c.SendMsg(responsecode.OperationFailed, "xwarp not available", false)
		return
	}

	switch args[1] {
	case "enable":
		if err := l.xwarp.Enable(); err != nil {
			_ = c.SendMsg(responsecode.OperationFailed, "Failed to enable xwarp", true)
			return
		}
		_ = c.SendMsg(responsecode.CommandOkay, "Xwarp mirroring started", false)
	case "disable":
		if err := l.xwarp.Disable(); err != nil {
			_ = c.SendMsg(responsecode.OperationFailed, "Failed to disable xwarp", true)
			return
		}
		_ = c.SendMsg(responsecode.CommandOkay, "Xwarp disabled", false)
	case "status":
		ready, pos, maxSize := l.xwarp.Status()
		state := "not-ready"
		if ready {
			state = "ready"
		}
		_ = c.SendMsg(responsecode.XwarpStatusResult, fmt.Sprintf("%s %d %d", state, pos, maxSize), false)
	default:
		syntaxError(c, "Unknown xwarp cmd")
	}
}

// cryptfsCmd always replies CommandOkay carrying the operation's raw
// return code as its message text, exactly as CryptfsCmd::runCommand
// does -- the caller is expected to parse that code, not the reply's
// nominal success/failure.
func (l *Listener) cryptfsCmd(c *client, args []string) {
	if !authorized(c) {
		reply(c, volerrors.ErrPermissionDenied, "cryptfs")
		return
	}
	if len(args) < 2 {
		syntaxError(c, "Missing Argument")
		return
	}

	rc := -1
	switch args[1] {
	case "checkpw":
		if len(args) != 3 {
			syntaxError(c, "Usage: cryptfs checkpw <passwd>")
			return
		}
		rc = l.cryptfs.CheckPassword(args[2])
	case "restart":
		rc = l.cryptfs.Restart()
	case "cryptocomplete":
		rc = l.cryptfs.CryptoComplete()
	case "enablecrypto":
		if len(args) != 4 || (args[2] != "wipe" && args[2] != "inplace") {
			syntaxError(c, "Usage: cryptfs enablecrypto <wipe|inplace> <passwd>")
			return
		}
		rc = l.cryptfs.EnableCrypto(args[2], args[3])
	case "changepw":
		if len(args) != 3 {
			syntaxError(c, "Usage: cryptfs changepw <newpasswd>")
			return
		}
		rc = l.cryptfs.ChangePassword(args[2])
	case "verifypw":
		if len(args) != 3 {
			syntaxError(c, "Usage: cryptfs verifypw <passwd>")
			return
		}
		rc = l.cryptfs.VerifyPassword(args[2])
	case "getfield":
		if len(args) != 3 {
			syntaxError(c, "Usage: cryptfs getfield <fieldname>")
			return
		}
		val, frc := l.cryptfs.GetField(args[2])
		rc = frc
		if rc == 0 {
			_ = c.SendMsg(responsecode.CryptfsGetfieldResult, val, false)
		}
	case "setfield":
		if len(args) != 4 {
			syntaxError(c, "Usage: cryptfs setfield <fieldname> <value>")
			return
		}
		rc = l.cryptfs.SetField(args[2], args[3])
	default:
		syntaxError(c, "Unknown cryptfs cmd")
		return
	}

	_ = c.SendMsg(responsecode.CommandOkay, strconv.Itoa(rc), false)
}

// fstrimCmd, like cryptfsCmd, always replies CommandOkay with the raw
// return code as its message, matching FstrimCmd::runCommand.
func (l *Listener) fstrimCmd(c *client, args []string) {
	if !authorized(c) {
		reply(c, volerrors.ErrPermissionDenied, "fstrim")
		return
	}
	if len(args) < 2 {
		syntaxError(c, "Missing Argument")
		return
	}

	if args[1] != "dotrim" {
		syntaxError(c, "Unknown fstrim cmd")
		return
	}

	rc := 0
	if err := fstrim.TrimAll(); err != nil {
		rc = -1
	}
	_ = c.SendMsg(responsecode.CommandOkay, strconv.Itoa(rc), false)
}
