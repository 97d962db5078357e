package control

import (
	"fmt"

	"github.com/kvold/vold/internal/responsecode"
)

// storageCmd implements "storage users <path>", reporting every
// process holding an open reference under path, matching
// CommandListener::StorageCmd::runCommand.
func (l *Listener) storageCmd(c *client, args []string) {
	if len(args) < 2 {
		syntaxError(c, "Missing Argument")
		return
	}

	if args[1] != "users" {
		syntaxError(c, "Unknown storage cmd")
		return
	}
	if len(args) != 3 {
		syntaxError(c, "Usage: storage users <path>")
		return
	}

	holders, err := l.proc.Holders(args[2])
	if err != nil {
		_ = c.SendMsg(responsecode.OperationFailed, "Failed to open /proc", true)
		return
	}

	for _, h := range holders {
		_ = c.SendMsg(responsecode.StorageUsersListResult, fmt.Sprintf("%d %s", h.PID, h.Name), false)
	}
	_ = c.SendMsg(responsecode.CommandOkay, "Storage user list complete", false)
}
