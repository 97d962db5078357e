package volume

import (
	"bytes"
	"os/exec"
	"strings"
)

// extractMetadata shells out to blkid and pulls UUID=/LABEL= out of its
// first line of output, mirroring Volume::extractMetadata. A blkid
// failure (missing binary, unrecognized filesystem) clears both fields
// rather than failing the mount -- metadata is best-effort.
func extractMetadata(v Volume, devicePath string) {
	out, err := exec.Command("blkid", "-c", "/dev/null", devicePath).Output()
	if err != nil {
		v.SetUuid("")
		v.SetUserLabel("")
		return
	}

	line := out
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}

	v.SetUuid(quotedValueAfter(string(line), "UUID="))
	v.SetUserLabel(quotedValueAfter(string(line), "LABEL="))
}

// quotedValueAfter finds key in s and returns the double-quoted value
// immediately following it, e.g. quotedValueAfter(`UUID="ABCD"`, "UUID=")
// returns "ABCD". Returns "" if key isn't found or isn't followed by a
// quoted value.
func quotedValueAfter(s, key string) string {
	idx := strings.Index(s, key)
	if idx == -1 {
		return ""
	}
	rest := s[idx+len(key):]
	if len(rest) == 0 || rest[0] != '"' {
		return ""
	}
	rest = rest[1:]
	end := strings.IndexByte(rest, '"')
	if end == -1 {
		return ""
	}
	return rest[:end]
}
