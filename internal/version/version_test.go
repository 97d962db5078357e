package version

import (
	"strings"
	"testing"
)

func TestGetVersionIncludesProgramNameAndVersion(t *testing.T) {
	got := GetVersion("vold")
	if !strings.Contains(got, "vold version "+Version) {
		t.Fatalf("GetVersion() = %q, want it to contain %q", got, "vold version "+Version)
	}
}

func TestGetVersionIncludesPlatform(t *testing.T) {
	got := GetVersion("vold")
	if !strings.Contains(got, "/") {
		t.Fatalf("GetVersion() = %q, want a GOOS/GOARCH segment", got)
	}
}
