package devicenode

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestPathFormat(t *testing.T) {
	m := New("/dev/block/vold", zerolog.Nop())
	if got := m.Path(179, 1); got != "/dev/block/vold/179:1" {
		t.Errorf("Path(179, 1) = %q, want %q", got, "/dev/block/vold/179:1")
	}
}

func TestNewToleratesMissingDirectory(t *testing.T) {
	// The watcher is best-effort: a nonexistent directory must not make
	// New panic or return nil.
	m := New("/this/directory/does/not/exist", zerolog.Nop())
	if m == nil {
		t.Fatal("New() returned nil")
	}
	if m.watcher != nil {
		t.Error("expected no watcher to be established over a nonexistent directory")
	}
	_ = m.Close()
}
