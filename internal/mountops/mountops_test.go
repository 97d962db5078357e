package mountops

import (
	"reflect"
	"testing"
)

func TestSplitLines(t *testing.T) {
	got := splitLines("a b\nc d\n")
	want := []string{"a b", "c d"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitLines() = %v, want %v", got, want)
	}
}

func TestSplitLinesNoTrailingNewline(t *testing.T) {
	got := splitLines("a b")
	if got != nil {
		t.Errorf("splitLines(%q) = %v, want nil (only newline-terminated lines are emitted)", "a b", got)
	}
}

func TestSplitFieldsCollapsesRepeatedWhitespace(t *testing.T) {
	got := splitFields("/dev/sda1  /mnt/sdcard\tvfat rw 0 0")
	want := []string{"/dev/sda1", "/mnt/sdcard", "vfat", "rw", "0", "0"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitFields() = %v, want %v", got, want)
	}
}

func TestIsMountedNoMatch(t *testing.T) {
	mounted, err := IsMounted("/this/path/is/definitely/not/a/mountpoint")
	if err != nil {
		t.Fatalf("IsMounted() error = %v", err)
	}
	if mounted {
		t.Error("IsMounted() = true for a path that can't be mounted")
	}
}
