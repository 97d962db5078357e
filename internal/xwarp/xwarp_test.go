package xwarp

import "testing"

func TestMirrorEnableDisable(t *testing.T) {
	m := New(4096)

	ready, pos, max := m.Status()
	if ready {
		t.Fatal("expected Mirror to start disabled")
	}
	if pos != 0 || max != 4096 {
		t.Fatalf("Status() = (%v, %d, %d), want (false, 0, 4096)", ready, pos, max)
	}

	if err := m.Enable(); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}
	ready, pos, max = m.Status()
	if !ready || pos != 0 || max != 4096 {
		t.Fatalf("Status() after Enable = (%v, %d, %d), want (true, 0, 4096)", ready, pos, max)
	}

	if err := m.Disable(); err != nil {
		t.Fatalf("Disable() error = %v", err)
	}
	ready, _, _ = m.Status()
	if ready {
		t.Fatal("expected Mirror to be disabled after Disable()")
	}
}
