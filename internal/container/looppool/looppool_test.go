package looppool

import "testing"

func TestNewDefaultsMaxLoop(t *testing.T) {
	p := New(0)
	if p.maxLoop != 64 {
		t.Errorf("New(0).maxLoop = %d, want default 64", p.maxLoop)
	}
	p = New(8)
	if p.maxLoop != 8 {
		t.Errorf("New(8).maxLoop = %d, want 8", p.maxLoop)
	}
}

func TestReleaseUnattachedImageIsNoop(t *testing.T) {
	p := New(8)
	if err := p.Release("/tmp/never-acquired.img"); err != nil {
		t.Fatalf("Release() on an unattached image = %v, want nil", err)
	}
}

func TestAcquireReturnsCachedDeviceWithoutReattaching(t *testing.T) {
	p := New(8)
	p.attached["/tmp/already.img"] = "/dev/loop3"

	dev, err := p.Acquire("/tmp/already.img", false)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if dev != "/dev/loop3" {
		t.Fatalf("Acquire() = %q, want the already-attached device /dev/loop3", dev)
	}
}
