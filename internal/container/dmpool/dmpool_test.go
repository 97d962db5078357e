package dmpool

import "testing"

func TestUnmapUnmappedDeviceIsNoop(t *testing.T) {
	p := New()
	if err := p.Unmap("/dev/loop3"); err != nil {
		t.Fatalf("Unmap() on a never-mapped device = %v, want nil", err)
	}
}

func TestMapReturnsExistingMapperPathWithoutRecreating(t *testing.T) {
	p := New()
	p.mapped["/dev/loop3"] = "crypt-sdcard"

	path, err := p.Map("crypt-sdcard", "/dev/loop3", "0 100 crypt aes-cbc-essiv:sha256 deadbeef 0 /dev/loop3 0\n")
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	if path != "/dev/mapper/crypt-sdcard" {
		t.Fatalf("Map() = %q, want the already-mapped path", path)
	}
}
