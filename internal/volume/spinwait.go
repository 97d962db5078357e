package volume

import "time"

// sleepSpinWait is the 500ms poll interval handlePartitionRemoved busy-
// waits on while a volume is State_Checking, matching the
// usleep(500*1000) loop in
// original_source/DirectVolume.cpp's handlePartitionRemoved.
func sleepSpinWait() {
	time.Sleep(500 * time.Millisecond)
}
