package control

import (
	"bufio"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvold/vold/internal/volume"
	"github.com/kvold/vold/internal/volumemanager"
)

func newTestListener(t *testing.T, vols ...volume.Volume) (*Listener, string) {
	t.Helper()
	vm := volumemanager.New(zerolog.Nop(), vols, nil, nil, volumemanager.NewBroadcaster(zerolog.Nop()))
	sock := filepath.Join(t.TempDir(), "vold.sock")
	l := New(zerolog.Nop(), sock, vm, nil, nil)

	done := make(chan error, 1)
	go func() { done <- l.Serve() }()
	t.Cleanup(func() {
		_ = l.Close()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("Serve did not return after Close")
		}
	})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if conn, err := net.Dial("unix", sock); err == nil {
			conn.Close()
			return l, sock
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("control socket %s never became connectable", sock)
	return nil, ""
}

func sendLine(t *testing.T, conn net.Conn, line string) string {
	t.Helper()
	_, err := conn.Write([]byte(line + "\n"))
	require.NoError(t, err)
	reply, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	return reply
}

func TestServeCloseUnblocksAccept(t *testing.T) {
	newTestListener(t)
}

func TestDispatchUnknownCommand(t *testing.T) {
	_, sock := newTestListener(t)
	conn, err := net.Dial("unix", sock)
	require.NoError(t, err)
	defer conn.Close()

	reply := sendLine(t, conn, "bogus")
	assert.Equal(t, "500", reply[:3], "want a CommandSyntaxError (500) response, got %q", reply)
}

func TestVolumeListCommand(t *testing.T) {
	dv := volume.NewDirectVolume("sdcard", "/storage/sdcard", "/storage/sdcard", 0, volume.PartitionWholeDevice, []string{"/devices/platform/sdhci"}, volume.Deps{Broadcaster: volume.NullBroadcaster{}})
	_, sock := newTestListener(t, dv)
	conn, err := net.Dial("unix", sock)
	require.NoError(t, err)
	defer conn.Close()

	reply := sendLine(t, conn, "volume list")
	require.GreaterOrEqual(t, len(reply), 4)
	assert.Equal(t, "0 s", reply[:3], "volume list header = %q, want a %q-prefixed entry for sdcard", reply, "0 sdcard")
}

func TestVolumeMountUnknownLabelReportsFailure(t *testing.T) {
	_, sock := newTestListener(t)
	conn, err := net.Dial("unix", sock)
	require.NoError(t, err)
	defer conn.Close()

	reply := sendLine(t, conn, "volume mount ghost")
	assert.NotEqual(t, "200", reply[:3], "want a failure response for an unconfigured volume, got %q", reply)
}

func TestVolumeMountSyntaxError(t *testing.T) {
	_, sock := newTestListener(t)
	conn, err := net.Dial("unix", sock)
	require.NoError(t, err)
	defer conn.Close()

	reply := sendLine(t, conn, "volume mount")
	assert.Equal(t, "500", reply[:3], "want a CommandSyntaxError (500) for a missing argument, got %q", reply)
}
