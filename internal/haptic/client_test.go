package haptic

import (
	"net"
	"testing"
	"time"

	"github.com/hapticlab/go-haptic-udp/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startEchoNode answers pings on a loopback socket and records every
// datagram it sees.
func startEchoNode(t *testing.T, reply *protocol.Reply) (*net.UDPAddr, chan []byte) {
	t.Helper()

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	seen := make(chan []byte, 16)
	go func() {
		buf := make([]byte, protocol.MaxDatagram)
		for {
			size, src, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			payload := make([]byte, size)
			copy(payload, buf[:size])
			seen <- payload

			if reply == nil {
				continue
			}
			if cmd, err := protocol.DecodeCommand(payload); err == nil && cmd.Cmd == protocol.CmdPing {
				out, _ := protocol.EncodeReply(reply)
				conn.WriteToUDP(out, src)
			}
		}
	}()

	return conn.LocalAddr().(*net.UDPAddr), seen
}

func clientFor(addr *net.UDPAddr, timeout time.Duration) *Client {
	return NewClient(Options{
		IP:           "127.0.0.1",
		Mask:         "255.255.255.0",
		Port:         addr.Port,
		Token:        "secret",
		ReplyTimeout: timeout,
	})
}

func TestPing_ReceivesReply(t *testing.T) {
	want := &protocol.Reply{ID: "haptic01", IP: "127.0.0.1", Mode: protocol.ModeStation, OK: true}
	addr, _ := startEchoNode(t, want)

	got, err := clientFor(addr, 2*time.Second).Ping("")
	require.NoError(t, err)
	assert.Equal(t, *want, *got)
}

func TestPing_NoReplyAfterTimeout(t *testing.T) {
	// The node exists but stays silent; the outcome is ErrNoReply, not a
	// transport failure.
	addr, _ := startEchoNode(t, nil)

	start := time.Now()
	_, err := clientFor(addr, 100*time.Millisecond).Ping("")
	assert.ErrorIs(t, err, ErrNoReply)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestBuzz_WirePayload(t *testing.T) {
	addr, seen := startEchoNode(t, nil)

	require.NoError(t, clientFor(addr, time.Second).Buzz(750, 0.4, true, "RHIP"))

	select {
	case payload := <-seen:
		cmd, err := protocol.DecodeCommand(payload)
		require.NoError(t, err)
		assert.Equal(t, protocol.CmdBuzz, cmd.Cmd)
		assert.Equal(t, "secret", cmd.Token)
		assert.Equal(t, "RHIP", cmd.Target)
		assert.Equal(t, 750, cmd.DurationMS)
		assert.Equal(t, 0.4, cmd.Intensity)
		assert.True(t, cmd.Beep)
	case <-time.After(time.Second):
		t.Fatal("buzz datagram never arrived")
	}
}

func TestStop_WirePayload(t *testing.T) {
	addr, seen := startEchoNode(t, nil)

	require.NoError(t, clientFor(addr, time.Second).Stop(""))

	select {
	case payload := <-seen:
		cmd, err := protocol.DecodeCommand(payload)
		require.NoError(t, err)
		assert.Equal(t, protocol.CmdStop, cmd.Cmd)
		assert.Empty(t, cmd.Target)
	case <-time.After(time.Second):
		t.Fatal("stop datagram never arrived")
	}
}
