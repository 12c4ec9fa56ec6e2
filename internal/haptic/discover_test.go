package haptic

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/hapticlab/go-haptic-udp/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastAddr(t *testing.T) {
	tests := []struct {
		ip   string
		mask string
		want string
	}{
		{"192.168.86.239", "255.255.255.0", "192.168.86.255"},
		{"10.1.2.3", "255.255.0.0", "10.1.255.255"},
		{"172.16.5.9", "255.255.255.252", "172.16.5.11"},
		{"192.168.1.1", "255.255.255.255", "192.168.1.1"},
	}

	for _, tt := range tests {
		t.Run(tt.ip+"/"+tt.mask, func(t *testing.T) {
			got, err := BroadcastAddr(tt.ip, tt.mask)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestBroadcastAddr_Invalid(t *testing.T) {
	_, err := BroadcastAddr("not-an-ip", "255.255.255.0")
	assert.Error(t, err)

	_, err = BroadcastAddr("192.168.1.1", "garbage")
	assert.Error(t, err)

	_, err = BroadcastAddr("::1", "255.255.255.0")
	assert.Error(t, err)
}

// startReplier simulates count nodes behind one "broadcast" address: the
// listener receives the ping and answers once per node, each reply leaving
// from its own socket so the sources are distinct addresses.
func startReplier(t *testing.T, count int) *net.UDPAddr {
	t.Helper()

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	go func() {
		buf := make([]byte, protocol.MaxDatagram)
		for {
			size, src, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			cmd, err := protocol.DecodeCommand(buf[:size])
			if err != nil || cmd.Cmd != protocol.CmdPing {
				continue
			}
			for i := 0; i < count; i++ {
				out, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
				if err != nil {
					continue
				}
				reply := protocol.Reply{
					ID:   fmt.Sprintf("node%02d", i),
					IP:   "127.0.0.1",
					Mode: protocol.ModeStation,
					OK:   true,
				}
				payload, _ := protocol.EncodeReply(&reply)
				out.WriteToUDP(payload, src)
				out.Close()
			}
		}
	}()

	return conn.LocalAddr().(*net.UDPAddr)
}

func discoverClient(addr *net.UDPAddr) *Client {
	return NewClient(Options{
		IP:        "127.0.0.1",
		Mask:      "255.255.255.0",
		Broadcast: "127.0.0.1",
		Port:      addr.Port,
		Token:     "secret",
	})
}

func TestDiscover_CollectsAllResponders(t *testing.T) {
	for _, count := range []int{0, 1, 3} {
		t.Run(fmt.Sprintf("%d nodes", count), func(t *testing.T) {
			addr := startReplier(t, count)

			const wait = 300 * time.Millisecond
			start := time.Now()
			found, err := discoverClient(addr).Discover(wait)
			elapsed := time.Since(start)

			require.NoError(t, err)
			assert.Len(t, found, count)
			assert.GreaterOrEqual(t, elapsed, wait, "discovery returned before the window closed")
			assert.Less(t, elapsed, wait+500*time.Millisecond, "discovery overran the window")

			for addr, reply := range found {
				assert.NotEmpty(t, addr)
				assert.True(t, reply.OK)
			}
		})
	}
}

func TestDiscover_LastReplyWinsPerAddress(t *testing.T) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// One source address sends two decodable replies; the map must keep
	// only the second.
	go func() {
		buf := make([]byte, protocol.MaxDatagram)
		_, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		for _, id := range []string{"first", "second"} {
			payload, _ := protocol.EncodeReply(&protocol.Reply{ID: id, IP: "127.0.0.1", Mode: protocol.ModeStation, OK: true})
			conn.WriteToUDP(payload, src)
		}
	}()

	found, err := discoverClient(conn.LocalAddr().(*net.UDPAddr)).Discover(300 * time.Millisecond)
	require.NoError(t, err)
	require.Len(t, found, 1)
	for _, reply := range found {
		assert.Equal(t, "second", reply.ID)
	}
}

func TestDiscover_IgnoresUndecodableReplies(t *testing.T) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	go func() {
		buf := make([]byte, protocol.MaxDatagram)
		_, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		conn.WriteToUDP([]byte("static noise"), src)
	}()

	found, err := discoverClient(conn.LocalAddr().(*net.UDPAddr)).Discover(250 * time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, found)
}
