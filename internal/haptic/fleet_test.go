package haptic

import (
	"testing"
	"time"

	"github.com/hapticlab/go-haptic-udp/internal/mqtt"
	"github.com/hapticlab/go-haptic-udp/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFleet(t *testing.T) (*Fleet, chan []byte) {
	t.Helper()

	addr, seen := startEchoNode(t, nil)
	fleet, err := NewFleet(Options{
		IP:        "127.0.0.1",
		Mask:      "255.255.255.0",
		Broadcast: "127.0.0.1",
		Port:      addr.Port,
		Token:     "secret",
	})
	require.NoError(t, err)
	return fleet, seen
}

func recvCmd(t *testing.T, seen chan []byte) *protocol.Command {
	t.Helper()

	select {
	case payload := <-seen:
		cmd, err := protocol.DecodeCommand(payload)
		require.NoError(t, err)
		return cmd
	case <-time.After(time.Second):
		t.Fatal("datagram never arrived")
		return nil
	}
}

func TestFleet_BuzzAllUsesDefaults(t *testing.T) {
	fleet, seen := testFleet(t)

	require.NoError(t, fleet.HandleCommand("all", &mqtt.Command{Cmd: protocol.CmdBuzz}))

	cmd := recvCmd(t, seen)
	assert.Equal(t, protocol.CmdBuzz, cmd.Cmd)
	assert.Empty(t, cmd.Target, `"all" must broadcast without a target filter`)
	assert.Equal(t, 1200, cmd.DurationMS)
	assert.Equal(t, 0.7, cmd.Intensity)
}

func TestFleet_TargetedCommandsCarryFilter(t *testing.T) {
	fleet, seen := testFleet(t)

	require.NoError(t, fleet.HandleCommand("RHIP", &mqtt.Command{Cmd: protocol.CmdBuzz, DurationMS: 300, Intensity: 0.5, Beep: true}))
	cmd := recvCmd(t, seen)
	assert.Equal(t, "RHIP", cmd.Target)
	assert.Equal(t, 300, cmd.DurationMS)
	assert.Equal(t, 0.5, cmd.Intensity)
	assert.True(t, cmd.Beep)

	require.NoError(t, fleet.HandleCommand("LHIP", &mqtt.Command{Cmd: protocol.CmdStop}))
	cmd = recvCmd(t, seen)
	assert.Equal(t, protocol.CmdStop, cmd.Cmd)
	assert.Equal(t, "LHIP", cmd.Target)
}

func TestFleet_RejectsUnknownCmd(t *testing.T) {
	fleet, _ := testFleet(t)

	assert.Error(t, fleet.HandleCommand("all", &mqtt.Command{Cmd: "explode"}))
	assert.NoError(t, fleet.HandleCommand("all", nil))
}
