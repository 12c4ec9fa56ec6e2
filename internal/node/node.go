package node

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/hapticlab/go-haptic-udp/internal/logging"
	"github.com/hapticlab/go-haptic-udp/internal/protocol"
)

// beepDuration matches the firmware's fixed alert pulse.
const beepDuration = 120 * time.Millisecond

// Options configure one node instance, immutable after New.
type Options struct {
	Port     int    // UDP listen port; 0 picks an ephemeral port
	DeviceID string // identifier reported in ping replies and matched by target filters
	Token    string // shared secret every command must carry
	Mode     string // protocol.ModeStation or protocol.ModeAccessPoint
	// PollInterval bounds each receive wait so the auto-stop deadline is
	// checked at least this often. Defaults to 50ms.
	PollInterval time.Duration
}

// vibe is the node's only cross-iteration state: the commanded intensity
// and the deadline after which the output self-zeroes. Owned exclusively
// by the loop; never touched concurrently.
type vibe struct {
	intensity   float64
	activeUntil time.Time
}

func (v *vibe) active() bool {
	return !v.activeUntil.IsZero()
}

type Node struct {
	opts   Options
	motor  Motor
	beeper Beeper

	conn  *net.UDPConn
	ip    string
	state vibe
}

func New(opts Options, motor Motor, beeper Beeper) *Node {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 50 * time.Millisecond
	}
	if opts.Mode == "" {
		opts.Mode = protocol.ModeStation
	}
	return &Node{opts: opts, motor: motor, beeper: beeper}
}

// Listen binds the UDP socket. A bind failure is the one fatal error class;
// everything after this point is log-and-continue.
func (n *Node) Listen() error {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: n.opts.Port})
	if err != nil {
		return fmt.Errorf("bind udp port %d: %w", n.opts.Port, err)
	}
	n.conn = conn
	n.ip = localIP()
	logging.Info("UDP listening on %s (%s)", conn.LocalAddr(), n.opts.Mode)
	return nil
}

// Addr reports the bound address. Only valid after Listen.
func (n *Node) Addr() net.Addr {
	return n.conn.LocalAddr()
}

// Serve runs the reactive loop until ctx is cancelled: receive one datagram
// with a bounded wait, apply it, then check the auto-stop deadline. The
// deadline check runs every iteration whether or not anything arrived, so
// expiry latency is bounded by the poll interval even under sustained
// traffic. Per-datagram errors never escape an iteration.
func (n *Node) Serve(ctx context.Context) error {
	defer n.conn.Close()

	buf := make([]byte, protocol.MaxDatagram)
	for {
		if ctx.Err() != nil {
			n.stopVibe()
			return nil
		}

		n.conn.SetReadDeadline(time.Now().Add(n.opts.PollInterval))
		size, src, err := n.conn.ReadFromUDP(buf)
		if err == nil {
			n.handlePacket(buf[:size], src)
		} else if ne, ok := err.(net.Error); !ok || !ne.Timeout() {
			// Transient OS-level receive errors are dropped, same as a
			// bad datagram.
			logging.Debug("Receive error: %v", err)
		}

		n.checkExpiry()
	}
}

// Run is Listen followed by Serve.
func (n *Node) Run(ctx context.Context) error {
	if err := n.Listen(); err != nil {
		return err
	}
	return n.Serve(ctx)
}

// handlePacket is the single dispatch point: decode, authorize, apply,
// optionally reply. Synchronous except for the beep pulse.
func (n *Node) handlePacket(payload []byte, src *net.UDPAddr) {
	cmd, err := protocol.DecodeCommand(payload)
	if err != nil {
		commandsTotal.WithLabelValues("", "malformed").Inc()
		logging.Warn("Bad packet from %s: %v", src, err)
		return
	}

	if err := cmd.Authorize(n.opts.Token, n.opts.DeviceID); err != nil {
		if errors.Is(err, protocol.ErrUnauthorized) {
			// Dropped without a reply so unauthenticated probes learn
			// nothing.
			commandsTotal.WithLabelValues(cmd.Cmd, "unauthorized").Inc()
			logging.Warn("Bad token from %s", src)
			return
		}
		// Target filter for some other node.
		commandsTotal.WithLabelValues(cmd.Cmd, "ignored").Inc()
		return
	}

	switch cmd.Cmd {
	case protocol.CmdBuzz:
		n.startVibe(cmd.DurationMS, cmd.Intensity)
		if cmd.Beep {
			n.beeper.Pulse(beepDuration)
		}
	case protocol.CmdStop:
		n.stopVibe()
	case protocol.CmdPing:
		n.reply(src)
	}
	commandsTotal.WithLabelValues(cmd.Cmd, "ok").Inc()
}

// startVibe applies a buzz. A later buzz overwrites both intensity and
// deadline; durations never accumulate.
func (n *Node) startVibe(durationMS int, intensity float64) {
	n.motor.SetIntensity(intensity)
	n.state.intensity = intensity
	n.state.activeUntil = time.Now().Add(time.Duration(durationMS) * time.Millisecond)
	buzzActive.Set(1)
	logging.Debug("Buzz ms=%d intensity=%.2f", durationMS, intensity)
}

func (n *Node) stopVibe() {
	n.motor.SetIntensity(0)
	n.state = vibe{}
	buzzActive.Set(0)
}

func (n *Node) checkExpiry() {
	if n.state.active() && !time.Now().Before(n.state.activeUntil) {
		intensity := n.state.intensity
		n.stopVibe()
		logging.Debug("Buzz expired (was %.2f)", intensity)
	}
}

func (n *Node) reply(src *net.UDPAddr) {
	r := protocol.Reply{ID: n.opts.DeviceID, IP: n.ip, Mode: n.opts.Mode, OK: true}
	payload, err := protocol.EncodeReply(&r)
	if err != nil {
		logging.Error("Encoding reply: %v", err)
		return
	}
	if _, err := n.conn.WriteToUDP(payload, src); err != nil {
		logging.Warn("Reply to %s failed: %v", src, err)
	}
}

// localIP finds the address the node presents on the LAN. The probe never
// sends anything; a connected UDP socket just resolves the outbound route.
func localIP() string {
	conn, err := net.Dial("udp4", "8.8.8.8:80")
	if err != nil {
		return "0.0.0.0"
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}
