package haptic

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/hapticlab/go-haptic-udp/internal/protocol"
)

// ErrNoReply is the expected outcome when no node answers a unicast ping
// within the wait window. It is reportable, not a transport failure.
var ErrNoReply = errors.New("no reply")

// Options address one node (or one subnet, for the broadcast calls).
type Options struct {
	IP    string // unicast destination, also the base for broadcast derivation
	Mask  string // dotted subnet mask, e.g. 255.255.255.0
	Port  int
	Token string
	// Broadcast overrides the derived broadcast address when set.
	Broadcast string
	// ReplyTimeout bounds the unicast ping wait. Defaults to 2s.
	ReplyTimeout time.Duration
}

// Client builds and sends protocol commands. Each send opens its own
// short-lived socket; there is no connection state to keep.
type Client struct {
	opts Options
}

func NewClient(opts Options) *Client {
	if opts.Port == 0 {
		opts.Port = protocol.DefaultPort
	}
	if opts.ReplyTimeout <= 0 {
		opts.ReplyTimeout = 2 * time.Second
	}
	return &Client{opts: opts}
}

// Ping sends a unicast ping and waits for one reply. ErrNoReply after the
// wait window means the device is absent or unreachable; callers wanting
// reliability retry at their own layer.
func (c *Client) Ping(target string) (*protocol.Reply, error) {
	payload, err := protocol.EncodeCommand(&protocol.Command{
		Cmd:    protocol.CmdPing,
		Token:  c.opts.Token,
		Target: target,
	})
	if err != nil {
		return nil, err
	}

	conn, err := c.dial(c.opts.IP)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if _, err := conn.Write(payload); err != nil {
		return nil, fmt.Errorf("send ping: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(c.opts.ReplyTimeout))
	buf := make([]byte, protocol.MaxDatagram)
	size, err := conn.Read(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, ErrNoReply
		}
		return nil, fmt.Errorf("await reply: %w", err)
	}
	return protocol.DecodeReply(buf[:size])
}

// Buzz is fire-and-forget; no acknowledgment exists in the protocol.
func (c *Client) Buzz(durationMS int, intensity float64, beep bool, target string) error {
	return c.send(c.opts.IP, &protocol.Command{
		Cmd:        protocol.CmdBuzz,
		Token:      c.opts.Token,
		Target:     target,
		DurationMS: durationMS,
		Intensity:  intensity,
		Beep:       beep,
	})
}

// Stop is fire-and-forget.
func (c *Client) Stop(target string) error {
	return c.send(c.opts.IP, &protocol.Command{
		Cmd:    protocol.CmdStop,
		Token:  c.opts.Token,
		Target: target,
	})
}

func (c *Client) send(ip string, cmd *protocol.Command) error {
	payload, err := protocol.EncodeCommand(cmd)
	if err != nil {
		return err
	}
	conn, err := c.dial(ip)
	if err != nil {
		return err
	}
	defer conn.Close()
	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("send %s: %w", cmd.Cmd, err)
	}
	return nil
}

func (c *Client) dial(ip string) (*net.UDPConn, error) {
	addr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(ip, strconv.Itoa(c.opts.Port)))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", ip, err)
	}
	conn, err := net.DialUDP("udp4", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("open udp socket: %w", err)
	}
	return conn, nil
}
