package haptic

import (
	"fmt"
	"net"
	"time"

	"github.com/hapticlab/go-haptic-udp/internal/logging"
	"github.com/hapticlab/go-haptic-udp/internal/protocol"
)

// pollSlice is how long each receive wait lasts while collecting
// discovery replies.
const pollSlice = 100 * time.Millisecond

// BroadcastAddr computes the all-ones-host address of the subnet holding
// ip under the dotted mask.
func BroadcastAddr(ip, mask string) (net.IP, error) {
	ip4 := net.ParseIP(ip).To4()
	if ip4 == nil {
		return nil, fmt.Errorf("bad IPv4 address %q", ip)
	}
	mask4 := net.ParseIP(mask).To4()
	if mask4 == nil {
		return nil, fmt.Errorf("bad subnet mask %q", mask)
	}
	bcast := make(net.IP, 4)
	for i := range bcast {
		bcast[i] = ip4[i]&mask4[i] | ^mask4[i]
	}
	return bcast, nil
}

func (c *Client) broadcastAddr() (*net.UDPAddr, error) {
	if c.opts.Broadcast != "" {
		ip := net.ParseIP(c.opts.Broadcast).To4()
		if ip == nil {
			return nil, fmt.Errorf("bad broadcast address %q", c.opts.Broadcast)
		}
		return &net.UDPAddr{IP: ip, Port: c.opts.Port}, nil
	}
	ip, err := BroadcastAddr(c.opts.IP, c.opts.Mask)
	if err != nil {
		return nil, err
	}
	return &net.UDPAddr{IP: ip, Port: c.opts.Port}, nil
}

// Discover broadcasts one ping and collects replies until wait elapses.
// The node count is unknown up front, so collection is purely time-boxed:
// every distinct responding address is recorded, last reply wins on a
// duplicate, and silence just means an empty map. Always blocks for the
// full window.
func (c *Client) Discover(wait time.Duration) (map[string]*protocol.Reply, error) {
	dst, err := c.broadcastAddr()
	if err != nil {
		return nil, err
	}

	payload, err := protocol.EncodeCommand(&protocol.Command{
		Cmd:   protocol.CmdPing,
		Token: c.opts.Token,
	})
	if err != nil {
		return nil, err
	}

	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return nil, fmt.Errorf("open udp socket: %w", err)
	}
	defer conn.Close()

	if _, err := conn.WriteToUDP(payload, dst); err != nil {
		return nil, fmt.Errorf("broadcast ping: %w", err)
	}

	found := make(map[string]*protocol.Reply)
	buf := make([]byte, protocol.MaxDatagram)
	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		slice := time.Until(deadline)
		if slice > pollSlice {
			slice = pollSlice
		}
		conn.SetReadDeadline(time.Now().Add(slice))
		size, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			continue
		}
		reply, err := protocol.DecodeReply(buf[:size])
		if err != nil {
			logging.Debug("Undecodable reply from %s: %v", src, err)
			continue
		}
		found[src.String()] = reply
	}
	return found, nil
}

// BroadcastBuzz fans a buzz out to the whole subnet in one datagram.
// No replies are expected or collected.
func (c *Client) BroadcastBuzz(durationMS int, intensity float64, beep bool) error {
	dst, err := c.broadcastAddr()
	if err != nil {
		return err
	}
	return c.send(dst.IP.String(), &protocol.Command{
		Cmd:        protocol.CmdBuzz,
		Token:      c.opts.Token,
		DurationMS: durationMS,
		Intensity:  intensity,
		Beep:       beep,
	})
}
