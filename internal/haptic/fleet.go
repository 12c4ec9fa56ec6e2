package haptic

import (
	"fmt"
	"time"

	"github.com/hapticlab/go-haptic-udp/internal/mqtt"
	"github.com/hapticlab/go-haptic-udp/internal/protocol"
)

// targetAll is the topic suffix addressing every node at once.
const targetAll = "all"

// Fleet fans bridge commands out to the whole subnet. Every send goes to
// the broadcast address; per-node addressing rides on the protocol's
// target filter, so the bridge never has to track node IPs.
type Fleet struct {
	client *Client
}

func NewFleet(opts Options) (*Fleet, error) {
	bcast, err := BroadcastAddr(opts.IP, opts.Mask)
	if err != nil && opts.Broadcast == "" {
		return nil, err
	}
	if opts.Broadcast == "" {
		opts.IP = bcast.String()
	} else {
		opts.IP = opts.Broadcast
	}
	return &Fleet{client: NewClient(opts)}, nil
}

// HandleCommand implements mqtt.CommandHandler. Zero duration/intensity
// fall back to the broadcast defaults before the protocol clamp applies.
func (f *Fleet) HandleCommand(target string, command *mqtt.Command) error {
	if command == nil {
		return nil
	}
	if target == targetAll {
		target = ""
	}

	switch command.Cmd {
	case protocol.CmdBuzz:
		ms := command.DurationMS
		if ms == 0 {
			ms = 1200
		}
		intensity := command.Intensity
		if intensity == 0 {
			intensity = 0.7
		}
		return f.client.Buzz(ms, intensity, command.Beep, target)
	case protocol.CmdStop:
		return f.client.Stop(target)
	default:
		return fmt.Errorf("unknown bridge cmd %q", command.Cmd)
	}
}

// Discover runs the usual broadcast collection through the fleet's socket
// options.
func (f *Fleet) Discover(wait time.Duration) (map[string]*protocol.Reply, error) {
	return f.client.Discover(wait)
}
