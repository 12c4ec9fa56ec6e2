package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Command verbs carried in the "cmd" field.
const (
	CmdPing = "ping"
	CmdBuzz = "buzz"
	CmdStop = "stop"
)

const (
	// DefaultPort is the UDP port nodes listen on unless configured otherwise.
	DefaultPort = 5005

	// MaxDatagram bounds reply reads. Commands should stay well under this.
	MaxDatagram = 2048

	// MaxDurationMS caps a single buzz. Longer runs need repeated commands.
	MaxDurationMS = 10000

	defaultDurationMS = 1000
	defaultIntensity  = 1.0
)

var (
	ErrMalformed      = errors.New("malformed message")
	ErrUnauthorized   = errors.New("bad token")
	ErrTargetMismatch = errors.New("target mismatch")
)

// Command is one controller→node datagram. Numeric fields are only
// meaningful for buzz and arrive pre-clamped out of DecodeCommand.
type Command struct {
	Cmd        string
	Token      string
	Target     string
	DurationMS int
	Intensity  float64
	Beep       bool
}

func (c *Command) String() string {
	if c.Cmd == CmdBuzz {
		return fmt.Sprintf("cmd:%s ms:%d intensity:%.2f beep:%t", c.Cmd, c.DurationMS, c.Intensity, c.Beep)
	}
	return fmt.Sprintf("cmd:%s", c.Cmd)
}

// wireCommand is the JSON shape on the wire. Pointers distinguish absent
// fields from zero values so that buzz defaults only apply when a field is
// genuinely missing.
type wireCommand struct {
	Cmd        *string  `json:"cmd"`
	Token      *string  `json:"token"`
	Target     *string  `json:"target,omitempty"`
	DurationMS *int     `json:"duration_ms,omitempty"`
	Intensity  *float64 `json:"intensity,omitempty"`
	Beep       *bool    `json:"beep,omitempty"`
}

// EncodeCommand serializes a command for sending. Numeric fields are only
// emitted for buzz; target and beep only when set.
func EncodeCommand(c *Command) ([]byte, error) {
	w := wireCommand{Cmd: &c.Cmd, Token: &c.Token}
	if c.Target != "" {
		w.Target = &c.Target
	}
	if c.Cmd == CmdBuzz {
		ms := c.DurationMS
		in := c.Intensity
		w.DurationMS = &ms
		w.Intensity = &in
		if c.Beep {
			b := true
			w.Beep = &b
		}
	}
	return json.Marshal(&w)
}

// DecodeCommand parses and validates one datagram payload. Undecodable
// payloads, unknown fields, a missing/unknown cmd, or a missing token all
// come back as ErrMalformed. Out-of-range duration_ms and intensity are
// clamped, never rejected.
func DecodeCommand(payload []byte) (*Command, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()

	var w wireCommand
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data", ErrMalformed)
	}
	if w.Cmd == nil {
		return nil, fmt.Errorf("%w: missing cmd", ErrMalformed)
	}
	if w.Token == nil {
		return nil, fmt.Errorf("%w: missing token", ErrMalformed)
	}

	c := Command{Cmd: *w.Cmd, Token: *w.Token}
	if w.Target != nil {
		c.Target = *w.Target
	}
	if w.Beep != nil {
		c.Beep = *w.Beep
	}

	switch c.Cmd {
	case CmdPing, CmdStop:
	case CmdBuzz:
		c.DurationMS = defaultDurationMS
		c.Intensity = defaultIntensity
		if w.DurationMS != nil {
			c.DurationMS = *w.DurationMS
		}
		if w.Intensity != nil {
			c.Intensity = *w.Intensity
		}
		c.DurationMS = clampDuration(c.DurationMS)
		c.Intensity = clampIntensity(c.Intensity)
	default:
		return nil, fmt.Errorf("%w: unknown cmd %q", ErrMalformed, c.Cmd)
	}

	return &c, nil
}

// Authorize applies the token and target checks for one node. A wrong token
// is ErrUnauthorized; a non-matching target filter is ErrTargetMismatch
// (a no-op for this node, not a fault of the sender).
func (c *Command) Authorize(token, deviceID string) error {
	if c.Token != token {
		return ErrUnauthorized
	}
	if c.Target != "" && c.Target != deviceID {
		return ErrTargetMismatch
	}
	return nil
}

func clampDuration(ms int) int {
	if ms < 0 {
		return 0
	}
	if ms > MaxDurationMS {
		return MaxDurationMS
	}
	return ms
}

func clampIntensity(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
