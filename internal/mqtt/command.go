package mqtt

import (
	"fmt"
)

// Command is the bridge payload published on <prefix>/set/<target>.
// Zero values mean "use the bridge defaults", same as the firmware's
// buzz defaults.
type Command struct {
	Cmd        string  `json:"cmd"`
	DurationMS int     `json:"duration_ms"`
	Intensity  float64 `json:"intensity"`
	Beep       bool    `json:"beep"`
}

func (c *Command) String() string {
	return fmt.Sprintf("cmd:%s ms:%d intensity:%.2f beep:%t", c.Cmd, c.DurationMS, c.Intensity, c.Beep)
}

// CommandHandler receives one parsed command per MQTT message. Target is
// the topic suffix: a device id, or "all" for the whole fleet.
type CommandHandler interface {
	HandleCommand(target string, command *Command) error
}
