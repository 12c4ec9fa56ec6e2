package node

import (
	"time"

	"github.com/hapticlab/go-haptic-udp/internal/logging"
)

// Motor is the continuous actuation output. Level is 0.0–1.0 and maps
// linearly to full-scale duty.
type Motor interface {
	SetIntensity(level float64)
}

// Beeper fires a fixed-length alert pulse. Pulse must return without
// blocking; the pulse runs out on its own.
type Beeper interface {
	Pulse(d time.Duration)
}

// logMotor and logBeeper stand in for the GPIO outputs on hosts without
// actuator hardware. Useful for soak-testing the fleet from a laptop.
type logMotor struct {
	last float64
}

func NewLogMotor() Motor {
	return &logMotor{}
}

func (m *logMotor) SetIntensity(level float64) {
	if level == m.last {
		return
	}
	m.last = level
	logging.Info("Motor intensity %.2f", level)
}

type logBeeper struct{}

func NewLogBeeper() Beeper {
	return logBeeper{}
}

func (logBeeper) Pulse(d time.Duration) {
	logging.Info("Beep %s", d)
	time.AfterFunc(d, func() {
		logging.Debug("Beep done")
	})
}
