package config

import (
	"encoding/json"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dchest/uniuri"
	"github.com/hapticlab/go-haptic-udp/internal/logging"
	"github.com/hapticlab/go-haptic-udp/internal/protocol"
)

const (
	DefaultIP    = "192.168.86.239"
	DefaultMask  = "255.255.255.0"
	DefaultToken = "change-me"
)

// Node holds everything the daemon needs, read once at startup and
// immutable afterwards.
type Node struct {
	Port         int
	DeviceID     string
	Token        string
	AccessPoint  bool
	PollInterval time.Duration
	MetricsPort  int
}

// nodeFile is the on-disk config.json shape carried over from the firmware.
type nodeFile struct {
	UDPPort     int    `json:"udp_port"`
	DeviceID    string `json:"device_id"`
	Token       string `json:"token"`
	AccessPoint bool   `json:"access_point"`
	PollMS      int    `json:"poll_ms"`
	MetricsPort int    `json:"metrics_port"`
}

// LoadNode reads path (config.json layout) and applies HAPTIC_* environment
// overrides on top. A missing or unparsable file is fail-soft: defaults are
// used and a warning logged, matching how the firmware boots without one.
func LoadNode(path string) Node {
	n := Node{
		Port:         protocol.DefaultPort,
		Token:        DefaultToken,
		PollInterval: 50 * time.Millisecond,
	}

	if raw, err := os.ReadFile(path); err != nil {
		logging.Warn("Unable to read %s, using defaults", path)
	} else {
		var f nodeFile
		if err := json.Unmarshal(raw, &f); err != nil {
			logging.Warn("Unable to parse %s: %v", path, err)
		} else {
			if f.UDPPort > 0 {
				n.Port = f.UDPPort
			}
			if f.DeviceID != "" {
				n.DeviceID = f.DeviceID
			}
			if f.Token != "" {
				n.Token = f.Token
			}
			n.AccessPoint = f.AccessPoint
			if f.PollMS > 0 {
				n.PollInterval = time.Duration(f.PollMS) * time.Millisecond
			}
			if f.MetricsPort > 0 {
				n.MetricsPort = f.MetricsPort
			}
		}
	}

	n.Port = getenvInt("HAPTIC_PORT", n.Port)
	n.DeviceID = getenvDefault("HAPTIC_DEVICE_ID", n.DeviceID)
	n.Token = getenvDefault("HAPTIC_TOKEN", n.Token)
	if v := os.Getenv("HAPTIC_MODE"); v != "" {
		n.AccessPoint = strings.EqualFold(v, protocol.ModeAccessPoint) || strings.EqualFold(v, "ap")
	}
	if ms := getenvInt("HAPTIC_POLL_MS", 0); ms > 0 {
		n.PollInterval = time.Duration(ms) * time.Millisecond
	}
	n.MetricsPort = getenvInt("PORT", n.MetricsPort)

	if n.DeviceID == "" {
		n.DeviceID = "haptic-" + uniuri.NewLen(6)
		logging.Warn("No device_id configured, using %s", n.DeviceID)
	}

	return n
}

// Bridge holds the MQTT→UDP bridge settings, all environment driven.
type Bridge struct {
	MQTTURI       *url.URL
	TopicPrefix   string
	BaseIP        string
	Mask          string
	Port          int
	Token         string
	DiscoverWait  time.Duration
	DiscoverEvery time.Duration
}

func BridgeFromEnv() (Bridge, error) {
	mu, err := url.Parse(getenvDefault("MQTT_URI", "tcp://localhost:1883"))
	if err != nil {
		return Bridge{}, err
	}

	b := Bridge{
		MQTTURI:       mu,
		TopicPrefix:   getenvDefault("MQTT_TOPIC_PREFIX", "haptic"),
		BaseIP:        getenvDefault("HAPTIC_IP", DefaultIP),
		Mask:          getenvDefault("HAPTIC_MASK", DefaultMask),
		Port:          getenvInt("HAPTIC_PORT", protocol.DefaultPort),
		Token:         getenvDefault("HAPTIC_TOKEN", DefaultToken),
		DiscoverWait:  time.Duration(getenvInt("HAPTIC_DISCOVER_WAIT_MS", 1500)) * time.Millisecond,
		DiscoverEvery: time.Duration(getenvInt("HAPTIC_DISCOVER_INTERVAL_S", 600)) * time.Second,
	}
	return b, nil
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
