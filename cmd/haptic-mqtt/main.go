package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hapticlab/go-haptic-udp/internal/config"
	"github.com/hapticlab/go-haptic-udp/internal/haptic"
	"github.com/hapticlab/go-haptic-udp/internal/logging"
	"github.com/hapticlab/go-haptic-udp/internal/mqtt"
	"github.com/hapticlab/go-haptic-udp/internal/protocol"
	"github.com/joho/godotenv"
)

func init() {
	logging.Init(nil, logging.DefaultFlags)
	logging.Info("Loading .env file")
	err := godotenv.Load(".env")

	if err != nil {
		logging.Warn("Unable to load .env")
	}
}

func main() {
	cfg, err := config.BridgeFromEnv()
	if err != nil {
		logging.Error("Error parsing MQTT_URI: %v", err)
		os.Exit(1)
	}

	fleet, err := haptic.NewFleet(haptic.Options{
		IP:    cfg.BaseIP,
		Mask:  cfg.Mask,
		Port:  cfg.Port,
		Token: cfg.Token,
	})
	if err != nil {
		logging.Error("%v", err)
		os.Exit(1)
	}

	mc := mqtt.NewMQTTClient(cfg.MQTTURI, cfg.TopicPrefix)
	if err := mc.Connect(fleet); err != nil {
		logging.Error("Error connecting to MQTT: %v", err)
		os.Exit(1)
	}
	defer mc.Disconnect()

	go discoverLoop(fleet, mc, cfg.DiscoverWait, cfg.DiscoverEvery)

	logging.Info("Ready")

	waitForExit()

	logging.Info("Terminating")
}

func waitForExit() {
	// Set up a channel to receive OS signals so we can gracefully exit
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	<-signalChan
	logging.Info("Exit signal received")
}

func discoverLoop(fleet *haptic.Fleet, mc *mqtt.MQTTClient, wait, every time.Duration) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	logging.Info("Performing initial discovery")
	publishDiscovery(fleet, mc, wait)

	// Keep re-discovering at an interval to pick up nodes that come
	// online later.
	tick := time.Tick(every)

	for {
		select {
		case <-tick:
			publishDiscovery(fleet, mc, wait)
		case <-signalChan:
			logging.Info("Background discovery loop interrupted, exiting")
			return
		}
	}
}

func publishDiscovery(fleet *haptic.Fleet, mc *mqtt.MQTTClient, wait time.Duration) {
	found, err := fleet.Discover(wait)
	if err != nil {
		logging.Warn("Discovery failed: %v", err)
		return
	}
	logging.Info("Found haptic nodes: %d", len(found))

	for addr, reply := range found {
		payload, err := protocol.EncodeReply(reply)
		if err != nil {
			continue
		}
		mc.PublishStatus(reply.ID, payload)
		logging.Debug("Published status for %s (%s)", reply.ID, addr)
	}
}
