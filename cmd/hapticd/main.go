package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hapticlab/go-haptic-udp/internal/config"
	"github.com/hapticlab/go-haptic-udp/internal/logging"
	"github.com/hapticlab/go-haptic-udp/internal/node"
	"github.com/hapticlab/go-haptic-udp/internal/protocol"
	"github.com/icza/gox/gox"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
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
	cfgPath := flag.String("config", "config.json", "path to node config file")
	flag.Parse()

	cfg := config.LoadNode(*cfgPath)
	mode := gox.If(cfg.AccessPoint, protocol.ModeAccessPoint, protocol.ModeStation)

	n := node.New(node.Options{
		Port:         cfg.Port,
		DeviceID:     cfg.DeviceID,
		Token:        cfg.Token,
		Mode:         mode,
		PollInterval: cfg.PollInterval,
	}, node.NewLogMotor(), node.NewLogBeeper())

	if err := n.Listen(); err != nil {
		logging.Error("%v", err)
		os.Exit(1)
	}

	if cfg.MetricsPort > 0 {
		go startServer(cfg.MetricsPort)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		waitForExit()
		cancel()
	}()

	logging.Info("Ready (%s)", cfg.DeviceID)

	n.Serve(ctx)

	logging.Info("Terminating")
}

func waitForExit() {
	// Set up a channel to receive OS signals so we can gracefully exit
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	<-signalChan
	logging.Info("Exit signal received")
}

func startServer(port int) {
	logging.Info("Starting metrics server on port %d", port)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	if err := server.ListenAndServe(); err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Metrics server: %v", err)
		}
	}
}
