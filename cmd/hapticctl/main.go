package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/hapticlab/go-haptic-udp/internal/config"
	"github.com/hapticlab/go-haptic-udp/internal/haptic"
	"github.com/hapticlab/go-haptic-udp/internal/logging"
	"github.com/hapticlab/go-haptic-udp/internal/protocol"
)

func main() {
	logging.Init(nil, 0)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "ping":
		runPing(os.Args[2:])
	case "buzz":
		runBuzz(os.Args[2:])
	case "stop":
		runStop(os.Args[2:])
	case "broadcast-ping":
		runBroadcastPing(os.Args[2:])
	case "broadcast-buzz":
		runBroadcastBuzz(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Control Wi-Fi haptic node(s) over UDP.

Usage: hapticctl <command> [flags]

Commands:
  ping            Ping one node and print its reply
  buzz            Buzz one node [--ms N] [--intensity F] [--beep]
  stop            Stop one node
  broadcast-ping  Ping all nodes via broadcast and list replies [--wait S]
  broadcast-buzz  Buzz all nodes on the subnet [--ms N] [--intensity F] [--beep]

Common flags: --ip, --mask, --port, --token, --target`)
}

// netFlags are the global flags shared by every subcommand.
type netFlags struct {
	ip     *string
	mask   *string
	port   *int
	token  *string
	target *string
}

func addNetFlags(fs *flag.FlagSet) *netFlags {
	return &netFlags{
		ip:     fs.String("ip", config.DefaultIP, "node IP (or broadcast base for broadcast-* commands)"),
		mask:   fs.String("mask", config.DefaultMask, "subnet mask (for broadcast calc)"),
		port:   fs.Int("port", protocol.DefaultPort, "UDP port"),
		token:  fs.String("token", config.DefaultToken, "shared token"),
		target: fs.String("target", "", "optional device_id filter (e.g. RHIP)"),
	}
}

func (nf *netFlags) client() *haptic.Client {
	return haptic.NewClient(haptic.Options{
		IP:    *nf.ip,
		Mask:  *nf.mask,
		Port:  *nf.port,
		Token: *nf.token,
	})
}

// fatal reports a transport-level failure. Absent replies are never fatal;
// only sockets that cannot be opened or written are.
func fatal(err error) {
	logging.Error("%v", err)
	os.Exit(1)
}

func runPing(args []string) {
	fs := flag.NewFlagSet("ping", flag.ExitOnError)
	nf := addNetFlags(fs)
	fs.Parse(args)

	reply, err := nf.client().Ping(*nf.target)
	if errors.Is(err, haptic.ErrNoReply) {
		fmt.Println("No reply. Check IP/port/token and that the node is on your LAN.")
		return
	}
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Reply from %s: %s\n", reply.IP, reply)
}

func runBuzz(args []string) {
	fs := flag.NewFlagSet("buzz", flag.ExitOnError)
	nf := addNetFlags(fs)
	ms := fs.Int("ms", 2000, "buzz duration in milliseconds")
	intensity := fs.Float64("intensity", 0.8, "buzz intensity 0.0-1.0")
	beep := fs.Bool("beep", false, "also fire the alert pulse")
	fs.Parse(args)

	if err := nf.client().Buzz(*ms, *intensity, *beep, *nf.target); err != nil {
		fatal(err)
	}
	fmt.Printf("Sent buzz to %s:%d  ms=%d  intensity=%g  beep=%t\n", *nf.ip, *nf.port, *ms, *intensity, *beep)
}

func runStop(args []string) {
	fs := flag.NewFlagSet("stop", flag.ExitOnError)
	nf := addNetFlags(fs)
	fs.Parse(args)

	if err := nf.client().Stop(*nf.target); err != nil {
		fatal(err)
	}
	fmt.Printf("Sent stop to %s:%d\n", *nf.ip, *nf.port)
}

func runBroadcastPing(args []string) {
	fs := flag.NewFlagSet("broadcast-ping", flag.ExitOnError)
	nf := addNetFlags(fs)
	wait := fs.Float64("wait", 1.5, "seconds to collect replies")
	fs.Parse(args)

	bcast, err := haptic.BroadcastAddr(*nf.ip, *nf.mask)
	if err != nil {
		fatal(err)
	}

	found, err := nf.client().Discover(time.Duration(*wait * float64(time.Second)))
	if err != nil {
		fatal(err)
	}
	if len(found) == 0 {
		fmt.Printf("No replies to broadcast ping on %s:%d.\n", bcast, *nf.port)
		os.Exit(1)
	}

	fmt.Printf("Broadcast %s:%d replies:\n", bcast, *nf.port)
	addrs := make([]string, 0, len(found))
	for addr := range found {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	for _, addr := range addrs {
		fmt.Printf("  %s -> %s\n", addr, found[addr])
	}
}

func runBroadcastBuzz(args []string) {
	fs := flag.NewFlagSet("broadcast-buzz", flag.ExitOnError)
	nf := addNetFlags(fs)
	ms := fs.Int("ms", 1200, "buzz duration in milliseconds")
	intensity := fs.Float64("intensity", 0.7, "buzz intensity 0.0-1.0")
	beep := fs.Bool("beep", false, "also fire the alert pulse")
	fs.Parse(args)

	bcast, err := haptic.BroadcastAddr(*nf.ip, *nf.mask)
	if err != nil {
		fatal(err)
	}
	if err := nf.client().BroadcastBuzz(*ms, *intensity, *beep); err != nil {
		fatal(err)
	}
	fmt.Printf("Broadcast buzz to %s:%d  ms=%d  intensity=%g  beep=%t\n", bcast, *nf.port, *ms, *intensity, *beep)
}
