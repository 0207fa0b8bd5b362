package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	navigationservice "smartparking/cmd/navigation_service"
	"smartparking/cmd/simdriver"
	"smartparking/internal/cli"
)

func main() {
	// quick path for global help
	if len(os.Args) == 2 && (os.Args[1] == "--help" || os.Args[1] == "-h") {
		cli.PrintUsage(os.Stdout)
		os.Exit(0)
	}

	// parse mode and collect the remaining args for that mode
	mode, svcArgs, err := cli.ParseMode(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cli.PrintUsage(os.Stderr)
		os.Exit(2)
	}

	// context cancelled on SIGINT/SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// run the service specified by the mode flag
	switch mode {

	case cli.ModeNavigation:
		fs := flag.NewFlagSet(cli.ModeNavigation, flag.ContinueOnError)
		maxConc := fs.Int("max-concurrent", 200, "Maximum number of concurrent HTTP requests to process")
		cli.AttachUsage(fs, cli.ModeNavigation)

		if err := fs.Parse(svcArgs); err != nil {
			if err == flag.ErrHelp {
				os.Exit(0)
			}
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(2)
		}
		if *maxConc < 1 {
			fmt.Fprintln(os.Stderr, "Error: --max-concurrent must be >= 1")
			fs.Usage()
			os.Exit(2)
		}
		if err := navigationservice.Run(ctx, *maxConc); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}

	case cli.ModeSimDriver:
		fs := flag.NewFlagSet(cli.ModeSimDriver, flag.ContinueOnError)
		serverURL := fs.String("server", "ws://localhost:3000", "Navigation service WebSocket base URL")
		osrmURL := fs.String("osrm", "https://router.project-osrm.org", "OSRM base URL")
		token := fs.String("token", "", "Driver JWT (mint one with cmd/key)")
		userID := fs.String("user-id", "", "Driver UUID matching the token subject")
		source := fs.String("source", "", "Start coordinate as lat,lng")
		target := fs.String("target", "", "Destination coordinate as lat,lng")
		interval := fs.Int("interval-ms", 1000, "Delay between position fixes in milliseconds")
		cli.AttachUsage(fs, cli.ModeSimDriver)

		if err := fs.Parse(svcArgs); err != nil {
			if err == flag.ErrHelp {
				os.Exit(0)
			}
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(2)
		}
		if *token == "" || *userID == "" || *source == "" || *target == "" {
			fmt.Fprintln(os.Stderr, "Error: --token, --user-id, --source, and --target are required")
			fs.Usage()
			os.Exit(2)
		}
		src, err := simdriver.ParseCoord(*source)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(2)
		}
		dst, err := simdriver.ParseCoord(*target)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(2)
		}
		opts := simdriver.Options{
			ServerURL:  *serverURL,
			OSRMURL:    *osrmURL,
			Token:      *token,
			UserID:     *userID,
			Source:     src,
			Target:     dst,
			IntervalMS: *interval,
		}
		if err := simdriver.Run(ctx, opts); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}

	default:
		// should not happen because ParseMode validates known modes
		fmt.Fprintln(os.Stderr, "Error: unknown mode")
		os.Exit(2)
	}

	// tiny delay to let deferred logs flush on very fast exits
	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Millisecond):
	}
}
