package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

const (
	ModeNavigation = "navigation-service"
	ModeSimDriver  = "simdriver"
)

// isKnownMode checks if the provided mode name is known.
func isKnownMode(s string) (string, bool) {
	switch s {
	case ModeNavigation, "navigation", "nav", "n":
		return ModeNavigation, true
	case ModeSimDriver, "sim", "s":
		return ModeSimDriver, true
	default:
		return "", false
	}
}

// ParseMode supports:
//
//	--mode=<value>
//	<value> (subcommand shorthand), e.g., `navigation-service --max-concurrent=200`
func ParseMode(args []string) (string, []string, error) {
	var mode string
	var out []string

	for i := range args {
		arg := args[i]
		if after, ok := strings.CutPrefix(arg, "--mode="); ok {
			mode = after
			continue
		}

		if mode == "" {
			if m, ok := isKnownMode(arg); ok {
				mode = m
				continue
			}
		}
		out = append(out, arg)
	}

	if mode == "" {
		return "", out, errors.New("no mode specified: use --mode=<service>")
	}

	if m, ok := isKnownMode(mode); ok {
		mode = m
	}

	return mode, out, nil
}

// PrintUsage prints the usage information with examples.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, "\033[36m") // cyan

	fmt.Fprintln(w, `Usage:
  ./smartparking --mode=<service> [flags]

Services (modes):
  navigation-service     Turn-by-turn navigation API and driver WebSocket
  simdriver              Dev tool: replay an OSRM route as live position fixes

Examples:
  ./smartparking --mode=navigation-service --max-concurrent=200
  ./smartparking --mode=simdriver --user-id=<uuid> --token='<jwt>' \
      --source=43.2220,76.8512 --target=43.2380,76.8890`)

	fmt.Fprint(w, "\033[0m") // reset
}

// AttachUsage wires a concise per-mode usage to a FlagSet.
func AttachUsage(fs *flag.FlagSet, mode string) {
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: ./smartparking --mode=%s [flags]\n", mode)
		fs.PrintDefaults()
	}
}
