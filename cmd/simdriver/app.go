package simdriver

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"smartparking/internal/navigation/adapters/routing"
	"smartparking/internal/navigation/domain"
)

// ParseCoord parses a "lat,lng" pair, e.g. "43.2220,76.8512".
func ParseCoord(s string) (domain.Coordinate, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return domain.Coordinate{}, fmt.Errorf("expected lat,lng, got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("bad latitude %q: %w", parts[0], err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("bad longitude %q: %w", parts[1], err)
	}
	return domain.Coordinate{Latitude: lat, Longitude: lng}, nil
}

// Options configures a single simulated driver run.
type Options struct {
	ServerURL  string // ws://host:port
	OSRMURL    string
	Token      string
	UserID     string
	Source     domain.Coordinate
	Target     domain.Coordinate
	IntervalMS int
}

type outMessage struct {
	Type      string  `json:"type"`
	Token     string  `json:"token,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

// Run fetches a driving route from OSRM and replays its step locations over
// the navigation WebSocket, one position fix per interval. It is a dev tool
// for exercising the service without a real vehicle.
func Run(ctx context.Context, opts Options) error {
	provider := routing.NewOSRMProvider(opts.OSRMURL, 10*time.Second)
	route, err := provider.FetchRoute(ctx, opts.Source, opts.Target)
	if err != nil {
		return fmt.Errorf("route fetch failed: %w", err)
	}
	fmt.Printf("[%s] route: %.0fm, %d steps\n", opts.UserID, route.DistanceMeters, len(route.Steps))

	wsURL := fmt.Sprintf("%s/ws/drivers/%s", opts.ServerURL, opts.UserID)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("websocket dial failed: %w", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(outMessage{Type: "auth", Token: opts.Token}); err != nil {
		return fmt.Errorf("auth send failed: %w", err)
	}

	// drain server replies so the connection does not stall
	go func() {
		for {
			var reply map[string]any
			if err := conn.ReadJSON(&reply); err != nil {
				return
			}
			fmt.Printf("[%s] server: %v\n", opts.UserID, reply)
		}
	}()

	interval := time.Duration(opts.IntervalMS) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i, step := range route.Steps {
		pt := step.Location
		fmt.Printf("[%s] point %d/%d: %.6f, %.6f\n", opts.UserID, i+1, len(route.Steps), pt.Latitude, pt.Longitude)

		msg := outMessage{Type: "position", Latitude: pt.Latitude, Longitude: pt.Longitude}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("position send failed: %w", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	fmt.Printf("[%s] route completed\n", opts.UserID)
	return nil
}
