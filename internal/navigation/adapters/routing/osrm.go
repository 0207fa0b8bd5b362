package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"smartparking/internal/navigation/domain"
)

// OSRMProvider fetches driving routes from an OSRM-compatible server.
type OSRMProvider struct {
	baseURL string
	client  *http.Client
}

var _ domain.RouteProvider = (*OSRMProvider)(nil)

func NewOSRMProvider(baseURL string, timeout time.Duration) *OSRMProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OSRMProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// OSRM wire format (geojson geometry, steps enabled)
type osrmResponse struct {
	Code   string      `json:"code"`
	Routes []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Geometry struct {
		Coordinates [][]float64 `json:"coordinates"`
	} `json:"geometry"`
	Legs []struct {
		Steps []osrmStep `json:"steps"`
	} `json:"legs"`
}

type osrmStep struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Name     string  `json:"name"`
	Maneuver struct {
		Type     string    `json:"type"`
		Modifier string    `json:"modifier"`
		Location []float64 `json:"location"` // [lon, lat]
	} `json:"maneuver"`
}

// FetchRoute requests a route with full geometry and per-step maneuvers.
// Zero candidate routes map to ErrRouteUnavailable; a route missing steps or
// geometry maps to ErrMalformedRoute.
func (p *OSRMProvider) FetchRoute(ctx context.Context, origin, destination domain.Coordinate) (*domain.Route, error) {
	url := fmt.Sprintf("%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson&steps=true",
		p.baseURL,
		origin.Longitude, origin.Latitude,
		destination.Longitude, destination.Latitude,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build route request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRouteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: osrm returned %d", domain.ErrRouteUnavailable, resp.StatusCode)
	}

	var parsed osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedRoute, err)
	}

	if parsed.Code != "" && parsed.Code != "Ok" {
		return nil, fmt.Errorf("%w: osrm code %s", domain.ErrRouteUnavailable, parsed.Code)
	}
	if len(parsed.Routes) == 0 {
		return nil, domain.ErrRouteUnavailable
	}

	return toRoute(parsed.Routes[0])
}

func toRoute(r osrmRoute) (*domain.Route, error) {
	route := &domain.Route{
		DistanceMeters:  r.Distance,
		DurationSeconds: r.Duration,
	}

	for _, pair := range r.Geometry.Coordinates {
		if len(pair) < 2 {
			return nil, fmt.Errorf("%w: geometry coordinate with %d members", domain.ErrMalformedRoute, len(pair))
		}
		route.Geometry = append(route.Geometry, domain.Coordinate{Latitude: pair[1], Longitude: pair[0]})
	}

	for _, leg := range r.Legs {
		for _, st := range leg.Steps {
			if len(st.Maneuver.Location) < 2 {
				return nil, fmt.Errorf("%w: step maneuver without location", domain.ErrMalformedRoute)
			}
			route.Steps = append(route.Steps, domain.Step{
				DistanceMeters:  st.Distance,
				DurationSeconds: st.Duration,
				RoadName:        st.Name,
				Maneuver:        domain.ManeuverKind(st.Maneuver.Type),
				Modifier:        st.Maneuver.Modifier,
				Location: domain.Coordinate{
					Latitude:  st.Maneuver.Location[1],
					Longitude: st.Maneuver.Location[0],
				},
			})
		}
	}

	if len(route.Steps) == 0 {
		return nil, fmt.Errorf("%w: route has no steps", domain.ErrMalformedRoute)
	}

	return route, nil
}
