package routing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"smartparking/internal/navigation/domain"
)

const okBody = `{
  "code": "Ok",
  "routes": [{
    "distance": 4321.5,
    "duration": 612.3,
    "geometry": {"coordinates": [[76.8500, 43.2200], [76.8512, 43.2220], [76.8890, 43.2380]]},
    "legs": [{
      "steps": [
        {"distance": 1200, "duration": 180, "name": "Abay Ave",
         "maneuver": {"type": "depart", "location": [76.8500, 43.2200]}},
        {"distance": 2100, "duration": 300, "name": "Dostyk Ave",
         "maneuver": {"type": "turn", "modifier": "right", "location": [76.8512, 43.2220]}},
        {"distance": 0, "duration": 0, "name": "",
         "maneuver": {"type": "arrive", "location": [76.8890, 43.2380]}}
      ]
    }]
  }]
}`

func TestFetchRouteParsesResponse(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte(okBody))
	}))
	defer srv.Close()

	p := NewOSRMProvider(srv.URL, 2*time.Second)
	origin := domain.Coordinate{Latitude: 43.2200, Longitude: 76.8500}
	dest := domain.Coordinate{Latitude: 43.2380, Longitude: 76.8890}

	route, err := p.FetchRoute(context.Background(), origin, dest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// OSRM takes lon,lat pairs
	if !strings.Contains(gotPath, "76.850000,43.220000;76.889000,43.238000") {
		t.Fatalf("request path = %q", gotPath)
	}
	if !strings.Contains(gotQuery, "steps=true") || !strings.Contains(gotQuery, "geometries=geojson") {
		t.Fatalf("request query = %q", gotQuery)
	}

	if route.DistanceMeters != 4321.5 {
		t.Fatalf("distance = %v, want 4321.5", route.DistanceMeters)
	}
	if len(route.Steps) != 3 {
		t.Fatalf("steps = %d, want 3", len(route.Steps))
	}
	if route.Steps[0].Maneuver != domain.ManeuverDepart {
		t.Fatalf("first maneuver = %q, want depart", route.Steps[0].Maneuver)
	}
	if route.Steps[1].Modifier != "right" || route.Steps[1].RoadName != "Dostyk Ave" {
		t.Fatalf("second step = %+v", route.Steps[1])
	}
	// [lon, lat] flips into (lat, lon)
	if route.Steps[2].Location != (domain.Coordinate{Latitude: 43.2380, Longitude: 76.8890}) {
		t.Fatalf("arrive location = %+v", route.Steps[2].Location)
	}
	if len(route.Geometry) != 3 {
		t.Fatalf("geometry points = %d, want 3", len(route.Geometry))
	}
}

func TestFetchRouteNoRoutes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": "Ok", "routes": []}`))
	}))
	defer srv.Close()

	p := NewOSRMProvider(srv.URL, 2*time.Second)
	_, err := p.FetchRoute(context.Background(), domain.Coordinate{}, domain.Coordinate{})
	if !errors.Is(err, domain.ErrRouteUnavailable) {
		t.Fatalf("err = %v, want ErrRouteUnavailable", err)
	}
}

func TestFetchRouteErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": "NoRoute", "routes": []}`))
	}))
	defer srv.Close()

	p := NewOSRMProvider(srv.URL, 2*time.Second)
	_, err := p.FetchRoute(context.Background(), domain.Coordinate{}, domain.Coordinate{})
	if !errors.Is(err, domain.ErrRouteUnavailable) {
		t.Fatalf("err = %v, want ErrRouteUnavailable", err)
	}
}

func TestFetchRouteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewOSRMProvider(srv.URL, 2*time.Second)
	_, err := p.FetchRoute(context.Background(), domain.Coordinate{}, domain.Coordinate{})
	if !errors.Is(err, domain.ErrRouteUnavailable) {
		t.Fatalf("err = %v, want ErrRouteUnavailable", err)
	}
}

func TestFetchRouteMalformed(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", `<html>gateway</html>`},
		{"no steps", `{"code":"Ok","routes":[{"distance":1,"duration":1,"geometry":{"coordinates":[[76.85,43.22]]},"legs":[{"steps":[]}]}]}`},
		{"short coordinate", `{"code":"Ok","routes":[{"distance":1,"duration":1,"geometry":{"coordinates":[[76.85]]},"legs":[{"steps":[]}]}]}`},
		{"step without location", `{"code":"Ok","routes":[{"distance":1,"duration":1,"geometry":{"coordinates":[[76.85,43.22]]},"legs":[{"steps":[{"distance":1,"duration":1,"name":"x","maneuver":{"type":"depart","location":[]}}]}]}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			p := NewOSRMProvider(srv.URL, 2*time.Second)
			_, err := p.FetchRoute(context.Background(), domain.Coordinate{}, domain.Coordinate{})
			if !errors.Is(err, domain.ErrMalformedRoute) {
				t.Fatalf("err = %v, want ErrMalformedRoute", err)
			}
		})
	}
}
