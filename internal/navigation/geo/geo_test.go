package geo

import (
	"math"
	"testing"

	"smartparking/internal/navigation/domain"
)

func TestDistanceMeters(t *testing.T) {
	tests := []struct {
		name string
		a    domain.Coordinate
		b    domain.Coordinate
		want float64
	}{
		{
			name: "same point",
			a:    domain.Coordinate{Latitude: 10, Longitude: 10},
			b:    domain.Coordinate{Latitude: 10, Longitude: 10},
			want: 0,
		},
		{
			name: "one millidegree east",
			a:    domain.Coordinate{Latitude: 0, Longitude: 0},
			b:    domain.Coordinate{Latitude: 0, Longitude: 0.001},
			want: 111,
		},
		{
			name: "one millidegree north",
			a:    domain.Coordinate{Latitude: 0, Longitude: 0},
			b:    domain.Coordinate{Latitude: 0.001, Longitude: 0},
			want: 111,
		},
		{
			name: "diagonal",
			a:    domain.Coordinate{Latitude: 0, Longitude: 0},
			b:    domain.Coordinate{Latitude: 0.0003, Longitude: 0.0004},
			want: 55.5, // 3-4-5 triangle scaled to degrees
		},
		{
			name: "symmetric",
			a:    domain.Coordinate{Latitude: 52.52, Longitude: 13.405},
			b:    domain.Coordinate{Latitude: 52.5205, Longitude: 13.4056},
			want: math.Sqrt(0.0005*0.0005+0.0006*0.0006) * 111000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceMeters(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("DistanceMeters() = %v, want %v", got, tt.want)
			}

			back := DistanceMeters(tt.b, tt.a)
			if math.Abs(got-back) > 1e-9 {
				t.Errorf("distance is not symmetric: %v vs %v", got, back)
			}
		})
	}
}
