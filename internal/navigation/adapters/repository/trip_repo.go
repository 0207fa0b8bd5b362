package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mmcloughlin/geohash"

	"smartparking/internal/navigation/domain"
)

// TripRepository persists trips and their received fixes in Postgres.
type TripRepository struct {
	db *pgxpool.Pool
}

var _ domain.TripRepository = (*TripRepository)(nil)

func NewTripRepository(db *pgxpool.Pool) *TripRepository {
	return &TripRepository{db: db}
}

func (r *TripRepository) CreateTrip(ctx context.Context, trip domain.Trip) error {
	var originLat, originLng *float64
	if trip.Origin != nil {
		originLat = &trip.Origin.Latitude
		originLng = &trip.Origin.Longitude
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO trips (
			id, user_id, destination_lat, destination_lng,
			origin_lat, origin_lng, status, started_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, trip.ID, trip.UserID,
		trip.Destination.Latitude, trip.Destination.Longitude,
		originLat, originLng,
		trip.Status, trip.StartedAt)
	if err != nil {
		return fmt.Errorf("insert trip: %w", err)
	}
	return nil
}

// SaveFix appends one fix to the trip's position history. The geohash cell
// gives downstream analytics a cheap spatial index over the raw coordinates.
func (r *TripRepository) SaveFix(ctx context.Context, tripID, userID string, fix domain.Fix) error {
	if fix.ReceivedAt.IsZero() {
		fix.ReceivedAt = time.Now().UTC()
	}

	cell := geohash.EncodeWithPrecision(fix.Latitude, fix.Longitude, 8)

	_, err := r.db.Exec(ctx, `
		INSERT INTO trip_fixes (
			id, trip_id, user_id, latitude, longitude, geohash, received_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.NewString(), tripID, userID, fix.Latitude, fix.Longitude, cell, fix.ReceivedAt)
	if err != nil {
		return fmt.Errorf("insert trip fix: %w", err)
	}
	return nil
}

func (r *TripRepository) SetTripStatus(ctx context.Context, tripID, status string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE trips
		SET status = $2, updated_at = now()
		WHERE id = $1
	`, tripID, status)
	if err != nil {
		return fmt.Errorf("update trip status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update trip status: %w", domain.ErrNoActiveTrip)
	}
	return nil
}
