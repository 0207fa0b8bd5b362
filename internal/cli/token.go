package cli

import (
	"fmt"
	"time"

	"smartparking/internal/common/auth"
)

// GenerateUserToken mints a short-lived JWT for a driver account.
// It uses auth.Manager and returns the raw token plus the claims.
//
// Typical use (dev-only):
//
//	token, _, err := cli.GenerateUserToken(secret,
//	    "550e8400-e29b-41d4-a716-446655440001")
//
// Keep this package dev/internal only. Do not call it from production code paths.
func GenerateUserToken(secret string, userID string) (string, auth.Claims, error) {
	if userID == "" {
		return "", auth.Claims{}, fmt.Errorf("empty user id")
	}

	mgr := auth.NewManager(secret, 2*time.Hour)

	token, claims, err := mgr.IssueUserToken(userID)
	if err != nil {
		return "", auth.Claims{}, fmt.Errorf("issue token: %w", err)
	}

	return token, *claims, nil
}
