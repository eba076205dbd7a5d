package model

import "github.com/google/uuid"

// NewID creates a new UUID string for a bookmark or tag identity.
func NewID() string {
	return uuid.New().String()
}
