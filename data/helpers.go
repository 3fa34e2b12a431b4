package data

import (
	"github.com/google/uuid"
)

// NewProviderID generates a stable, sortable instance id for a
// provider. Every provider gets one at construction time.
func NewProviderID() string {
	return uuid.Must(uuid.NewV7()).String()
}
