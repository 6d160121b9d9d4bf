package utils

import (
	"github.com/google/uuid"
)

// NewID returns a random identifier for ephemeral objects: connection ids
// on the server and temporary message ids on the client.
func NewID() string {
	return uuid.NewString()
}
