package common

import (
	"time"

	"github.com/google/uuid"
)

// NewID returns a fresh random identifier
func NewID() string {
	return uuid.NewString()
}

// Constants for system limits
const (
	MaxIdentifierLength = 256
	MaxNicknameLength   = 128
	DefaultTimeout      = 30 * time.Second
)
