package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateID generates a random ID with prefix
func GenerateID(prefix string) string {
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(b))
}

// GenerateRoomID generates a unique room ID
func GenerateRoomID() string {
	return GenerateID("room")
}

// GenerateSlug generates a publish slug. Slugs are allocated once per room
// and reused for every republish, so they must be globally unique.
func GenerateSlug() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// GenerateRequestID generates a unique request ID
func GenerateRequestID() string {
	timestamp := time.Now().UnixNano()
	b := make([]byte, 4)
	rand.Read(b)
	return fmt.Sprintf("req_%d_%s", timestamp, hex.EncodeToString(b))
}
