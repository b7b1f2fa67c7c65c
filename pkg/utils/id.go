package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// GenerateRoomID generates a room identifier: "room-" followed by 8 lowercase
// hex characters (4 random bytes). Room ids are shown to users for sharing.
func GenerateRoomID() string {
	b := make([]byte, 4)
	rand.Read(b)
	return "room-" + hex.EncodeToString(b)
}

// FormatClientID labels a connection with its process-local sequence number.
func FormatClientID(n uint64) string {
	return fmt.Sprintf("client-%d", n)
}

// GenerateRequestID generates a unique request ID
func GenerateRequestID() string {
	timestamp := time.Now().UnixNano()
	b := make([]byte, 4)
	rand.Read(b)
	return fmt.Sprintf("req_%d_%s", timestamp, hex.EncodeToString(b))
}
