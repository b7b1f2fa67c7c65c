package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxRoomNameLength    = 100
	MaxRoomKeyLength     = 128
	MaxChatMessageLength = 2000
)

// RoomIDRegex validates room ID format: "room-" plus 8 lowercase hex characters.
var RoomIDRegex = regexp.MustCompile(`^room-[0-9a-f]{8}$`)

// ValidateRoomName validates a user-supplied room display name.
func ValidateRoomName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("room name is required")
	}
	if utf8.RuneCountInString(name) > MaxRoomNameLength {
		return fmt.Errorf("room name is too long (max %d characters)", MaxRoomNameLength)
	}
	return nil
}

// ValidateRoomKey validates a submitted room key. The key itself is never
// included in the returned error.
func ValidateRoomKey(key string) error {
	if key == "" {
		return fmt.Errorf("room key is required")
	}
	if len(key) > MaxRoomKeyLength {
		return fmt.Errorf("room key is too long (max %d bytes)", MaxRoomKeyLength)
	}
	return nil
}

// ValidateRoomID validates room ID format.
func ValidateRoomID(id string) error {
	if id == "" {
		return fmt.Errorf("room id is required")
	}
	if !RoomIDRegex.MatchString(id) {
		return fmt.Errorf("invalid room id format")
	}
	return nil
}

// ValidateChatMessage validates a chat message body.
func ValidateChatMessage(message string) error {
	if message == "" {
		return fmt.Errorf("message is required")
	}
	if utf8.RuneCountInString(message) > MaxChatMessageLength {
		return fmt.Errorf("message is too long (max %d characters)", MaxChatMessageLength)
	}
	return nil
}
