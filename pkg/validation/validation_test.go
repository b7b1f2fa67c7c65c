package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRoomName(t *testing.T) {
	assert.NoError(t, ValidateRoomName("movie night"))
	assert.NoError(t, ValidateRoomName(strings.Repeat("a", MaxRoomNameLength)))

	assert.Error(t, ValidateRoomName(""))
	assert.Error(t, ValidateRoomName("   "))
	assert.Error(t, ValidateRoomName(strings.Repeat("a", MaxRoomNameLength+1)))
}

func TestValidateRoomKey(t *testing.T) {
	assert.NoError(t, ValidateRoomKey("hunter2"))
	assert.NoError(t, ValidateRoomKey(strings.Repeat("k", MaxRoomKeyLength)))

	assert.Error(t, ValidateRoomKey(""))

	err := ValidateRoomKey(strings.Repeat("k", MaxRoomKeyLength+1))
	assert.Error(t, err)
	assert.NotContains(t, err.Error(), "k"+strings.Repeat("k", 3), "error must not echo the key")
}

func TestValidateRoomID(t *testing.T) {
	assert.NoError(t, ValidateRoomID("room-abcd1234"))
	assert.NoError(t, ValidateRoomID("room-00000000"))

	assert.Error(t, ValidateRoomID(""))
	assert.Error(t, ValidateRoomID("room-ABCD1234"))
	assert.Error(t, ValidateRoomID("room-abcd123"))
	assert.Error(t, ValidateRoomID("room-abcd12345"))
	assert.Error(t, ValidateRoomID("abcd1234"))
	assert.Error(t, ValidateRoomID("room-ghijklmn"))
}

func TestValidateChatMessage(t *testing.T) {
	assert.NoError(t, ValidateChatMessage("hello"))
	assert.NoError(t, ValidateChatMessage(strings.Repeat("m", MaxChatMessageLength)))

	assert.Error(t, ValidateChatMessage(""))
	assert.Error(t, ValidateChatMessage(strings.Repeat("m", MaxChatMessageLength+1)))
}
