package errors

import (
	"fmt"
)

// ErrorCode is the stable machine-readable code carried on the wire in
// room-error frames. Clients key their UI behavior off this, not the message.
type ErrorCode string

const (
	ErrCodeRoomNotFound  ErrorCode = "ROOM_NOT_FOUND"
	ErrCodeInvalidKey    ErrorCode = "INVALID_KEY"
	ErrCodeRoomFull      ErrorCode = "ROOM_FULL"
	ErrCodeMaxRooms      ErrorCode = "MAX_ROOMS"
	ErrCodeAlreadyInRoom ErrorCode = "ALREADY_IN_ROOM"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
)

// AppError represents an application error with code and context
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with application error
func WrapError(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Admission error constructors. The messages are the human-readable strings
// shown by the client UI; they never contain the submitted key.

func NewRoomNotFoundError() *AppError {
	return NewAppError(ErrCodeRoomNotFound, "Room not found.")
}

func NewInvalidKeyError() *AppError {
	return NewAppError(ErrCodeInvalidKey, "Incorrect room key.")
}

func NewRoomFullError() *AppError {
	return NewAppError(ErrCodeRoomFull, "Room is full.")
}

func NewMaxRoomsError(limit int) *AppError {
	return NewAppError(ErrCodeMaxRooms, fmt.Sprintf("Maximum number of rooms reached (%d).", limit))
}

func NewAlreadyInRoomError() *AppError {
	return NewAppError(ErrCodeAlreadyInRoom, "Already in a room.")
}

func NewInternalError(message string) *AppError {
	return NewAppError(ErrCodeInternal, message)
}

// IsAppError checks if error is an AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetAppError extracts AppError from error chain
func GetAppError(err error) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := err.(*AppError); ok {
		return appErr
	}

	type unwrapper interface {
		Unwrap() error
	}

	if u, ok := err.(unwrapper); ok {
		return GetAppError(u.Unwrap())
	}

	return nil
}
