package domain

import "errors"

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrInvalidKey    = errors.New("invalid room key")
	ErrRoomFull      = errors.New("room full")
	ErrMaxRooms      = errors.New("maximum rooms reached")
	ErrAlreadyInRoom = errors.New("already in a room")
	ErrNotInRoom     = errors.New("not in a room")
)
