package domain

import "errors"

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomExists        = errors.New("room already exists")
	ErrSnapshotNotFound  = errors.New("publish snapshot not found")
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
	ErrInvalidPermission = errors.New("invalid permission level")
	ErrConflict          = errors.New("concurrent update conflict")
	ErrStaleSnapshot     = errors.New("snapshot version is not newer than stored")
	ErrUnauthorized      = errors.New("insufficient permission")
)
