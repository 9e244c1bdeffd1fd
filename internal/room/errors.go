package room

import "errors"

// Error taxonomy for room operations. Coordinators translate these into
// ERROR frames; nothing here ever aborts the process.
var (
	ErrInvalidJoinCode = errors.New("room: invalid join code")
	ErrNameConflict    = errors.New("room: name already in use")
	ErrNotHost         = errors.New("room: caller is not host")
	ErrNotInRoom       = errors.New("room: not a member of this room")
	ErrRoomFull        = errors.New("room: full")
)
