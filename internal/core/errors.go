package core

import "errors"

// ErrInvalid is wrapped by every input validation error.
var ErrInvalid = errors.New("invalid input")

// Rejections are recoverable refusals of an otherwise valid request. State is
// left untouched when one is returned.
var (
	ErrDuplicateRoomNumber = errors.New("room number already exists")
	ErrRoomOccupied        = errors.New("room has occupied beds")
	ErrNotJoinedYet        = errors.New("tenant has not joined yet for this month")
)

var rejections = []error{ErrDuplicateRoomNumber, ErrRoomOccupied, ErrNotJoinedYet}

// IsRejection reports whether err carries one of the rejection reasons.
func IsRejection(err error) bool {
	for _, r := range rejections {
		if errors.Is(err, r) {
			return true
		}
	}
	return false
}
