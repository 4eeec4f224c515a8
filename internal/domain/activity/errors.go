package activity

import "errors"

// ErrInvalidInput indicates a malformed journal entry.
var ErrInvalidInput = errors.New("invalid activity input")
