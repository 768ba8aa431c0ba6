package sessions

import "errors"

// ErrNotFound is returned when a session id is not present in the store.
var ErrNotFound = errors.New("session: not found")
