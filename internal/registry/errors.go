package registry

import "errors"

// ErrNotFound indicates the requested entity does not exist.
// Use errors.Is() to check for it in calling code.
var ErrNotFound = errors.New("entity not found")
