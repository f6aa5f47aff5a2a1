package mqtt

import "errors"

// ErrMalformedMessage is returned when a command payload or topic cannot be
// decoded.
var ErrMalformedMessage = errors.New("malformed message")
