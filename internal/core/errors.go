package core

import (
	"errors"

	"Hydrosync/internal/device"
	"Hydrosync/internal/parser"
)

// Sentinel errors surfaced by the station. Every error returned by this
// package wraps one of them.
var (
	ErrPortUnavailable   = device.ErrPortUnavailable
	ErrConnectionFailure = device.ErrConnectionFailure
	ErrMalformedRecord   = parser.ErrMalformedRecord
	ErrEncodingFailure   = parser.ErrEncodingFailure
	ErrWriteFailure      = errors.New("command write failed")
)
