package engine

import "errors"

var (
	ErrInvalidEvent = errors.New("invalid event")
	ErrHalted       = errors.New("symbol stream halted")
)
