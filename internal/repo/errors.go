package repo

import "errors"

var (
	ErrNotFound           = errors.New("document not found")
	ErrMaxRetriesExceeded = errors.New("maximum retry attempts exceeded")
	ErrInvalidMessage     = errors.New("invalid message: message cannot be nil")
	ErrInvalidChannelID   = errors.New("invalid conversation ID: cannot be empty")
	ErrOperationTimeout   = errors.New("operation timeout exceeded")
)
