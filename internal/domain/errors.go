package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrUnknownBackend  = errors.New("unknown store backend")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrInvalidPayload  = errors.New("invalid schema")
	ErrPayloadDecode   = errors.New("decode error")
)
