package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrRateLimited     = errors.New("rate limited")
	ErrMalformedRecord = errors.New("malformed record")
	ErrWSDisconnect    = errors.New("websocket disconnected")
)
