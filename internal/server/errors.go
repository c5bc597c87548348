package server

import "errors"

var (
	ErrServerClosed      = errors.New("server is closed")
	ErrMaxClientsReached = errors.New("maximum clients reached")
	ErrInvalidConfig     = errors.New("invalid server configuration")
)
