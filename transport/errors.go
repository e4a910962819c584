package transport

import "errors"

var (
	ErrConnClosed = errors.New("Connection closed")
	ErrNoSession  = errors.New("Handshake has not completed")
)
