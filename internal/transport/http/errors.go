package http

import "errors"

var (
	errInvalidPayload = errors.New("invalid payload")
	errUnknownOption  = errors.New("option does not belong to the current question")
	errUnsupported    = errors.New("unsupported message type")
)
