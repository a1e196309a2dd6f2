package domain

import "errors"

var (
	// ErrInvalidArgument is returned for arguments that cannot be encoded or
	// parsed, such as naive timestamps or malformed event date/time fields.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidDocument is returned when a response body is not a PI_JSON
	// time series document.
	ErrInvalidDocument = errors.New("invalid time series document")

	// ErrNotImplemented is returned for document formats other than PI_JSON.
	ErrNotImplemented = errors.New("not implemented")
)
