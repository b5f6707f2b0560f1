package config

import "errors"

var (
	// ErrNilConfig is returned when Load receives a nil pointer.
	ErrNilConfig = errors.New("config: nil config pointer")

	// ErrParse is returned when environment variables cannot be parsed into the target type.
	ErrParse = errors.New("config: failed to parse")
)
