package config

import "errors"

var (
	errInvalidDuration = errors.New("session duration must be greater than zero")

	errInvalidInterval = errors.New(
		"the long break interval must be greater than zero",
	)
)
