package cfhe

import (
	"errors"
)

var (
	// ErrInvalidInput is returned when the arguments of an operation do not fit together.
	ErrInvalidInput = errors.New("cfhe: invalid input")
	// ErrInvalidParameters is returned by key generation for incompatible LWE and Paillier parameters.
	ErrInvalidParameters = errors.New("cfhe: invalid parameters")
)
