package errs

import "errors"

var (
	ErrRecordNotFound = errors.New("record not found")

	// ErrOriginUnreachable covers timeouts and transport failures where the
	// origin produced no response.
	ErrOriginUnreachable = errors.New("origin unreachable")
)
