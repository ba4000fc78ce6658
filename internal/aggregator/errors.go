package aggregator

import "errors"

var (
	// ErrNotFound is returned when the addressed message does not exist.
	ErrNotFound = errors.New("message not found")

	// ErrRepositoryUnavailable is returned when the message store cannot be queried.
	ErrRepositoryUnavailable = errors.New("message repository unavailable")
)

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
