package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an operation references an id that is not in
// its collection. It signals a stale caller, not bad user input.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// IsNotFound reports whether err wraps an ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}

// ErrPersist wraps a failure to write committed state to durable storage. When
// a store returns it the transaction has already been applied in memory.
var ErrPersist = errors.New("persist committed state")
