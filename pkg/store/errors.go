package store

import "errors"

var (
	// ErrAlreadyExists is returned when creating an object that is already present
	ErrAlreadyExists = errors.New("already exists")

	// ErrNotFound is returned when an object does not exist
	ErrNotFound = errors.New("not found")
)

// IsAlreadyExists reports whether err is a duplicate-creation failure
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsNotFound reports whether err is a missing-object failure
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
