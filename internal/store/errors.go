package store

import (
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a write violates a unique constraint,
// e.g. two registrations racing on the same email. Relying on the
// constraint instead of only a pre-insert read closes the
// check-then-act window.
var ErrDuplicate = errors.New("duplicate record")

const pqUniqueViolation = "23505"

// translateErr maps driver-level failures onto the store sentinels.
func translateErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return ErrDuplicate
	}
	return err
}
