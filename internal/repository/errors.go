package repository

import "errors"

// ErrStaleRevision is returned when an update carries a revision that no
// longer matches the stored row, meaning a concurrent writer got there
// first.
var ErrStaleRevision = errors.New("stale ticket revision")
