package anim

import "github.com/pkg/errors"

var (
	// ErrNotFound is returned by lookups of clips and joints. Callers may ignore it.
	ErrNotFound = errors.New("not found")

	// ErrCorrupt reports asset data that breaks a structural invariant.
	ErrCorrupt = errors.New("corrupt animation data")

	// ErrSkeletonMismatch is returned when clips bound to different skeletons are mixed.
	ErrSkeletonMismatch = errors.New("clip belongs to another skeleton")
)

// IsNotFound reports whether err is a recoverable lookup failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
