package converter

import "errors"

// Conversion failures. All are terminal for the call that hit them: they
// mark empty or malformed input, never a transient condition, so nothing
// is retried and no partial document is returned.
var (
	ErrEmptyScene           = errors.New("empty scene")
	ErrNoAnimationFound     = errors.New("no animation found")
	ErrDisconnectedSkeleton = errors.New("disconnected skeleton")
	ErrEmptySkeleton        = errors.New("empty skeleton")
	ErrInvalidTransform     = errors.New("invalid transform")
)
