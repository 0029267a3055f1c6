package feather2d

import (
	"errors"

	"github.com/akmonengine/feather2d/constraint"
)

var (
	// ErrStaleHandle is returned when an id refers to a destroyed or unknown object
	ErrStaleHandle = errors.New("stale handle")
	// ErrInvalidConfig is returned when a configuration fails validation
	ErrInvalidConfig = errors.New("invalid config")

	ErrInvalidBody     = constraint.ErrInvalidBody
	ErrSameBody        = constraint.ErrSameBody
	ErrDegenerateJoint = constraint.ErrDegenerateJoint
)
