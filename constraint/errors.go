package constraint

import "errors"

var (
	// ErrInvalidBody is returned when a joint references a missing body
	ErrInvalidBody = errors.New("invalid body")
	// ErrSameBody is returned when a joint connects a body to itself
	ErrSameBody = errors.New("joint bodies must be distinct")
	// ErrDegenerateJoint is returned when the joint geometry cannot produce a positive effective mass
	ErrDegenerateJoint = errors.New("degenerate joint")
)
