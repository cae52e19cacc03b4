package l4perception

import "errors"

// Error kinds returned by the perception stages. Callers match them with
// errors.Is; the returned errors wrap these with the offending values.
var (
	// ErrInvalidParameter means a caller-supplied threshold or region violates
	// a precondition. Retrying with the same configuration cannot succeed.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInsufficientPoints means the input is too small for the operation.
	ErrInsufficientPoints = errors.New("insufficient points")

	// ErrEmptyCluster means a bounding box was requested for a cluster with
	// no points.
	ErrEmptyCluster = errors.New("empty cluster")

	// ErrNoPlaneFound means every RANSAC sample was degenerate.
	ErrNoPlaneFound = errors.New("no plane found")
)
