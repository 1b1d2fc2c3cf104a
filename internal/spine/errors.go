package spine

import "errors"

var (
	ErrInvalidSkeleton = errors.New("invalid skeleton")
	ErrInvalidAtlas    = errors.New("invalid atlas")
	ErrRegionNotFound  = errors.New("atlas region not found")
)
