package model

import "errors"

var (
	ErrAssetNotFound   = errors.New("asset not found")
	ErrInvalidManifest = errors.New("invalid model manifest")
	ErrMotionNotFound  = errors.New("motion not found")
	ErrAssetTooLarge   = errors.New("asset too large")
)
