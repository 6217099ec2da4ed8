package services

import "errors"

// Dataset service errors
var (
	ErrViewNotFound   = errors.New("view not found")
	ErrRegionNotFound = errors.New("region not found")
)
