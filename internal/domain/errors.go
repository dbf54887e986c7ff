package domain

import "errors"

var (
	// ErrProductNotFound is returned when a referenced product does not exist
	// in the catalog
	ErrProductNotFound = errors.New("product not found")

	// ErrInvalidPeriod is returned when a (year, month) pair is out of range
	ErrInvalidPeriod = errors.New("invalid period")
)
