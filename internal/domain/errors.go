package domain

import "errors"

// Ingestion failure classes. Every one of them ends in the demo fallback; the
// wrapped message is kept for display only.
var (
	ErrFetch             = errors.New("dataset fetch failed")
	ErrParse             = errors.New("dataset parse failed")
	ErrColumnsUnresolved = errors.New("latitude/longitude columns not found")
	ErrEmptyResult       = errors.New("no usable records after normalization")
	ErrStatistics        = errors.New("statistics computation failed")
	ErrUnknownCity       = errors.New("unknown city")
)
