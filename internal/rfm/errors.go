package rfm

import (
	"errors"
	"fmt"
)

// ErrInsufficientData is the sentinel matched by every InsufficientDataError.
var ErrInsufficientData = errors.New("rfm: insufficient data")

// InsufficientDataError reports input that cannot be scored: an empty table,
// a blank identifier or a non-finite numeric value.
type InsufficientDataError struct {
	Column string
	Row    int // -1 when the error is not tied to a row
	Reason string
}

func (e *InsufficientDataError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("rfm: insufficient data in %s (row %d): %s", e.Column, e.Row, e.Reason)
	}
	return fmt.Sprintf("rfm: insufficient data in %s: %s", e.Column, e.Reason)
}

func (e *InsufficientDataError) Unwrap() error {
	return ErrInsufficientData
}

// DegradedBinning records a column whose quantile boundaries collapsed so
// that fewer bins than requested were produced. It is not an error.
type DegradedBinning struct {
	Column    string `json:"column"`
	Requested int    `json:"requested"`
	Effective int    `json:"effective"`
}

func (d DegradedBinning) String() string {
	return fmt.Sprintf("%s: %d of %d bins", d.Column, d.Effective, d.Requested)
}
