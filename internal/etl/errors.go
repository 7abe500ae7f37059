package etl

import "errors"

var (
	// ErrNoInputFiles is returned when the input directory has no CSV files.
	ErrNoInputFiles = errors.New("no input files")

	// ErrMissingTraderColumn is returned when topic columns exist without a trader column.
	ErrMissingTraderColumn = errors.New("missing trader column")
)
