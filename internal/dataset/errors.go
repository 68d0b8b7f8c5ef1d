package dataset

import (
	"errors"
	"fmt"
)

// ErrEmptyDataset is wrapped by FormatError when the input has no header or no rows.
var ErrEmptyDataset = errors.New("dataset is empty")

// FormatError reports input that cannot be turned into a Table.
type FormatError struct {
	Path string
	Err  error
}

func (e *FormatError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("error loading data from %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("error loading data: %v", e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }
