package dataset

import "fmt"

// DatasetReadError reports a dataset that could not be opened or parsed
type DatasetReadError struct {
	Source string
	Err    error
}

func (e *DatasetReadError) Error() string {
	return fmt.Sprintf("failed to read dataset %s: %v", e.Source, e.Err)
}

func (e *DatasetReadError) Unwrap() error {
	return e.Err
}
