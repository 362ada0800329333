package search

import "fmt"

// StoreError reports a failed store call. The search is aborted; there is
// no retry and no partial result.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("search store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
