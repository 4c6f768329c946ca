package resilient

import "fmt"

// PanicError carries a value recovered from a panicking Querier.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("query panicked: %v", e.Value)
}
