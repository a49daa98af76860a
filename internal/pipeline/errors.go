package pipeline

import "fmt"

// IllegalOperationError is raised for any op that classifies as
// OpUnsupported, i.e. none of the four operations the pipeline executes.
type IllegalOperationError struct {
	Op     string
	Target string
}

func (e *IllegalOperationError) Error() string {
	return fmt.Sprintf("Unsupported operation %s for %s", e.Op, e.Target)
}
