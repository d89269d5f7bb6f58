package instance

import "fmt"

// InvalidTransitionError is returned by Transition when the requested move
// is not legal from the current stage.
type InvalidTransitionError struct {
	From, To Stage
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("instance: invalid transition from %s to %s", e.From, e.To)
}
