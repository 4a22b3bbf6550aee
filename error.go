package rendercache

import (
	"fmt"
)

// Error wraps an error that surfaced on a pipeline's control loop.
type Error struct {
	Pipeline *Pipeline
	Err      error
}

func (e Error) Error() string {
	return fmt.Sprintf("received an error on the render pipeline: %v", e.Err)
}

func (e Error) Unwrap() error {
	return e.Err
}
