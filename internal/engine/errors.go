package engine

import "fmt"

// StepError is raised when a step fails during execution. It carries the
// step name, a message, and the originating cause.
type StepError struct {
	Step    string
	Message string
	Cause   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q failed: %s", e.Step, e.Message)
}

func (e *StepError) Unwrap() error { return e.Cause }

// ExecutionError is raised by Run when any step fails. Callers should
// inspect the Inspector to learn which step failed and why; the message
// alone is not guaranteed to be parseable.
type ExecutionError struct {
	Cause error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("pipeline execution failed: %v", e.Cause)
}

func (e *ExecutionError) Unwrap() error { return e.Cause }

// RetryExhaustedError is raised by the retry driver when the policy declines
// further attempts. Attempts is the total number of executions performed,
// including the original one.
type RetryExhaustedError struct {
	Step     string
	Attempts int
	Cause    error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("step %q failed after %d attempts", e.Step, e.Attempts)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Cause }

// StepNotFoundError is raised by RetryStep for a name absent from the
// pipeline's declared step list.
type StepNotFoundError struct {
	Step string
}

func (e *StepNotFoundError) Error() string {
	return fmt.Sprintf("step %q not found in pipeline", e.Step)
}
