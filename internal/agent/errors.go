package agent

import "errors"

// Common sentinel errors for engine operations
var (
	// ErrMaxSteps indicates the step loop exceeded its step limit
	ErrMaxSteps = errors.New("max steps exceeded")

	// ErrNoProvider indicates no model provider is configured
	ErrNoProvider = errors.New("no provider configured")

	// ErrToolNotFound indicates a requested tool doesn't exist
	ErrToolNotFound = errors.New("tool not found")

	// ErrToolTimeout indicates a tool execution timed out
	ErrToolTimeout = errors.New("tool execution timed out")

	// ErrToolPanic indicates a tool panicked during execution
	ErrToolPanic = errors.New("tool panicked")

	// ErrInvalidInput indicates tool arguments failed schema validation
	ErrInvalidInput = errors.New("invalid tool input")

	// ErrUnknownResolution indicates a resolution referenced a tool call
	// that is not pending
	ErrUnknownResolution = errors.New("no pending interrupt for tool call")

	// ErrPendingInterrupts indicates new input arrived while interrupts
	// are still unresolved
	ErrPendingInterrupts = errors.New("pending interrupts must be resolved before new input")
)
