package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrItemNotFound       = fmt.Errorf("catalog item not found")
	ErrSubmissionFailed   = fmt.Errorf("submission failed")

	// Persistence errors
	ErrRecordNotFound = fmt.Errorf("record not found or already deleted")

	// Wizard errors
	ErrValidation         = fmt.Errorf("validation failed")
	ErrTerminalStep       = fmt.Errorf("already on the last step")
	ErrNotTerminal        = fmt.Errorf("submit is only allowed from the last step")
	ErrStepLocked         = fmt.Errorf("step is locked until earlier steps are valid")
	ErrStepOutOfRange     = fmt.Errorf("step out of range")
	ErrSubmissionInFlight = fmt.Errorf("a submission is already in progress")
	ErrUnknownFlow        = fmt.Errorf("unknown form")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
