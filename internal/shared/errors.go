package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Job control errors
	ErrInvalidInput  = fmt.Errorf("invalid input")
	ErrJobNotFound   = fmt.Errorf("job not found")
	ErrCancelled     = fmt.Errorf("download cancelled")
	ErrEngineFailure = fmt.Errorf("download engine failure")

	// Persistence errors
	ErrPersistence    = fmt.Errorf("history persistence failed")
	ErrRecordNotFound = fmt.Errorf("history record not found")

	// Service errors
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrMissingDependency  = fmt.Errorf("missing dependency")

	// CLI input errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
