package executor

import "github.com/pkg/errors"

// Run-time failures. Parse-time failures live in the models package.
var (
	// ErrMissingArguments reports an action that requires arguments
	// but was given none.
	ErrMissingArguments = errors.New("action requires arguments")
	// ErrNoSuchElement reports that element resolution produced
	// nothing to act on.
	ErrNoSuchElement = errors.New("no such element")
	// ErrElementWaitTimeout reports that a wait condition was not met
	// within its duration.
	ErrElementWaitTimeout = errors.New("element wait timed out")
)
