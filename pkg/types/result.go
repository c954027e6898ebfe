package types

// Result is the outcome of one page-side operation.
type Result struct {
	// Success is true when the page confirmed the operation.
	Success bool

	// Intercepted is true when an SDK interceptor was installed or refreshed.
	Intercepted bool

	// Detail is an optional note for display (e.g. why interception was skipped).
	Detail string

	// Err is set when Success is false. It is a *failure.Error.
	Err error
}

// Failed builds an unsuccessful Result.
func Failed(err error) Result {
	return Result{Err: err}
}
