package errors

import "errors"

// Sentinel errors surfaced by the sync engine. Connectivity loss is a
// local-recoverable condition; callers defer to the queue instead of
// treating it as a hard failure.
var (
	ErrNoConnectivity = New(ErrCodeNoConnectivity, "no network connectivity")
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// IsNoConnectivity reports whether err represents a connectivity failure.
func IsNoConnectivity(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == ErrCodeNoConnectivity
	}
	return false
}
