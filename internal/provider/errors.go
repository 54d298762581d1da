package provider

import "errors"

var (
	// ErrQuotaExhausted marks a response meaning the current credential is
	// out of quota for the billing period.
	ErrQuotaExhausted = errors.New("provider quota exhausted")

	// ErrInvalidCredential marks a rejected or revoked API key.
	ErrInvalidCredential = errors.New("invalid provider credential")

	// ErrTransient marks a retryable failure (timeouts, 5xx, connection
	// resets). Sources wrap such failures with this sentinel.
	ErrTransient = errors.New("transient provider failure")
)

// isCredentialFailure reports whether the error should rotate the key pool.
func isCredentialFailure(err error) bool {
	return errors.Is(err, ErrQuotaExhausted) || errors.Is(err, ErrInvalidCredential)
}

// isRetryable reports whether the call may succeed on a retry with the same
// credential.
func isRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}
