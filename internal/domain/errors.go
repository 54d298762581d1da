package domain

import "errors"

var (
	// ErrInvalidInput rejects a request before any external call is made.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstreamUnavailable marks a terminal upstream failure after retries.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrAllKeysExhausted is surfaced by the rate-limited client when every
	// credential in the pool is exhausted or invalid for the billing period.
	// Callers degrade to formula-based estimates instead of propagating it.
	ErrAllKeysExhausted = errors.New("all api keys exhausted")

	// ErrNotTracked is returned for scheduling operations on vehicles that
	// have no tracking record.
	ErrNotTracked = errors.New("vehicle not tracked")
)
