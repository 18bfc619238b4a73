package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrResponseFormat is returned when generative output cannot be parsed into the expected structure
	ErrResponseFormat = errors.New("generative response has unexpected format")

	// ErrUpstreamUnavailable is returned when the generative backend or search service cannot be reached
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrNotFound is returned when a profile, day log or logged food does not exist
	ErrNotFound = errors.New("not found")

	// ErrKeyNotFound is returned when a key is absent from the key-value store
	ErrKeyNotFound = errors.New("key not found")

	// ErrStoreUnavailable is returned when the key-value backend fails
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")
)

// Pipeline stages, in execution order.
const (
	StageMatch     = "match"
	StageEnrich    = "enrich"
	StageReconcile = "reconcile"
	StageAggregate = "aggregate"
)

// PipelineError reports the stage at which an analysis invocation was aborted.
type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline %s stage: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}
