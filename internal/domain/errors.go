package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery signals an empty or oversized search query.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrUnknownAllergen signals an allergen key outside the knowledge base.
	ErrUnknownAllergen = errors.New("unknown allergen")
	// ErrUnknownContext signals an unsupported usage context.
	ErrUnknownContext = errors.New("unknown context")
	// ErrInvalidPolicy signals a malformed domain policy.
	ErrInvalidPolicy = errors.New("invalid domain policy")
	// ErrPolicyNotFound signals a missing domain policy entry.
	ErrPolicyNotFound = errors.New("domain policy not found")
	// ErrInvalidFeedback signals a malformed feedback payload.
	ErrInvalidFeedback = errors.New("invalid feedback")

	// ErrRateLimited signals a search provider quota hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrTimeout signals a search provider timeout.
	ErrTimeout = errors.New("search timeout")
	// ErrUpstream signals a search provider failure.
	ErrUpstream = errors.New("search provider error")
	// ErrMissingCredentials signals an unconfigured search provider.
	ErrMissingCredentials = errors.New("missing search credentials")

	// ErrEmbeddingProvider signals an embedding backend failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrEmbeddingBudgetExceeded signals an exhausted embedding token budget.
	ErrEmbeddingBudgetExceeded = errors.New("embedding token budget exceeded")
)

// RetrievalErrorKind classifies external search failures.
type RetrievalErrorKind string

// Retrieval failure kinds.
const (
	RetrievalRateLimited        RetrievalErrorKind = "rate_limited"
	RetrievalTimeout            RetrievalErrorKind = "timeout"
	RetrievalUpstream           RetrievalErrorKind = "upstream"
	RetrievalMissingCredentials RetrievalErrorKind = "missing_credentials"
)

// Retryable reports whether a failure of this kind may succeed on retry.
func (k RetrievalErrorKind) Retryable() bool {
	return k == RetrievalRateLimited || k == RetrievalTimeout || k == RetrievalUpstream
}

func (k RetrievalErrorKind) sentinel() error {
	switch k {
	case RetrievalRateLimited:
		return ErrRateLimited
	case RetrievalTimeout:
		return ErrTimeout
	case RetrievalMissingCredentials:
		return ErrMissingCredentials
	default:
		return ErrUpstream
	}
}

// RetrievalError is returned by ExternalSearch implementations.
// Status carries the upstream HTTP status when one was received.
type RetrievalError struct {
	Kind   RetrievalErrorKind
	Status int
	Err    error
}

func (e *RetrievalError) Error() string {
	msg := "retrieval " + string(e.Kind)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is.
func (e *RetrievalError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// NewRetrievalError creates a typed retrieval error.
func NewRetrievalError(kind RetrievalErrorKind, status int, err error) error {
	return &RetrievalError{Kind: kind, Status: status, Err: err}
}

// RetrievalKindOf extracts the retrieval kind from err.
// Errors that are not RetrievalError are reported as upstream failures.
func RetrievalKindOf(err error) RetrievalErrorKind {
	var re *RetrievalError
	if errors.As(err, &re) {
		return re.Kind
	}
	switch {
	case errors.Is(err, ErrMissingCredentials):
		return RetrievalMissingCredentials
	case errors.Is(err, ErrRateLimited):
		return RetrievalRateLimited
	case errors.Is(err, ErrTimeout):
		return RetrievalTimeout
	default:
		return RetrievalUpstream
	}
}
