package accounts

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/kinfolio/kinfolio/internal/identity"
)

var (
	// ErrNotFound means an entity that was a precondition of the operation
	// does not exist (for example the bootstrap target).
	ErrNotFound = errors.New("not found")
	// ErrForbidden means the caller may not perform the operation at all,
	// such as deleting their own account.
	ErrForbidden = errors.New("forbidden")
	// ErrAlreadyBootstrapped means a master marker already exists; the
	// rejected call performed no writes.
	ErrAlreadyBootstrapped = errors.New("already bootstrapped")
	// ErrInvalidArgument flags malformed ids, emails or unknown roles.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUpstreamUnavailable means a store was unreachable or timed out.
	// The operation is safe to retry.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// StepFailure records one reconciliation step that did not apply.
type StepFailure struct {
	Step string
	Err  error
}

// PartialFailureError reports an operation whose intent was partially
// applied: some steps succeeded and the listed ones did not. Every step is
// an idempotent upsert or a tolerant delete, so the caller's remedy is to
// retry the whole operation, not to compensate.
type PartialFailureError struct {
	Op    string
	Steps []StepFailure
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s partially applied, failed steps: %s", e.Op, strings.Join(e.StepNames(), ", "))
}

func (e *PartialFailureError) StepNames() []string {
	names := make([]string, 0, len(e.Steps))
	for _, s := range e.Steps {
		names = append(names, s.Step)
	}
	return names
}

func (e *PartialFailureError) Unwrap() []error {
	errs := make([]error, 0, len(e.Steps))
	for _, s := range e.Steps {
		errs = append(errs, s.Err)
	}
	return errs
}

// upstreamError classifies transport-level failures from either store as
// retryable ErrUpstreamUnavailable; anything else passes through wrapped
// with the store name.
func upstreamError(store string, err error) error {
	if errors.Is(err, identity.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, store, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, store, err)
	}
	return fmt.Errorf("%s: %w", store, err)
}
