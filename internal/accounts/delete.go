package accounts

import (
	"context"
	"fmt"
	"sync"

	"github.com/kinfolio/kinfolio/internal/models"
	"github.com/kinfolio/kinfolio/internal/util"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DeleteStep records the outcome of one deletion location.
type DeleteStep struct {
	Step  string `json:"step" example:"marker/master"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// DeleteReport is the full per-location outcome of one DeleteUser call.
type DeleteReport struct {
	IdentityID string       `json:"identity_id"`
	Steps      []DeleteStep `json:"steps"`
}

func (r *DeleteReport) record(step string, err error) {
	s := DeleteStep{Step: step, OK: err == nil}
	if err != nil {
		s.Error = err.Error()
	}
	r.Steps = append(r.Steps, s)
}

// DeleteUser removes the identity record, the profile document and the
// marker document in every known role collection. The identity record goes
// first: it is the authoritative existence proof, and removing it keeps the
// principal from authenticating again even if the cleanup steps after it
// fail. A failed identity delete (other than already-absent) aborts before
// any document is touched.
//
// Every location tolerates already-absent as success, so retrying after a
// partial failure is always safe. Self-deletion is rejected before any
// store is called.
func (s *Service) DeleteUser(ctx context.Context, callerID, targetID string) (*DeleteReport, error) {
	ctx, span := tracer.Start(ctx, "DeleteUser", trace.WithAttributes(
		attribute.String("identity_id", targetID),
	))
	defer span.End()

	if callerID == "" || targetID == "" {
		return nil, fmt.Errorf("%w: caller and target ids are required", ErrInvalidArgument)
	}
	if callerID == targetID {
		return nil, fmt.Errorf("%w: cannot delete your own account", ErrForbidden)
	}

	report := &DeleteReport{IdentityID: targetID}

	if err := s.ids.Delete(ctx, targetID); err != nil {
		err = upstreamError("identity-store", err)
		report.record(StepIdentity, err)
		return report, err
	}
	report.record(StepIdentity, nil)

	// The remaining locations fail independently and order among them does
	// not matter, so they run concurrently.
	var mu sync.Mutex
	var failed []StepFailure
	wg := &sync.WaitGroup{}

	deleteDoc := func(step, collection string) {
		util.GoWithWaitGroup(wg, func() {
			err := s.docs.Delete(ctx, collection, targetID)
			if err != nil {
				err = upstreamError("document-store", err)
			}
			mu.Lock()
			defer mu.Unlock()
			report.record(step, err)
			if err != nil {
				failed = append(failed, StepFailure{Step: step, Err: err})
			}
		})
	}

	deleteDoc(StepProfile, UsersCollection)
	for _, role := range models.KnownRoles {
		deleteDoc("marker/"+role.Collection(), role.Collection())
	}
	wg.Wait()

	if len(failed) > 0 {
		s.Logger(ctx).Warnw("user deletion partially applied",
			"identity_id", targetID, "failed_steps", len(failed))
		return report, &PartialFailureError{Op: "delete-user", Steps: failed}
	}

	s.Logger(ctx).Infow("user deleted", "identity_id", targetID, "caller_id", callerID)
	return report, nil
}
