package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kinfolio/kinfolio/internal/docstore"
	"github.com/kinfolio/kinfolio/internal/identity"
	"github.com/kinfolio/kinfolio/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AssignRole makes role the canonical role of the identity in every
// location. Write order: (1) marker document, (2) profile document,
// (3) identity claim. Authorization checks that read claims see the new
// role only after step 3; document-store consumers see it after step 2.
//
// Every step is an upsert, so assigning the same role twice converges to
// the same state with no error. If step 2 or 3 fails after the marker
// landed, the returned *PartialFailureError names the failed steps and the
// caller should retry the whole call.
func (s *Service) AssignRole(ctx context.Context, identityID string, role models.Role) error {
	ctx, span := tracer.Start(ctx, "AssignRole", trace.WithAttributes(
		attribute.String("identity_id", identityID),
		attribute.String("role", role.String()),
	))
	defer span.End()

	if identityID == "" {
		return fmt.Errorf("%w: identity id is required", ErrInvalidArgument)
	}
	if _, err := models.ParseRole(role.String()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	user, err := s.ids.LookupByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return fmt.Errorf("%w: identity %s", ErrNotFound, identityID)
		}
		return upstreamError("identity-store", err)
	}

	marker := models.RoleMarker{
		Email:     user.Email,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.docs.Upsert(ctx, role.Collection(), identityID, marker.Document(), false); err != nil {
		// Nothing has been applied yet, so this is a plain failure rather
		// than a partial one.
		return upstreamError("document-store", err)
	}

	var failed []StepFailure
	if err := s.writeProfileRole(ctx, user, role); err != nil {
		failed = append(failed, StepFailure{Step: StepProfile, Err: err})
	}
	if err := s.ids.AttachClaims(ctx, identityID, map[string]string{RoleClaim: role.String()}); err != nil {
		failed = append(failed, StepFailure{Step: StepClaim, Err: err})
	}
	if len(failed) > 0 {
		s.Logger(ctx).Warnw("role assignment partially applied",
			"identity_id", identityID, "role", role, "failed_steps", len(failed))
		return &PartialFailureError{Op: "assign-role", Steps: failed}
	}
	return nil
}

// writeProfileRole merge-updates the profile's role, creating the profile
// with defaults from the identity record when it does not exist yet.
func (s *Service) writeProfileRole(ctx context.Context, user *identity.User, role models.Role) error {
	now := time.Now().UTC()
	_, err := s.docs.Get(ctx, UsersCollection, user.ID)
	if err != nil {
		if !errors.Is(err, docstore.ErrNotFound) {
			return err
		}
		profile := models.Profile{
			ID:        user.ID,
			Email:     user.Email,
			FullName:  user.FullName,
			Role:      role,
			Disabled:  user.Disabled,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return s.docs.Upsert(ctx, UsersCollection, user.ID, profile.Document(), true)
	}
	return s.docs.Upsert(ctx, UsersCollection, user.ID, map[string]any{
		"role":       role.String(),
		"updated_at": now.Format(time.RFC3339Nano),
	}, true)
}
