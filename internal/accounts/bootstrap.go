package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kinfolio/kinfolio/internal/docstore"
	"github.com/kinfolio/kinfolio/internal/identity"
	"github.com/kinfolio/kinfolio/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// BootstrapStatus is the derived "has anyone bootstrapped yet" state. It is
// a query over the master marker collection, never process memory, so every
// replica observes the same answer.
type BootstrapStatus struct {
	Bootstrapped bool `json:"bootstrapped"`
	Count        int  `json:"count" example:"1"`
}

// CheckBootstrapped reports whether a master account exists. Read-only and
// always safe to call.
func (s *Service) CheckBootstrapped(ctx context.Context) (BootstrapStatus, error) {
	ctx, span := tracer.Start(ctx, "CheckBootstrapped")
	defer span.End()

	ids, err := s.docs.ListIDs(ctx, models.RoleMaster.Collection())
	if err != nil {
		return BootstrapStatus{}, upstreamError("document-store", err)
	}
	return BootstrapStatus{
		Bootstrapped: len(ids) > 0,
		Count:        len(ids),
	}, nil
}

// Bootstrap promotes the principal behind email to the first master
// account. The principal must already exist in the identity store (e.g.
// from a prior login). Once any master marker exists the call fails with
// ErrAlreadyBootstrapped before writing anything.
//
// The existence check and the marker write are not atomic: two callers
// racing from the empty state can both pass the check, and the marker of
// whichever writes last persists. That window is an accepted tradeoff for
// running without a cross-store lock; it closes permanently after the first
// marker lands.
func (s *Service) Bootstrap(ctx context.Context, email string) (string, error) {
	ctx, span := tracer.Start(ctx, "Bootstrap", trace.WithAttributes(
		attribute.String("email", email),
	))
	defer span.End()

	if !strings.Contains(email, "@") {
		return "", fmt.Errorf("%w: malformed email %q", ErrInvalidArgument, email)
	}

	user, err := s.ids.LookupByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return "", fmt.Errorf("%w: no identity for %s", ErrNotFound, email)
		}
		return "", upstreamError("identity-store", err)
	}

	status, err := s.CheckBootstrapped(ctx)
	if err != nil {
		return "", err
	}
	if status.Bootstrapped {
		return "", fmt.Errorf("%w: %d master account(s) exist", ErrAlreadyBootstrapped, status.Count)
	}

	if err := s.AssignRole(ctx, user.ID, models.RoleMaster); err != nil {
		return "", err
	}

	if err := s.fillDisplayNameDefault(ctx, user); err != nil {
		return user.ID, &PartialFailureError{Op: "bootstrap", Steps: []StepFailure{{Step: StepProfile, Err: err}}}
	}

	s.Logger(ctx).Infow("bootstrapped first master account", "identity_id", user.ID)
	return user.ID, nil
}

func (s *Service) fillDisplayNameDefault(ctx context.Context, user *identity.User) error {
	doc, err := s.docs.Get(ctx, UsersCollection, user.ID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil
		}
		return err
	}
	if name, _ := doc["full_name"].(string); name != "" {
		return nil
	}
	name := user.FullName
	if name == "" {
		name = strings.SplitN(user.Email, "@", 2)[0]
	}
	return s.docs.Upsert(ctx, UsersCollection, user.ID, map[string]any{
		"full_name":  name,
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
	}, true)
}
