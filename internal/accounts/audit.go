package accounts

import (
	"context"
	"errors"

	"github.com/kinfolio/kinfolio/internal/docstore"
	"github.com/kinfolio/kinfolio/internal/identity"
	"github.com/kinfolio/kinfolio/internal/models"
)

// AuditUsers walks every profile document and compares it against the
// identity store, calling fn once per profile. The walk is lazy: profiles
// are fetched one at a time, and fn returning an error stops it. Calling
// AuditUsers again restarts from the beginning. No write is ever performed.
//
// Statuses: matched (identity exists, emails agree), missing-identity
// (orphan profile, identity record is gone), email-mismatch (both exist,
// emails differ, profile is stale).
func (s *Service) AuditUsers(ctx context.Context, fn func(models.AuditEntry) error) error {
	ctx, span := tracer.Start(ctx, "AuditUsers")
	defer span.End()

	ids, err := s.docs.ListIDs(ctx, UsersCollection)
	if err != nil {
		return upstreamError("document-store", err)
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}

		doc, err := s.docs.Get(ctx, UsersCollection, id)
		if err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				// deleted since the listing, nothing to report
				continue
			}
			return upstreamError("document-store", err)
		}
		profile := models.ProfileFromDocument(id, doc)

		entry := models.AuditEntry{
			IdentityID:   id,
			ProfileEmail: profile.Email,
		}
		user, err := s.ids.LookupByID(ctx, id)
		switch {
		case errors.Is(err, identity.ErrNotFound):
			entry.Status = models.AuditMissingIdentity
		case err != nil:
			return upstreamError("identity-store", err)
		case user.Email != profile.Email:
			entry.Status = models.AuditEmailMismatch
			entry.IdentityEmail = user.Email
		default:
			entry.Status = models.AuditMatched
			entry.IdentityEmail = user.Email
		}

		if err := fn(entry); err != nil {
			return err
		}
	}
	return nil
}
