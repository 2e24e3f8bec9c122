// Package accounts reconciles a user's role across the four places it
// lives: the identity record, the claim attached to it, the profile
// document and the per-role marker documents. There is no transaction
// spanning the two stores; every operation is a sequence of idempotent
// writes with a documented order, so a retry after any partial failure
// converges on the intended state.
package accounts

import (
	"context"

	"github.com/kinfolio/kinfolio/internal/docstore"
	"github.com/kinfolio/kinfolio/internal/identity"
	"github.com/kinfolio/kinfolio/internal/util"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer trace.Tracer

func init() {
	tracer = otel.Tracer("github.com/kinfolio/kinfolio/internal/accounts")
}

// UsersCollection holds the profile documents, keyed by identity id.
const UsersCollection = "users"

// RoleClaim is the claim key downstream authorization checks consume.
const RoleClaim = "role"

// Step names used in partial-failure reports and delete reports.
const (
	StepIdentity = "identity"
	StepProfile  = "profile"
	StepClaim    = "claim"
)

// Service holds no state between invocations; any number of calls may run
// concurrently, in one process or many.
type Service struct {
	logger *zap.SugaredLogger
	ids    identity.Store
	docs   docstore.Store
}

func NewService(logger *zap.SugaredLogger, ids identity.Store, docs docstore.Store) *Service {
	return &Service{
		logger: logger,
		ids:    ids,
		docs:   docs,
	}
}

func (s *Service) Logger(ctx context.Context) *zap.SugaredLogger {
	return util.WithTrace(ctx, s.logger)
}
