// Package service implements the officer lifecycle: creation with generated
// codes and temporary credentials, reassignment with embedded history, and
// retirement with an audit snapshot as the only surviving trace.
package service

import (
	"context"
	"log/slog"

	"suvidha/internal/audit"
	"suvidha/internal/integrity"
	"suvidha/internal/officer/models"
	"suvidha/internal/platform/metrics"
	"suvidha/pkg/domain"
	dErrors "suvidha/pkg/domain-errors"
)

type Store interface {
	Create(ctx context.Context, o *models.Officer) error
	FindByCode(ctx context.Context, code domain.OfficerCode) (*models.Officer, error)
	Update(ctx context.Context, o *models.Officer) error
	Delete(ctx context.Context, code domain.OfficerCode) error
	MaxCodeForPrefix(ctx context.Context, prefix string) (domain.OfficerCode, error)
	ListAll(ctx context.Context) ([]*models.Officer, error)
	Execute(ctx context.Context, code domain.OfficerCode, validate func(*models.Officer) error, mutate func(*models.Officer)) (*models.Officer, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates officer lifecycle mutations. Every lifecycle change
// requires the highest-privilege administrator and runs through the StoreTx
// boundary so the officer write and its audit event land together.
type Service struct {
	tx             StoreTx
	store          Store
	validator      *integrity.Validator
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service. The bare store serves read-only lookups;
// mutations go through tx. The publisher is a hard dependency: lifecycle
// writes and their audit events land together or not at all.
func New(tx StoreTx, store Store, validator *integrity.Validator, publisher AuditPublisher, opts ...Option) *Service {
	s := &Service{tx: tx, store: store, validator: validator, auditPublisher: publisher}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns an officer by code.
func (s *Service) Get(ctx context.Context, code domain.OfficerCode) (*models.Officer, error) {
	o, err := s.store.FindByCode(ctx, code)
	if err != nil {
		return nil, translateNotFound(err, code)
	}
	return o, nil
}

func requireSuperAdmin(actor domain.Actor) error {
	if actor.Role != domain.RoleSuperAdmin {
		return dErrors.WithReason(dErrors.CodeForbidden, dErrors.ReasonInsufficientAuthority,
			"officer lifecycle changes require the SUPER_ADMIN role")
	}
	return nil
}

func (s *Service) logAudit(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}
