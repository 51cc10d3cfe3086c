// Package service implements the transfer workflow engine: initiating,
// accepting and rejecting complaint transfers, and maintaining the
// department-connection graph as a side effect.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"suvidha/internal/audit"
	"suvidha/internal/integrity"
	"suvidha/internal/platform/metrics"
	"suvidha/internal/transfer/models"
	"suvidha/pkg/domain"
	dErrors "suvidha/pkg/domain-errors"
	"suvidha/pkg/platform/sentinel"
)

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates the transfer state machine. Every mutating entry point
// runs as one unit of work through the StoreTx boundary; invariant checks are
// re-verified inside that boundary rather than trusting prior reads.
type Service struct {
	tx             StoreTx
	stores         Stores
	validator      *integrity.Validator
	officers       integrity.OfficerReader
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

// New constructs a Service. The stores bundle is used for read-only queries;
// mutations go through tx. The publisher is a hard dependency: every mutation
// emits its audit event inside the transaction and fails when that emission
// fails.
func New(tx StoreTx, stores Stores, validator *integrity.Validator, officers integrity.OfficerReader, publisher AuditPublisher, opts ...Option) *Service {
	s := &Service{tx: tx, stores: stores, validator: validator, officers: officers, auditPublisher: publisher}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PendingByDepartment lists the open transfers waiting on a department,
// oldest first.
func (s *Service) PendingByDepartment(ctx context.Context, dept domain.DepartmentID) ([]*models.Transfer, error) {
	transfers, err := s.stores.Transfers.PendingByDepartment(ctx, dept)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending transfers")
	}
	return transfers, nil
}

// HistoryByComplaint returns every transfer of a complaint, newest first.
func (s *Service) HistoryByComplaint(ctx context.Context, number domain.ComplaintNumber) ([]*models.Transfer, error) {
	if _, err := s.stores.Complaints.FindByNumber(ctx, number); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "complaint %s not found", number)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load complaint")
	}
	transfers, err := s.stores.Transfers.HistoryByComplaint(ctx, number)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load transfer history")
	}
	return transfers, nil
}

// OutcomeStats aggregates transfers that share one outcome.
type OutcomeStats struct {
	Count              int
	MeanProcessingTime time.Duration
}

// Stats summarizes a department's transfer activity over a date range.
type Stats struct {
	Department domain.DepartmentID
	From       time.Time
	To         time.Time
	Total      int
	ByOutcome  map[models.Status]OutcomeStats
}

// StatsByDepartment computes count and mean processing time per outcome for
// transfers touching a department, initiated inside [from, to).
func (s *Service) StatsByDepartment(ctx context.Context, dept domain.DepartmentID, from, to time.Time) (*Stats, error) {
	transfers, err := s.stores.Transfers.ListByDepartmentAndRange(ctx, dept, from, to)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load transfers for stats")
	}

	stats := &Stats{
		Department: dept,
		From:       from,
		To:         to,
		Total:      len(transfers),
		ByOutcome:  make(map[models.Status]OutcomeStats),
	}
	totals := make(map[models.Status]time.Duration)
	for _, t := range transfers {
		outcome := stats.ByOutcome[t.Status]
		outcome.Count++
		stats.ByOutcome[t.Status] = outcome
		totals[t.Status] += t.ProcessingTime()
	}
	for status, outcome := range stats.ByOutcome {
		if status != models.StatusPending && outcome.Count > 0 {
			outcome.MeanProcessingTime = totals[status] / time.Duration(outcome.Count)
			stats.ByOutcome[status] = outcome
		}
	}
	return stats, nil
}

func (s *Service) logAudit(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}
