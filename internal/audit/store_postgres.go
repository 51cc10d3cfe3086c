package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"suvidha/pkg/domain"
	txcontext "suvidha/pkg/platform/tx"
)

// PostgresStore implements Store using the transactional outbox pattern.
// Events are written to the outbox table in the caller's transaction and
// published to Kafka by the outbox worker, so an event is only ever visible
// when the mutation it documents committed.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxRecord is the JSON envelope published to Kafka.
type outboxRecord struct {
	ID         string          `json:"id"`
	Timestamp  string          `json:"timestamp"`
	Action     string          `json:"action"`
	ActorID    string          `json:"actor_id"`
	ActorRole  string          `json:"actor_role"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	RequestID  string          `json:"request_id,omitempty"`
	DetailKind string          `json:"detail_kind"`
	Details    json.RawMessage `json:"details"`
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	details, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}
	payload, err := json.Marshal(outboxRecord{
		ID:         event.ID.String(),
		Timestamp:  event.Timestamp.Format(time.RFC3339Nano),
		Action:     string(event.Action),
		ActorID:    event.ActorID,
		ActorRole:  string(event.ActorRole),
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
		RequestID:  event.RequestID,
		DetailKind: detailKind(event.Details),
		Details:    details,
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO audit_outbox (id, occurred_at, action, actor_id, entity_type, entity_id, payload, published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE)`,
		event.ID, event.Timestamp, string(event.Action), event.ActorID,
		event.EntityType, event.EntityID, payload,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByEntity(ctx context.Context, entityType, entityID string) ([]Event, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, occurred_at, action, actor_id, payload
		FROM audit_outbox
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY occurred_at`,
		entityType, entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e       Event
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Action, &e.ActorID, &payload); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		var rec outboxRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("decode audit payload: %w", err)
		}
		e.ActorRole = domain.Role(rec.ActorRole)
		e.EntityType = rec.EntityType
		e.EntityID = rec.EntityID
		e.RequestID = rec.RequestID
		if e.Details, err = decodeDetails(rec.DetailKind, rec.Details); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// PendingOutbox returns up to limit unpublished outbox rows, oldest first.
func (s *PostgresStore) PendingOutbox(ctx context.Context, limit int) ([]OutboxRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, payload FROM audit_outbox
		WHERE published = FALSE
		ORDER BY occurred_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var out []OutboxRow
	for rows.Next() {
		var row OutboxRow
		if err := rows.Scan(&row.ID, &row.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// MarkPublished flags outbox rows as delivered.
func (s *PostgresStore) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	placeholders := ""
	for i, id := range ids {
		if i > 0 {
			placeholders += ","
		}
		placeholders += fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	_, err := s.db.ExecContext(ctx,
		"UPDATE audit_outbox SET published = TRUE WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

// OutboxRow is an undelivered audit event awaiting publication.
type OutboxRow struct {
	ID      uuid.UUID
	Payload []byte
}

func detailKind(d Details) string {
	switch d.(type) {
	case OfficerCreatedDetails:
		return "officer_created"
	case OfficerTransferDetails:
		return "officer_transfer"
	case OfficerRetiredDetails:
		return "officer_retired"
	case TransferInitiatedDetails:
		return "transfer_initiated"
	case TransferResolvedDetails:
		return "transfer_resolved"
	case ConnectionCreatedDetails:
		return "connection_created"
	case CleanupDetails:
		return "cleanup"
	default:
		return ""
	}
}

func decodeDetails(kind string, raw json.RawMessage) (Details, error) {
	var target any
	switch kind {
	case "officer_created":
		target = &OfficerCreatedDetails{}
	case "officer_transfer":
		target = &OfficerTransferDetails{}
	case "officer_retired":
		target = &OfficerRetiredDetails{}
	case "transfer_initiated":
		target = &TransferInitiatedDetails{}
	case "transfer_resolved":
		target = &TransferResolvedDetails{}
	case "connection_created":
		target = &ConnectionCreatedDetails{}
	case "cleanup":
		target = &CleanupDetails{}
	default:
		return nil, fmt.Errorf("unknown audit detail kind %q", kind)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("decode %s details: %w", kind, err)
	}
	switch v := target.(type) {
	case *OfficerCreatedDetails:
		return *v, nil
	case *OfficerTransferDetails:
		return *v, nil
	case *OfficerRetiredDetails:
		return *v, nil
	case *TransferInitiatedDetails:
		return *v, nil
	case *TransferResolvedDetails:
		return *v, nil
	case *ConnectionCreatedDetails:
		return *v, nil
	default:
		return *(target.(*CleanupDetails)), nil
	}
}
