package notification

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// validationErrPrefix tags last_error values written by the contract gate.
// Records carrying it are terminal: retrying an invalid payload cannot
// succeed, so the retry scheduler skips them.
const validationErrPrefix = "validation: "

// ClaimParams identifies the logical send a dispatcher wants to claim.
type ClaimParams struct {
	OwnerID        string
	Recipient      string
	Category       Category
	Provider       string
	IdempotencyKey string
}

// ClaimOutcome reports whether the caller won the right to dispatch. When the
// claim is refused, Record holds the current row so the caller can decide
// between an already-sent short-circuit and a retry-ceiling failure.
type ClaimOutcome struct {
	Claimed bool
	Record  *DeliveryRecord
}

// Store is the durable persistence port for delivery records. The claim
// operation must be atomic at the storage layer; the dispatcher's
// at-most-once guarantee depends on it, not on in-process locking.
type Store interface {
	ClaimForSending(ctx context.Context, params ClaimParams, maxRetries int) (*ClaimOutcome, error)
	MarkSent(ctx context.Context, id, providerMessageID string) error
	MarkFailed(ctx context.Context, id, errMsg string) error
	RecordValidationFailure(ctx context.Context, params ClaimParams, errMsg string) (*DeliveryRecord, error)
	GetByKey(ctx context.Context, idempotencyKey string) (*DeliveryRecord, error)
	ListRetryable(ctx context.Context, maxRetries, limit int) ([]*DeliveryRecord, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*DeliveryRecord, error)
}

// Repository is the PostgreSQL-backed Store.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const deliveryColumns = `id, owner_id, recipient, category, status, provider,
	COALESCE(provider_message_id, ''), idempotency_key, retry_count,
	COALESCE(last_error, ''), sent_at, created_at, updated_at`

// ClaimForSending creates the record in SENDING, or transitions an existing
// PENDING/FAILED row back to SENDING, as a single conditional upsert. Two
// dispatchers racing on the same key are both safe: one wins the claim, the
// other observes the current row and backs off. retry_count increments only
// on the FAILED -> SENDING transition and is capped by maxRetries.
func (r *Repository) ClaimForSending(ctx context.Context, params ClaimParams, maxRetries int) (*ClaimOutcome, error) {
	query := `
		INSERT INTO delivery_records
			(id, owner_id, recipient, category, status, provider, idempotency_key, retry_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'SENDING', $5, $6, 0, now(), now())
		ON CONFLICT (idempotency_key) DO UPDATE SET
			status = 'SENDING',
			retry_count = delivery_records.retry_count +
				CASE WHEN delivery_records.status = 'FAILED' THEN 1 ELSE 0 END,
			updated_at = now()
		WHERE delivery_records.status IN ('PENDING', 'FAILED')
			AND delivery_records.retry_count < $7
		RETURNING ` + deliveryColumns

	row := r.db.QueryRowContext(ctx, query,
		uuid.New().String(), params.OwnerID, params.Recipient, params.Category,
		params.Provider, params.IdempotencyKey, maxRetries,
	)

	rec, err := scanDelivery(row)
	if err == nil {
		return &ClaimOutcome{Claimed: true, Record: rec}, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("claim delivery record: %w", err)
	}

	// The upsert matched an existing row it was not allowed to touch
	// (SENT, in-flight SENDING, or FAILED at the retry ceiling).
	existing, err := r.GetByKey(ctx, params.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("claim refused but no record for key %s", params.IdempotencyKey)
	}
	return &ClaimOutcome{Claimed: false, Record: existing}, nil
}

// MarkSent transitions SENDING -> SENT. SENT is terminal: the guard makes the
// transition a no-op for any other state, so a record can never leave SENT.
func (r *Repository) MarkSent(ctx context.Context, id, providerMessageID string) error {
	query := `
		UPDATE delivery_records
		SET status = 'SENT', provider_message_id = $2, sent_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'SENDING'`
	if _, err := r.db.ExecContext(ctx, query, id, providerMessageID); err != nil {
		return fmt.Errorf("mark delivery record sent: %w", err)
	}
	return nil
}

// MarkFailed transitions the record to FAILED with a truncated error message.
func (r *Repository) MarkFailed(ctx context.Context, id, errMsg string) error {
	query := `
		UPDATE delivery_records
		SET status = 'FAILED', last_error = $2, updated_at = now()
		WHERE id = $1 AND status <> 'SENT'`
	if _, err := r.db.ExecContext(ctx, query, id, truncateError(errMsg)); err != nil {
		return fmt.Errorf("mark delivery record failed: %w", err)
	}
	return nil
}

// RecordValidationFailure writes the contract-gate outcome: the record goes
// (or stays) terminal FAILED without ever entering SENDING, and the provider
// is never called for it.
func (r *Repository) RecordValidationFailure(ctx context.Context, params ClaimParams, errMsg string) (*DeliveryRecord, error) {
	query := `
		INSERT INTO delivery_records
			(id, owner_id, recipient, category, status, provider, idempotency_key, retry_count, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'FAILED', $5, $6, 0, $7, now(), now())
		ON CONFLICT (idempotency_key) DO UPDATE SET
			status = 'FAILED',
			last_error = EXCLUDED.last_error,
			updated_at = now()
		WHERE delivery_records.status <> 'SENT'
		RETURNING ` + deliveryColumns

	row := r.db.QueryRowContext(ctx, query,
		uuid.New().String(), params.OwnerID, params.Recipient, params.Category,
		params.Provider, params.IdempotencyKey, validationErrPrefix+truncateError(errMsg),
	)

	rec, err := scanDelivery(row)
	if err == sql.ErrNoRows {
		// Already SENT; nothing to record.
		return r.GetByKey(ctx, params.IdempotencyKey)
	}
	if err != nil {
		return nil, fmt.Errorf("record validation failure: %w", err)
	}
	return rec, nil
}

// GetByKey returns the record for an idempotency key, or nil when absent.
func (r *Repository) GetByKey(ctx context.Context, idempotencyKey string) (*DeliveryRecord, error) {
	query := `SELECT ` + deliveryColumns + ` FROM delivery_records WHERE idempotency_key = $1`
	rec, err := scanDelivery(r.db.QueryRowContext(ctx, query, idempotencyKey))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get delivery record by key: %w", err)
	}
	return rec, nil
}

// ListRetryable returns FAILED records still below the retry ceiling, oldest
// first. Validation failures are excluded: they are terminal.
func (r *Repository) ListRetryable(ctx context.Context, maxRetries, limit int) ([]*DeliveryRecord, error) {
	query := `
		SELECT ` + deliveryColumns + `
		FROM delivery_records
		WHERE status = 'FAILED' AND retry_count < $1 AND last_error NOT LIKE $2
		ORDER BY updated_at ASC
		LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, maxRetries, validationErrPrefix+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("list retryable delivery records: %w", err)
	}
	defer rows.Close()
	return collectDeliveries(rows)
}

// ListByOwner returns the delivery history for one owner, newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]*DeliveryRecord, error) {
	query := `
		SELECT ` + deliveryColumns + `
		FROM delivery_records
		WHERE owner_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list delivery records by owner: %w", err)
	}
	defer rows.Close()
	return collectDeliveries(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDelivery(row rowScanner) (*DeliveryRecord, error) {
	var rec DeliveryRecord
	var sentAt sql.NullTime
	err := row.Scan(
		&rec.ID, &rec.OwnerID, &rec.Recipient, &rec.Category, &rec.Status,
		&rec.Provider, &rec.ProviderMessageID, &rec.IdempotencyKey,
		&rec.RetryCount, &rec.LastError, &sentAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if sentAt.Valid {
		t := sentAt.Time
		rec.SentAt = &t
	}
	return &rec, nil
}

func collectDeliveries(rows *sql.Rows) ([]*DeliveryRecord, error) {
	var records []*DeliveryRecord
	for rows.Next() {
		rec, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// maxErrorLength bounds what we persist in last_error; provider errors can
// embed whole response bodies.
const maxErrorLength = 500

func truncateError(msg string) string {
	if len(msg) > maxErrorLength {
		return msg[:maxErrorLength]
	}
	return msg
}

// IsValidationError reports whether a record's last_error was written by the
// contract gate.
func IsValidationError(rec *DeliveryRecord) bool {
	return len(rec.LastError) >= len(validationErrPrefix) &&
		rec.LastError[:len(validationErrPrefix)] == validationErrPrefix
}
