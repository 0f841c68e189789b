package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"stocktrail/internal/core/id"
	"stocktrail/internal/domain/events"
	"stocktrail/pkg/logger"
)

// OutboxStatus is the state of an outbox message.
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusPublished  OutboxStatus = "published"
	OutboxStatusFailed     OutboxStatus = "failed"
)

const outboxMaxRetries = 5

// outboxClaimLease bounds how long a claimed message stays invisible to
// other relays before a crashed claim is handed out again.
const outboxClaimLease = 5 * time.Minute

// outboxClaimSQL flips a batch of due messages to processing and returns
// them in one statement, so the claim holds after the statement's
// implicit transaction ends. A separate SELECT FOR UPDATE would release
// its row locks at statement end and let two relays deliver the same
// message.
const outboxClaimSQL = `
	UPDATE sys_outbox
	SET status = $1, next_retry_at = $2
	WHERE id IN (
		SELECT id
		FROM sys_outbox
		WHERE (status = $3 AND (next_retry_at IS NULL OR next_retry_at <= NOW()))
		   OR (status = $1 AND next_retry_at <= NOW())
		ORDER BY created_at
		LIMIT $4
		FOR UPDATE SKIP LOCKED
	)
	RETURNING id, aggregate_type, aggregate_id, event_type, payload, status,
	          retry_count, last_error, next_retry_at, created_at, published_at
`

// OutboxMessage is a row in the transactional outbox.
type OutboxMessage struct {
	ID            id.ID        `db:"id"`
	AggregateType string       `db:"aggregate_type"`
	AggregateID   id.ID        `db:"aggregate_id"`
	EventType     string       `db:"event_type"`
	Payload       []byte       `db:"payload"`
	Status        OutboxStatus `db:"status"`
	RetryCount    int          `db:"retry_count"`
	LastError     *string      `db:"last_error"`
	NextRetryAt   *time.Time   `db:"next_retry_at"`
	CreatedAt     time.Time    `db:"created_at"`
	PublishedAt   *time.Time   `db:"published_at"`
}

// OutboxPublisher persists domain events in the same transaction as the
// state change they describe, so a movement and its notification commit
// or roll back together.
type OutboxPublisher struct {
	txManager *TxManager
}

// NewOutboxPublisher creates an outbox publisher.
func NewOutboxPublisher(txManager *TxManager) *OutboxPublisher {
	return &OutboxPublisher{txManager: txManager}
}

var _ events.Publisher = (*OutboxPublisher)(nil)

// Publish writes an event to the outbox. Must run inside a transaction.
func (p *OutboxPublisher) Publish(ctx context.Context, event events.Event) error {
	tx := p.txManager.GetTx(ctx)
	if tx == nil {
		return fmt.Errorf("outbox publish requires transaction context")
	}

	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO sys_outbox (id, aggregate_type, aggregate_id, event_type, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id.New(), event.AggregateType, event.AggregateID, event.Type, payloadBytes, OutboxStatusPending, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}

// OutboxHandler delivers one outbox message to its consumer.
type OutboxHandler interface {
	Handle(ctx context.Context, msg *OutboxMessage) error
}

// OutboxRelay drains pending outbox messages. Run by the background
// worker; failed deliveries retry with a linear backoff and park as
// failed after outboxMaxRetries attempts.
type OutboxRelay struct {
	pool      *pgxpool.Pool
	batchSize int
	handler   OutboxHandler
}

// NewOutboxRelay creates an outbox relay.
func NewOutboxRelay(pool *Pool, batchSize int, handler OutboxHandler) *OutboxRelay {
	return &OutboxRelay{pool: pool.Pool, batchSize: batchSize, handler: handler}
}

// ProcessBatch claims and delivers due messages, returning how many were
// delivered. Claiming flips the rows to processing under a lease, so a
// relay that dies mid-batch releases its messages when the lease runs
// out.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	lease := time.Now().UTC().Add(outboxClaimLease)
	rows, err := r.pool.Query(ctx, outboxClaimSQL,
		OutboxStatusProcessing, lease, OutboxStatusPending, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("claim outbox messages: %w", err)
	}
	defer rows.Close()

	var messages []*OutboxMessage
	for rows.Next() {
		var msg OutboxMessage
		err := rows.Scan(
			&msg.ID, &msg.AggregateType, &msg.AggregateID, &msg.EventType,
			&msg.Payload, &msg.Status, &msg.RetryCount, &msg.LastError,
			&msg.NextRetryAt, &msg.CreatedAt, &msg.PublishedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("scan outbox message: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate outbox messages: %w", err)
	}

	processed := 0
	for _, msg := range messages {
		if err := r.processMessage(ctx, msg); err != nil {
			logger.Warn(ctx, "outbox delivery failed",
				"message_id", msg.ID,
				"event_type", msg.EventType,
				"error", err,
			)
			continue
		}
		processed++
	}
	return processed, nil
}

func (r *OutboxRelay) processMessage(ctx context.Context, msg *OutboxMessage) error {
	if err := r.handler.Handle(ctx, msg); err != nil {
		nextRetry := time.Now().Add(time.Duration(msg.RetryCount+1) * time.Minute)
		errStr := err.Error()

		_, updateErr := r.pool.Exec(ctx, `
			UPDATE sys_outbox
			SET retry_count = retry_count + 1,
			    last_error = $1,
			    next_retry_at = $2,
			    status = CASE WHEN retry_count + 1 >= $3 THEN $4 ELSE $5 END
			WHERE id = $6
		`, errStr, nextRetry, outboxMaxRetries, OutboxStatusFailed, OutboxStatusPending, msg.ID)
		if updateErr != nil {
			return fmt.Errorf("update failed message: %w", updateErr)
		}
		return err
	}

	now := time.Now().UTC()
	_, err := r.pool.Exec(ctx, `
		UPDATE sys_outbox
		SET status = $1, published_at = $2
		WHERE id = $3
	`, OutboxStatusPublished, now, msg.ID)
	return err
}
