package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type OutboxEvent struct {
	ID          int64
	AggregateId string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type RepoInterface interface {
	Close() error
	RunMigrations(*Credentials) error
	CreateIntent(ctx context.Context, intent *PaymentIntent) error
	GetIntentByExternalOrderID(ctx context.Context, externalOrderID string) (*PaymentIntent, error)
	GetPendingIntentByUser(ctx context.Context, userID string) (*PaymentIntent, error)
	UpdateIntentStatus(ctx context.Context, id uuid.UUID, status IntentStatus, reason string) error
	SetPayment(ctx context.Context, id uuid.UUID, status IntentStatus, paymentID string) error
	MarkPersisted(ctx context.Context, id uuid.UUID, eventPayload []byte) error
	GetExpiredPendingIntents(ctx context.Context, olderThan time.Duration) ([]*PaymentIntent, error)
	GetVerifiedUnpersisted(ctx context.Context) ([]*PaymentIntent, error)
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, eventID int64) error
}

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "checkout_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

const intentColumns = `id, user_id, gateway, amount, charge_amount, currency, external_order_id,
	payment_id, status, failure_reason, cart_snapshot, created_at, updated_at`

func (r *Repository) CreateIntent(ctx context.Context, intent *PaymentIntent) error {
	query := `INSERT INTO payment_intents (` + intentColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())`

	_, err := r.db.ExecContext(ctx, query,
		intent.ID,
		intent.UserID,
		intent.Gateway,
		intent.Amount,
		intent.ChargeAmount,
		intent.Currency,
		intent.ExternalOrderID,
		intent.PaymentID,
		intent.Status,
		intent.FailureReason,
		intent.CartSnapshot)
	if err != nil {
		return fmt.Errorf("insert payment intent: %w", err)
	}
	return nil
}

func (r *Repository) GetIntentByExternalOrderID(ctx context.Context, externalOrderID string) (*PaymentIntent, error) {
	query := `SELECT ` + intentColumns + ` FROM payment_intents WHERE external_order_id = $1`
	return scanIntent(r.db.QueryRowContext(ctx, query, externalOrderID))
}

func (r *Repository) GetPendingIntentByUser(ctx context.Context, userID string) (*PaymentIntent, error) {
	query := `SELECT ` + intentColumns + ` FROM payment_intents
	          WHERE user_id = $1 AND status IN ('ORDER_CREATED', 'CLIENT_AUTHORIZED')
	          ORDER BY created_at DESC LIMIT 1`
	return scanIntent(r.db.QueryRowContext(ctx, query, userID))
}

func scanIntent(row *sql.Row) (*PaymentIntent, error) {
	var intent PaymentIntent
	err := row.Scan(
		&intent.ID,
		&intent.UserID,
		&intent.Gateway,
		&intent.Amount,
		&intent.ChargeAmount,
		&intent.Currency,
		&intent.ExternalOrderID,
		&intent.PaymentID,
		&intent.Status,
		&intent.FailureReason,
		&intent.CartSnapshot,
		&intent.CreatedAt,
		&intent.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrIntentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query payment intent: %w", err)
	}
	return &intent, nil
}

func (r *Repository) UpdateIntentStatus(ctx context.Context, id uuid.UUID, status IntentStatus, reason string) error {
	query := `UPDATE payment_intents SET status = $2, failure_reason = $3, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status, reason)
	if err != nil {
		return fmt.Errorf("update intent status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrIntentNotFound
	}
	return nil
}

func (r *Repository) SetPayment(ctx context.Context, id uuid.UUID, status IntentStatus, paymentID string) error {
	query := `UPDATE payment_intents SET status = $2, payment_id = $3, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status, paymentID)
	if err != nil {
		return fmt.Errorf("set intent payment: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrIntentNotFound
	}
	return nil
}

// MarkPersisted flips the intent to PERSISTED and appends the outbox event in
// one transaction, so the event exists iff the intent reports persistence.
func (r *Repository) MarkPersisted(ctx context.Context, id uuid.UUID, eventPayload []byte) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE payment_intents SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, IntentStatusPersisted)
	if err != nil {
		return fmt.Errorf("update intent to persisted: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox_events (aggregate_id, event_type, payload, created_at) VALUES ($1, $2, $3, NOW())`,
		id.String(), "order.completed", eventPayload)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	return tx.Commit()
}

func (r *Repository) GetExpiredPendingIntents(ctx context.Context, olderThan time.Duration) ([]*PaymentIntent, error) {
	query := `SELECT ` + intentColumns + ` FROM payment_intents
	          WHERE status IN ('ORDER_CREATED', 'CLIENT_AUTHORIZED') AND updated_at < $1`
	return r.queryIntents(ctx, query, time.Now().Add(-olderThan))
}

func (r *Repository) GetVerifiedUnpersisted(ctx context.Context) ([]*PaymentIntent, error) {
	query := `SELECT ` + intentColumns + ` FROM payment_intents WHERE status = 'VERIFIED'`
	return r.queryIntents(ctx, query)
}

func (r *Repository) queryIntents(ctx context.Context, query string, args ...interface{}) ([]*PaymentIntent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query payment intents: %w", err)
	}
	defer rows.Close()

	var intents []*PaymentIntent
	for rows.Next() {
		var intent PaymentIntent
		if err := rows.Scan(
			&intent.ID,
			&intent.UserID,
			&intent.Gateway,
			&intent.Amount,
			&intent.ChargeAmount,
			&intent.Currency,
			&intent.ExternalOrderID,
			&intent.PaymentID,
			&intent.Status,
			&intent.FailureReason,
			&intent.CartSnapshot,
			&intent.CreatedAt,
			&intent.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan intent row: %w", err)
		}
		intents = append(intents, &intent)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return intents, nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload, created_at
	          FROM outbox_events WHERE processed_at IS NULL ORDER BY id LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var event OutboxEvent
		if err := rows.Scan(&event.ID, &event.AggregateId, &event.EventType, &event.Payload, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, eventID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events SET processed_at = NOW() WHERE id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("mark event processed: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
