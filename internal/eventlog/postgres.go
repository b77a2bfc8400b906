package eventlog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/telhawk-systems/homeids/internal/models"
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool     *pgxpool.Pool
	timeouts Timeouts
}

// PoolConfig tunes the connection pool. Zero values keep pgx defaults.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	Timeouts        Timeouts
}

// NewPostgresStore connects to connString and verifies the connection.
func NewPostgresStore(ctx context.Context, connString string, pc PoolConfig) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if pc.MaxConns > 0 {
		config.MaxConns = pc.MaxConns
	}
	if pc.MinConns > 0 {
		config.MinConns = pc.MinConns
	}
	if pc.MaxConnLifetime > 0 {
		config.MaxConnLifetime = pc.MaxConnLifetime
	}
	if pc.MaxConnIdleTime > 0 {
		config.MaxConnIdleTime = pc.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool, timeouts: pc.Timeouts.withDefaults()}, nil
}

func (s *PostgresStore) Append(ctx context.Context, e *models.LogEvent) error {
	if err := validate(e); err != nil {
		return err
	}

	ctx, cancel := s.timeouts.write(ctx)
	defer cancel()

	query := `
		INSERT INTO logs (timestamp, message, log_type, source, device, username, severity)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7)
		RETURNING id
	`

	err := s.pool.QueryRow(ctx, query,
		e.Timestamp, e.Message, string(e.LogType),
		e.Source, e.Device, e.User, string(e.Severity),
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("failed to insert log: %w", err)
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, f Filter) ([]models.LogEvent, error) {
	ctx, cancel := s.timeouts.query(ctx)
	defer cancel()

	var (
		conds []string
		args  []any
	)
	if f.LogType != "" {
		args = append(args, string(f.LogType))
		conds = append(conds, fmt.Sprintf("log_type = $%d", len(args)))
	}
	if f.Device != "" {
		args = append(args, f.Device)
		conds = append(conds, fmt.Sprintf("device = $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString(`SELECT id, timestamp, message, log_type,
		COALESCE(source, ''), COALESCE(device, ''), COALESCE(username, ''), severity
		FROM logs`)
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY timestamp DESC, id DESC")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}

	events, err := pgx.CollectRows(rows, scanEvent)
	if err != nil {
		return nil, fmt.Errorf("failed to scan logs: %w", err)
	}
	if events == nil {
		events = []models.LogEvent{}
	}
	return events, nil
}

func scanEvent(row pgx.CollectableRow) (models.LogEvent, error) {
	var (
		e                 models.LogEvent
		logType, severity string
	)
	err := row.Scan(&e.ID, &e.Timestamp, &e.Message, &logType, &e.Source, &e.Device, &e.User, &severity)
	e.LogType = models.LogType(logType)
	e.Severity = models.Severity(severity)
	e.Timestamp = e.Timestamp.UTC()
	return e, err
}

func (s *PostgresStore) Clear(ctx context.Context) (int64, error) {
	ctx, cancel := s.timeouts.clear(ctx)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `DELETE FROM logs`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear logs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	ctx, cancel := s.timeouts.query(ctx)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Close closes the database connection pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
