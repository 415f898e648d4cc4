// Package pgstore provides a PostgreSQL implementation of pipeline.Store.
package pgstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/alertbot/internal/pipeline"
	"github.com/linnemanlabs/alertbot/internal/postgres"
)

var tracer = otel.Tracer("github.com/linnemanlabs/alertbot/internal/pipeline/pgstore")

// uniqueViolation is the Postgres error code for a unique-constraint
// conflict, the benign "someone already inserted this" outcome.
const uniqueViolation = "23505"

//go:embed schema.sql
var schema string

// Store persists posted-alert records in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Store. The pool is owned by
// the caller.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// HasAlertID reports whether a record with this alert ID exists, at any age.
func (s *Store) HasAlertID(ctx context.Context, alertID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.HasAlertID", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()
	ctx = postgres.WithQueryOp(ctx, "has_alert_id")

	var found bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM mta_alerts WHERE alert_id = $1)`,
		alertID,
	).Scan(&found)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("lookup alert_id: %w", err)
	}
	return found, nil
}

// HasRecentText reports whether a record with this header translation
// exists with created_at inside the recency window.
func (s *Store) HasRecentText(ctx context.Context, headerTranslation string, window time.Duration) (bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.HasRecentText", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()
	ctx = postgres.WithQueryOp(ctx, "has_recent_text")

	cutoff := time.Now().UTC().Add(-window)
	var found bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM mta_alerts WHERE header_translation = $1 AND created_at >= $2)`,
		headerTranslation, cutoff,
	).Scan(&found)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("lookup header_translation: %w", err)
	}
	return found, nil
}

// Insert records a posted alert. A unique violation on alert_id returns
// (false, nil): an overlapping cycle won the race, which is not a fault.
func (s *Store) Insert(ctx context.Context, rec pipeline.Record) (bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Insert", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()
	ctx = postgres.WithQueryOp(ctx, "insert_alert")

	_, err := s.pool.Exec(ctx,
		`INSERT INTO mta_alerts (alert_id, header_translation, created_at) VALUES ($1, $2, $3)`,
		rec.AlertID, rec.HeaderTranslation, rec.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return false, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("insert alert: %w", err)
	}
	return true, nil
}

// PruneOlderThan deletes records with created_at strictly older than now
// minus the retention window.
func (s *Store) PruneOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	ctx, span := tracer.Start(ctx, "pgstore.PruneOlderThan", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "DELETE"),
	))
	defer span.End()
	ctx = postgres.WithQueryOp(ctx, "prune")

	cutoff := time.Now().UTC().Add(-retention)
	tag, err := s.pool.Exec(ctx, `DELETE FROM mta_alerts WHERE created_at < $1`, cutoff)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("prune alerts: %w", err)
	}
	return tag.RowsAffected(), nil
}
