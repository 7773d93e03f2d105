package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "embed"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/PACSamericana/poly/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// PostgresStore keeps reports as JSONB rows keyed by UUID
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects, verifies the connection and applies the schema
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := NewPostgresStore(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an existing connection. The caller owns migration.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the reports table if it does not exist
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", describe(err))
	}
	return nil
}

// Save inserts the report under a new UUID
func (s *PostgresStore) Save(ctx context.Context, report *model.Report) (string, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	var accession sql.NullString
	if report.Study != nil && report.Study.AccessionNumber != "" {
		accession = sql.NullString{String: report.Study.AccessionNumber, Valid: true}
	}

	id := uuid.New()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (id, study_type, accession_number, report)
         VALUES ($1, $2, $3, $4)`,
		id, report.StudyType, accession, data,
	)
	if err != nil {
		return "", fmt.Errorf("insert report: %w", describe(err))
	}
	return id.String(), nil
}

// Load fetches a report by id
func (s *PostgresStore) Load(ctx context.Context, id string) (*model.Report, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var data []byte
	err = s.db.QueryRowContext(ctx, `SELECT report FROM reports WHERE id = $1`, uid).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select report: %w", describe(err))
	}

	var report model.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", id, err)
	}
	return &report, nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// describe adds the SQLSTATE code to server-side errors
func describe(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%w (sqlstate %s)", err, pqErr.Code)
	}
	return err
}
