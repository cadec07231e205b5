package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/referrals/pkg/pagination"
	"github.com/JaimeStill/referrals/pkg/repository"
)

const (
	insertRecord = `
		INSERT INTO audit_records
			(run_id, input_ref, identity, outcome, resource_id, failure, started_at, sealed_at, digest)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (run_id) DO NOTHING`

	insertAttempt = `
		INSERT INTO audit_attempts
			(run_id, number, stage, candidate, validation, error, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	selectRecord = `
		SELECT run_id, input_ref, identity, outcome, resource_id, failure, started_at, sealed_at, digest
		FROM audit_records
		WHERE run_id = $1`

	selectAttempts = `
		SELECT number, stage, candidate, validation, error, recorded_at
		FROM audit_attempts
		WHERE run_id = $1
		ORDER BY number`

	countRecords = `SELECT count(*) FROM audit_records`

	selectSummaries = `
		SELECT r.run_id, r.input_ref, r.outcome, r.resource_id, r.started_at, r.sealed_at,
			(SELECT count(*) FROM audit_attempts a WHERE a.run_id = r.run_id)
		FROM audit_records r
		ORDER BY r.started_at DESC
		LIMIT $1 OFFSET $2`
)

var (
	// An insert that hits ON CONFLICT DO NOTHING affects no rows.
	insertErrors = repository.Sentinels{NotFound: ErrDuplicate, Duplicate: ErrDuplicate}
	findErrors   = repository.Sentinels{NotFound: ErrNotFound}
)

type postgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore returns a Store over the audit_records and audit_attempts
// tables. Each record is written in a single transaction.
func NewPostgresStore(db *sql.DB, logger *slog.Logger) Store {
	return &postgresStore{
		db:     db,
		logger: logger.With("system", "audit", "backend", "postgres"),
	}
}

func (p *postgresStore) Append(ctx context.Context, r *Record) error {
	if err := checkAppend(r); err != nil {
		return err
	}

	identity, err := nullableJSON(r.Identity)
	if err != nil {
		return err
	}
	failure, err := nullableJSON(r.Failure)
	if err != nil {
		return err
	}

	_, err = repository.WithTx(ctx, p.db, func(tx *sql.Tx) (struct{}, error) {
		err := repository.ExecExpectOne(
			ctx, tx, insertRecord,
			r.RunID, r.InputRef, identity, string(r.Outcome), r.ResourceID,
			failure, r.StartedAt, *r.SealedAt, r.Digest,
		)
		if err != nil {
			return struct{}{}, insertErrors.Map(err)
		}

		for _, a := range r.Attempts {
			validation, err := nullableJSON(a.Validation)
			if err != nil {
				return struct{}{}, err
			}
			var candidate any
			if len(a.Candidate) > 0 {
				candidate = []byte(a.Candidate)
			}

			_, err = tx.ExecContext(
				ctx, insertAttempt,
				r.RunID, a.Number, a.Stage, candidate, validation, a.Error, a.RecordedAt,
			)
			if err != nil {
				return struct{}{}, fmt.Errorf("insert attempt %d: %w", a.Number, err)
			}
		}

		return struct{}{}, nil
	})
	if err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "record appended", "run_id", r.RunID, "outcome", r.Outcome)
	return nil
}

func (p *postgresStore) Find(ctx context.Context, runID uuid.UUID) (*Record, error) {
	r, err := repository.QueryOne(ctx, p.db, selectRecord, []any{runID}, scanRecord)
	if err != nil {
		return nil, findErrors.Map(err)
	}

	attempts, err := repository.QueryMany(ctx, p.db, selectAttempts, []any{runID}, scanAttempt)
	if err != nil {
		return nil, fmt.Errorf("load attempts: %w", err)
	}
	r.Attempts = attempts

	return r, nil
}

func (p *postgresStore) List(ctx context.Context, page pagination.PageRequest) (pagination.PageResult[Summary], error) {
	total, err := repository.QueryCount(ctx, p.db, countRecords)
	if err != nil {
		return pagination.PageResult[Summary]{}, fmt.Errorf("count records: %w", err)
	}

	items, err := repository.QueryMany(
		ctx, p.db, selectSummaries,
		[]any{page.PageSize, page.Offset()},
		scanSummary,
	)
	if err != nil {
		return pagination.PageResult[Summary]{}, fmt.Errorf("list records: %w", err)
	}

	return pagination.NewPageResult(items, total, page), nil
}

func scanRecord(s repository.Scanner) (*Record, error) {
	var (
		r          Record
		outcome    string
		identity   []byte
		failure    []byte
		resourceID sql.NullString
		sealedAt   time.Time
	)

	err := s.Scan(
		&r.RunID, &r.InputRef, &identity, &outcome, &resourceID,
		&failure, &r.StartedAt, &sealedAt, &r.Digest,
	)
	if err != nil {
		return nil, err
	}

	r.Outcome = Outcome(outcome)
	r.StartedAt = Timestamp(r.StartedAt)
	sealedAt = Timestamp(sealedAt)
	r.SealedAt = &sealedAt
	if resourceID.Valid {
		r.ResourceID = &resourceID.String
	}
	if err := decodeNullable(identity, &r.Identity); err != nil {
		return nil, fmt.Errorf("decode identity: %w", err)
	}
	if err := decodeNullable(failure, &r.Failure); err != nil {
		return nil, fmt.Errorf("decode failure: %w", err)
	}
	r.Attempts = []Attempt{}

	return &r, nil
}

func scanAttempt(s repository.Scanner) (Attempt, error) {
	var (
		a          Attempt
		candidate  []byte
		validation []byte
	)

	if err := s.Scan(&a.Number, &a.Stage, &candidate, &validation, &a.Error, &a.RecordedAt); err != nil {
		return a, err
	}

	a.RecordedAt = Timestamp(a.RecordedAt)
	if len(candidate) > 0 {
		a.Candidate = json.RawMessage(candidate)
	}
	if err := decodeNullable(validation, &a.Validation); err != nil {
		return a, fmt.Errorf("decode validation: %w", err)
	}

	return a, nil
}

func scanSummary(s repository.Scanner) (Summary, error) {
	var (
		sum        Summary
		outcome    string
		resourceID sql.NullString
		sealedAt   time.Time
	)

	err := s.Scan(&sum.RunID, &sum.InputRef, &outcome, &resourceID, &sum.StartedAt, &sealedAt, &sum.Attempts)
	if err != nil {
		return sum, err
	}

	sum.Outcome = Outcome(outcome)
	sum.StartedAt = Timestamp(sum.StartedAt)
	sealedAt = Timestamp(sealedAt)
	sum.SealedAt = &sealedAt
	if resourceID.Valid {
		sum.ResourceID = &resourceID.String
	}

	return sum, nil
}

func nullableJSON[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return data, nil
}

func decodeNullable[T any](data []byte, dst **T) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*dst = &v
	return nil
}
