package dnsverify

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "ctn/pkg/domain"
	"ctn/pkg/platform/sentinel"
)

// Postgres persists tokens in the domain_verification_tokens table. The
// pending-uniqueness invariant is the partial unique index on
// (organization_id, domain) WHERE status = 'pending'.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed token store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const tokenColumns = `
	token_id, organization_id, domain, token, record_name, status,
	verification_attempts, resolver_failures, last_verification_attempt,
	created_at, expires_at, verified_at`

func (s *Postgres) CreateIfNoneActive(ctx context.Context, token *Token) error {
	query := `
		INSERT INTO domain_verification_tokens (` + tokenColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(token.ID), uuid.UUID(token.OrgID), token.Domain, token.Token, token.RecordName, string(token.Status),
		token.VerificationAttempts, token.ResolverFailures, token.LastVerificationAttempt,
		token.CreatedAt, token.ExpiresAt, token.VerifiedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert verification token: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, tokenID id.TokenID) (*Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM domain_verification_tokens WHERE token_id = $1`
	token, err := scanToken(s.db.QueryRowContext(ctx, query, uuid.UUID(tokenID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find verification token: %w", err)
	}
	return token, nil
}

func (s *Postgres) FindActive(ctx context.Context, orgID id.OrgID, domain string) (*Token, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM domain_verification_tokens
		WHERE organization_id = $1 AND lower(domain) = lower($2) AND status = $3
	`
	token, err := scanToken(s.db.QueryRowContext(ctx, query, uuid.UUID(orgID), domain, string(StatusPending)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find active verification token: %w", err)
	}
	return token, nil
}

func (s *Postgres) RecordAttempt(ctx context.Context, tokenID id.TokenID, at time.Time) error {
	query := `
		UPDATE domain_verification_tokens
		SET verification_attempts = verification_attempts + 1,
		    last_verification_attempt = $2
		WHERE token_id = $1
	`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(tokenID), at)
	if err != nil {
		return fmt.Errorf("record verification attempt: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record verification attempt rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ApplyAttemptOutcome(ctx context.Context, tokenID id.TokenID, outcome AttemptOutcome) (*Token, error) {
	// The status = 'pending' predicate is the optimistic check: if another
	// attempt already transitioned the token, zero rows update and the
	// current row is returned with ErrTerminal.
	query := `
		UPDATE domain_verification_tokens
		SET status = $2, resolver_failures = $3, verified_at = $4
		WHERE token_id = $1 AND status = $5
		RETURNING ` + tokenColumns
	token, err := scanToken(s.db.QueryRowContext(ctx, query,
		uuid.UUID(tokenID), string(outcome.Status), outcome.ResolverFailures, outcome.VerifiedAt, string(StatusPending),
	))
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("apply attempt outcome: %w", err)
	}

	current, findErr := s.FindByID(ctx, tokenID)
	if findErr != nil {
		return nil, findErr
	}
	return current, sentinel.ErrTerminal
}

func (s *Postgres) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		DELETE FROM domain_verification_tokens
		WHERE status IN ($1, $2, $3) AND created_at < $4
	`
	res, err := s.db.ExecContext(ctx, query,
		string(StatusVerified), string(StatusExpired), string(StatusFailed), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("delete terminal tokens: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete terminal tokens rows affected: %w", err)
	}
	return int(affected), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanToken(row rowScanner) (*Token, error) {
	var (
		token          Token
		tokenID, orgID uuid.UUID
		status         string
		lastAttempt    sql.NullTime
		verifiedAt     sql.NullTime
	)
	err := row.Scan(
		&tokenID, &orgID, &token.Domain, &token.Token, &token.RecordName, &status,
		&token.VerificationAttempts, &token.ResolverFailures, &lastAttempt,
		&token.CreatedAt, &token.ExpiresAt, &verifiedAt,
	)
	if err != nil {
		return nil, err
	}
	token.ID = id.TokenID(tokenID)
	token.OrgID = id.OrgID(orgID)
	token.Status = Status(status)
	if lastAttempt.Valid {
		at := lastAttempt.Time
		token.LastVerificationAttempt = &at
	}
	if verifiedAt.Valid {
		at := verifiedAt.Time
		token.VerifiedAt = &at
	}
	return &token, nil
}
