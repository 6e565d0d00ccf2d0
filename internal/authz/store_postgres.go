package authz

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "ctn/pkg/domain"
)

// Postgres persists the decision log in authorization_decision_log and
// queues relay work in authorization_decision_outbox. Both inserts happen in
// one transaction so a logged decision is always eventually streamed.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed decision log.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const decisionColumns = `
	log_id, organization_id, user_identifier,
	requested_resource, requested_action, required_tier, user_tier,
	result, denial_reason,
	client_ip, user_agent, user_agent_summary, request_path,
	created_at`

func (s *Postgres) Append(ctx context.Context, record *DecisionRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin decision tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO authorization_decision_log (` + decisionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = tx.ExecContext(ctx, query,
		record.LogID, orgIDValue(record.OrganizationID), record.UserIdentifier,
		record.RequestedResource, record.RequestedAction, record.RequiredTier, record.UserTier,
		string(record.Result), nullString(record.DenialReason),
		nullString(record.ClientIP), nullString(record.UserAgent), nullString(record.UserAgentSummary), nullString(record.RequestPath),
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert decision record: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO authorization_decision_outbox (log_id, queued_at) VALUES ($1, $2)`,
		record.LogID, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("queue decision for relay: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit decision tx: %w", err)
	}
	return nil
}

func (s *Postgres) ListByOrganization(ctx context.Context, orgID id.OrgID, limit int) ([]*DecisionRecord, error) {
	query := `
		SELECT ` + decisionColumns + `
		FROM authorization_decision_log
		WHERE organization_id = $1
		ORDER BY log_id DESC
		LIMIT $2
	`
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(orgID), limit)
	if err != nil {
		return nil, fmt.Errorf("list decision records: %w", err)
	}
	defer rows.Close()
	return scanDecisions(rows)
}

func (s *Postgres) NextUnrelayed(ctx context.Context, limit int) ([]*DecisionRecord, error) {
	query := `
		SELECT ` + decisionColumns + `
		FROM authorization_decision_log
		WHERE log_id IN (
			SELECT log_id FROM authorization_decision_outbox ORDER BY log_id LIMIT $1
		)
		ORDER BY log_id
	`
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch unrelayed decisions: %w", err)
	}
	defer rows.Close()
	return scanDecisions(rows)
}

func (s *Postgres) MarkRelayed(ctx context.Context, logIDs []string) error {
	if len(logIDs) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM authorization_decision_outbox WHERE log_id = ANY($1)`,
		pq.Array(logIDs),
	)
	if err != nil {
		return fmt.Errorf("mark decisions relayed: %w", err)
	}
	return nil
}

func scanDecisions(rows *sql.Rows) ([]*DecisionRecord, error) {
	var records []*DecisionRecord
	for rows.Next() {
		var (
			record       DecisionRecord
			orgID        uuid.NullUUID
			userTier     sql.NullInt64
			result       string
			denialReason sql.NullString
			clientIP     sql.NullString
			userAgent    sql.NullString
			uaSummary    sql.NullString
			requestPath  sql.NullString
		)
		err := rows.Scan(
			&record.LogID, &orgID, &record.UserIdentifier,
			&record.RequestedResource, &record.RequestedAction, &record.RequiredTier, &userTier,
			&result, &denialReason,
			&clientIP, &userAgent, &uaSummary, &requestPath,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan decision record: %w", err)
		}
		if orgID.Valid {
			v := id.OrgID(orgID.UUID)
			record.OrganizationID = &v
		}
		if userTier.Valid {
			v := int(userTier.Int64)
			record.UserTier = &v
		}
		record.Result = Result(result)
		record.DenialReason = denialReason.String
		record.ClientIP = clientIP.String
		record.UserAgent = userAgent.String
		record.UserAgentSummary = uaSummary.String
		record.RequestPath = requestPath.String
		records = append(records, &record)
	}
	return records, rows.Err()
}

func orgIDValue(orgID *id.OrgID) any {
	if orgID == nil {
		return nil
	}
	return uuid.UUID(*orgID)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
