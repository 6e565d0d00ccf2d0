package organization

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"ctn/internal/organization/models"
	id "ctn/pkg/domain"
	"ctn/pkg/platform/sentinel"
)

// Postgres persists organizations in the organizations table.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed organization store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const orgColumns = `
	id, name, domain, authentication_tier, authentication_method,
	dns_verified_domain, dns_verification_initiated_at, dns_verified_at, dns_reverification_due,
	sso_asserted,
	entered_company_name, entered_registry_number, document_uploaded_at,
	extracted_company_name, extracted_registry_number,
	verification_status, mismatch_flags,
	created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, org *models.Organization) error {
	query := `
		INSERT INTO organizations (` + orgColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(org.ID), org.Name, org.Domain, org.Tier, string(org.Method),
		nullString(org.DNSVerifiedDomain), org.DNSVerificationInitiatedAt, org.DNSVerifiedAt, org.DNSReverificationDue,
		org.SSOAsserted,
		nullString(org.EnteredCompanyName), nullString(org.EnteredRegistryNumber), org.DocumentUploadedAt,
		nullString(org.ExtractedCompanyName), nullString(org.ExtractedRegistryNumber),
		string(org.VerificationStatus), pq.Array(org.MismatchFlags),
		org.CreatedAt, org.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert organization: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, orgID id.OrgID) (*models.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations WHERE id = $1`
	org, err := scanOrganization(s.db.QueryRowContext(ctx, query, uuid.UUID(orgID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find organization: %w", err)
	}
	return org, nil
}

func (s *Postgres) Update(ctx context.Context, org *models.Organization) error {
	query := `
		UPDATE organizations SET
			name = $2, domain = $3, authentication_tier = $4, authentication_method = $5,
			dns_verified_domain = $6, dns_verification_initiated_at = $7, dns_verified_at = $8, dns_reverification_due = $9,
			sso_asserted = $10,
			entered_company_name = $11, entered_registry_number = $12, document_uploaded_at = $13,
			extracted_company_name = $14, extracted_registry_number = $15,
			verification_status = $16, mismatch_flags = $17,
			updated_at = $18
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(org.ID), org.Name, org.Domain, org.Tier, string(org.Method),
		nullString(org.DNSVerifiedDomain), org.DNSVerificationInitiatedAt, org.DNSVerifiedAt, org.DNSReverificationDue,
		org.SSOAsserted,
		nullString(org.EnteredCompanyName), nullString(org.EnteredRegistryNumber), org.DocumentUploadedAt,
		nullString(org.ExtractedCompanyName), nullString(org.ExtractedRegistryNumber),
		string(org.VerificationStatus), pq.Array(org.MismatchFlags),
		org.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update organization: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update organization rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ListReverificationDue(ctx context.Context, now time.Time) ([]*models.Organization, error) {
	query := `
		SELECT ` + orgColumns + `
		FROM organizations
		WHERE authentication_tier = $1 AND dns_reverification_due IS NOT NULL AND dns_reverification_due <= $2
		ORDER BY dns_reverification_due
	`
	rows, err := s.db.QueryContext(ctx, query, models.TierDNS, now)
	if err != nil {
		return nil, fmt.Errorf("list organizations due for reverification: %w", err)
	}
	defer rows.Close()

	var orgs []*models.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrganization(row rowScanner) (*models.Organization, error) {
	var (
		org                             models.Organization
		orgID                           uuid.UUID
		method, status                  string
		dnsDomain, enteredName          sql.NullString
		enteredNumber, extractedName    sql.NullString
		extractedNumber                 sql.NullString
		initiatedAt, verifiedAt         sql.NullTime
		reverificationDue, uploadedAt   sql.NullTime
		flags                           pq.StringArray
	)
	err := row.Scan(
		&orgID, &org.Name, &org.Domain, &org.Tier, &method,
		&dnsDomain, &initiatedAt, &verifiedAt, &reverificationDue,
		&org.SSOAsserted,
		&enteredName, &enteredNumber, &uploadedAt,
		&extractedName, &extractedNumber,
		&status, &flags,
		&org.CreatedAt, &org.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	org.ID = id.OrgID(orgID)
	org.Method = models.AuthMethod(method)
	org.VerificationStatus = models.VerificationStatus(status)
	org.DNSVerifiedDomain = dnsDomain.String
	org.EnteredCompanyName = enteredName.String
	org.EnteredRegistryNumber = enteredNumber.String
	org.ExtractedCompanyName = extractedName.String
	org.ExtractedRegistryNumber = extractedNumber.String
	org.DNSVerificationInitiatedAt = timePtr(initiatedAt)
	org.DNSVerifiedAt = timePtr(verifiedAt)
	org.DNSReverificationDue = timePtr(reverificationDue)
	org.DocumentUploadedAt = timePtr(uploadedAt)
	org.MismatchFlags = []string(flags)
	return &org, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
