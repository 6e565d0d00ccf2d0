package authz

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/mssola/useragent"
	"github.com/oklog/ulid/v2"

	id "ctn/pkg/domain"
)

// Result of an authorization check.
type Result string

const (
	ResultGranted Result = "granted"
	ResultDenied  Result = "denied"
)

// DecisionRecord is one appended audit fact: exactly one per Authorize call,
// never mutated or deleted by this engine.
type DecisionRecord struct {
	LogID             string    `json:"log_id"`
	OrganizationID    *id.OrgID `json:"organization_id,omitempty"`
	UserIdentifier    string    `json:"user_identifier"`
	RequestedResource string    `json:"requested_resource"`
	RequestedAction   string    `json:"requested_action"`
	RequiredTier      int       `json:"required_tier"`
	UserTier          *int      `json:"user_tier,omitempty"`
	Result            Result    `json:"result"`
	DenialReason      string    `json:"denial_reason,omitempty"`

	ClientIP         string    `json:"client_ip,omitempty"`
	UserAgent        string    `json:"user_agent,omitempty"`
	UserAgentSummary string    `json:"user_agent_summary,omitempty"`
	RequestPath      string    `json:"request_path,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// newDecisionID returns a lexicographically sortable identifier so the
// append-only log stays ordered by insertion.
func newDecisionID(now time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), entropy).String()
}

// summarizeUserAgent condenses a raw User-Agent header into a short
// browser/OS label for the audit export. The raw value is stored alongside.
func summarizeUserAgent(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return raw
	}
	summary := name
	if version != "" {
		summary += " " + version
	}
	if os := ua.OS(); os != "" {
		summary += " on " + os
	}
	return summary
}
