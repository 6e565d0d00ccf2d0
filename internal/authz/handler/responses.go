package handler

import (
	"time"

	"ctn/internal/authz"
)

// DecisionResponse is the wire form of a rendered decision.
type DecisionResponse struct {
	Result       string `json:"result"`
	RequiredTier int    `json:"required_tier"`
	UserTier     *int   `json:"user_tier,omitempty"`
	DenialReason string `json:"denial_reason,omitempty"`
	LogID        string `json:"log_id,omitempty"`
}

// FromDecision maps a decision onto the wire form.
func FromDecision(d authz.Decision) DecisionResponse {
	return DecisionResponse{
		Result:       string(d.Result),
		RequiredTier: d.RequiredTier,
		UserTier:     d.UserTier,
		DenialReason: d.DenialReason,
		LogID:        d.LogID,
	}
}

// DecisionRecordResponse is the wire form of one audit entry.
type DecisionRecordResponse struct {
	LogID             string    `json:"log_id"`
	OrganizationID    string    `json:"organization_id,omitempty"`
	UserIdentifier    string    `json:"user_identifier,omitempty"`
	RequestedResource string    `json:"requested_resource"`
	RequestedAction   string    `json:"requested_action"`
	RequiredTier      int       `json:"required_tier"`
	UserTier          *int      `json:"user_tier,omitempty"`
	Result            string    `json:"result"`
	DenialReason      string    `json:"denial_reason,omitempty"`
	ClientIP          string    `json:"client_ip,omitempty"`
	UserAgentSummary  string    `json:"user_agent_summary,omitempty"`
	RequestPath       string    `json:"request_path,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// FromRecords maps audit entries onto the wire form, newest first.
func FromRecords(records []*authz.DecisionRecord) []DecisionRecordResponse {
	out := make([]DecisionRecordResponse, 0, len(records))
	for _, record := range records {
		resp := DecisionRecordResponse{
			LogID:             record.LogID,
			UserIdentifier:    record.UserIdentifier,
			RequestedResource: record.RequestedResource,
			RequestedAction:   record.RequestedAction,
			RequiredTier:      record.RequiredTier,
			UserTier:          record.UserTier,
			Result:            string(record.Result),
			DenialReason:      record.DenialReason,
			ClientIP:          record.ClientIP,
			UserAgentSummary:  record.UserAgentSummary,
			RequestPath:       record.RequestPath,
			CreatedAt:         record.CreatedAt,
		}
		if record.OrganizationID != nil {
			resp.OrganizationID = record.OrganizationID.String()
		}
		out = append(out, resp)
	}
	return out
}
