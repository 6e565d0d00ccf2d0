package authz

import (
	"context"

	id "ctn/pkg/domain"
)

// Store persists the append-only decision log.
//
// Append must be durable before Authorize returns: a failed append denies the
// request. Alongside the record, Append queues an outbox entry; the relay
// drains the queue to the event stream and marking is idempotent.
type Store interface {
	Append(ctx context.Context, record *DecisionRecord) error
	ListByOrganization(ctx context.Context, orgID id.OrgID, limit int) ([]*DecisionRecord, error)

	// NextUnrelayed returns queued decisions in log order, oldest first.
	NextUnrelayed(ctx context.Context, limit int) ([]*DecisionRecord, error)
	MarkRelayed(ctx context.Context, logIDs []string) error
}
