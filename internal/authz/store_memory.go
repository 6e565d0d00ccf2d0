package authz

import (
	"context"
	"slices"
	"sync"

	id "ctn/pkg/domain"
)

// InMemory is a slice-backed Store for tests and single-node development.
type InMemory struct {
	mu        sync.Mutex
	records   []*DecisionRecord
	unrelayed []string
}

// NewInMemory constructs an empty in-memory decision log.
func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Append(_ context.Context, record *DecisionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *record
	s.records = append(s.records, &clone)
	s.unrelayed = append(s.unrelayed, record.LogID)
	return nil
}

func (s *InMemory) ListByOrganization(_ context.Context, orgID id.OrgID, limit int) ([]*DecisionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*DecisionRecord
	// Newest first, matching the audit export order.
	for i := len(s.records) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		record := s.records[i]
		if record.OrganizationID != nil && *record.OrganizationID == orgID {
			clone := *record
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *InMemory) NextUnrelayed(_ context.Context, limit int) ([]*DecisionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*DecisionRecord
	for _, logID := range s.unrelayed {
		if limit > 0 && len(out) >= limit {
			break
		}
		for _, record := range s.records {
			if record.LogID == logID {
				clone := *record
				out = append(out, &clone)
				break
			}
		}
	}
	return out, nil
}

func (s *InMemory) MarkRelayed(_ context.Context, logIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unrelayed = slices.DeleteFunc(s.unrelayed, func(queued string) bool {
		return slices.Contains(logIDs, queued)
	})
	return nil
}
