package organization

import (
	"context"
	"sync"
	"time"

	"ctn/internal/organization/models"
	id "ctn/pkg/domain"
	"ctn/pkg/platform/sentinel"
)

// InMemory is a map-backed Store for tests and single-node development.
type InMemory struct {
	mu   sync.RWMutex
	orgs map[id.OrgID]*models.Organization
}

// NewInMemory constructs an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{orgs: make(map[id.OrgID]*models.Organization)}
}

func (s *InMemory) Create(_ context.Context, org *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[org.ID]; ok {
		return sentinel.ErrConflict
	}
	s.orgs[org.ID] = cloneOrg(org)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, orgID id.OrgID) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.orgs[orgID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneOrg(org), nil
}

func (s *InMemory) Update(_ context.Context, org *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[org.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.orgs[org.ID] = cloneOrg(org)
	return nil
}

func (s *InMemory) ListReverificationDue(_ context.Context, now time.Time) ([]*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var due []*models.Organization
	for _, org := range s.orgs {
		if org.Tier != models.TierDNS || org.DNSReverificationDue == nil {
			continue
		}
		if !org.DNSReverificationDue.After(now) {
			due = append(due, cloneOrg(org))
		}
	}
	return due, nil
}

// cloneOrg keeps callers from mutating stored state through shared pointers.
func cloneOrg(org *models.Organization) *models.Organization {
	c := *org
	if org.MismatchFlags != nil {
		c.MismatchFlags = append([]string(nil), org.MismatchFlags...)
	}
	copyTime := func(t *time.Time) *time.Time {
		if t == nil {
			return nil
		}
		v := *t
		return &v
	}
	c.DNSVerificationInitiatedAt = copyTime(org.DNSVerificationInitiatedAt)
	c.DNSVerifiedAt = copyTime(org.DNSVerifiedAt)
	c.DNSReverificationDue = copyTime(org.DNSReverificationDue)
	c.DocumentUploadedAt = copyTime(org.DocumentUploadedAt)
	return &c
}
