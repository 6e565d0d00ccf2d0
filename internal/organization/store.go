package organization

import (
	"context"
	"time"

	"ctn/internal/organization/models"
	id "ctn/pkg/domain"
)

// Store persists organization records. Implementations return
// pkg/platform/sentinel errors for infrastructure facts; the service
// translates them into domain errors.
type Store interface {
	Create(ctx context.Context, org *models.Organization) error
	FindByID(ctx context.Context, orgID id.OrgID) (*models.Organization, error)
	Update(ctx context.Context, org *models.Organization) error

	// ListReverificationDue returns tier-2 organizations whose DNS
	// reverification deadline is at or before now. Already-downgraded rows
	// fall out of the predicate, which is what makes the sweep idempotent
	// and safe to run from multiple instances.
	ListReverificationDue(ctx context.Context, now time.Time) ([]*models.Organization, error)
}
