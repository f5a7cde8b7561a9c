// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/amirphl/call-congress/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// CallRepository defines operations for the per-leg call log
type CallRepository interface {
	Repository[models.Call, models.CallFilter]
	CountByCampaign(ctx context.Context, campaignID string) (int64, error)
	StatsByCampaign(ctx context.Context, campaignID string) (*models.CallStats, error)
}

// CallStatusPingRepository defines operations for placement status callbacks
type CallStatusPingRepository interface {
	Save(ctx context.Context, entity *models.CallStatusPing) error
	ListByCampaign(ctx context.Context, campaignID string, limit, offset int) ([]*models.CallStatusPing, error)
}

// CampaignRepository resolves campaign configurations.
// ByID returns nil, nil when the campaign does not exist.
type CampaignRepository interface {
	ByID(ctx context.Context, id string) (*models.Campaign, error)
	IDs(ctx context.Context) []string
}

// LegislatorRepository reads the legislator roster
type LegislatorRepository interface {
	ByBioguideID(ctx context.Context, bioguideID string) (*models.Legislator, error)
	ByFilter(ctx context.Context, filter models.LegislatorFilter) ([]*models.Legislator, error)
}

// DistrictRepository reads the zip code to district table
type DistrictRepository interface {
	ByZipcode(ctx context.Context, zipcode string) ([]*models.District, error)
}

// CampaignOverrideCache returns externally synced campaign overrides.
// Get returns nil, nil when no override exists.
type CampaignOverrideCache interface {
	Get(ctx context.Context, campaignID string) (*models.CampaignOverride, error)
}
