package repository

import (
	"context"
	"fmt"
	"log"

	"github.com/amirphl/call-congress/models"
)

// CampaignRepositoryImpl implements CampaignRepository over the workbook snapshot
// with optional overrides layered on top
type CampaignRepositoryImpl struct {
	wb        *Workbook
	overrides CampaignOverrideCache
}

// NewCampaignRepository creates a campaign repository; overrides may be nil
func NewCampaignRepository(wb *Workbook, overrides CampaignOverrideCache) CampaignRepository {
	return &CampaignRepositoryImpl{wb: wb, overrides: overrides}
}

// ByID returns a fresh copy of the campaign merged with its override.
// An unreachable override cache degrades to the workbook campaign.
func (r *CampaignRepositoryImpl) ByID(ctx context.Context, id string) (*models.Campaign, error) {
	base, ok := r.wb.campaigns[id]
	if !ok {
		return nil, nil
	}
	if r.overrides == nil {
		return base.Clone(), nil
	}

	override, err := r.overrides.Get(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("failed to load campaign override %s: %w", id, err)
		}
		log.Printf(`{"level":"warn","msg":"campaign override lookup failed","campaign_id":%q,"error":%q}`, id, err.Error())
		return base.Clone(), nil
	}
	return override.Apply(&base), nil
}

// IDs lists all loaded campaign ids in sorted order
func (r *CampaignRepositoryImpl) IDs(ctx context.Context) []string {
	return sortedKeys(r.wb.campaigns)
}
