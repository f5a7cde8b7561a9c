package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/call-congress/models"
	"gorm.io/gorm"
)

// CallRepositoryImpl implements CallRepository
type CallRepositoryImpl struct {
	*BaseRepository[models.Call, models.CallFilter]
}

func NewCallRepository(db *gorm.DB) CallRepository {
	return &CallRepositoryImpl{BaseRepository: NewBaseRepository[models.Call, models.CallFilter](db)}
}

func (r *CallRepositoryImpl) applyFilter(db *gorm.DB, f models.CallFilter) *gorm.DB {
	if f.CampaignID != nil {
		db = db.Where("campaign_id = ?", *f.CampaignID)
	}
	if f.MemberID != nil {
		db = db.Where("member_id = ?", *f.MemberID)
	}
	if f.Status != nil {
		db = db.Where("status = ?", *f.Status)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *CallRepositoryImpl) ByFilter(ctx context.Context, filter models.CallFilter, orderBy string, limit, offset int) ([]*models.Call, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Call{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.Call
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *CallRepositoryImpl) Count(ctx context.Context, filter models.CallFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Call{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *CallRepositoryImpl) Exists(ctx context.Context, filter models.CallFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

func (r *CallRepositoryImpl) CountByCampaign(ctx context.Context, campaignID string) (int64, error) {
	return r.Count(ctx, models.CallFilter{CampaignID: &campaignID})
}

type groupCount struct {
	GroupKey string
	Total    int64
}

func (r *CallRepositoryImpl) StatsByCampaign(ctx context.Context, campaignID string) (*models.CallStats, error) {
	db := r.getDB(ctx)

	var total int64
	if err := db.Model(&models.Call{}).Where("campaign_id = ?", campaignID).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count calls: %w", err)
	}

	var byStatus []groupCount
	if err := db.Model(&models.Call{}).
		Select("status AS group_key, COUNT(*) AS total").
		Where("campaign_id = ?", campaignID).
		Group("status").
		Scan(&byStatus).Error; err != nil {
		return nil, fmt.Errorf("failed to group calls by status: %w", err)
	}

	var byMember []groupCount
	if err := db.Model(&models.Call{}).
		Select("member_id AS group_key, COUNT(*) AS total").
		Where("campaign_id = ?", campaignID).
		Group("member_id").
		Scan(&byMember).Error; err != nil {
		return nil, fmt.Errorf("failed to group calls by member: %w", err)
	}

	stats := &models.CallStats{
		Total:    total,
		ByStatus: make(map[string]int64, len(byStatus)),
		ByMember: make(map[string]int64, len(byMember)),
	}
	for _, g := range byStatus {
		stats.ByStatus[g.GroupKey] = g.Total
	}
	for _, g := range byMember {
		stats.ByMember[g.GroupKey] = g.Total
	}
	return stats, nil
}

// CallStatusPingRepositoryImpl implements CallStatusPingRepository
type CallStatusPingRepositoryImpl struct {
	*BaseRepository[models.CallStatusPing, struct{}]
}

func NewCallStatusPingRepository(db *gorm.DB) CallStatusPingRepository {
	return &CallStatusPingRepositoryImpl{BaseRepository: NewBaseRepository[models.CallStatusPing, struct{}](db)}
}

func (r *CallStatusPingRepositoryImpl) ListByCampaign(ctx context.Context, campaignID string, limit, offset int) ([]*models.CallStatusPing, error) {
	query := r.getDB(ctx).Model(&models.CallStatusPing{}).Where("campaign_id = ?", campaignID).Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.CallStatusPing
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
