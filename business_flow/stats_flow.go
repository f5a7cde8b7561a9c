package businessflow

import (
	"context"
	"crypto/subtle"

	"github.com/amirphl/call-congress/app/dto"
	"github.com/amirphl/call-congress/repository"
	"github.com/amirphl/call-congress/utils"
)

// StatsFlow serves the call-log aggregates
type StatsFlow interface {
	Count(ctx context.Context, campaignID string) (*dto.CountResponse, error)
	Stats(ctx context.Context, campaignID, password string) (*dto.StatsResponse, error)
}

// StatsFlowImpl implements StatsFlow
type StatsFlowImpl struct {
	callRepo  repository.CallRepository
	secretKey string
}

func NewStatsFlow(callRepo repository.CallRepository, secretKey string) StatsFlow {
	return &StatsFlowImpl{callRepo: callRepo, secretKey: secretKey}
}

func (s *StatsFlowImpl) Count(ctx context.Context, campaignID string) (*dto.CountResponse, error) {
	if campaignID == "" {
		campaignID = utils.DefaultCampaignID
	}
	count, err := s.callRepo.CountByCampaign(ctx, campaignID)
	if err != nil {
		return nil, NewBusinessError("CALL_COUNT_FAILED", "Failed to count calls", err)
	}
	return &dto.CountResponse{Campaign: campaignID, Count: count}, nil
}

// Stats requires the shared secret; an empty configured secret denies everyone
func (s *StatsFlowImpl) Stats(ctx context.Context, campaignID, password string) (*dto.StatsResponse, error) {
	if s.secretKey == "" || subtle.ConstantTimeCompare([]byte(password), []byte(s.secretKey)) != 1 {
		return nil, NewBusinessError("ACCESS_DENIED", "access denied", ErrAccessDenied)
	}
	if campaignID == "" {
		campaignID = utils.DefaultCampaignID
	}
	stats, err := s.callRepo.StatsByCampaign(ctx, campaignID)
	if err != nil {
		return nil, NewBusinessError("CALL_STATS_FAILED", "Failed to aggregate calls", err)
	}
	return &dto.StatsResponse{
		Campaign: campaignID,
		Total:    stats.Total,
		ByStatus: stats.ByStatus,
		ByMember: stats.ByMember,
	}, nil
}
