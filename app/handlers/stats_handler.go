package handlers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/amirphl/call-congress/app/dto"
	businessflow "github.com/amirphl/call-congress/business_flow"
	"github.com/amirphl/call-congress/repository"
	"github.com/amirphl/call-congress/utils"
)

// StatsHandlerInterface defines the reporting endpoints
type StatsHandlerInterface interface {
	Count(c fiber.Ctx) error
	Stats(c fiber.Ctx) error
	Health(c fiber.Ctx) error
}

// StatsHandler implements StatsHandlerInterface
type StatsHandler struct {
	flow      businessflow.StatsFlow
	campaigns repository.CampaignRepository
	version   string
	ttl       time.Duration
	timeout   time.Duration
}

func NewStatsHandler(flow businessflow.StatsFlow, campaigns repository.CampaignRepository, version string, ttl, timeout time.Duration) StatsHandlerInterface {
	if ttl <= 0 {
		ttl = utils.ReportCacheTTL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &StatsHandler{flow: flow, campaigns: campaigns, version: version, ttl: ttl, timeout: timeout}
}

// Count returns the number of recorded legs for a campaign
// @Router /count [get]
func (h *StatsHandler) Count(c fiber.Ctx) error {
	ctx, cancel := createRequestContextWithTimeout(c, utils.PathCount, h.timeout)
	defer cancel()

	result, err := h.flow.Count(ctx, c.Query("campaign"))
	if err != nil {
		log.Println("Count failed", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
			Success: false,
			Message: "Failed to count calls",
			Error:   dto.ErrorDetail{Code: errorCode(err, "INTERNAL_ERROR")},
		})
	}

	c.Set(fiber.HeaderExpires, utils.HTTPDate(utils.UTCNowAdd(h.ttl)))
	return c.Status(fiber.StatusOK).JSON(result)
}

// Stats returns grouped call-log aggregates behind the shared secret
// @Router /stats [get]
func (h *StatsHandler) Stats(c fiber.Ctx) error {
	ctx, cancel := createRequestContextWithTimeout(c, utils.PathStats, h.timeout)
	defer cancel()

	result, err := h.flow.Stats(ctx, c.Query("campaign"), c.Query("password"))
	if err != nil {
		if businessflow.IsAccessDenied(err) {
			return c.Status(fiber.StatusOK).JSON(dto.StatsErrorResponse{Error: "access denied"})
		}
		log.Println("Stats failed", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
			Success: false,
			Message: "Failed to aggregate calls",
			Error:   dto.ErrorDetail{Code: errorCode(err, "INTERNAL_ERROR")},
		})
	}

	c.Set(fiber.HeaderExpires, utils.HTTPDate(utils.UTCNowAdd(h.ttl)))
	return c.Status(fiber.StatusOK).JSON(result)
}

// Health reports liveness and the loaded campaigns
// @Router /api/v1/health [get]
func (h *StatsHandler) Health(c fiber.Ctx) error {
	ctx, cancel := createRequestContextWithTimeout(c, "/api/v1/health", h.timeout)
	defer cancel()

	return c.Status(fiber.StatusOK).JSON(dto.HealthResponse{
		Status:    "ok",
		Version:   h.version,
		Campaigns: h.campaigns.IDs(ctx),
	})
}
