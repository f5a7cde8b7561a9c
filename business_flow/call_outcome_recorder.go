package businessflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/amirphl/call-congress/models"
	"github.com/amirphl/call-congress/repository"
)

// LegOutcome is what the provider reports when a dialed leg ends
type LegOutcome struct {
	CallSid    string
	DialStatus string
	Duration   int
}

// StatusPing is one asynchronous placement status callback
type StatusPing struct {
	To         string
	CallStatus string
	CallSid    string
}

// CallOutcomeRecorder persists leg outcomes and status pings
type CallOutcomeRecorder interface {
	RecordLeg(ctx context.Context, params *CallParams, outcome LegOutcome) error
	RecordStatusPing(ctx context.Context, params *CallParams, ping StatusPing) error
}

// CallOutcomeRecorderImpl implements CallOutcomeRecorder over the call log repositories
type CallOutcomeRecorderImpl struct {
	callRepo repository.CallRepository
	pingRepo repository.CallStatusPingRepository
}

func NewCallOutcomeRecorder(callRepo repository.CallRepository, pingRepo repository.CallStatusPingRepository) CallOutcomeRecorder {
	return &CallOutcomeRecorderImpl{callRepo: callRepo, pingRepo: pingRepo}
}

// RecordLeg stores the leg addressed by params.CallIndex. The caller's number is
// kept only as a hash plus its area code and exchange.
func (r *CallOutcomeRecorderImpl) RecordLeg(ctx context.Context, params *CallParams, outcome LegOutcome) error {
	rep, err := params.Current()
	if err != nil {
		return err
	}
	areaCode, exchange := SplitPhone(params.UserPhone)
	status := models.ParseDialStatus(outcome.DialStatus)
	call := &models.Call{
		UUID:       uuid.New(),
		CampaignID: params.CampaignID,
		MemberID:   rep.String(),
		UserID:     HashPhone(params.UserPhone),
		AreaCode:   areaCode,
		Exchange:   exchange,
		CallID:     outcome.CallSid,
		Status:     status,
		Duration:   outcome.Duration,
	}
	if err := r.callRepo.Save(ctx, call); err != nil {
		return NewBusinessError("CALL_LOG_FAILED", "Failed to record call leg", err)
	}
	callLegsRecorded.WithLabelValues(string(status)).Inc()
	return nil
}

func (r *CallOutcomeRecorderImpl) RecordStatusPing(ctx context.Context, params *CallParams, ping StatusPing) error {
	row := &models.CallStatusPing{
		UUID:        uuid.New(),
		CampaignID:  params.CampaignID,
		RepIDs:      strings.Join(models.RepresentativeIDStrings(params.RepIDs), "\n"),
		PhoneNumber: ping.To,
		CallStatus:  ping.CallStatus,
		CallSid:     ping.CallSid,
	}
	if err := r.pingRepo.Save(ctx, row); err != nil {
		return NewBusinessError("CALL_STATUS_LOG_FAILED", "Failed to record call status", err)
	}
	return nil
}

// HashPhone returns a stable pseudonymous id for a phone number
func HashPhone(phone string) string {
	sum := sha256.Sum256([]byte(phoneDigits(phone)))
	return hex.EncodeToString(sum[:])
}

// SplitPhone returns the area code and exchange of a North American number
func SplitPhone(phone string) (areaCode, exchange string) {
	d := phoneDigits(phone)
	if len(d) < 10 {
		return "", ""
	}
	d = d[len(d)-10:]
	return d[0:3], d[3:6]
}

func phoneDigits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// parseDuration reads the provider's DialCallDuration seconds, defaulting to 0
func parseDuration(s string) int {
	var n int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &n); err != nil || n < 0 {
		return 0
	}
	return n
}
