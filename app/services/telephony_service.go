// Package services provides external service integrations such as the telephony provider
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/amirphl/call-congress/config"
	"github.com/amirphl/call-congress/utils"
)

// Provider call statuses relevant to placement
const (
	CallStatusQueued = "queued"
	CallStatusFailed = "failed"
)

// TelephonyService places outbound calls
type TelephonyService interface {
	PlaceCall(ctx context.Context, req PlaceCallRequest) (*PlaceCallResult, error)
}

// PlaceCallRequest describes one outbound call. URL receives the answered call,
// StatusCallback receives status pings.
type PlaceCallRequest struct {
	To             string
	From           string
	URL            string
	StatusCallback string
	TimeLimit      time.Duration
	Timeout        time.Duration
	// HumanCheck turns on machine detection; the answer URL receives AnsweredBy
	HumanCheck bool
}

// PlaceCallResult is the provider's answer for an accepted call
type PlaceCallResult struct {
	Sid    string
	Status string
}

// Failed reports whether the provider accepted the request but marked the call failed
func (r *PlaceCallResult) Failed() bool {
	return r != nil && r.Status == CallStatusFailed
}

// ProviderRejectedError is returned when the provider refuses the request itself
// (invalid number, unverified caller id, ...)
type ProviderRejectedError struct {
	Code    int
	Status  int
	Message string
}

func (e *ProviderRejectedError) Error() string {
	return fmt.Sprintf("provider rejected call (code %d): %s", e.Code, e.Message)
}

// Sanitized returns the part of the provider message safe to show callers:
// the first colon-delimited segment, trimmed. twilio-go messages carry no
// client prefix, so the leading segment is the provider's own text.
func (e *ProviderRejectedError) Sanitized() string {
	msg := e.Message
	if i := strings.Index(msg, ":"); i >= 0 {
		msg = msg[:i]
	}
	return strings.TrimSpace(msg)
}

// IsProviderRejected unwraps a ProviderRejectedError
func IsProviderRejected(err error) (*ProviderRejectedError, bool) {
	var pre *ProviderRejectedError
	if errors.As(err, &pre) {
		return pre, true
	}
	return nil, false
}

// callCreator is the slice of the twilio REST API we use
type callCreator interface {
	CreateCall(params *twilioApi.CreateCallParams) (*twilioApi.ApiV2010Call, error)
}

// TwilioTelephonyService implements TelephonyService over the twilio REST API
type TwilioTelephonyService struct {
	api callCreator
}

// NewTwilioTelephonyService creates a twilio backed telephony service
func NewTwilioTelephonyService(cfg *config.TwilioConfig) TelephonyService {
	rc := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioTelephonyService{api: rc.Api}
}

// NewTelephonyService picks the backend named in config
func NewTelephonyService(cfg *config.TwilioConfig) TelephonyService {
	if cfg.Provider == "mock" {
		return NewMockTelephonyService()
	}
	return NewTwilioTelephonyService(cfg)
}

// PlaceCall creates the call. There is no retry; any failure surfaces immediately.
func (s *TwilioTelephonyService) PlaceCall(ctx context.Context, req PlaceCallRequest) (*PlaceCallResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	params := &twilioApi.CreateCallParams{}
	params.SetTo(req.To)
	params.SetFrom(req.From)
	params.SetUrl(req.URL)
	if req.StatusCallback != "" {
		params.SetStatusCallback(req.StatusCallback)
	}
	if req.TimeLimit > 0 {
		params.SetTimeLimit(int(req.TimeLimit / time.Second))
	}
	if req.Timeout > 0 {
		params.SetTimeout(int(req.Timeout / time.Second))
	}
	if req.HumanCheck {
		params.SetMachineDetection("Enable")
	}

	call, err := s.api.CreateCall(params)
	if err != nil {
		var restErr *twclient.TwilioRestError
		if errors.As(err, &restErr) && restErr.Status >= 400 && restErr.Status < 500 {
			return nil, &ProviderRejectedError{Code: restErr.Code, Status: restErr.Status, Message: restErr.Message}
		}
		return nil, fmt.Errorf("failed to place call: %w", err)
	}

	result := &PlaceCallResult{}
	if call.Sid != nil {
		result.Sid = *call.Sid
	}
	if call.Status != nil {
		result.Status = *call.Status
	}
	return result, nil
}

// MockTelephonyService implements TelephonyService for testing and local runs
type MockTelephonyService struct {
	mu sync.Mutex

	PlacedCalls []MockPlacedCall
	// NextStatus is returned as the status of the next placed calls; defaults to queued
	NextStatus string
	// NextError, when set, is returned instead of placing a call
	NextError error
}

// MockPlacedCall represents a mock placed call
type MockPlacedCall struct {
	Request  PlaceCallRequest
	PlacedAt time.Time
}

// NewMockTelephonyService creates a new mock telephony service
func NewMockTelephonyService() *MockTelephonyService {
	return &MockTelephonyService{
		PlacedCalls: make([]MockPlacedCall, 0),
	}
}

func (m *MockTelephonyService) PlaceCall(ctx context.Context, req PlaceCallRequest) (*PlaceCallResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.NextError != nil {
		return nil, m.NextError
	}
	m.PlacedCalls = append(m.PlacedCalls, MockPlacedCall{Request: req, PlacedAt: utils.UTCNow()})
	log.Printf("Mock call placed: to=%s from=%s url=%s", req.To, req.From, req.URL)

	status := m.NextStatus
	if status == "" {
		status = CallStatusQueued
	}
	return &PlaceCallResult{Sid: fmt.Sprintf("CAmock%04d", len(m.PlacedCalls)), Status: status}, nil
}

// GetPlacedCalls returns all placed mock calls
func (m *MockTelephonyService) GetPlacedCalls() []MockPlacedCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockPlacedCall, len(m.PlacedCalls))
	copy(out, m.PlacedCalls)
	return out
}

// ClearPlacedCalls clears the placed calls list
func (m *MockTelephonyService) ClearPlacedCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PlacedCalls = make([]MockPlacedCall, 0)
}
