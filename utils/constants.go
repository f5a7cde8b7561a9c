package utils

import (
	"time"
)

// Request context keys shared by handlers and flows
type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	UserAgentKey contextKey = "user_agent"
	IPAddressKey contextKey = "ip_address"
	EndpointKey  contextKey = "endpoint"
	TimeoutKey   contextKey = "timeout"
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Call flow constants
const (
	// DefaultCampaignID is used when a webhook carries no campaignId
	DefaultCampaignID = "default"

	// ZipcodeDigits is the number of digits gathered for a zip code
	ZipcodeDigits = 5

	// ConfirmDigits is the number of digits gathered to confirm a connection
	ConfirmDigits = 1

	// ConfirmGatherTimeoutSeconds is how long the caller has to confirm
	ConfirmGatherTimeoutSeconds = 10

	// SpecialCallPrefix marks an inline destination inside a repIds slot
	SpecialCallPrefix = "SPECIAL_CALL_"
)

// Reporting cache constants
const (
	// ReportCacheTTL is how long /count and /stats responses are cached
	ReportCacheTTL = 60 * time.Second
)

// Webhook routes of the call flow
const (
	PathIncomingCall       = "/incoming_call"
	PathCreate             = "/create"
	PathConnection         = "/connection"
	PathZipParse           = "/zip_parse"
	PathMakeCalls          = "/make_calls"
	PathMakeSingleCall     = "/make_single_call"
	PathCallComplete       = "/call_complete"
	PathCallCompleteStatus = "/call_complete_status"
	PathCount              = "/count"
	PathStats              = "/stats"
)
