package models

import (
	"time"

	"github.com/google/uuid"
)

// DialStatus enumerates the provider's DialCallStatus values for a completed leg
type DialStatus string

const (
	DialStatusCompleted DialStatus = "completed"
	DialStatusBusy      DialStatus = "busy"
	DialStatusNoAnswer  DialStatus = "no-answer"
	DialStatusFailed    DialStatus = "failed"
	DialStatusCanceled  DialStatus = "canceled"
	DialStatusUnknown   DialStatus = "unknown"
)

// ParseDialStatus maps a provider value onto a known status
func ParseDialStatus(s string) DialStatus {
	switch DialStatus(s) {
	case DialStatusCompleted, DialStatusBusy, DialStatusNoAnswer, DialStatusFailed, DialStatusCanceled:
		return DialStatus(s)
	default:
		return DialStatusUnknown
	}
}

// Call records one completed leg of an outreach call
type Call struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UUID       uuid.UUID  `gorm:"type:uuid;uniqueIndex:idx_calls_uuid;not null" json:"uuid"`
	CampaignID string     `gorm:"size:128;not null;index:idx_calls_campaign_id" json:"campaign_id"`
	MemberID   string     `gorm:"size:512;not null;index:idx_calls_member_id" json:"member_id"`
	UserID     string     `gorm:"size:64;not null;index:idx_calls_user_id" json:"user_id"`
	AreaCode   string     `gorm:"size:3" json:"areacode"`
	Exchange   string     `gorm:"size:3" json:"exchange"`
	CallID     string     `gorm:"size:64;index:idx_calls_call_id" json:"call_id"`
	Status     DialStatus `gorm:"size:32;not null;index:idx_calls_status" json:"status"`
	Duration   int        `gorm:"default:0" json:"duration"`
	CreatedAt  time.Time  `gorm:"autoCreateTime;index:idx_calls_created_at" json:"created_at"`
}

func (Call) TableName() string { return "calls" }

// CallFilter provides filter fields for repository queries
type CallFilter struct {
	CampaignID    *string
	MemberID      *string
	Status        *DialStatus
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// CallStatusPing records one status callback for a placed call
type CallStatusPing struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UUID        uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_call_status_pings_uuid;not null" json:"uuid"`
	CampaignID  string    `gorm:"size:128;index:idx_call_status_pings_campaign_id" json:"campaign_id"`
	RepIDs      string    `gorm:"type:text" json:"rep_ids"`
	PhoneNumber string    `gorm:"size:32" json:"phone_number"`
	CallStatus  string    `gorm:"size:32;index:idx_call_status_pings_call_status" json:"call_status"`
	CallSid     string    `gorm:"size:64" json:"call_sid"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (CallStatusPing) TableName() string { return "call_status_pings" }

// CallStats aggregates logged legs for a campaign
type CallStats struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
	ByMember map[string]int64 `json:"by_member"`
}
