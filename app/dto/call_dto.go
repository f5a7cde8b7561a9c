package dto

// CreateCallResponse is returned by /create
type CreateCallResponse struct {
	Message   string `json:"message"`
	DebugMode bool   `json:"debugMode"`
	// ProviderFailed is set when the provider accepted the request but reported the call failed
	ProviderFailed bool `json:"-"`
}

// CallStatusResponse echoes a placement status callback
type CallStatusResponse struct {
	PhoneNumber string   `json:"phoneNumber"`
	CallStatus  string   `json:"callStatus"`
	RepIDs      []string `json:"repIds"`
	CampaignID  string   `json:"campaignId"`
}

// CountResponse is returned by /count
type CountResponse struct {
	Campaign string `json:"campaign"`
	Count    int64  `json:"count"`
}

// StatsResponse is returned by /stats
type StatsResponse struct {
	Campaign string           `json:"campaign"`
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
	ByMember map[string]int64 `json:"by_member"`
}

// StatsErrorResponse is returned by /stats when the secret does not match
type StatsErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status    string   `json:"status"`
	Version   string   `json:"version"`
	Campaigns []string `json:"campaigns"`
}
