package models

import "strings"

// Chamber is the legislative body a legislator sits in
type Chamber string

const (
	ChamberSenate Chamber = "senate"
	ChamberHouse  Chamber = "house"
)

// ParseChamber normalizes workbook spellings ("sen", "Senate", "rep", ...)
func ParseChamber(s string) (Chamber, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "senate", "sen", "senator":
		return ChamberSenate, true
	case "house", "rep", "representative":
		return ChamberHouse, true
	default:
		return "", false
	}
}

// Legislator is a read-only roster entry
type Legislator struct {
	BioguideID string  `json:"bioguide_id"`
	FirstName  string  `json:"firstname"`
	LastName   string  `json:"lastname"`
	Phone      string  `json:"phone"`
	Chamber    Chamber `json:"chamber"`
	State      string  `json:"state"`
	District   string  `json:"district"`
	InOffice   bool    `json:"in_office"`
}

// FullName is "First Last"
func (l Legislator) FullName() string {
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

// LegislatorFilter provides filter fields for roster queries
type LegislatorFilter struct {
	BioguideID *string
	Chamber    *Chamber
	State      *string
	District   *string
	InOffice   *bool
}
