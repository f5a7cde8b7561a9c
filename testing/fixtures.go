package testing

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/amirphl/call-congress/models"
	"github.com/amirphl/call-congress/repository"
	"github.com/amirphl/call-congress/utils"
)

// Fixture phone numbers and ids shared across package tests
const (
	FixtureCampaignNumber = "+15005550006"
	FixtureSpecialNumber  = "+15555550100"
	FixtureUserPhone      = "+14155551234"

	FixtureZipCA = "94110"
	FixtureZipNY = "10001"
	// FixtureZipSplit spans two CA house districts
	FixtureZipSplit = "94000"
	FixtureZipNone  = "99999"
)

// FixtureMessages returns a complete message set
func FixtureMessages() models.CampaignMessages {
	return models.CampaignMessages{
		Intro:             "Welcome to the campaign.",
		IntroConfirm:      "Press star to start.",
		AskZip:            "Please enter your five digit zip code.",
		InvalidZip:        "Sorry, that zip code did not work.",
		RepIntro:          "You are now being connected to {{name}}.",
		RepIntroVotedWith: "{{name}} voted with us. Please thank them.",
		SpecialCallIntro:  "Connecting you to {{name}}.",
		CallBlockIntro:    "We will connect you to {{n_reps}} offices.",
		BetweenThanks:     "Thank you. Connecting you to the next office.",
		FinalThanks:       "Thank you for calling.",
	}
}

// FixtureSpecialToken is a special call token for FixtureSpecialNumber
func FixtureSpecialToken() string {
	return models.SpecialRepresentativeID(FixtureSpecialNumber, "The Governor").String()
}

// FixtureCampaigns returns the default campaign plus variants exercising each campaign option.
// Only the default carries messages; the rest inherit them.
func FixtureCampaigns() []models.Campaign {
	return []models.Campaign{
		{
			ID:       utils.DefaultCampaignID,
			Messages: FixtureMessages(),
			Numbers:  []string{FixtureCampaignNumber},
		},
		{
			ID:           "senate",
			Numbers:      []string{FixtureCampaignNumber},
			TargetSenate: true,
		},
		{
			ID:               "house-first",
			Numbers:          []string{FixtureCampaignNumber},
			TargetHouseFirst: true,
			ExtraLastCalls:   []string{FixtureSpecialToken()},
		},
		{
			ID:              "fixed",
			Numbers:         []string{FixtureCampaignNumber},
			RepIDs:          []string{"S000001", FixtureSpecialToken()},
			SkipStarConfirm: true,
		},
		{
			ID:           "random",
			Numbers:      []string{FixtureCampaignNumber},
			RandomChoice: []string{"S000001", "S000002"},
		},
		{
			ID:            "voted",
			Numbers:       []string{FixtureCampaignNumber},
			VotedWithList: []string{"S000001"},
		},
		{
			ID:             "screened",
			Numbers:        []string{FixtureCampaignNumber},
			CallHumanCheck: true,
		},
		{
			ID:      "no-numbers",
			Numbers: nil,
		},
	}
}

// FixtureLegislators returns a small CA and NY roster
func FixtureLegislators() []models.Legislator {
	return []models.Legislator{
		{BioguideID: "S000001", FirstName: "Alice", LastName: "Adams", Phone: "+12025550101", Chamber: models.ChamberSenate, State: "CA", InOffice: true},
		{BioguideID: "S000002", FirstName: "Bob", LastName: "Baker", Phone: "+12025550102", Chamber: models.ChamberSenate, State: "CA", InOffice: true},
		{BioguideID: "H000012", FirstName: "Carol", LastName: "Chen", Phone: "+12025550112", Chamber: models.ChamberHouse, State: "CA", District: "12", InOffice: true},
		{BioguideID: "H000002", FirstName: "Dan", LastName: "Diaz", Phone: "+12025550122", Chamber: models.ChamberHouse, State: "CA", District: "2", InOffice: true},
		{BioguideID: "N000001", FirstName: "Erin", LastName: "Evans", Phone: "+12025550201", Chamber: models.ChamberSenate, State: "NY", InOffice: true},
		{BioguideID: "N000002", FirstName: "Frank", LastName: "Fox", Phone: "+12025550202", Chamber: models.ChamberSenate, State: "NY", InOffice: true},
		{BioguideID: "H000010", FirstName: "Gina", LastName: "Grant", Phone: "+12025550210", Chamber: models.ChamberHouse, State: "NY", District: "10", InOffice: true},
		{BioguideID: "X000001", FirstName: "Hal", LastName: "Hunt", Phone: "+12025550999", Chamber: models.ChamberSenate, State: "CA", InOffice: false},
	}
}

// FixtureDistricts maps the fixture zip codes
func FixtureDistricts() []models.District {
	return []models.District{
		{Zipcode: FixtureZipCA, State: "CA", HouseDistrict: "12"},
		{Zipcode: FixtureZipNY, State: "NY", HouseDistrict: "10"},
		{Zipcode: FixtureZipSplit, State: "CA", HouseDistrict: "12"},
		{Zipcode: FixtureZipSplit, State: "CA", HouseDistrict: "2"},
	}
}

// NewFixtureWorkbook builds the directory snapshot from the fixtures
func NewFixtureWorkbook() (*repository.Workbook, error) {
	wb, err := repository.NewWorkbook(FixtureCampaigns(), FixtureLegislators(), FixtureDistricts())
	if err != nil {
		return nil, fmt.Errorf("failed to build fixture workbook: %w", err)
	}
	return wb, nil
}

// TestFixtures provides helper methods for creating call log rows
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestCall inserts one logged leg
func (tf *TestFixtures) CreateTestCall(campaignID, memberID string, status models.DialStatus) (*models.Call, error) {
	call := &models.Call{
		UUID:       uuid.New(),
		CampaignID: campaignID,
		MemberID:   memberID,
		UserID:     "fixture-user",
		AreaCode:   "415",
		Exchange:   "555",
		CallID:     "CA" + uuid.NewString()[:8],
		Status:     status,
		Duration:   30,
	}
	if err := tf.DB.DB.Create(call).Error; err != nil {
		return nil, fmt.Errorf("failed to create test call: %w", err)
	}
	return call, nil
}
