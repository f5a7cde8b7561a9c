package businessflow_test

import (
	"net/url"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/call-congress/app/services"
	businessflow "github.com/amirphl/call-congress/business_flow"
	"github.com/amirphl/call-congress/config"
	"github.com/amirphl/call-congress/repository"
	testingutil "github.com/amirphl/call-congress/testing"
)

// fixedPicker always picks the same slot
type fixedPicker struct{ n int }

func (p fixedPicker) Intn(n int) int { return p.n % n }

type testEnv struct {
	db        *testingutil.TestDB
	callRepo  repository.CallRepository
	pingRepo  repository.CallStatusPingRepository
	directory businessflow.CampaignDirectory
	codec     businessflow.CallParamsCodec
	resolver  businessflow.RepresentativeResolver
	telephony *services.MockTelephonyService
	flow      businessflow.CallFlow
	twilio    *config.TwilioConfig
}

func newTestEnv(t *testing.T, picker businessflow.Picker, reroll bool) *testEnv {
	t.Helper()

	wb, err := testingutil.NewFixtureWorkbook()
	require.NoError(t, err)
	db, err := testingutil.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.TeardownTestDB() })

	campaignRepo := repository.NewCampaignRepository(wb, nil)
	legislatorRepo := repository.NewLegislatorRepository(wb)
	districtRepo := repository.NewDistrictRepository(wb)

	env := &testEnv{
		db:        db,
		callRepo:  repository.NewCallRepository(db.DB),
		pingRepo:  repository.NewCallStatusPingRepository(db.DB),
		telephony: services.NewMockTelephonyService(),
		twilio: &config.TwilioConfig{
			Provider:        "mock",
			ApplicationRoot: "https://calls.example.org",
			TimeLimit:       time.Hour,
			Timeout:         40 * time.Second,
		},
	}
	env.directory = businessflow.NewCampaignDirectory(campaignRepo, legislatorRepo, districtRepo)
	env.codec = businessflow.NewCallParamsCodec(env.directory, validator.New(), picker, reroll)
	env.resolver = businessflow.NewRepresentativeResolver(legislatorRepo)
	env.flow = businessflow.NewCallFlow(
		env.codec,
		env.directory,
		env.resolver,
		businessflow.NewCallOutcomeRecorder(env.callRepo, env.pingRepo),
		env.telephony,
		picker,
		env.twilio,
		false,
	)
	return env
}

// query returns the decoded query string of a callback URL
func query(t *testing.T, rawURL string) url.Values {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return u.Query()
}

func values(pairs ...string) url.Values {
	v := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		v.Add(pairs[i], pairs[i+1])
	}
	return v
}
