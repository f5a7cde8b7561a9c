package router_test

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/amirphl/call-congress/app/dto"
	"github.com/amirphl/call-congress/app/handlers"
	"github.com/amirphl/call-congress/app/router"
	"github.com/amirphl/call-congress/app/services"
	businessflow "github.com/amirphl/call-congress/business_flow"
	"github.com/amirphl/call-congress/config"
	"github.com/amirphl/call-congress/models"
	"github.com/amirphl/call-congress/repository"
	testingutil "github.com/amirphl/call-congress/testing"
)

type testServer struct {
	app       *fiber.App
	telephony *services.MockTelephonyService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, nil)
}

func newTestServerWith(t *testing.T, configure func(*config.ProductionConfig)) *testServer {
	t.Helper()

	wb, err := testingutil.NewFixtureWorkbook()
	require.NoError(t, err)
	db, err := testingutil.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.TeardownTestDB() })

	cfg := &config.ProductionConfig{
		App:    config.AppConfig{SecretKey: "s3cret", Version: "test"},
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second, EnableMetrics: true},
		Security: config.SecurityConfig{
			AllowedOrigins:  []string{"*"},
			AllowedMethods:  []string{"GET", "POST", "OPTIONS"},
			CreateRateLimit: 1000,
			GlobalRateLimit: 1000,
			RateLimitWindow: time.Minute,
			XFrameOptions:   "DENY",
		},
		Twilio: config.TwilioConfig{
			Provider:        "mock",
			ApplicationRoot: "https://calls.example.org",
			TimeLimit:       time.Hour,
			Timeout:         40 * time.Second,
		},
		Metrics: config.MetricsConfig{Enabled: true, EnablePrometheus: true, PrometheusPath: "/metrics"},
		Cache:   config.CacheConfig{ReportTTL: time.Minute},
	}
	if configure != nil {
		configure(cfg)
	}

	campaignRepo := repository.NewCampaignRepository(wb, nil)
	legislatorRepo := repository.NewLegislatorRepository(wb)
	callRepo := repository.NewCallRepository(db.DB)
	telephony := services.NewMockTelephonyService()
	picker := businessflow.NewSeededPicker(7)

	directory := businessflow.NewCampaignDirectory(campaignRepo, legislatorRepo, repository.NewDistrictRepository(wb))
	callFlow := businessflow.NewCallFlow(
		businessflow.NewCallParamsCodec(directory, validator.New(), picker, true),
		directory,
		businessflow.NewRepresentativeResolver(legislatorRepo),
		businessflow.NewCallOutcomeRecorder(callRepo, repository.NewCallStatusPingRepository(db.DB)),
		telephony,
		picker,
		&cfg.Twilio,
		false,
	)

	r := router.NewFiberRouter(
		cfg,
		handlers.NewCallHandler(callFlow, cfg.Server.RequestTimeout),
		handlers.NewStatsHandler(businessflow.NewStatsFlow(callRepo, cfg.App.SecretKey), campaignRepo, cfg.App.Version, cfg.Cache.ReportTTL, cfg.Server.RequestTimeout),
	)
	r.SetupRoutes()

	return &testServer{app: r.GetApp(), telephony: telephony}
}

func (s *testServer) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(t, req)
}

func (s *testServer) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	return s.do(t, httptest.NewRequest(http.MethodGet, path, nil))
}

func (s *testServer) do(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestWebhooksRenderTwiML(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.post(t, "/incoming_call?campaignId=default", url.Values{"From": {testingutil.FixtureUserPhone}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/xml")
	assert.Contains(t, body, "<Say>Welcome to the campaign.</Say>")
	assert.Contains(t, body, `numDigits="5"`)

	// query and form values are merged
	resp, body = s.post(t, "/zip_parse?campaignId=default&userPhone=%2B14155551234", url.Values{"Digits": {testingutil.FixtureZipCA}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "We will connect you to 3 offices.")
	assert.Contains(t, body, "/make_single_call?")

	resp, body = s.get(t, "/make_single_call?campaignId=fixed&userPhone=%2B14155551234&call_index=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Connecting you to The Governor.")
	assert.Contains(t, body, testingutil.FixtureSpecialNumber+"</Dial>")
}

func TestWebhookErrors(t *testing.T) {
	s := newTestServer(t)

	t.Run("UnknownCampaign", func(t *testing.T) {
		resp, body := s.post(t, "/incoming_call?campaignId=nope", url.Values{})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		var payload dto.APIResponse
		require.NoError(t, json.Unmarshal([]byte(body), &payload))
		assert.False(t, payload.Success)
	})

	t.Run("MissingCampaign", func(t *testing.T) {
		resp, _ := s.post(t, "/incoming_call", url.Values{})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("CallIndexOutOfRange", func(t *testing.T) {
		resp, _ := s.post(t, "/call_complete?campaignId=default&repIds=S000001&call_index=5", url.Values{"DialCallStatus": {"completed"}})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("MalformedSpecialCall", func(t *testing.T) {
		resp, _ := s.post(t, "/make_single_call?campaignId=default&repIds="+url.QueryEscape("SPECIAL_CALL_{bad"), url.Values{})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("UnknownRoute", func(t *testing.T) {
		resp, _ := s.get(t, "/nowhere")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestCreateEndpoint(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.post(t, "/create", url.Values{
		"campaignId": {"default"},
		"userPhone":  {testingutil.FixtureUserPhone},
		"zipcode":    {testingutil.FixtureZipCA},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var created dto.CreateCallResponse
	require.NoError(t, json.Unmarshal([]byte(body), &created))
	assert.Equal(t, services.CallStatusQueued, created.Message)
	assert.False(t, created.DebugMode)
	assert.NotContains(t, body, "ProviderFailed")
	require.Len(t, s.telephony.GetPlacedCalls(), 1)

	s.telephony.NextStatus = services.CallStatusFailed
	resp, _ = s.post(t, "/create", url.Values{"campaignId": {"default"}, "userPhone": {testingutil.FixtureUserPhone}})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	s.telephony.NextError = &services.ProviderRejectedError{Status: 400, Message: "Invalid number: details"}
	resp, body = s.post(t, "/create", url.Values{"campaignId": {"default"}, "userPhone": {"+1"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"message":"Invalid number"`)

	resp, _ = s.post(t, "/create", url.Values{"campaignId": {"default"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCallCompleteStatusEndpoint(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.post(t, "/call_complete_status?campaignId=default", url.Values{"To": {testingutil.FixtureUserPhone}, "CallStatus": {"completed"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status dto.CallStatusResponse
	require.NoError(t, json.Unmarshal([]byte(body), &status))
	assert.Equal(t, "completed", status.CallStatus)
	assert.Equal(t, []string{}, status.RepIDs)
	assert.Equal(t, testingutil.FixtureUserPhone, status.PhoneNumber)
	assert.Equal(t, "default", status.CampaignID)
}

func TestReportingEndpoints(t *testing.T) {
	s := newTestServer(t)

	_, _ = s.post(t, "/call_complete?campaignId=fixed&userPhone=%2B14155551234&call_index=0", url.Values{
		"DialCallStatus":   {"completed"},
		"DialCallDuration": {"12"},
	})

	t.Run("Count", func(t *testing.T) {
		resp, body := s.get(t, "/count?campaign=fixed")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get("Expires"))

		var count dto.CountResponse
		require.NoError(t, json.Unmarshal([]byte(body), &count))
		assert.Equal(t, "fixed", count.Campaign)
		assert.Equal(t, int64(1), count.Count)
	})

	t.Run("StatsDenied", func(t *testing.T) {
		resp, body := s.get(t, "/stats?campaign=fixed&password=wrong")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"error":"access denied"}`, body)
	})

	t.Run("Stats", func(t *testing.T) {
		resp, body := s.get(t, "/stats?campaign=fixed&password=s3cret")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var stats dto.StatsResponse
		require.NoError(t, json.Unmarshal([]byte(body), &stats))
		assert.Equal(t, int64(1), stats.Total)
		assert.Equal(t, int64(1), stats.ByStatus[string(models.DialStatusCompleted)])
		assert.Equal(t, int64(1), stats.ByMember["S000001"])
	})
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.get(t, "/api/v1/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health dto.HealthResponse
	require.NoError(t, json.Unmarshal([]byte(body), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Contains(t, health.Campaigns, "default")

	resp, body = s.get(t, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "go_goroutines")
}

func TestMalformedPairsKeepTheRestOfTheRequest(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/incoming_call", strings.NewReader("From=%2B14155551234&junk=%zz"))
	req.URL.RawQuery = "campaignId=default&broken=%zz"
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, body := s.do(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<Say>Welcome to the campaign.</Say>")
}

func TestRateLimitSkipsProviderCallbacks(t *testing.T) {
	s := newTestServerWith(t, func(cfg *config.ProductionConfig) {
		cfg.Security.GlobalRateLimit = 2
	})

	for i := 0; i < 5; i++ {
		resp, _ := s.post(t, "/call_complete_status?campaignId=default", url.Values{"CallStatus": {"ringing"}})
		require.Equal(t, http.StatusOK, resp.StatusCode, "callback %d", i)
		resp, _ = s.post(t, "/incoming_call?campaignId=default", url.Values{})
		require.Equal(t, http.StatusOK, resp.StatusCode, "incoming call %d", i)
	}

	for _, want := range []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests} {
		resp, _ := s.get(t, "/count?campaign=default")
		assert.Equal(t, want, resp.StatusCode)
	}
}

func TestAccessLogSharesApplicationLogWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	var cfg *config.ProductionConfig
	s := newTestServerWith(t, func(c *config.ProductionConfig) {
		c.Logging.Output = "file"
		c.Logging.FilePath = path
		c.Logging.MaxSize = 1
		c.Logging.EnableAccessLog = true
		cfg = c
	})

	writer := cfg.Logging.LogWriter()
	require.Same(t, writer.(*lumberjack.Logger), cfg.Logging.LogWriter().(*lumberjack.Logger))
	log.SetOutput(writer)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		_ = writer.(*lumberjack.Logger).Close()
	})

	resp, _ := s.get(t, "/count?campaign=default")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	log.Print("application-line")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"path":"/count"`)
	assert.Contains(t, string(data), "application-line")
}
