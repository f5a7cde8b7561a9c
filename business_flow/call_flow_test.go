package businessflow_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/call-congress/app/services"
	businessflow "github.com/amirphl/call-congress/business_flow"
	"github.com/amirphl/call-congress/models"
	testingutil "github.com/amirphl/call-congress/testing"
)

func TestIncomingCall(t *testing.T) {
	env := newTestEnv(t, fixedPicker{}, true)
	ctx := context.Background()

	step, err := env.flow.IncomingCall(ctx, values("campaignId", "default"))
	require.NoError(t, err)
	assert.Equal(t, businessflow.StateIncomingIntro, step.State)

	steps := step.Instruction.Steps()
	require.Len(t, steps, 2)
	assert.Equal(t, businessflow.VerbSay, steps[0].Verb)
	assert.Equal(t, testingutil.FixtureMessages().Intro, steps[0].Text)

	gather := steps[1]
	assert.Equal(t, businessflow.VerbGather, gather.Verb)
	assert.Equal(t, 5, gather.NumDigits)
	assert.True(t, strings.HasPrefix(gather.URL, "/zip_parse?"))
	assert.Equal(t, "default", query(t, gather.URL).Get("campaignId"))
	require.Len(t, gather.Nested, 1)
	assert.Equal(t, testingutil.FixtureMessages().AskZip, gather.Nested[0].Text)

	_, err = env.flow.IncomingCall(ctx, values())
	assert.True(t, businessflow.IsMissingParameter(err))
}

func TestConnection(t *testing.T) {
	env := newTestEnv(t, fixedPicker{}, true)
	ctx := context.Background()

	t.Run("ConfirmBeforeCalling", func(t *testing.T) {
		step, err := env.flow.Connection(ctx, values("campaignId", "default", "userPhone", testingutil.FixtureUserPhone, "repIds", "S000001"))
		require.NoError(t, err)
		assert.Equal(t, businessflow.StateConnectionConfirm, step.State)

		steps := step.Instruction.Steps()
		require.Len(t, steps, 2)
		gather := steps[1]
		assert.Equal(t, businessflow.VerbGather, gather.Verb)
		assert.Equal(t, 1, gather.NumDigits)
		assert.Equal(t, 10, gather.Timeout)
		assert.True(t, strings.HasPrefix(gather.URL, "/make_calls?"))
		assert.Equal(t, []string{"S000001"}, query(t, gather.URL)["repIds"])
		require.Len(t, gather.Nested, 1)
		assert.Equal(t, testingutil.FixtureMessages().IntroConfirm, gather.Nested[0].Text)
	})

	t.Run("SkipStarConfirm", func(t *testing.T) {
		step, err := env.flow.Connection(ctx, values("campaignId", "fixed", "userPhone", testingutil.FixtureUserPhone))
		require.NoError(t, err)
		steps := step.Instruction.Steps()
		require.Len(t, steps, 2)
		assert.Equal(t, businessflow.VerbRedirect, steps[1].Verb)
		assert.True(t, strings.HasPrefix(steps[1].URL, "/make_calls?"))
	})

	t.Run("NoRepresentativesAsksForZip", func(t *testing.T) {
		step, err := env.flow.Connection(ctx, values("campaignId", "default", "userPhone", testingutil.FixtureUserPhone))
		require.NoError(t, err)
		assert.Equal(t, businessflow.StateIncomingIntro, step.State)
		steps := step.Instruction.Steps()
		require.Len(t, steps, 2)
		assert.True(t, strings.HasPrefix(steps[1].URL, "/zip_parse?"))
	})

	t.Run("HumanCheckHangsUpOnMachines", func(t *testing.T) {
		for _, answeredBy := range []string{"machine_start", "machine_end_beep", "fax"} {
			step, err := env.flow.Connection(ctx, values("campaignId", "screened", "userPhone", testingutil.FixtureUserPhone, "repIds", "S000001", "AnsweredBy", answeredBy))
			require.NoError(t, err)
			assert.Equal(t, businessflow.StateTerminal, step.State, answeredBy)
			assert.Equal(t, []businessflow.Step{{Verb: businessflow.VerbHangup}}, step.Instruction.Steps(), answeredBy)

			doc, err := step.Render()
			require.NoError(t, err)
			assert.Contains(t, doc, "<Hangup")
			assert.NotContains(t, doc, "<Gather")
		}
	})

	t.Run("HumanCheckLetsPeopleThrough", func(t *testing.T) {
		step, err := env.flow.Connection(ctx, values("campaignId", "screened", "userPhone", testingutil.FixtureUserPhone, "repIds", "S000001", "AnsweredBy", "human"))
		require.NoError(t, err)
		assert.Equal(t, businessflow.StateConnectionConfirm, step.State)
	})

	t.Run("MachineIgnoredWithoutHumanCheck", func(t *testing.T) {
		step, err := env.flow.Connection(ctx, values("campaignId", "default", "userPhone", testingutil.FixtureUserPhone, "repIds", "S000001", "AnsweredBy", "machine_start"))
		require.NoError(t, err)
		assert.Equal(t, businessflow.StateConnectionConfirm, step.State)
	})
}

func TestZipParse(t *testing.T) {
	env := newTestEnv(t, fixedPicker{}, true)
	ctx := context.Background()

	t.Run("InvalidZipReprompts", func(t *testing.T) {
		step, err := env.flow.ZipParse(ctx, values("campaignId", "default", "Digits", testingutil.FixtureZipNone))
		require.NoError(t, err)
		assert.Equal(t, businessflow.StateZipCollection, step.State)

		steps := step.Instruction.Steps()
		require.Len(t, steps, 2)
		assert.Equal(t, testingutil.FixtureMessages().InvalidZip, steps[0].Text)
		assert.Equal(t, businessflow.VerbGather, steps[1].Verb)
		assert.True(t, strings.HasPrefix(steps[1].URL, "/zip_parse?"))
	})

	t.Run("ResolvedZipStartsCallBlock", func(t *testing.T) {
		step, err := env.flow.ZipParse(ctx, values("campaignId", "default", "userPhone", testingutil.FixtureUserPhone, "Digits", testingutil.FixtureZipCA))
		require.NoError(t, err)
		assert.Equal(t, businessflow.StateCallBlockIntro, step.State)

		steps := step.Instruction.Steps()
		require.Len(t, steps, 2)
		assert.Equal(t, "We will connect you to 3 offices.", steps[0].Text)
		assert.Equal(t, businessflow.VerbRedirect, steps[1].Verb)
		assert.True(t, strings.HasPrefix(steps[1].URL, "/make_single_call?"))

		q := query(t, steps[1].URL)
		assert.Equal(t, []string{"S000001", "S000002", "H000012"}, q["repIds"])
		assert.Equal(t, "0", q.Get("call_index"))
		assert.Empty(t, q.Get("zipcode"))
		assert.Equal(t, testingutil.FixtureUserPhone, q.Get("userPhone"))
	})
}

func TestMakeCallsWithoutRepresentatives(t *testing.T) {
	env := newTestEnv(t, fixedPicker{}, true)
	_, err := env.flow.MakeCalls(context.Background(), values("campaignId", "default"))
	assert.True(t, businessflow.IsNoRepresentatives(err))
}

// TestCallSequence walks a two-leg call through every webhook and checks the log
func TestCallSequence(t *testing.T) {
	env := newTestEnv(t, fixedPicker{}, true)
	ctx := context.Background()

	step, err := env.flow.MakeCalls(ctx, values("campaignId", "fixed", "userPhone", testingutil.FixtureUserPhone))
	require.NoError(t, err)
	assert.Equal(t, "We will connect you to 2 offices.", step.Instruction.Steps()[0].Text)
	next := query(t, step.Instruction.Steps()[1].URL)

	var dialed []string
	var intros []string
	for leg := 0; leg < 2; leg++ {
		step, err = env.flow.MakeSingleCall(ctx, next)
		require.NoError(t, err)
		assert.Equal(t, businessflow.StateSingleCallIntro, step.State)

		steps := step.Instruction.Steps()
		require.Len(t, steps, 2)
		intros = append(intros, steps[0].Text)
		dial := steps[1]
		require.Equal(t, businessflow.VerbDial, dial.Verb)
		assert.Equal(t, testingutil.FixtureUserPhone, dial.CallerID)
		assert.Equal(t, 3600, dial.TimeLimit)
		assert.Equal(t, 40, dial.Timeout)
		assert.True(t, dial.HangupOnStar)
		assert.True(t, strings.HasPrefix(dial.URL, "/call_complete?"))
		dialed = append(dialed, dial.Number)

		complete := query(t, dial.URL)
		complete.Set("CallSid", "CA0000000000000000000000000000000"+string(rune('0'+leg)))
		complete.Set("DialCallStatus", "completed")
		complete.Set("DialCallDuration", "42")
		step, err = env.flow.CallComplete(ctx, complete)
		require.NoError(t, err)

		if leg == 0 {
			assert.Equal(t, businessflow.StateCallLegComplete, step.State)
			steps := step.Instruction.Steps()
			require.Len(t, steps, 2)
			assert.Equal(t, testingutil.FixtureMessages().BetweenThanks, steps[0].Text)
			next = query(t, steps[1].URL)
			assert.Equal(t, "1", next.Get("call_index"))
		} else {
			assert.Equal(t, businessflow.StateTerminal, step.State)
			steps := step.Instruction.Steps()
			require.Len(t, steps, 1)
			assert.Equal(t, testingutil.FixtureMessages().FinalThanks, steps[0].Text)
		}
	}

	assert.Equal(t, []string{"+12025550101", testingutil.FixtureSpecialNumber}, dialed)
	assert.Equal(t, []string{"You are now being connected to Alice Adams.", "Connecting you to The Governor."}, intros)

	rows, err := env.callRepo.ByFilter(ctx, models.CallFilter{}, "id ASC", 0, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "S000001", rows[0].MemberID)
	assert.Equal(t, testingutil.FixtureSpecialToken(), rows[1].MemberID)
	for _, row := range rows {
		assert.Equal(t, "fixed", row.CampaignID)
		assert.Equal(t, models.DialStatusCompleted, row.Status)
		assert.Equal(t, 42, row.Duration)
		assert.Equal(t, "415", row.AreaCode)
		assert.Equal(t, "555", row.Exchange)
		assert.Equal(t, businessflow.HashPhone(testingutil.FixtureUserPhone), row.UserID)
		assert.NotContains(t, row.UserID, "4155551234")
	}
}

func TestCallCompleteOutOfRange(t *testing.T) {
	env := newTestEnv(t, fixedPicker{}, true)
	_, err := env.flow.CallComplete(context.Background(), values("campaignId", "default", "repIds", "S000001", "call_index", "3"))
	assert.True(t, businessflow.IsCallIndexOutOfRange(err))

	count, err := env.callRepo.CountByCampaign(context.Background(), "default")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMakeSingleCallUnknownLegislator(t *testing.T) {
	env := newTestEnv(t, fixedPicker{}, true)
	_, err := env.flow.MakeSingleCall(context.Background(), values("campaignId", "default", "repIds", "Z999999"))
	assert.True(t, businessflow.IsLegislatorNotFound(err))
}

func TestCreateCall(t *testing.T) {
	ctx := context.Background()
	request := values("campaignId", "default", "userPhone", testingutil.FixtureUserPhone, "zipcode", testingutil.FixtureZipCA)

	t.Run("Placed", func(t *testing.T) {
		env := newTestEnv(t, fixedPicker{}, true)
		resp, err := env.flow.CreateCall(ctx, request)
		require.NoError(t, err)
		assert.Equal(t, services.CallStatusQueued, resp.Message)
		assert.False(t, resp.ProviderFailed)

		placed := env.telephony.GetPlacedCalls()
		require.Len(t, placed, 1)
		req := placed[0].Request
		assert.Equal(t, testingutil.FixtureUserPhone, req.To)
		assert.Equal(t, testingutil.FixtureCampaignNumber, req.From)
		assert.True(t, strings.HasPrefix(req.URL, "https://calls.example.org/connection?"))
		assert.True(t, strings.HasPrefix(req.StatusCallback, "https://calls.example.org/call_complete_status?"))
		assert.Equal(t, []string{"S000001", "S000002", "H000012"}, query(t, req.URL)["repIds"])
		assert.Equal(t, env.twilio.TimeLimit, req.TimeLimit)
	})

	t.Run("ProviderReportsFailure", func(t *testing.T) {
		env := newTestEnv(t, fixedPicker{}, true)
		env.telephony.NextStatus = services.CallStatusFailed
		resp, err := env.flow.CreateCall(ctx, request)
		require.NoError(t, err)
		assert.True(t, resp.ProviderFailed)
		assert.Equal(t, services.CallStatusFailed, resp.Message)
	})

	t.Run("ProviderRejects", func(t *testing.T) {
		env := newTestEnv(t, fixedPicker{}, true)
		env.telephony.NextError = &services.ProviderRejectedError{
			Code:    21211,
			Status:  400,
			Message: "The 'To' number +1415 is not a valid phone number: see https://www.twilio.com/docs/errors/21211",
		}
		resp, err := env.flow.CreateCall(ctx, request)
		require.NoError(t, err)
		assert.Equal(t, "The 'To' number +1415 is not a valid phone number", resp.Message)
		assert.False(t, resp.ProviderFailed)
	})

	t.Run("TransportError", func(t *testing.T) {
		env := newTestEnv(t, fixedPicker{}, true)
		env.telephony.NextError = errors.New("dial tcp: timeout")
		_, err := env.flow.CreateCall(ctx, request)
		require.Error(t, err)
		assert.False(t, businessflow.IsNotFound(err))
	})

	t.Run("MissingUserPhone", func(t *testing.T) {
		env := newTestEnv(t, fixedPicker{}, true)
		_, err := env.flow.CreateCall(ctx, values("campaignId", "default"))
		assert.True(t, businessflow.IsMissingParameter(err))
		assert.Empty(t, env.telephony.GetPlacedCalls())
	})

	t.Run("CampaignWithoutNumbers", func(t *testing.T) {
		env := newTestEnv(t, fixedPicker{}, true)
		_, err := env.flow.CreateCall(ctx, values("campaignId", "no-numbers", "userPhone", testingutil.FixtureUserPhone))
		require.Error(t, err)
		var be *businessflow.BusinessError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, "CAMPAIGN_HAS_NO_NUMBERS", be.Code)
	})
}

func TestCallCompleteStatus(t *testing.T) {
	env := newTestEnv(t, fixedPicker{}, true)
	ctx := context.Background()

	resp, err := env.flow.CallCompleteStatus(ctx, values("campaignId", "default", "To", testingutil.FixtureUserPhone, "CallSid", "CA1"))
	require.NoError(t, err)
	assert.Equal(t, "unknown", resp.CallStatus)
	assert.Equal(t, []string{}, resp.RepIDs)
	assert.Equal(t, testingutil.FixtureUserPhone, resp.PhoneNumber)

	resp, err = env.flow.CallCompleteStatus(ctx, values("campaignId", "default", "repIds", "S000001", "CallStatus", "completed"))
	require.NoError(t, err)
	assert.Equal(t, "completed", resp.CallStatus)
	assert.Equal(t, []string{"S000001"}, resp.RepIDs)

	pings, err := env.pingRepo.ListByCampaign(ctx, "default", 0, 0)
	require.NoError(t, err)
	require.Len(t, pings, 2)
	assert.Equal(t, "unknown", pings[0].CallStatus)
	assert.Equal(t, "S000001", pings[1].RepIDs)
}
