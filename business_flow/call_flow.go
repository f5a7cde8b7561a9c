package businessflow

import (
	"context"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/amirphl/call-congress/app/dto"
	"github.com/amirphl/call-congress/app/services"
	"github.com/amirphl/call-congress/config"
	"github.com/amirphl/call-congress/models"
	"github.com/amirphl/call-congress/utils"
)

// CallState names the position of a call in the flow
type CallState string

const (
	StateIncomingIntro     CallState = "incoming_intro"
	StateZipCollection     CallState = "zip_collection"
	StateConnectionConfirm CallState = "connection_confirm"
	StateCallBlockIntro    CallState = "call_block_intro"
	StateSingleCallIntro   CallState = "single_call_intro"
	StateCallLegComplete   CallState = "call_leg_complete"
	StateTerminal          CallState = "terminal"
)

// CallStep is the outcome of one webhook: the state entered, the document to
// return to the provider and the parameters it was built from
type CallStep struct {
	State       CallState
	Instruction *Instruction
	Params      *CallParams
}

// Render returns the TwiML document
func (s *CallStep) Render() (string, error) {
	return s.Instruction.Render()
}

// CallFlow handles the telephony webhooks. Every method re-derives its state
// from the request values; nothing is kept between requests.
type CallFlow interface {
	CreateCall(ctx context.Context, values url.Values) (*dto.CreateCallResponse, error)
	IncomingCall(ctx context.Context, values url.Values) (*CallStep, error)
	Connection(ctx context.Context, values url.Values) (*CallStep, error)
	ZipParse(ctx context.Context, values url.Values) (*CallStep, error)
	MakeCalls(ctx context.Context, values url.Values) (*CallStep, error)
	MakeSingleCall(ctx context.Context, values url.Values) (*CallStep, error)
	CallComplete(ctx context.Context, values url.Values) (*CallStep, error)
	CallCompleteStatus(ctx context.Context, values url.Values) (*dto.CallStatusResponse, error)
}

// CallFlowImpl implements CallFlow
type CallFlowImpl struct {
	codec     CallParamsCodec
	directory CampaignDirectory
	resolver  RepresentativeResolver
	recorder  CallOutcomeRecorder
	telephony services.TelephonyService
	picker    Picker

	twilioConfig *config.TwilioConfig
	debug        bool
}

func NewCallFlow(
	codec CallParamsCodec,
	directory CampaignDirectory,
	resolver RepresentativeResolver,
	recorder CallOutcomeRecorder,
	telephony services.TelephonyService,
	picker Picker,
	twilioConfig *config.TwilioConfig,
	debug bool,
) CallFlow {
	if picker == nil {
		picker = NewRandomPicker()
	}
	return &CallFlowImpl{
		codec:        codec,
		directory:    directory,
		resolver:     resolver,
		recorder:     recorder,
		telephony:    telephony,
		picker:       picker,
		twilioConfig: twilioConfig,
		debug:        debug,
	}
}

// CreateCall places the outbound call that starts a session. A provider
// rejection is not an error: its sanitized message is returned instead.
func (f *CallFlowImpl) CreateCall(ctx context.Context, values url.Values) (*dto.CreateCallResponse, error) {
	params, campaign, err := f.codec.Parse(ctx, values, ParamUserPhone, ParamCampaignID)
	if err != nil {
		return nil, err
	}
	if len(campaign.Numbers) == 0 {
		return nil, NewBusinessErrorf("CAMPAIGN_HAS_NO_NUMBERS", "Campaign %q has no outbound numbers", nil, campaign.ID)
	}

	req := services.PlaceCallRequest{
		To:             params.UserPhone,
		From:           campaign.Numbers[f.picker.Intn(len(campaign.Numbers))],
		URL:            f.absoluteURL(utils.PathConnection, params),
		StatusCallback: f.absoluteURL(utils.PathCallCompleteStatus, params),
		TimeLimit:      f.twilioConfig.TimeLimit,
		Timeout:        f.twilioConfig.Timeout,
		HumanCheck:     campaign.CallHumanCheck,
	}

	result, err := f.telephony.PlaceCall(ctx, req)
	if err != nil {
		if rejected, ok := services.IsProviderRejected(err); ok {
			outboundCalls.WithLabelValues("rejected").Inc()
			return &dto.CreateCallResponse{Message: rejected.Sanitized(), DebugMode: f.debug}, nil
		}
		outboundCalls.WithLabelValues("error").Inc()
		return nil, NewBusinessError("CALL_PLACEMENT_FAILED", "Failed to place call", err)
	}

	if result.Failed() {
		outboundCalls.WithLabelValues("failed").Inc()
	} else {
		outboundCalls.WithLabelValues("placed").Inc()
	}
	return &dto.CreateCallResponse{
		Message:        result.Status,
		DebugMode:      f.debug,
		ProviderFailed: result.Failed(),
	}, nil
}

// IncomingCall answers an inbound call: intro, then ask for a zip code
func (f *CallFlowImpl) IncomingCall(ctx context.Context, values url.Values) (*CallStep, error) {
	params, campaign, err := f.codec.Parse(ctx, values, ParamCampaignID)
	if err != nil {
		return nil, err
	}
	return f.introZipGather(params, campaign)
}

// Connection runs when an outbound call is answered. Known representatives get
// a confirmation prompt; otherwise the caller is asked for a zip code. Campaigns
// with the human check hang up on answering machines.
func (f *CallFlowImpl) Connection(ctx context.Context, values url.Values) (*CallStep, error) {
	params, campaign, err := f.codec.Parse(ctx, values)
	if err != nil {
		return nil, err
	}
	if campaign.CallHumanCheck && answeredByMachine(values.Get("AnsweredBy")) {
		in := NewInstruction()
		in.Hangup()
		return f.step(StateTerminal, in, params), nil
	}
	if len(params.RepIDs) == 0 {
		return f.introZipGather(params, campaign)
	}

	in := NewInstruction()
	if err := in.PlayOrSay(campaign.Messages.Intro, nil); err != nil {
		return nil, err
	}
	next := f.codec.URL(utils.PathMakeCalls, params)
	if campaign.SkipStarConfirm {
		in.Redirect(next)
		return f.step(StateConnectionConfirm, in, params), nil
	}
	if err := in.Gather(next, utils.ConfirmDigits, utils.ConfirmGatherTimeoutSeconds, func(g *Instruction) error {
		return g.PlayOrSay(campaign.Messages.IntroConfirm, nil)
	}); err != nil {
		return nil, err
	}
	return f.step(StateConnectionConfirm, in, params), nil
}

// ZipParse resolves the gathered digits. Nothing resolvable re-prompts.
func (f *CallFlowImpl) ZipParse(ctx context.Context, values url.Values) (*CallStep, error) {
	params, campaign, err := f.codec.Parse(ctx, values)
	if err != nil {
		return nil, err
	}

	zipcode := strings.TrimSpace(values.Get("Digits"))
	if f.debug {
		log.Printf("DEBUG: zipcode = %s", zipcode)
	}

	repIDs, err := f.directory.ResolveRepresentativeIDs(ctx, zipcode, campaign)
	if err != nil {
		return nil, err
	}
	if len(repIDs) == 0 {
		in := NewInstruction()
		if err := in.PlayOrSay(campaign.Messages.InvalidZip, nil); err != nil {
			return nil, err
		}
		if err := f.zipGather(in, params, campaign); err != nil {
			return nil, err
		}
		return f.step(StateZipCollection, in, params), nil
	}

	params.Zipcode = ""
	params.RepIDs = repIDs
	params.CallIndex = 0
	return f.makeCalls(params, campaign)
}

// MakeCalls announces the block of calls and starts the first leg
func (f *CallFlowImpl) MakeCalls(ctx context.Context, values url.Values) (*CallStep, error) {
	params, campaign, err := f.codec.Parse(ctx, values)
	if err != nil {
		return nil, err
	}
	return f.makeCalls(params, campaign)
}

// MakeSingleCall introduces the representative at call_index and bridges the caller
func (f *CallFlowImpl) MakeSingleCall(ctx context.Context, values url.Values) (*CallStep, error) {
	params, campaign, err := f.codec.Parse(ctx, values)
	if err != nil {
		return nil, err
	}
	repID, err := params.Current()
	if err != nil {
		return nil, err
	}
	rep, err := f.resolver.Resolve(ctx, repID, campaign)
	if err != nil {
		return nil, err
	}

	in := NewInstruction()
	if err := in.PlayOrSay(rep.Message, map[string]any{"name": rep.DisplayName}); err != nil {
		return nil, err
	}
	if f.debug {
		log.Printf("DEBUG: Call #%d, %s (%s) from %s : make_single_call()", params.CallIndex, rep.DisplayName, rep.PhoneNumber, params.UserPhone)
	}
	in.Dial(
		rep.PhoneNumber,
		params.UserPhone,
		f.codec.URL(utils.PathCallComplete, params),
		seconds(f.twilioConfig.TimeLimit),
		seconds(f.twilioConfig.Timeout),
	)
	return f.step(StateSingleCallIntro, in, params), nil
}

// CallComplete records the finished leg and either advances or ends the call.
// A recording failure is logged and does not interrupt the caller.
func (f *CallFlowImpl) CallComplete(ctx context.Context, values url.Values) (*CallStep, error) {
	params, campaign, err := f.codec.Parse(ctx, values)
	if err != nil {
		return nil, err
	}
	if _, err := params.Current(); err != nil {
		return nil, err
	}

	outcome := LegOutcome{
		CallSid:    values.Get("CallSid"),
		DialStatus: values.Get("DialCallStatus"),
		Duration:   parseDuration(values.Get("DialCallDuration")),
	}
	if err := f.recorder.RecordLeg(ctx, params, outcome); err != nil {
		log.Printf(`{"level":"error","msg":"record call leg failed","campaign_id":%q,"call_index":%d,"error":%q}`, params.CampaignID, params.CallIndex, err.Error())
	}

	in := NewInstruction()
	if params.IsLastLeg() {
		if err := in.PlayOrSay(campaign.Messages.FinalThanks, nil); err != nil {
			return nil, err
		}
		return f.step(StateTerminal, in, params), nil
	}

	next := params.Clone()
	next.CallIndex++
	if err := in.PlayOrSay(campaign.Messages.BetweenThanks, nil); err != nil {
		return nil, err
	}
	in.Redirect(f.codec.URL(utils.PathMakeSingleCall, next))
	return f.step(StateCallLegComplete, in, next), nil
}

// CallCompleteStatus records an asynchronous status callback and echoes it
func (f *CallFlowImpl) CallCompleteStatus(ctx context.Context, values url.Values) (*dto.CallStatusResponse, error) {
	params, _, err := f.codec.Parse(ctx, values)
	if err != nil {
		return nil, err
	}

	callStatus := values.Get("CallStatus")
	if callStatus == "" {
		callStatus = "unknown"
	}
	ping := StatusPing{
		To:         values.Get("To"),
		CallStatus: callStatus,
		CallSid:    values.Get("CallSid"),
	}
	if err := f.recorder.RecordStatusPing(ctx, params, ping); err != nil {
		log.Printf(`{"level":"error","msg":"record call status failed","campaign_id":%q,"error":%q}`, params.CampaignID, err.Error())
	}

	repIDs := models.RepresentativeIDStrings(params.RepIDs)
	if repIDs == nil {
		repIDs = []string{}
	}
	return &dto.CallStatusResponse{
		PhoneNumber: ping.To,
		CallStatus:  callStatus,
		RepIDs:      repIDs,
		CampaignID:  params.CampaignID,
	}, nil
}

func (f *CallFlowImpl) introZipGather(params *CallParams, campaign *models.Campaign) (*CallStep, error) {
	in := NewInstruction()
	if err := in.PlayOrSay(campaign.Messages.Intro, nil); err != nil {
		return nil, err
	}
	if err := f.zipGather(in, params, campaign); err != nil {
		return nil, err
	}
	return f.step(StateIncomingIntro, in, params), nil
}

func (f *CallFlowImpl) zipGather(in *Instruction, params *CallParams, campaign *models.Campaign) error {
	return in.Gather(f.codec.URL(utils.PathZipParse, params), utils.ZipcodeDigits, 0, func(g *Instruction) error {
		return g.PlayOrSay(campaign.Messages.AskZip, nil)
	})
}

func (f *CallFlowImpl) makeCalls(params *CallParams, campaign *models.Campaign) (*CallStep, error) {
	if len(params.RepIDs) == 0 {
		return nil, NewBusinessError("NO_REPRESENTATIVES", "No representatives to call", ErrNoRepresentatives)
	}

	n := len(params.RepIDs)
	in := NewInstruction()
	if err := in.PlayOrSay(campaign.Messages.CallBlockIntro, map[string]any{
		"n_reps":    n,
		"many_reps": n > 1,
	}); err != nil {
		return nil, err
	}

	first := params.Clone()
	first.CallIndex = 0
	in.Redirect(f.codec.URL(utils.PathMakeSingleCall, first))
	return f.step(StateCallBlockIntro, in, first), nil
}

func (f *CallFlowImpl) step(state CallState, in *Instruction, params *CallParams) *CallStep {
	callFlowTransitions.WithLabelValues(string(state)).Inc()
	return &CallStep{State: state, Instruction: in, Params: params}
}

func (f *CallFlowImpl) absoluteURL(path string, params *CallParams) string {
	return f.twilioConfig.ApplicationRoot + f.codec.URL(path, params)
}

// answeredByMachine reads the provider's machine detection verdict
func answeredByMachine(answeredBy string) bool {
	return strings.HasPrefix(answeredBy, "machine") || answeredBy == "fax"
}

func seconds(d time.Duration) int {
	return int(d / time.Second)
}
