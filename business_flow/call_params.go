package businessflow

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/amirphl/call-congress/models"
	"github.com/amirphl/call-congress/utils"
)

// Wire names of the call parameters
const (
	ParamUserPhone  = "userPhone"
	ParamCampaignID = "campaignId"
	ParamZipcode    = "zipcode"
	ParamRepIDs     = "repIds"
	ParamCallIndex  = "call_index"
)

// CallParams is the per-request call state carried between webhooks
type CallParams struct {
	UserPhone  string
	CampaignID string
	// Zipcode is only set before representatives are resolved
	Zipcode   string
	RepIDs    []models.RepresentativeID
	CallIndex int
}

// Clone returns a copy safe to modify
func (p *CallParams) Clone() *CallParams {
	out := *p
	out.RepIDs = append([]models.RepresentativeID(nil), p.RepIDs...)
	return &out
}

// Current returns the representative addressed by CallIndex
func (p *CallParams) Current() (models.RepresentativeID, error) {
	if len(p.RepIDs) == 0 {
		return models.RepresentativeID{}, NewBusinessError("NO_REPRESENTATIVES", "No representatives to call", ErrNoRepresentatives)
	}
	if p.CallIndex < 0 || p.CallIndex >= len(p.RepIDs) {
		return models.RepresentativeID{}, NewBusinessErrorf("CALL_INDEX_OUT_OF_RANGE", "Call index %d outside [0, %d)", ErrCallIndexOutOfRange, p.CallIndex, len(p.RepIDs))
	}
	return p.RepIDs[p.CallIndex], nil
}

// IsLastLeg reports whether CallIndex addresses the final representative
func (p *CallParams) IsLastLeg() bool {
	return p.CallIndex == len(p.RepIDs)-1
}

// callParamsInput is the raw wire form checked by the validator
type callParamsInput struct {
	UserPhone  string   `validate:"max=32"`
	CampaignID string   `validate:"required,max=128"`
	Zipcode    string   `validate:"max=16"`
	RepIDs     []string `validate:"max=64,dive,required,max=1024"`
	CallIndex  string   `validate:"omitempty,number,max=4"`
}

// CallParamsCodec decodes webhook values into CallParams merged with campaign
// defaults, and encodes CallParams back into callback URLs
type CallParamsCodec interface {
	// Parse decodes values; required lists wire names that must be present
	Parse(ctx context.Context, values url.Values, required ...string) (*CallParams, *models.Campaign, error)
	Encode(p *CallParams) url.Values
	// URL returns path with p encoded as its query string
	URL(path string, p *CallParams) string
}

// CallParamsCodecImpl implements CallParamsCodec
type CallParamsCodecImpl struct {
	directory CampaignDirectory
	validate  *validator.Validate
	picker    Picker
	// reroll draws a fresh random_choice target on every parse
	reroll bool
}

func NewCallParamsCodec(directory CampaignDirectory, validate *validator.Validate, picker Picker, rerollRandomChoice bool) CallParamsCodec {
	if validate == nil {
		validate = validator.New()
	}
	if picker == nil {
		picker = NewRandomPicker()
	}
	return &CallParamsCodecImpl{
		directory: directory,
		validate:  validate,
		picker:    picker,
		reroll:    rerollRandomChoice,
	}
}

func (c *CallParamsCodecImpl) Parse(ctx context.Context, values url.Values, required ...string) (*CallParams, *models.Campaign, error) {
	for _, name := range required {
		if strings.TrimSpace(values.Get(name)) == "" {
			return nil, nil, NewBusinessErrorf("MISSING_PARAMETER", "Parameter %s is required", ErrMissingParameter, name)
		}
	}

	in := callParamsInput{
		UserPhone:  strings.TrimSpace(values.Get(ParamUserPhone)),
		CampaignID: strings.TrimSpace(values.Get(ParamCampaignID)),
		Zipcode:    strings.TrimSpace(values.Get(ParamZipcode)),
		RepIDs:     values[ParamRepIDs],
		CallIndex:  strings.TrimSpace(values.Get(ParamCallIndex)),
	}
	if in.CampaignID == "" {
		in.CampaignID = utils.DefaultCampaignID
	}
	if err := c.validate.Struct(in); err != nil {
		return nil, nil, NewBusinessError("INVALID_CALL_PARAMS", "Call parameters failed validation", fmt.Errorf("%w: %v", ErrInvalidCallParams, err))
	}

	repIDs, err := models.ParseRepresentativeIDs(in.RepIDs)
	if err != nil {
		return nil, nil, NewBusinessError("MALFORMED_REPRESENTATIVE_ID", "Representative id could not be decoded", err)
	}

	params := &CallParams{
		UserPhone:  in.UserPhone,
		CampaignID: in.CampaignID,
		Zipcode:    in.Zipcode,
		RepIDs:     repIDs,
	}
	if in.CallIndex != "" {
		if params.CallIndex, err = strconv.Atoi(in.CallIndex); err != nil {
			return nil, nil, NewBusinessError("INVALID_CALL_PARAMS", "Call index is not a number", fmt.Errorf("%w: %v", ErrInvalidCallParams, err))
		}
	}

	campaign, err := c.directory.GetCampaign(ctx, params.CampaignID)
	if err != nil {
		return nil, nil, err
	}

	if len(campaign.RepIDs) > 0 {
		if params.RepIDs, err = models.ParseRepresentativeIDs(campaign.RepIDs); err != nil {
			return nil, nil, NewBusinessError("MALFORMED_REPRESENTATIVE_ID", "Campaign representative id could not be decoded", err)
		}
	}

	if params.Zipcode != "" {
		if params.RepIDs, err = c.directory.ResolveRepresentativeIDs(ctx, params.Zipcode, campaign); err != nil {
			return nil, nil, err
		}
		params.Zipcode = ""
	}

	if len(campaign.RandomChoice) > 0 {
		keep := !c.reroll && len(params.RepIDs) == 1 && campaign.InRandomChoice(params.RepIDs[0].String())
		if !keep {
			choice := campaign.RandomChoice[c.picker.Intn(len(campaign.RandomChoice))]
			id, err := models.ParseRepresentativeID(choice)
			if err != nil {
				return nil, nil, NewBusinessError("MALFORMED_REPRESENTATIVE_ID", "Random choice id could not be decoded", err)
			}
			params.RepIDs = []models.RepresentativeID{id}
		}
	}

	return params, campaign, nil
}

// Encode writes the wire form. Parse of the result yields p again when p carries
// no zip code and the campaign has neither fixed ids nor random choice.
func (c *CallParamsCodecImpl) Encode(p *CallParams) url.Values {
	return EncodeCallParams(p)
}

func (c *CallParamsCodecImpl) URL(path string, p *CallParams) string {
	return path + "?" + EncodeCallParams(p).Encode()
}

// EncodeCallParams is the codec's encoder as a plain function
func EncodeCallParams(p *CallParams) url.Values {
	v := url.Values{}
	if p.UserPhone != "" {
		v.Set(ParamUserPhone, p.UserPhone)
	}
	v.Set(ParamCampaignID, p.CampaignID)
	if p.Zipcode != "" {
		v.Set(ParamZipcode, p.Zipcode)
	}
	for _, id := range p.RepIDs {
		v.Add(ParamRepIDs, id.String())
	}
	v.Set(ParamCallIndex, strconv.Itoa(p.CallIndex))
	return v
}
