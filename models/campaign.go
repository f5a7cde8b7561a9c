// Package models contains domain entities and value types for the call flow
package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Message keys as they appear in the campaign workbook and override cache
const (
	MsgKeyIntro             = "msg_intro"
	MsgKeyIntroConfirm      = "msg_intro_confirm"
	MsgKeyAskZip            = "msg_ask_zip"
	MsgKeyInvalidZip        = "msg_invalid_zip"
	MsgKeyRepIntro          = "msg_rep_intro"
	MsgKeyRepIntroVotedWith = "msg_repo_intro_voted_with"
	MsgKeySpecialCallIntro  = "msg_special_call_intro"
	MsgKeyCallBlockIntro    = "msg_call_block_intro"
	MsgKeyBetweenThanks     = "msg_between_thanks"
	MsgKeyFinalThanks       = "msg_final_thanks"
)

// RequiredMessageKeys must be non-empty on every loaded campaign
var RequiredMessageKeys = []string{
	MsgKeyIntro,
	MsgKeyAskZip,
	MsgKeyInvalidZip,
	MsgKeyRepIntro,
	MsgKeyCallBlockIntro,
	MsgKeyBetweenThanks,
	MsgKeyFinalThanks,
}

// CampaignMessages holds the mustache templates spoken or played during a call
type CampaignMessages struct {
	Intro             string `json:"msg_intro,omitempty"`
	IntroConfirm      string `json:"msg_intro_confirm,omitempty"`
	AskZip            string `json:"msg_ask_zip,omitempty"`
	InvalidZip        string `json:"msg_invalid_zip,omitempty"`
	RepIntro          string `json:"msg_rep_intro,omitempty"`
	RepIntroVotedWith string `json:"msg_repo_intro_voted_with,omitempty"`
	SpecialCallIntro  string `json:"msg_special_call_intro,omitempty"`
	CallBlockIntro    string `json:"msg_call_block_intro,omitempty"`
	BetweenThanks     string `json:"msg_between_thanks,omitempty"`
	FinalThanks       string `json:"msg_final_thanks,omitempty"`
}

// ByKey returns the template stored under a workbook message key
func (m CampaignMessages) ByKey(key string) string {
	switch key {
	case MsgKeyIntro:
		return m.Intro
	case MsgKeyIntroConfirm:
		return m.IntroConfirm
	case MsgKeyAskZip:
		return m.AskZip
	case MsgKeyInvalidZip:
		return m.InvalidZip
	case MsgKeyRepIntro:
		return m.RepIntro
	case MsgKeyRepIntroVotedWith:
		return m.RepIntroVotedWith
	case MsgKeySpecialCallIntro:
		return m.SpecialCallIntro
	case MsgKeyCallBlockIntro:
		return m.CallBlockIntro
	case MsgKeyBetweenThanks:
		return m.BetweenThanks
	case MsgKeyFinalThanks:
		return m.FinalThanks
	default:
		return ""
	}
}

// SetByKey stores a template under a workbook message key; unknown keys are ignored
func (m *CampaignMessages) SetByKey(key, value string) bool {
	switch key {
	case MsgKeyIntro:
		m.Intro = value
	case MsgKeyIntroConfirm:
		m.IntroConfirm = value
	case MsgKeyAskZip:
		m.AskZip = value
	case MsgKeyInvalidZip:
		m.InvalidZip = value
	case MsgKeyRepIntro:
		m.RepIntro = value
	case MsgKeyRepIntroVotedWith:
		m.RepIntroVotedWith = value
	case MsgKeySpecialCallIntro:
		m.SpecialCallIntro = value
	case MsgKeyCallBlockIntro:
		m.CallBlockIntro = value
	case MsgKeyBetweenThanks:
		m.BetweenThanks = value
	case MsgKeyFinalThanks:
		m.FinalThanks = value
	default:
		return false
	}
	return true
}

// Inherit fills blank templates from base
func (m *CampaignMessages) Inherit(base CampaignMessages) {
	for _, key := range allMessageKeys {
		if strings.TrimSpace(m.ByKey(key)) == "" {
			m.SetByKey(key, base.ByKey(key))
		}
	}
}

// Merge overwrites templates with the non-empty values of override
func (m *CampaignMessages) Merge(override CampaignMessages) {
	for _, key := range allMessageKeys {
		if v := override.ByKey(key); v != "" {
			m.SetByKey(key, v)
		}
	}
}

var allMessageKeys = []string{
	MsgKeyIntro,
	MsgKeyIntroConfirm,
	MsgKeyAskZip,
	MsgKeyInvalidZip,
	MsgKeyRepIntro,
	MsgKeyRepIntroVotedWith,
	MsgKeySpecialCallIntro,
	MsgKeyCallBlockIntro,
	MsgKeyBetweenThanks,
	MsgKeyFinalThanks,
}

// Campaign is an immutable outreach configuration.
// Values are copied out of the directory on every request and never written back.
type Campaign struct {
	ID       string           `json:"id"`
	Messages CampaignMessages `json:"messages"`

	// Numbers is the caller-id pool used when placing the first call
	Numbers []string `json:"numbers"`

	RepIDs        []string `json:"repIds,omitempty"`
	RandomChoice  []string `json:"random_choice,omitempty"`
	VotedWithList []string `json:"voted_with_list,omitempty"`

	SkipStarConfirm bool `json:"skip_star_confirm"`
	CallHumanCheck  bool `json:"call_human_check"`

	TargetSenate       bool     `json:"target_senate"`
	TargetHouse        bool     `json:"target_house"`
	TargetHouseFirst   bool     `json:"target_house_first"`
	OnlyCallOneSenator bool     `json:"only_call_1_sen"`
	ExtraFirstCalls    []string `json:"extra_first_calls,omitempty"`
	ExtraLastCalls     []string `json:"extra_last_calls,omitempty"`
}

// Clone returns a deep copy so callers can never alias directory state
func (c Campaign) Clone() *Campaign {
	out := c
	out.Numbers = cloneStrings(c.Numbers)
	out.RepIDs = cloneStrings(c.RepIDs)
	out.RandomChoice = cloneStrings(c.RandomChoice)
	out.VotedWithList = cloneStrings(c.VotedWithList)
	out.ExtraFirstCalls = cloneStrings(c.ExtraFirstCalls)
	out.ExtraLastCalls = cloneStrings(c.ExtraLastCalls)
	return &out
}

// MissingMessages lists required message keys that are blank
func (c Campaign) MissingMessages() []string {
	var missing []string
	for _, key := range RequiredMessageKeys {
		if strings.TrimSpace(c.Messages.ByKey(key)) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

// Validate checks the campaign can drive a complete call
func (c Campaign) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("campaign id is empty")
	}
	if missing := c.MissingMessages(); len(missing) > 0 {
		return fmt.Errorf("campaign %q is missing messages: %s", c.ID, strings.Join(missing, ", "))
	}
	for _, list := range [][]string{c.RepIDs, c.RandomChoice, c.ExtraFirstCalls, c.ExtraLastCalls} {
		if _, err := ParseRepresentativeIDs(list); err != nil {
			return fmt.Errorf("campaign %q: %w", c.ID, err)
		}
	}
	return nil
}

// IsVotedWith reports whether a legislator id is on the voted-with list
func (c Campaign) IsVotedWith(repID string) bool {
	for _, id := range c.VotedWithList {
		if id == repID {
			return true
		}
	}
	return false
}

// InRandomChoice reports whether a rep id belongs to the random choice pool
func (c Campaign) InRandomChoice(repID string) bool {
	for _, id := range c.RandomChoice {
		if id == repID {
			return true
		}
	}
	return false
}

// CampaignOverride is a partial campaign written to the override cache by an
// external spreadsheet sync. Nil or empty fields leave the base campaign untouched.
type CampaignOverride struct {
	Messages CampaignMessages `json:"-"`

	Numbers       StringList `json:"numbers,omitempty"`
	RepIDs        StringList `json:"repIds,omitempty"`
	RandomChoice  StringList `json:"random_choice,omitempty"`
	VotedWithList StringList `json:"voted_with_list,omitempty"`

	SkipStarConfirm *bool `json:"skip_star_confirm,omitempty"`
	CallHumanCheck  *bool `json:"call_human_check,omitempty"`

	TargetSenate       *bool      `json:"target_senate,omitempty"`
	TargetHouse        *bool      `json:"target_house,omitempty"`
	TargetHouseFirst   *bool      `json:"target_house_first,omitempty"`
	OnlyCallOneSenator *bool      `json:"only_call_1_sen,omitempty"`
	ExtraFirstCalls    StringList `json:"extra_first_calls,omitempty"`
	ExtraLastCalls     StringList `json:"extra_last_calls,omitempty"`
}

// UnmarshalJSON decodes the flat override document, where message templates sit
// next to the list and flag fields
func (o *CampaignOverride) UnmarshalJSON(data []byte) error {
	type plain CampaignOverride
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var msgs CampaignMessages
	if err := json.Unmarshal(data, &msgs); err != nil {
		return err
	}
	*o = CampaignOverride(p)
	o.Messages = msgs
	return nil
}

// Apply returns a copy of base with the override merged in
func (o *CampaignOverride) Apply(base *Campaign) *Campaign {
	out := base.Clone()
	if o == nil {
		return out
	}
	out.Messages.Merge(o.Messages)
	if len(o.Numbers) > 0 {
		out.Numbers = cloneStrings(o.Numbers)
	}
	if len(o.RepIDs) > 0 {
		out.RepIDs = cloneStrings(o.RepIDs)
	}
	if len(o.RandomChoice) > 0 {
		out.RandomChoice = cloneStrings(o.RandomChoice)
	}
	if len(o.VotedWithList) > 0 {
		out.VotedWithList = cloneStrings(o.VotedWithList)
	}
	if len(o.ExtraFirstCalls) > 0 {
		out.ExtraFirstCalls = cloneStrings(o.ExtraFirstCalls)
	}
	if len(o.ExtraLastCalls) > 0 {
		out.ExtraLastCalls = cloneStrings(o.ExtraLastCalls)
	}
	applyBool(&out.SkipStarConfirm, o.SkipStarConfirm)
	applyBool(&out.CallHumanCheck, o.CallHumanCheck)
	applyBool(&out.TargetSenate, o.TargetSenate)
	applyBool(&out.TargetHouse, o.TargetHouse)
	applyBool(&out.TargetHouseFirst, o.TargetHouseFirst)
	applyBool(&out.OnlyCallOneSenator, o.OnlyCallOneSenator)
	return out
}

// StringList accepts either a JSON string or a JSON array of strings.
// A scalar becomes a one-element list.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*l = nil
		} else {
			*l = StringList{single}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*l = StringList(many)
	return nil
}

func applyBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
