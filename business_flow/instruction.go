package businessflow

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/cbroglie/mustache"
	"github.com/twilio/twilio-go/twiml"
)

// Verb names one instruction the provider executes
type Verb string

const (
	VerbSay      Verb = "Say"
	VerbPlay     Verb = "Play"
	VerbGather   Verb = "Gather"
	VerbRedirect Verb = "Redirect"
	VerbDial     Verb = "Dial"
	VerbHangup   Verb = "Hangup"
)

// Step is one verb of an instruction document. Only the fields relevant to the verb are set.
type Step struct {
	Verb Verb
	// Text is the spoken text for Say and the audio URL for Play
	Text string
	// URL is the follow-up callback of Gather, Redirect and Dial
	URL string

	NumDigits int
	Timeout   int

	Number       string
	CallerID     string
	TimeLimit    int
	HangupOnStar bool

	Nested []Step
}

// Instruction is an ordered TwiML document under construction
type Instruction struct {
	steps []Step
}

func NewInstruction() *Instruction {
	return &Instruction{}
}

// Steps returns the verbs added so far
func (in *Instruction) Steps() []Step {
	return in.steps
}

// PlayOrSay renders a mustache template; URLs are played, text is spoken and
// an empty result adds nothing
func (in *Instruction) PlayOrSay(template string, data map[string]any) error {
	msg, err := RenderMessage(template, data)
	if err != nil {
		return err
	}
	switch {
	case strings.HasPrefix(msg, "http"):
		in.steps = append(in.steps, Step{Verb: VerbPlay, Text: msg})
	case msg != "":
		in.steps = append(in.steps, Step{Verb: VerbSay, Text: msg})
	}
	return nil
}

// Gather collects digits, posting them to action. prompt adds the verbs played while waiting.
func (in *Instruction) Gather(action string, numDigits, timeout int, prompt func(*Instruction) error) error {
	inner := NewInstruction()
	if prompt != nil {
		if err := prompt(inner); err != nil {
			return err
		}
	}
	in.steps = append(in.steps, Step{
		Verb:      VerbGather,
		URL:       action,
		NumDigits: numDigits,
		Timeout:   timeout,
		Nested:    inner.steps,
	})
	return nil
}

func (in *Instruction) Redirect(url string) {
	in.steps = append(in.steps, Step{Verb: VerbRedirect, URL: url})
}

func (in *Instruction) Hangup() {
	in.steps = append(in.steps, Step{Verb: VerbHangup})
}

// Dial bridges the caller to number; the provider posts to action when the leg ends
func (in *Instruction) Dial(number, callerID, action string, timeLimit, timeout int) {
	in.steps = append(in.steps, Step{
		Verb:         VerbDial,
		Number:       number,
		CallerID:     callerID,
		URL:          action,
		TimeLimit:    timeLimit,
		Timeout:      timeout,
		HangupOnStar: true,
	})
}

// Render produces the TwiML XML document
func (in *Instruction) Render() (string, error) {
	doc, err := twiml.Voice(toElements(in.steps))
	if err != nil {
		return "", fmt.Errorf("failed to render twiml: %w", err)
	}
	return doc, nil
}

func toElements(steps []Step) []twiml.Element {
	elements := make([]twiml.Element, 0, len(steps))
	for _, s := range steps {
		switch s.Verb {
		case VerbSay:
			elements = append(elements, &twiml.VoiceSay{Message: s.Text})
		case VerbPlay:
			elements = append(elements, &twiml.VoicePlay{Url: s.Text})
		case VerbGather:
			g := &twiml.VoiceGather{
				Action:        s.URL,
				Method:        "POST",
				NumDigits:     strconv.Itoa(s.NumDigits),
				InnerElements: toElements(s.Nested),
			}
			if s.Timeout > 0 {
				g.Timeout = strconv.Itoa(s.Timeout)
			}
			elements = append(elements, g)
		case VerbRedirect:
			elements = append(elements, &twiml.VoiceRedirect{Url: s.URL})
		case VerbDial:
			elements = append(elements, &twiml.VoiceDial{
				Number:       s.Number,
				CallerId:     s.CallerID,
				Action:       s.URL,
				TimeLimit:    strconv.Itoa(s.TimeLimit),
				Timeout:      strconv.Itoa(s.Timeout),
				HangupOnStar: strconv.FormatBool(s.HangupOnStar),
			})
		case VerbHangup:
			elements = append(elements, &twiml.VoiceHangup{})
		}
	}
	return elements
}

// RenderMessage renders a campaign template. Mustache HTML escaping is undone
// since the TwiML encoder escapes the result again.
func RenderMessage(template string, data map[string]any) (string, error) {
	if template == "" {
		return "", nil
	}
	if data == nil {
		data = map[string]any{}
	}
	out, err := mustache.Render(template, data)
	if err != nil {
		return "", fmt.Errorf("failed to render message: %w", err)
	}
	return strings.TrimSpace(html.UnescapeString(out)), nil
}
