package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/amirphl/call-congress/utils"
)

// ErrMalformedSpecialCall is returned when a SPECIAL_CALL_ token carries an unreadable payload
var ErrMalformedSpecialCall = errors.New("malformed special call token")

// RepresentativeKind distinguishes the two representative id variants
type RepresentativeKind int

const (
	RepresentativeKindLegislator RepresentativeKind = iota
	RepresentativeKindSpecial
)

func (k RepresentativeKind) String() string {
	switch k {
	case RepresentativeKindSpecial:
		return "special"
	default:
		return "legislator"
	}
}

// SpecialCall is the inline target of a special call token
type SpecialCall struct {
	Number string `json:"number"`
	Name   string `json:"name"`
}

// RepresentativeID identifies one dialing target. It is either a legislator
// bioguide id or an inline special call. The raw token is kept so that String
// reproduces the incoming encoding byte for byte.
type RepresentativeID struct {
	kind    RepresentativeKind
	raw     string
	special SpecialCall
}

// ParseRepresentativeID decodes a wire token
func ParseRepresentativeID(token string) (RepresentativeID, error) {
	if !strings.HasPrefix(token, utils.SpecialCallPrefix) {
		if strings.TrimSpace(token) == "" {
			return RepresentativeID{}, fmt.Errorf("empty representative id")
		}
		return RepresentativeID{kind: RepresentativeKindLegislator, raw: token}, nil
	}

	payload := strings.TrimPrefix(token, utils.SpecialCallPrefix)
	var sc SpecialCall
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	if err := dec.Decode(&sc); err != nil {
		return RepresentativeID{}, fmt.Errorf("%w: %v", ErrMalformedSpecialCall, err)
	}
	if dec.More() {
		return RepresentativeID{}, fmt.Errorf("%w: trailing data", ErrMalformedSpecialCall)
	}
	if strings.TrimSpace(sc.Number) == "" {
		return RepresentativeID{}, fmt.Errorf("%w: missing number", ErrMalformedSpecialCall)
	}
	return RepresentativeID{kind: RepresentativeKindSpecial, raw: token, special: sc}, nil
}

// MustParseRepresentativeID panics on malformed input; meant for fixtures and constants
func MustParseRepresentativeID(token string) RepresentativeID {
	id, err := ParseRepresentativeID(token)
	if err != nil {
		panic(err)
	}
	return id
}

// LegislatorRepresentativeID builds the legislator variant
func LegislatorRepresentativeID(bioguideID string) RepresentativeID {
	return RepresentativeID{kind: RepresentativeKindLegislator, raw: bioguideID}
}

// SpecialRepresentativeID builds the special-call variant with canonical encoding
func SpecialRepresentativeID(number, name string) RepresentativeID {
	sc := SpecialCall{Number: number, Name: name}
	payload, _ := json.Marshal(sc)
	return RepresentativeID{kind: RepresentativeKindSpecial, raw: utils.SpecialCallPrefix + string(payload), special: sc}
}

func (r RepresentativeID) Kind() RepresentativeKind { return r.kind }

func (r RepresentativeID) IsSpecial() bool { return r.kind == RepresentativeKindSpecial }

// BioguideID is the legislator id; empty for special calls
func (r RepresentativeID) BioguideID() string {
	if r.kind == RepresentativeKindSpecial {
		return ""
	}
	return r.raw
}

// Special returns the inline target; ok is false for legislators
func (r RepresentativeID) Special() (SpecialCall, bool) {
	return r.special, r.kind == RepresentativeKindSpecial
}

// String returns the wire token
func (r RepresentativeID) String() string { return r.raw }

// IsZero reports an unset id
func (r RepresentativeID) IsZero() bool { return r.raw == "" }

// ParseRepresentativeIDs decodes a list of wire tokens in order
func ParseRepresentativeIDs(tokens []string) ([]RepresentativeID, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	out := make([]RepresentativeID, 0, len(tokens))
	for _, t := range tokens {
		id, err := ParseRepresentativeID(t)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// RepresentativeIDStrings encodes ids back to wire tokens
func RepresentativeIDStrings(ids []RepresentativeID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
