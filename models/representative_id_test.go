package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRepresentativeID(t *testing.T) {
	t.Run("Legislator", func(t *testing.T) {
		id, err := ParseRepresentativeID("P000197")
		require.NoError(t, err)
		assert.Equal(t, RepresentativeKindLegislator, id.Kind())
		assert.False(t, id.IsSpecial())
		assert.Equal(t, "P000197", id.BioguideID())
		assert.Equal(t, "P000197", id.String())
	})

	t.Run("SpecialKeepsRawToken", func(t *testing.T) {
		token := `SPECIAL_CALL_{"name": "Gov. Office",  "number":"+15555550100"}`
		id, err := ParseRepresentativeID(token)
		require.NoError(t, err)
		assert.True(t, id.IsSpecial())
		assert.Equal(t, token, id.String())
		assert.Empty(t, id.BioguideID())

		sc, ok := id.Special()
		require.True(t, ok)
		assert.Equal(t, "+15555550100", sc.Number)
		assert.Equal(t, "Gov. Office", sc.Name)
	})

	t.Run("Malformed", func(t *testing.T) {
		for _, token := range []string{
			"SPECIAL_CALL_",
			"SPECIAL_CALL_{not json",
			`SPECIAL_CALL_{"name":"x"}`,
			`SPECIAL_CALL_{"number":"1"}{"number":"2"}`,
		} {
			_, err := ParseRepresentativeID(token)
			require.Error(t, err, token)
			assert.True(t, errors.Is(err, ErrMalformedSpecialCall), token)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := ParseRepresentativeID("  ")
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrMalformedSpecialCall))
	})
}

func TestSpecialRepresentativeIDRoundTrip(t *testing.T) {
	id := SpecialRepresentativeID("+15555550100", "The Governor")
	parsed, err := ParseRepresentativeID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseRepresentativeIDs(t *testing.T) {
	tokens := []string{"A000001", SpecialRepresentativeID("+1", "X").String(), "B000002"}
	ids, err := ParseRepresentativeIDs(tokens)
	require.NoError(t, err)
	require.Len(t, ids, 3)
	assert.Equal(t, tokens, RepresentativeIDStrings(ids))

	ids, err = ParseRepresentativeIDs(nil)
	require.NoError(t, err)
	assert.Nil(t, ids)

	_, err = ParseRepresentativeIDs([]string{"A000001", "SPECIAL_CALL_oops"})
	assert.ErrorIs(t, err, ErrMalformedSpecialCall)
}

func TestParseChamber(t *testing.T) {
	tests := []struct {
		in   string
		want Chamber
		ok   bool
	}{
		{"sen", ChamberSenate, true},
		{" Senate ", ChamberSenate, true},
		{"rep", ChamberHouse, true},
		{"House", ChamberHouse, true},
		{"governor", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseChamber(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseDialStatus(t *testing.T) {
	assert.Equal(t, DialStatusCompleted, ParseDialStatus("completed"))
	assert.Equal(t, DialStatusNoAnswer, ParseDialStatus("no-answer"))
	assert.Equal(t, DialStatusUnknown, ParseDialStatus(""))
	assert.Equal(t, DialStatusUnknown, ParseDialStatus("ringing"))
}
