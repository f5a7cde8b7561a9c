package businessflow_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	businessflow "github.com/amirphl/call-congress/business_flow"
	"github.com/amirphl/call-congress/models"
	testingutil "github.com/amirphl/call-congress/testing"
)

func TestCallParamsCodecParse(t *testing.T) {
	env := newTestEnv(t, fixedPicker{n: 1}, true)
	ctx := context.Background()

	t.Run("DefaultsCampaign", func(t *testing.T) {
		p, c, err := env.codec.Parse(ctx, values("userPhone", testingutil.FixtureUserPhone))
		require.NoError(t, err)
		assert.Equal(t, "default", p.CampaignID)
		assert.Equal(t, "default", c.ID)
		assert.Empty(t, p.RepIDs)
		assert.Zero(t, p.CallIndex)
	})

	t.Run("MissingRequired", func(t *testing.T) {
		_, _, err := env.codec.Parse(ctx, values("campaignId", "default"), businessflow.ParamUserPhone)
		assert.True(t, businessflow.IsMissingParameter(err))
	})

	t.Run("UnknownCampaign", func(t *testing.T) {
		_, _, err := env.codec.Parse(ctx, values("campaignId", "nope"))
		assert.True(t, businessflow.IsCampaignNotFound(err))
		assert.True(t, businessflow.IsNotFound(err))
	})

	t.Run("MalformedSpecialCall", func(t *testing.T) {
		_, _, err := env.codec.Parse(ctx, values("repIds", "SPECIAL_CALL_{oops"))
		assert.True(t, businessflow.IsMalformedSpecialCall(err))
	})

	t.Run("InvalidCallIndex", func(t *testing.T) {
		_, _, err := env.codec.Parse(ctx, values("repIds", "S000001", "call_index", "abc"))
		assert.True(t, businessflow.IsInvalidCallParams(err))
	})

	t.Run("FixedRepIDsWin", func(t *testing.T) {
		p, _, err := env.codec.Parse(ctx, values("campaignId", "fixed", "repIds", "H000012"))
		require.NoError(t, err)
		assert.Equal(t, []string{"S000001", testingutil.FixtureSpecialToken()}, models.RepresentativeIDStrings(p.RepIDs))
	})

	t.Run("ZipcodeResolvedAndDropped", func(t *testing.T) {
		p, _, err := env.codec.Parse(ctx, values("zipcode", testingutil.FixtureZipCA))
		require.NoError(t, err)
		assert.Empty(t, p.Zipcode)
		assert.Equal(t, []string{"S000001", "S000002", "H000012"}, models.RepresentativeIDStrings(p.RepIDs))

		encoded := env.codec.Encode(p)
		assert.Empty(t, encoded.Get(businessflow.ParamZipcode))
	})

	t.Run("RandomChoiceRerolls", func(t *testing.T) {
		p, c, err := env.codec.Parse(ctx, values("campaignId", "random", "repIds", "S000001"))
		require.NoError(t, err)
		require.Len(t, p.RepIDs, 1)
		assert.True(t, c.InRandomChoice(p.RepIDs[0].String()))
		assert.Equal(t, "S000002", p.RepIDs[0].String())
	})
}

func TestCallParamsCodecKeepsRandomChoice(t *testing.T) {
	env := newTestEnv(t, fixedPicker{n: 1}, false)
	ctx := context.Background()

	p, _, err := env.codec.Parse(ctx, values("campaignId", "random", "repIds", "S000001"))
	require.NoError(t, err)
	assert.Equal(t, []string{"S000001"}, models.RepresentativeIDStrings(p.RepIDs))

	p, _, err = env.codec.Parse(ctx, values("campaignId", "random"))
	require.NoError(t, err)
	assert.Equal(t, []string{"S000002"}, models.RepresentativeIDStrings(p.RepIDs))
}

func TestCallParamsRoundTrip(t *testing.T) {
	env := newTestEnv(t, fixedPicker{}, true)
	ctx := context.Background()

	in := &businessflow.CallParams{
		UserPhone:  testingutil.FixtureUserPhone,
		CampaignID: "default",
		RepIDs: []models.RepresentativeID{
			models.LegislatorRepresentativeID("S000001"),
			models.MustParseRepresentativeID(`SPECIAL_CALL_{"number": "+15555550100", "name": "Ms. & Mr."}`),
		},
		CallIndex: 1,
	}

	encoded := env.codec.Encode(in)
	assert.Equal(t, "1", encoded.Get(businessflow.ParamCallIndex))

	out, _, err := env.codec.Parse(ctx, encoded)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	viaURL, _, err := env.codec.Parse(ctx, query(t, env.codec.URL("/make_single_call", in)))
	require.NoError(t, err)
	assert.Equal(t, in, viaURL)
}

func TestCallParamsCurrent(t *testing.T) {
	p := &businessflow.CallParams{}
	_, err := p.Current()
	assert.True(t, businessflow.IsNoRepresentatives(err))

	p.RepIDs = []models.RepresentativeID{models.LegislatorRepresentativeID("A")}
	p.CallIndex = 1
	_, err = p.Current()
	assert.True(t, businessflow.IsCallIndexOutOfRange(err))

	p.CallIndex = 0
	id, err := p.Current()
	require.NoError(t, err)
	assert.Equal(t, "A", id.String())
	assert.True(t, p.IsLastLeg())
}
