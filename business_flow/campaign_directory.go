package businessflow

import (
	"context"
	"sort"

	"github.com/amirphl/call-congress/models"
	"github.com/amirphl/call-congress/repository"
	"github.com/amirphl/call-congress/utils"
)

// CampaignDirectory resolves campaigns and zip codes
type CampaignDirectory interface {
	GetCampaign(ctx context.Context, id string) (*models.Campaign, error)
	ResolveRepresentativeIDs(ctx context.Context, zipcode string, campaign *models.Campaign) ([]models.RepresentativeID, error)
}

// CampaignDirectoryImpl implements CampaignDirectory over the repositories
type CampaignDirectoryImpl struct {
	campaignRepo   repository.CampaignRepository
	legislatorRepo repository.LegislatorRepository
	districtRepo   repository.DistrictRepository
}

func NewCampaignDirectory(
	campaignRepo repository.CampaignRepository,
	legislatorRepo repository.LegislatorRepository,
	districtRepo repository.DistrictRepository,
) CampaignDirectory {
	return &CampaignDirectoryImpl{
		campaignRepo:   campaignRepo,
		legislatorRepo: legislatorRepo,
		districtRepo:   districtRepo,
	}
}

func (d *CampaignDirectoryImpl) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	campaign, err := d.campaignRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to load campaign", err)
	}
	if campaign == nil {
		return nil, NewBusinessErrorf("CAMPAIGN_NOT_FOUND", "Campaign %q not found", ErrCampaignNotFound, id)
	}
	return campaign, nil
}

// ResolveRepresentativeIDs returns the dialing order for a zip code. The result is
// deterministic for identical inputs and empty when nothing resolves.
func (d *CampaignDirectoryImpl) ResolveRepresentativeIDs(ctx context.Context, zipcode string, campaign *models.Campaign) ([]models.RepresentativeID, error) {
	if !isZipcode(zipcode) {
		return nil, nil
	}

	districts, err := d.districtRepo.ByZipcode(ctx, zipcode)
	if err != nil {
		return nil, NewBusinessError("DISTRICT_LOOKUP_FAILED", "Failed to look up districts", err)
	}
	if len(districts) == 0 {
		return nil, nil
	}

	targetSenate, targetHouse := campaign.TargetSenate, campaign.TargetHouse
	if !targetSenate && !targetHouse {
		targetSenate, targetHouse = true, true
	}

	var senators, house []*models.Legislator
	if targetSenate {
		if senators, err = d.senatorsFor(ctx, districts); err != nil {
			return nil, err
		}
		if campaign.OnlyCallOneSenator && len(senators) > 1 {
			senators = senators[:1]
		}
	}
	if targetHouse {
		if house, err = d.houseMembersFor(ctx, districts); err != nil {
			return nil, err
		}
	}

	located := append(append([]*models.Legislator{}, senators...), house...)
	if campaign.TargetHouseFirst {
		located = append(append([]*models.Legislator{}, house...), senators...)
	}
	if len(located) == 0 {
		return nil, nil
	}

	tokens := make([]string, 0, len(campaign.ExtraFirstCalls)+len(located)+len(campaign.ExtraLastCalls))
	tokens = append(tokens, campaign.ExtraFirstCalls...)
	for _, l := range located {
		tokens = append(tokens, l.BioguideID)
	}
	tokens = append(tokens, campaign.ExtraLastCalls...)

	ids, err := models.ParseRepresentativeIDs(dedupe(tokens))
	if err != nil {
		return nil, NewBusinessError("EXTRA_CALL_INVALID", "Campaign extra call is malformed", err)
	}
	return ids, nil
}

func (d *CampaignDirectoryImpl) senatorsFor(ctx context.Context, districts []*models.District) ([]*models.Legislator, error) {
	chamber := models.ChamberSenate
	inOffice := true

	seen := make(map[string]bool)
	var out []*models.Legislator
	for _, dist := range districts {
		if seen[dist.State] {
			continue
		}
		seen[dist.State] = true
		state := dist.State
		rows, err := d.legislatorRepo.ByFilter(ctx, models.LegislatorFilter{Chamber: &chamber, State: &state, InOffice: &inOffice})
		if err != nil {
			return nil, NewBusinessError("LEGISLATOR_LOOKUP_FAILED", "Failed to look up senators", err)
		}
		out = append(out, rows...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.State != b.State {
			return a.State < b.State
		}
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		return a.BioguideID < b.BioguideID
	})
	return out, nil
}

func (d *CampaignDirectoryImpl) houseMembersFor(ctx context.Context, districts []*models.District) ([]*models.Legislator, error) {
	chamber := models.ChamberHouse
	inOffice := true

	seen := make(map[string]bool)
	var out []*models.Legislator
	for _, dist := range districts {
		key := dist.StateDistrict()
		if seen[key] {
			continue
		}
		seen[key] = true
		state, district := dist.State, dist.HouseDistrict
		rows, err := d.legislatorRepo.ByFilter(ctx, models.LegislatorFilter{Chamber: &chamber, State: &state, District: &district, InOffice: &inOffice})
		if err != nil {
			return nil, NewBusinessError("LEGISLATOR_LOOKUP_FAILED", "Failed to look up house members", err)
		}
		out = append(out, rows...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.State != b.State {
			return a.State < b.State
		}
		if a.District != b.District {
			return districtLess(a.District, b.District)
		}
		return a.BioguideID < b.BioguideID
	})
	return out, nil
}

// districtLess orders numeric districts numerically ("2" < "10")
func districtLess(a, b string) bool {
	if len(a) != len(b) && isDigits(a) && isDigits(b) {
		return len(a) < len(b)
	}
	return a < b
}

func isZipcode(s string) bool {
	return len(s) == utils.ZipcodeDigits && isDigits(s)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func dedupe(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
