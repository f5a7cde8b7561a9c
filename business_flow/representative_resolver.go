package businessflow

import (
	"context"

	"github.com/amirphl/call-congress/models"
	"github.com/amirphl/call-congress/repository"
)

// MessageVariant selects the intro played before a leg is dialed
type MessageVariant string

const (
	VariantNormal    MessageVariant = "normal"
	VariantVotedWith MessageVariant = "voted-with"
	VariantSpecial   MessageVariant = "special"
)

// Representative is a dialable target with the intro template to play for it
type Representative struct {
	ID          models.RepresentativeID
	DisplayName string
	PhoneNumber string
	Variant     MessageVariant
	// Message is the mustache template for the intro, rendered with {{name}}
	Message string
}

// RepresentativeResolver turns a representative id into a dialable target
type RepresentativeResolver interface {
	Resolve(ctx context.Context, id models.RepresentativeID, campaign *models.Campaign) (*Representative, error)
}

// RepresentativeResolverImpl implements RepresentativeResolver
type RepresentativeResolverImpl struct {
	legislatorRepo repository.LegislatorRepository
}

func NewRepresentativeResolver(legislatorRepo repository.LegislatorRepository) RepresentativeResolver {
	return &RepresentativeResolverImpl{legislatorRepo: legislatorRepo}
}

func (r *RepresentativeResolverImpl) Resolve(ctx context.Context, id models.RepresentativeID, campaign *models.Campaign) (*Representative, error) {
	if special, ok := id.Special(); ok {
		msg := campaign.Messages.SpecialCallIntro
		if msg == "" {
			msg = campaign.Messages.RepIntro
		}
		return &Representative{
			ID:          id,
			DisplayName: special.Name,
			PhoneNumber: special.Number,
			Variant:     VariantSpecial,
			Message:     msg,
		}, nil
	}

	legislator, err := r.legislatorRepo.ByBioguideID(ctx, id.BioguideID())
	if err != nil {
		return nil, NewBusinessError("LEGISLATOR_LOOKUP_FAILED", "Failed to look up legislator", err)
	}
	if legislator == nil {
		return nil, NewBusinessErrorf("LEGISLATOR_NOT_FOUND", "Legislator %q not found", ErrLegislatorNotFound, id.BioguideID())
	}

	rep := &Representative{
		ID:          id,
		DisplayName: legislator.FullName(),
		PhoneNumber: legislator.Phone,
		Variant:     VariantNormal,
		Message:     campaign.Messages.RepIntro,
	}
	if campaign.IsVotedWith(id.String()) {
		rep.Variant = VariantVotedWith
		if campaign.Messages.RepIntroVotedWith != "" {
			rep.Message = campaign.Messages.RepIntroVotedWith
		}
	}
	return rep, nil
}
