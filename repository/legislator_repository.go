package repository

import (
	"context"
	"sort"

	"github.com/amirphl/call-congress/models"
)

// LegislatorRepositoryImpl implements LegislatorRepository over the workbook snapshot
type LegislatorRepositoryImpl struct {
	wb *Workbook
}

func NewLegislatorRepository(wb *Workbook) LegislatorRepository {
	return &LegislatorRepositoryImpl{wb: wb}
}

func (r *LegislatorRepositoryImpl) ByBioguideID(ctx context.Context, bioguideID string) (*models.Legislator, error) {
	l, ok := r.wb.legislators[bioguideID]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

// ByFilter returns matching legislators ordered by bioguide id
func (r *LegislatorRepositoryImpl) ByFilter(ctx context.Context, f models.LegislatorFilter) ([]*models.Legislator, error) {
	var rows []*models.Legislator
	for _, l := range r.wb.legislators {
		if f.BioguideID != nil && l.BioguideID != *f.BioguideID {
			continue
		}
		if f.Chamber != nil && l.Chamber != *f.Chamber {
			continue
		}
		if f.State != nil && l.State != *f.State {
			continue
		}
		if f.District != nil && l.District != *f.District {
			continue
		}
		if f.InOffice != nil && l.InOffice != *f.InOffice {
			continue
		}
		row := l
		rows = append(rows, &row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].BioguideID < rows[j].BioguideID })
	return rows, nil
}
