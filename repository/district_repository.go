package repository

import (
	"context"

	"github.com/amirphl/call-congress/models"
)

// DistrictRepositoryImpl implements DistrictRepository over the workbook snapshot
type DistrictRepositoryImpl struct {
	wb *Workbook
}

func NewDistrictRepository(wb *Workbook) DistrictRepository {
	return &DistrictRepositoryImpl{wb: wb}
}

// ByZipcode returns the districts of a zip code in workbook order
func (r *DistrictRepositoryImpl) ByZipcode(ctx context.Context, zipcode string) ([]*models.District, error) {
	ds := r.wb.districts[zipcode]
	if len(ds) == 0 {
		return nil, nil
	}
	out := make([]*models.District, len(ds))
	for i := range ds {
		d := ds[i]
		out[i] = &d
	}
	return out, nil
}
