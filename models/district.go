package models

// District maps a zip code to one congressional district. A zip code may span several.
type District struct {
	Zipcode       string `json:"zipcode"`
	State         string `json:"state"`
	HouseDistrict string `json:"house_district"`
}

// StateDistrict is the roster key for the district's house member
func (d District) StateDistrict() string {
	return d.State + "-" + d.HouseDistrict
}
