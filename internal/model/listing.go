package model

import "fmt"

// ListingRecord is one row of the portal's room listing. Records live only as
// long as the response they were parsed from.
type ListingRecord struct {
	CommunityName string
	FloorText     string
	TypeDesc      string
	RoomID        string
	Price         float64
	Area          float64
	BuildingNo    int
	Floor         int
	// Row is the zero-based position of the row in the listing table.
	Row int
}

// HouseType resolves the unit-type label. Unknown labels report ok=false.
func (r ListingRecord) HouseType() (HouseType, bool) {
	return HouseTypeFromDescription(r.TypeDesc)
}

// MatchesAll applies the building, floor, price and area filters in that order.
func (r ListingRecord) MatchesAll(c Condition) bool {
	return FilterEqual(r.BuildingNo, c.BuildingNo) &&
		FilterFloor(r.Floor, c.FloorRange) &&
		FilterPrice(r.Price, c.MaxPrice) &&
		FilterArea(r.Area, c.MinArea)
}

func (r ListingRecord) String() string {
	return fmt.Sprintf("%s building:%d floor:%s price:%.0f area:%.2f type:%s room:%s",
		r.CommunityName, r.BuildingNo, r.FloorText, r.Price, r.Area, r.TypeDesc, r.RoomID)
}
