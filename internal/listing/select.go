package listing

import "github.com/Veraticus/roomrush/internal/model"

// FirstMatch returns the first record in document order that belongs to the
// condition's community, passes every filter and carries a room id.
func FirstMatch(records []model.ListingRecord, c model.Condition) (model.ListingRecord, bool) {
	for _, rec := range records {
		if qualifies(rec, c) {
			return rec, true
		}
	}
	return model.ListingRecord{}, false
}

// AllMatches returns the room ids of every qualifying record in document order.
func AllMatches(records []model.ListingRecord, c model.Condition) []string {
	ids := []string{}
	for _, rec := range records {
		if qualifies(rec, c) {
			ids = append(ids, rec.RoomID)
		}
	}
	return ids
}

func qualifies(rec model.ListingRecord, c model.Condition) bool {
	return rec.RoomID != "" && rec.CommunityName == c.CommunityName && rec.MatchesAll(c)
}

// Tier says how closely a fallback pick matched its condition.
type Tier int

// Fallback tiers, best first.
const (
	TierNone Tier = iota
	TierExact
	TierFloor
	TierCommunity
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierFloor:
		return "floor"
	case TierCommunity:
		return "community"
	default:
		return "none"
	}
}

// Pick is the outcome of SelectFallback.
type Pick struct {
	Record model.ListingRecord
	Tier   Tier
}

// SelectFallback scans every record once and returns the best of three tiers:
// a full match including unit type, then a community+type+floor match with
// price and area ignored, then any row of the condition's community. The
// first row in document order wins within a tier.
func SelectFallback(records []model.ListingRecord, c model.Condition) (Pick, bool) {
	var best, floorMatch, firstOption *model.ListingRecord

	for i := range records {
		rec := &records[i]
		if rec.CommunityName != c.CommunityName {
			continue
		}
		if firstOption == nil {
			firstOption = rec
		}

		houseType, known := rec.HouseType()
		if !known || houseType != c.HouseType {
			continue
		}
		if !model.FilterFloor(rec.Floor, c.FloorRange) {
			continue
		}
		if floorMatch == nil {
			floorMatch = rec
		}
		if best == nil && rec.MatchesAll(c) {
			best = rec
		}
	}

	switch {
	case best != nil:
		return Pick{Record: *best, Tier: TierExact}, true
	case floorMatch != nil:
		return Pick{Record: *floorMatch, Tier: TierFloor}, true
	case firstOption != nil:
		return Pick{Record: *firstOption, Tier: TierCommunity}, true
	default:
		return Pick{}, false
	}
}
