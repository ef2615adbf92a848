package model

import (
	"fmt"
	"strings"
)

// HouseType is the unit layout an applicant is willing to accept.
type HouseType int

const (
	// HouseTypeOneRoom is a one-bedroom unit.
	HouseTypeOneRoom HouseType = iota
	// HouseTypeTwoRoom is a two-bedroom unit.
	HouseTypeTwoRoom
	// HouseTypeThreeRoom is a three-bedroom unit.
	HouseTypeThreeRoom
)

// HouseTypes lists every unit type in display order.
var HouseTypes = []HouseType{HouseTypeOneRoom, HouseTypeTwoRoom, HouseTypeThreeRoom}

// Description returns the label the portal prints in its unit-type column.
func (h HouseType) Description() string {
	switch h {
	case HouseTypeOneRoom:
		return "一居室"
	case HouseTypeTwoRoom:
		return "二居室"
	case HouseTypeThreeRoom:
		return "三居室"
	default:
		return fmt.Sprintf("HouseType(%d)", int(h))
	}
}

// String returns the short name used in flags and config files.
func (h HouseType) String() string {
	switch h {
	case HouseTypeOneRoom:
		return "one"
	case HouseTypeTwoRoom:
		return "two"
	case HouseTypeThreeRoom:
		return "three"
	default:
		return fmt.Sprintf("HouseType(%d)", int(h))
	}
}

// Valid reports whether h is one of the known unit types.
func (h HouseType) Valid() bool {
	return h >= HouseTypeOneRoom && h <= HouseTypeThreeRoom
}

// HouseTypeFromDescription maps a portal unit-type label back to its HouseType.
func HouseTypeFromDescription(desc string) (HouseType, bool) {
	switch strings.TrimSpace(desc) {
	case "一居室":
		return HouseTypeOneRoom, true
	case "二居室":
		return HouseTypeTwoRoom, true
	case "三居室":
		return HouseTypeThreeRoom, true
	default:
		return HouseTypeOneRoom, false
	}
}

// ParseHouseType accepts a short name ("one", "2", "三居室", ...) and returns the HouseType.
func ParseHouseType(s string) (HouseType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "one", "1", "one-room":
		return HouseTypeOneRoom, nil
	case "two", "2", "two-room":
		return HouseTypeTwoRoom, nil
	case "three", "3", "three-room":
		return HouseTypeThreeRoom, nil
	}
	if h, ok := HouseTypeFromDescription(s); ok {
		return h, nil
	}
	return HouseTypeOneRoom, fmt.Errorf("unknown house type %q: want one, two or three", s)
}

// Condition is one acceptable-room criterion. A slice of conditions is ordered
// by applicant preference, first entry most preferred.
type Condition struct {
	CommunityName string    `yaml:"community" json:"community"`
	FloorRange    string    `yaml:"floors,omitempty" json:"floors,omitempty"`
	BuildingNo    int       `yaml:"building,omitempty" json:"building,omitempty"`
	MaxPrice      int       `yaml:"max_price,omitempty" json:"max_price,omitempty"`
	MinArea       int       `yaml:"min_area,omitempty" json:"min_area,omitempty"`
	HouseType     HouseType `yaml:"house_type" json:"house_type"`
}

// Key derives the lookup key for pre-fetched room ids. Two conditions with
// identical fields always share a key.
func (c Condition) Key() string {
	return fmt.Sprintf("%s_%d_%d_%s_%d_%d",
		c.CommunityName,
		int(c.HouseType),
		c.BuildingNo,
		c.FloorRange,
		c.MaxPrice,
		c.MinArea)
}

// String renders the condition for log lines.
func (c Condition) String() string {
	return fmt.Sprintf("%s (building:%d, floors:%s, max price:%d, min area:%d, type:%s)",
		c.CommunityName, c.BuildingNo, c.FloorRange, c.MaxPrice, c.MinArea, c.HouseType.Description())
}

// Validate checks the condition for errors that must stop a run.
func (c Condition) Validate() error {
	if strings.TrimSpace(c.CommunityName) == "" {
		return fmt.Errorf("community name is required")
	}
	if !c.HouseType.Valid() {
		return fmt.Errorf("invalid house type %d", int(c.HouseType))
	}
	if err := ValidateFloorRange(c.FloorRange); err != nil {
		return err
	}
	return nil
}
