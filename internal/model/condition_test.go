package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCondition_KeyDeterministic(t *testing.T) {
	c := Condition{
		CommunityName: "Harbor Court",
		BuildingNo:    3,
		FloorRange:    "3-5",
		MaxPrice:      2000,
		MinArea:       40,
		HouseType:     HouseTypeTwoRoom,
	}
	same := c

	assert.Equal(t, c.Key(), same.Key())
	assert.Equal(t, c.Key(), c.Key())
	assert.Equal(t, "Harbor Court_1_3_3-5_2000_40", c.Key())
}

func TestCondition_KeyDiffersPerField(t *testing.T) {
	base := Condition{
		CommunityName: "Harbor Court",
		BuildingNo:    3,
		FloorRange:    "3-5",
		MaxPrice:      2000,
		MinArea:       40,
		HouseType:     HouseTypeTwoRoom,
	}

	variants := map[string]func(c *Condition){
		"community": func(c *Condition) { c.CommunityName = "Elm Yard" },
		"building":  func(c *Condition) { c.BuildingNo = 4 },
		"floors":    func(c *Condition) { c.FloorRange = "3-6" },
		"price":     func(c *Condition) { c.MaxPrice = 2100 },
		"area":      func(c *Condition) { c.MinArea = 41 },
		"type":      func(c *Condition) { c.HouseType = HouseTypeThreeRoom },
	}

	for name, mutate := range variants {
		t.Run(name, func(t *testing.T) {
			changed := base
			mutate(&changed)
			assert.NotEqual(t, base.Key(), changed.Key())
		})
	}
}

func TestCondition_Validate(t *testing.T) {
	tests := []struct {
		name    string
		errMsg  string
		cond    Condition
		wantErr bool
	}{
		{
			name: "valid",
			cond: Condition{CommunityName: "Harbor Court", FloorRange: "2-4"},
		},
		{
			name:    "missing community",
			cond:    Condition{FloorRange: "2-4"},
			wantErr: true,
			errMsg:  "community name is required",
		},
		{
			name:    "bad floors",
			cond:    Condition{CommunityName: "Harbor Court", FloorRange: "4-2"},
			wantErr: true,
			errMsg:  "invalid floor range",
		},
		{
			name:    "bad house type",
			cond:    Condition{CommunityName: "Harbor Court", HouseType: HouseType(7)},
			wantErr: true,
			errMsg:  "invalid house type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cond.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestHouseType_DescriptionTable(t *testing.T) {
	for _, h := range HouseTypes {
		back, ok := HouseTypeFromDescription(h.Description())
		require.True(t, ok, "description for %s not recognized", h)
		assert.Equal(t, h, back)

		parsed, err := ParseHouseType(h.String())
		require.NoError(t, err)
		assert.Equal(t, h, parsed)
	}

	_, ok := HouseTypeFromDescription("四居室")
	assert.False(t, ok)

	_, err := ParseHouseType("studio")
	assert.Error(t, err)
}

func TestRoomIDMapping(t *testing.T) {
	c := Condition{CommunityName: "Harbor Court", HouseType: HouseTypeOneRoom}
	ids := []string{"r1", "r2"}
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.Local)

	m := NewRoomIDMapping(c, ids, now)
	ids[0] = "mutated"

	assert.Equal(t, []string{"r1", "r2"}, m.RoomIDs)
	assert.True(t, m.Matches(c))
	assert.Equal(t, now, m.LastUpdated)

	other := c
	other.BuildingNo = 2
	assert.False(t, m.Matches(other))
}

func TestParseRoomIDs(t *testing.T) {
	got := ParseRoomIDs("a1, b2\r\nc3,,\n  \nd4")
	assert.Equal(t, []string{"a1", "b2", "c3", "d4"}, got)
	assert.Empty(t, ParseRoomIDs("  \n,"))
}
