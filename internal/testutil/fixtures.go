package testutil

import "github.com/Veraticus/roomrush/internal/model"

// Conditions used across package tests.
var (
	HarborCourt = model.Condition{
		CommunityName: "Harbor Court",
		HouseType:     model.HouseTypeOneRoom,
		FloorRange:    "3-6",
		MaxPrice:      3000,
	}
	QuietGardens = model.Condition{
		CommunityName: "Quiet Gardens",
		HouseType:     model.HouseTypeTwoRoom,
		BuildingNo:    2,
	}
	MapleYard = model.Condition{
		CommunityName: "Maple Yard",
		HouseType:     model.HouseTypeThreeRoom,
		MinArea:       70,
	}
)
