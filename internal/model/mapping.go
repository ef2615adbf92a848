package model

import (
	"strings"
	"time"
)

// RoomIDMapping records the room ids that matched a condition at pre-fetch time.
// There is no expiry: the ids stay valid only as long as the listing does not change.
type RoomIDMapping struct {
	LastUpdated  time.Time
	ConditionKey string
	Condition    Condition
	RoomIDs      []string
}

// NewRoomIDMapping builds a mapping for c stamped with now.
func NewRoomIDMapping(c Condition, roomIDs []string, now time.Time) RoomIDMapping {
	ids := make([]string, len(roomIDs))
	copy(ids, roomIDs)
	return RoomIDMapping{
		ConditionKey: c.Key(),
		Condition:    c,
		RoomIDs:      ids,
		LastUpdated:  now,
	}
}

// Matches reports whether the mapping belongs to c.
func (m RoomIDMapping) Matches(c Condition) bool {
	return m.ConditionKey == c.Key()
}

// ParseRoomIDs splits manually entered room ids on newlines and commas.
func ParseRoomIDs(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ','
	})
	ids := make([]string, 0, len(fields))
	for _, f := range fields {
		if id := strings.TrimSpace(f); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
