package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/roomrush/internal/model"
)

type fixtureRow struct {
	community string
	building  string
	floor     string
	price     string
	area      string
	typeDesc  string
	roomID    string
}

func (r fixtureRow) html() string {
	action := "<td>-</td>"
	if r.roomID != "" {
		action = fmt.Sprintf(`<td><a href="javascript:void(0)" onclick="selectRooms('%s','1')">选择</a></td>`, r.roomID)
	}
	return fmt.Sprintf(`<tr>%s<td>%s</td><td>%s</td><td>%s</td><td>东</td><td>%s</td><td>月付</td><td>%s</td><td>%s</td></tr>`,
		action, r.community, r.building, r.floor, r.price, r.area, r.typeDesc)
}

func listingPage(rows ...fixtureRow) string {
	var b strings.Builder
	b.WriteString(`<html><body><table id="common-table"><thead><tr><th>操作</th></tr></thead><tbody>`)
	for _, r := range rows {
		b.WriteString(r.html())
	}
	b.WriteString(`</tbody></table></body></html>`)
	return b.String()
}

func TestParse(t *testing.T) {
	page := listingPage(
		fixtureRow{"Harbor Court", "3", "0502", "1850.5", "42.30", "一居室", "R-100"},
		fixtureRow{"Harbor Court", "x", "0602", "1850", "42", "一居室", "R-101"},
		fixtureRow{"Harbor Court", "3", "1203", "2,100", "55", "二居室", ""},
	)

	records, err := ParseString(page, nil)
	require.NoError(t, err)
	require.Len(t, records, 2, "row with non-numeric building is skipped")

	first := records[0]
	assert.Equal(t, 0, first.Row)
	assert.Equal(t, "Harbor Court", first.CommunityName)
	assert.Equal(t, 3, first.BuildingNo)
	assert.Equal(t, 5, first.Floor)
	assert.Equal(t, "0502", first.FloorText)
	assert.InDelta(t, 1850.5, first.Price, 0.001)
	assert.InDelta(t, 42.3, first.Area, 0.001)
	assert.Equal(t, "R-100", first.RoomID)
	ht, ok := first.HouseType()
	assert.True(t, ok)
	assert.Equal(t, model.HouseTypeOneRoom, ht)

	second := records[1]
	assert.Equal(t, 2, second.Row)
	assert.Equal(t, 12, second.Floor)
	assert.InDelta(t, 2100, second.Price, 0.001)
	assert.Empty(t, second.RoomID)
}

func TestParse_EmptyListing(t *testing.T) {
	records, err := ParseString(listingPage(), nil)
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = ParseString("<html><body><p>暂无数据</p></body></html>", nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParse_ShortRowsSkipped(t *testing.T) {
	page := `<table id="common-table"><tbody><tr><td>only</td><td>two</td></tr></tbody></table>`
	records, err := ParseString(page, nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseFloor(t *testing.T) {
	tests := []struct {
		text    string
		want    int
		wantErr bool
	}{
		{text: "1203", want: 12},
		{text: "0501", want: 5},
		{text: "7", want: 7},
		{text: "3F", want: 3},
		{text: "12层", want: 12},
		{text: "高层", wantErr: true},
		{text: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := parseFloor(tt.text)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFirstMatchAndAllMatches(t *testing.T) {
	records, err := ParseString(listingPage(
		fixtureRow{"Other Park", "3", "0401", "1000", "60", "一居室", "X-1"},
		fixtureRow{"Harbor Court", "2", "0401", "1000", "60", "一居室", "A-1"},
		fixtureRow{"Harbor Court", "3", "0901", "1000", "60", "一居室", "A-2"},
		fixtureRow{"Harbor Court", "3", "0401", "1000", "60", "一居室", "A-3"},
		fixtureRow{"Harbor Court", "3", "0501", "1000", "60", "二居室", "A-4"},
		fixtureRow{"Harbor Court", "3", "0501", "3000", "60", "一居室", "A-5"},
		fixtureRow{"Harbor Court", "3", "0501", "1000", "60", "一居室", ""},
	), nil)
	require.NoError(t, err)

	cond := model.Condition{CommunityName: "Harbor Court", BuildingNo: 3, FloorRange: "3-5", MaxPrice: 2000}

	rec, ok := FirstMatch(records, cond)
	require.True(t, ok)
	assert.Equal(t, "A-3", rec.RoomID)

	assert.Equal(t, []string{"A-3", "A-4"}, AllMatches(records, cond))

	_, ok = FirstMatch(records, model.Condition{CommunityName: "Nowhere"})
	assert.False(t, ok)
	assert.Empty(t, AllMatches(records, model.Condition{CommunityName: "Nowhere"}))
}

func TestSelectFallback(t *testing.T) {
	cond := model.Condition{
		CommunityName: "Harbor Court",
		FloorRange:    "5-6",
		MaxPrice:      1500,
		HouseType:     model.HouseTypeTwoRoom,
	}

	t.Run("floor match preferred over first option", func(t *testing.T) {
		records, err := ParseString(listingPage(
			fixtureRow{"Harbor Court", "1", "0201", "900", "50", "一居室", "ANY"},
			fixtureRow{"Harbor Court", "1", "0501", "1800", "50", "二居室", "FLOOR"},
		), nil)
		require.NoError(t, err)

		pick, ok := SelectFallback(records, cond)
		require.True(t, ok)
		assert.Equal(t, TierFloor, pick.Tier)
		assert.Equal(t, "FLOOR", pick.Record.RoomID)
		assert.Equal(t, 1, pick.Record.Row)
	})

	t.Run("exact match wins", func(t *testing.T) {
		records, err := ParseString(listingPage(
			fixtureRow{"Harbor Court", "1", "0501", "1800", "50", "二居室", "FLOOR"},
			fixtureRow{"Harbor Court", "1", "0601", "1400", "50", "二居室", "EXACT"},
		), nil)
		require.NoError(t, err)

		pick, ok := SelectFallback(records, cond)
		require.True(t, ok)
		assert.Equal(t, TierExact, pick.Tier)
		assert.Equal(t, "EXACT", pick.Record.RoomID)
	})

	t.Run("community row as last resort", func(t *testing.T) {
		records, err := ParseString(listingPage(
			fixtureRow{"Other Park", "1", "0501", "1000", "50", "二居室", "OTHER"},
			fixtureRow{"Harbor Court", "1", "0901", "1000", "50", "三居室", "LAST"},
		), nil)
		require.NoError(t, err)

		pick, ok := SelectFallback(records, cond)
		require.True(t, ok)
		assert.Equal(t, TierCommunity, pick.Tier)
		assert.Equal(t, "LAST", pick.Record.RoomID)
	})

	t.Run("no community rows", func(t *testing.T) {
		records, err := ParseString(listingPage(
			fixtureRow{"Other Park", "1", "0501", "1000", "50", "二居室", "OTHER"},
		), nil)
		require.NoError(t, err)

		_, ok := SelectFallback(records, cond)
		assert.False(t, ok)
	})
}

type stubSource struct {
	err       error
	pages     map[string]string
	requested []string
}

func (s *stubSource) FetchListing(_ context.Context, community string) (string, error) {
	s.requested = append(s.requested, community)
	if s.err != nil {
		return "", s.err
	}
	return s.pages[community], nil
}

func TestResolver(t *testing.T) {
	src := &stubSource{pages: map[string]string{
		"Harbor Court": listingPage(
			fixtureRow{"Harbor Court", "1", "0301", "1000", "50", "一居室", "A-1"},
			fixtureRow{"Harbor Court", "1", "0401", "1000", "50", "一居室", "A-2"},
		),
	}}
	r := NewResolver(src, nil)
	cond := model.Condition{CommunityName: "Harbor Court"}

	id, err := r.FirstMatch(context.Background(), cond)
	require.NoError(t, err)
	assert.Equal(t, "A-1", id)

	ids, err := r.AllMatches(context.Background(), cond)
	require.NoError(t, err)
	assert.Equal(t, []string{"A-1", "A-2"}, ids)

	id, err = r.FirstMatch(context.Background(), model.Condition{CommunityName: "Empty"})
	require.NoError(t, err)
	assert.Empty(t, id)

	assert.Equal(t, []string{"Harbor Court", "Harbor Court", "Empty"}, src.requested)

	src.err = errors.New("connection refused")
	_, err = r.FirstMatch(context.Background(), cond)
	assert.ErrorContains(t, err, "connection refused")
}
