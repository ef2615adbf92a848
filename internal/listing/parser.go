// Package listing parses the portal's room listing and picks candidate rooms
// for a condition.
package listing

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Veraticus/roomrush/internal/model"
)

// Column positions in the listing table.
const (
	colCommunity = 1
	colBuilding  = 2
	colFloor     = 3
	colPrice     = 5
	colArea      = 7
	colType      = 8
	minCells     = 9
)

const (
	rowSelector    = "table#common-table > tbody > tr"
	actionSelector = "a[onclick*='selectRooms']"
	roomIDToken    = "selectRooms('"
)

var leadingDigits = regexp.MustCompile(`^\d+`)

// Parse reads listing markup and returns one record per well-formed row, in
// document order. Rows that fail numeric parsing are logged and skipped. A
// page with no rows yields an empty slice.
func Parse(r io.Reader, logger *slog.Logger) ([]model.ListingRecord, error) {
	if logger == nil {
		logger = slog.Default()
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing markup: %w", err)
	}

	records := []model.ListingRecord{}
	doc.Find(rowSelector).Each(func(i int, row *goquery.Selection) {
		rec, err := parseRow(i, row)
		if err != nil {
			logger.Debug("Skipping listing row", "row", i, "error", err)
			return
		}
		records = append(records, rec)
	})

	return records, nil
}

// ParseString is Parse over an in-memory document.
func ParseString(html string, logger *slog.Logger) ([]model.ListingRecord, error) {
	return Parse(strings.NewReader(html), logger)
}

func parseRow(index int, row *goquery.Selection) (model.ListingRecord, error) {
	cells := row.ChildrenFiltered("td")
	if cells.Length() < minCells {
		return model.ListingRecord{}, fmt.Errorf("row has %d cells, want %d", cells.Length(), minCells)
	}

	text := func(col int) string {
		return strings.TrimSpace(cells.Eq(col).Text())
	}

	building, err := strconv.Atoi(text(colBuilding))
	if err != nil {
		return model.ListingRecord{}, fmt.Errorf("building: %w", err)
	}

	floorText := text(colFloor)
	floor, err := parseFloor(floorText)
	if err != nil {
		return model.ListingRecord{}, fmt.Errorf("floor: %w", err)
	}

	price, err := parseNumber(text(colPrice))
	if err != nil {
		return model.ListingRecord{}, fmt.Errorf("price: %w", err)
	}

	area, err := parseNumber(text(colArea))
	if err != nil {
		return model.ListingRecord{}, fmt.Errorf("area: %w", err)
	}

	return model.ListingRecord{
		Row:           index,
		CommunityName: text(colCommunity),
		BuildingNo:    building,
		FloorText:     floorText,
		Floor:         floor,
		Price:         price,
		Area:          area,
		TypeDesc:      text(colType),
		RoomID:        extractRoomID(row),
	}, nil
}

// parseFloor reads the floor from the first two characters of the floor
// column ("1203" is floor 12). When those are not numeric the leading digit
// run is used instead ("3F" is floor 3).
func parseFloor(text string) (int, error) {
	runes := []rune(text)
	prefix := text
	if len(runes) >= 2 {
		prefix = string(runes[:2])
	}
	if n, err := strconv.Atoi(prefix); err == nil {
		return n, nil
	}
	digits := leadingDigits.FindString(text)
	if digits == "" {
		return 0, fmt.Errorf("no floor number in %q", text)
	}
	return strconv.Atoi(digits)
}

func parseNumber(text string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(text, ",", ""), 64)
}

// extractRoomID pulls the id out of the row's selectRooms('<id>') handler.
// It returns "" when the row has no usable action element.
func extractRoomID(row *goquery.Selection) string {
	onclick, ok := row.Find(actionSelector).First().Attr("onclick")
	if !ok {
		return ""
	}
	start := strings.Index(onclick, roomIDToken)
	if start < 0 {
		return ""
	}
	start += len(roomIDToken)
	end := strings.IndexByte(onclick[start:], '\'')
	if end <= 0 {
		return ""
	}
	return onclick[start : start+end]
}
