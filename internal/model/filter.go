package model

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// The filters below share one convention: a zero or empty threshold means
// "no constraint" and always passes. A real value of zero is never a threshold.

// FilterEqual passes when wanted is 0 or actual equals wanted.
func FilterEqual(actual, wanted int) bool {
	return wanted == 0 || actual == wanted
}

// FilterPrice passes when maxPrice is 0 or price does not exceed it.
func FilterPrice(price float64, maxPrice int) bool {
	return maxPrice == 0 || price <= float64(maxPrice)
}

// FilterArea passes when minArea is 0 or area is at least minArea.
func FilterArea(area float64, minArea int) bool {
	return minArea == 0 || area >= float64(minArea)
}

// FilterFloor passes when the range spec parses to an empty set or contains floor.
func FilterFloor(floor int, rangeSpec string) bool {
	return ParseFloorRange(rangeSpec).Contains(floor)
}

// FloorSet is the set of floors a range spec expands to. An empty set matches every floor.
type FloorSet map[int]struct{}

// Contains reports whether floor is acceptable.
func (s FloorSet) Contains(floor int) bool {
	if len(s) == 0 {
		return true
	}
	_, ok := s[floor]
	return ok
}

// ParseFloorRange expands a spec such as "3-5,7,9-11". Blank input and "0"
// yield an empty set. Tokens with malformed or swapped bounds are skipped.
func ParseFloorRange(spec string) FloorSet {
	floors := FloorSet{}
	spec = strings.TrimSpace(spec)
	if spec == "" || spec == "0" {
		return floors
	}

	for _, part := range strings.Split(spec, ",") {
		token := strings.TrimSpace(part)
		if token == "" {
			continue
		}
		if !strings.Contains(token, "-") {
			n, err := strconv.Atoi(token)
			if err != nil {
				slog.Debug("Skipping floor token", "token", token, "error", err)
				continue
			}
			floors[n] = struct{}{}
			continue
		}

		bounds := strings.Split(token, "-")
		if len(bounds) != 2 {
			slog.Debug("Skipping floor range", "token", token)
			continue
		}
		low, errLow := strconv.Atoi(strings.TrimSpace(bounds[0]))
		high, errHigh := strconv.Atoi(strings.TrimSpace(bounds[1]))
		if errLow != nil || errHigh != nil || low > high {
			slog.Debug("Skipping floor range", "token", token)
			continue
		}
		for f := low; f <= high; f++ {
			floors[f] = struct{}{}
		}
	}

	return floors
}

var floorRangePattern = regexp.MustCompile(`^\d+(-\d+)?(,\d+(-\d+)?)*$`)

// ValidateFloorRange rejects specs the parser would silently drop tokens from.
func ValidateFloorRange(spec string) error {
	compact := strings.Join(strings.Fields(spec), "")
	if compact == "" {
		return nil
	}
	if !floorRangePattern.MatchString(compact) {
		return fmt.Errorf("invalid floor range %q: use forms like 3-5 or 3,5,7", spec)
	}
	for _, token := range strings.Split(compact, ",") {
		lo, hi, found := strings.Cut(token, "-")
		if !found {
			continue
		}
		low, _ := strconv.Atoi(lo)
		high, _ := strconv.Atoi(hi)
		if low > high {
			return fmt.Errorf("invalid floor range %q: %d is above %d", spec, low, high)
		}
	}
	return nil
}
