package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilters_SentinelAlwaysPasses(t *testing.T) {
	values := []float64{-10, 0, 1, 35.5, 1200, 99999}

	for _, v := range values {
		assert.True(t, FilterEqual(int(v), 0), "FilterEqual(%v, 0)", v)
		assert.True(t, FilterPrice(v, 0), "FilterPrice(%v, 0)", v)
		assert.True(t, FilterArea(v, 0), "FilterArea(%v, 0)", v)
		assert.True(t, FilterFloor(int(v), ""), "FilterFloor(%v, \"\")", v)
		assert.True(t, FilterFloor(int(v), "0"), "FilterFloor(%v, \"0\")", v)
	}
}

func TestFilters_Thresholds(t *testing.T) {
	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{"equal match", FilterEqual(5, 5), true},
		{"equal mismatch", FilterEqual(4, 5), false},
		{"price at max", FilterPrice(1500, 1500), true},
		{"price over max", FilterPrice(1500.5, 1500), false},
		{"price under max", FilterPrice(900, 1500), true},
		{"area at min", FilterArea(45, 45), true},
		{"area under min", FilterArea(44.9, 45), false},
		{"floor in range", FilterFloor(4, "3-5"), true},
		{"floor out of range", FilterFloor(6, "3-5"), false},
		{"floor in list", FilterFloor(9, "3,9-11"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestParseFloorRange(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want []int
	}{
		{name: "range and single", spec: "3-4,6", want: []int{3, 4, 6}},
		{name: "blank", spec: "", want: nil},
		{name: "whitespace", spec: "   ", want: nil},
		{name: "zero sentinel", spec: "0", want: nil},
		{name: "spaces around tokens", spec: " 3 , 7 - 8 ", want: []int{3, 7, 8}},
		{name: "swapped bounds dropped", spec: "5-3,9", want: []int{9}},
		{name: "malformed tokens dropped", spec: "a,2-b,1-2-3,4", want: []int{4}},
		{name: "overlap deduplicated", spec: "1-3,2-4", want: []int{1, 2, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseFloorRange(tt.spec)
			assert.Len(t, got, len(tt.want))
			for _, f := range tt.want {
				_, ok := got[f]
				assert.True(t, ok, "floor %d missing", f)
			}
		})
	}
}

func TestFloorSet_EmptyMatchesAnything(t *testing.T) {
	empty := ParseFloorRange("")
	assert.True(t, empty.Contains(1))
	assert.True(t, empty.Contains(42))
}

func TestValidateFloorRange(t *testing.T) {
	tests := []struct {
		spec    string
		wantErr bool
	}{
		{spec: "", wantErr: false},
		{spec: "3-5", wantErr: false},
		{spec: "3,5,7", wantErr: false},
		{spec: "3-5, 7, 9-11", wantErr: false},
		{spec: "5-3", wantErr: true},
		{spec: "3-", wantErr: true},
		{spec: "three", wantErr: true},
		{spec: "3;4", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			err := ValidateFloorRange(tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
