package naver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
	}{
		{"4억 5,000", 45000},
		{"6억 5,000", 65000},
		{"2억", 20000},
		{"45000", 45000},
		{"5,000", 5000},
		{"", 0},
		{"협의", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, parsePrice(tt.in))
		})
	}
}

func TestParseFloor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in        string
		wantFloor *int
		wantTotal *int
	}{
		{"7/15", intPtr(7), intPtr(15)},
		{"7/15층", intPtr(7), intPtr(15)},
		{"3층", intPtr(3), nil},
		{"중/15", nil, intPtr(15)},
		{"", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			floor, total := parseFloor(tt.in)
			assert.Equal(t, tt.wantFloor, floor)
			assert.Equal(t, tt.wantTotal, total)
		})
	}
}

func TestParseBuiltYear(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2014, parseBuiltYear("20141231"))
	assert.Equal(t, 0, parseBuiltYear(""))
	assert.Equal(t, 0, parseBuiltYear("won"))
}

func TestFindSimilarComplex(t *testing.T) {
	t.Parallel()

	complexes := map[string]complexInfo{
		"마포 래미안 푸르지오": {Name: "마포 래미안 푸르지오", Households: 3885},
		"공덕자이":        {Name: "공덕자이", Households: 1164},
	}

	info, ok := findSimilarComplex("마포래미안푸르지오", complexes)
	require.True(t, ok)
	assert.Equal(t, 3885, info.Households)

	info, ok = findSimilarComplex("공덕자이 아파트", complexes)
	require.True(t, ok)
	assert.Equal(t, 1164, info.Households)

	_, ok = findSimilarComplex("목동신시가지", complexes)
	assert.False(t, ok)

	_, ok = findSimilarComplex("", complexes)
	assert.False(t, ok)
}

func intPtr(v int) *int { return &v }
