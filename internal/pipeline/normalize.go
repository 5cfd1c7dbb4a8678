package pipeline

import (
	"math"
	"regexp"
	"strings"

	domain "github.com/dohyunlee/proplens/pkg/types"
)

// Area conversion constants.
const (
	sqmToPyeong = 0.3025   // 1㎡ = 0.3025평
	pyeongToSqm = 3.305785 // 1평 = 3.305785㎡
)

var (
	guRe   = regexp.MustCompile(`([가-힣]+구)`)
	dongRe = regexp.MustCompile(`([가-힣]+동)`)
)

// propertyTypeAliases canonicalizes the free-form property type. Order
// matters: the first matching alias wins.
var propertyTypeAliases = []struct {
	alias     string
	canonical string
}{
	{"아파트", "아파트"},
	{"apt", "아파트"},
	{"오피스텔", "오피스텔"},
	{"officetel", "오피스텔"},
	{"빌라", "빌라"},
	{"연립", "빌라"},
	{"다세대", "빌라"},
	{"단독", "단독주택"},
	{"다가구", "다가구"},
}

// Normalize returns a copy of the listing with units and formats unified:
// the missing one of ㎡/평 is derived from the other, 구/동 are extracted
// from the address when absent, and the property type is canonicalized.
// Missing input is never an error.
func Normalize(l domain.Listing) domain.Listing {
	normalizeArea(&l)
	normalizeRegion(&l)
	normalizePropertyType(&l)
	return l
}

func normalizeArea(l *domain.Listing) {
	switch {
	case l.AreaSqm != nil && l.AreaPyeong == nil:
		p := roundTo(*l.AreaSqm*sqmToPyeong, 1)
		l.AreaPyeong = &p
	case l.AreaPyeong != nil && l.AreaSqm == nil:
		s := roundTo(*l.AreaPyeong*pyeongToSqm, 2)
		l.AreaSqm = &s
	}
}

func normalizeRegion(l *domain.Listing) {
	if l.Address == "" || l.RegionGu != "" {
		return
	}
	if m := guRe.FindString(l.Address); m != "" {
		l.RegionGu = m
	}
	if l.RegionDong == "" {
		if m := dongRe.FindString(l.Address); m != "" {
			l.RegionDong = m
		}
	}
}

func normalizePropertyType(l *domain.Listing) {
	if l.PropertyType == nil {
		return
	}
	pt := strings.ToLower(*l.PropertyType)
	for _, a := range propertyTypeAliases {
		if strings.Contains(pt, a.alias) {
			canonical := a.canonical
			l.PropertyType = &canonical
			return
		}
	}
}

func roundTo(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}
