package naver

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	domain "github.com/dohyunlee/proplens/pkg/types"
)

type articleListResponse struct {
	Code string    `json:"code"`
	More bool      `json:"more"`
	Body []article `json:"body"`
}

// article is one entry of the mobile article-list API. Numeric fields come
// back as either numbers or strings depending on the endpoint, hence
// json.Number.
type article struct {
	No               string      `json:"atclNo"`
	Name             string      `json:"atclNm"`
	TradeTypeName    string      `json:"tradTpNm"`
	PropertyTypeName string      `json:"rletTpNm"`
	Price            json.Number `json:"prc"`
	RentPrice        json.Number `json:"rentPrc"`
	SupplyArea       json.Number `json:"spc1"`
	ExclusiveArea    json.Number `json:"spc2"`
	FloorInfo        string      `json:"flrInfo"`
	Direction        string      `json:"direction"`
	Description      string      `json:"atclFetrDesc"`
	Lat              float64     `json:"lat"`
	Lng              float64     `json:"lng"`
	Tags             []string    `json:"tagList"`
	CortarNo         string      `json:"cortarNo"`
}

type complexListResponse struct {
	More   bool              `json:"more"`
	Result []complexListItem `json:"result"`
}

type complexListItem struct {
	No           string `json:"hscpNo"`
	Name         string `json:"hscpNm"`
	Households   int    `json:"totHsehCnt"`
	Buildings    int    `json:"totDongCnt"`
	ApprovalDate string `json:"useAprvYmd"`
}

// parseArticle converts one API article into a Listing. Articles without an
// id are dropped.
func parseArticle(a article) (domain.Listing, bool) {
	if a.No == "" {
		return domain.Listing{}, false
	}

	l := domain.Listing{
		ID:          "naver_" + a.No,
		Source:      domain.SourceNaver,
		URL:         "https://m.land.naver.com/article/info/" + a.No,
		Title:       a.Name,
		ComplexName: a.Name,
		RegionGu:    GuNameByCode(a.CortarNo),
		Direction:   a.Direction,
		Description: a.Description,
	}

	if tt := domain.TransactionType(a.TradeTypeName); tt == domain.TransactionJeonse ||
		tt == domain.TransactionMonthly || tt == domain.TransactionSale {
		l.TransactionType = &tt
	}
	if deposit := parsePrice(a.Price.String()); deposit > 0 {
		l.Deposit = &deposit
	}
	if rent, err := a.RentPrice.Int64(); err == nil {
		r := int(rent)
		l.MonthlyRent = &r
	}
	if area := parseArea(a.ExclusiveArea); area > 0 {
		l.AreaSqm = &area
		pyeong := math.Round(area*0.3025*10) / 10
		l.AreaPyeong = &pyeong
	}
	if a.PropertyTypeName != "" {
		pt := a.PropertyTypeName
		l.PropertyType = &pt
	}

	floor, total := parseFloor(a.FloorInfo)
	l.Floor = floor
	l.TotalFloors = total

	if a.Lat != 0 && a.Lng != 0 {
		lat, lng := a.Lat, a.Lng
		l.Latitude = &lat
		l.Longitude = &lng
	}
	if len(a.Tags) > 0 {
		l.Options = a.Tags
	}

	return l, true
}

// parsePrice parses a 만원 price that is either a plain number or the
// display form with an 억 part: "4억 5,000" → 45000.
func parsePrice(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	if before, after, found := strings.Cut(s, "억"); found {
		billions, err := strconv.Atoi(cleanDigits(before))
		if err != nil {
			return 0
		}
		total := billions * 10000
		if rest := cleanDigits(after); rest != "" {
			remainder, err := strconv.Atoi(rest)
			if err != nil {
				return 0
			}
			total += remainder
		}
		return total
	}

	n, err := strconv.Atoi(cleanDigits(s))
	if err != nil {
		return 0
	}
	return n
}

func cleanDigits(s string) string {
	s = strings.ReplaceAll(s, ",", "")
	return strings.TrimSpace(s)
}

// parseFloor splits a "7/15층" or "7/15" floor descriptor.
func parseFloor(info string) (floor, total *int) {
	info = strings.ReplaceAll(info, "층", "")
	if info == "" {
		return nil, nil
	}
	parts := strings.SplitN(info, "/", 2)
	if f, err := strconv.Atoi(strings.TrimSpace(parts[0])); err == nil {
		floor = &f
	}
	if len(parts) == 2 {
		if t, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
			total = &t
		}
	}
	return floor, total
}

func parseArea(n json.Number) float64 {
	v, err := n.Float64()
	if err != nil {
		return 0
	}
	return v
}

// parseBuiltYear extracts the year from a 사용승인일 like "20050131".
func parseBuiltYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}

var complexNameJunk = regexp.MustCompile(`[\s\-_]`)

func normalizeComplexName(name string) string {
	return strings.ToLower(complexNameJunk.ReplaceAllString(name, ""))
}

// findSimilarComplex matches a listing's complex name against the fetched
// complex table with substring tolerance.
func findSimilarComplex(name string, complexes map[string]complexInfo) (complexInfo, bool) {
	normalized := normalizeComplexName(name)
	if normalized == "" {
		return complexInfo{}, false
	}
	for candidate, info := range complexes {
		nc := normalizeComplexName(candidate)
		if strings.Contains(nc, normalized) || strings.Contains(normalized, nc) {
			return info, true
		}
	}
	return complexInfo{}, false
}
