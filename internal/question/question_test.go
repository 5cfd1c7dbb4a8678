package question

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/dohyunlee/proplens/pkg/types"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }
func strPtr(v string) *string     { return &v }

func fullListing() *domain.Listing {
	return &domain.Listing{
		ID:                  "L-1",
		Deposit:             intPtr(20000),
		Households:          intPtr(500),
		HasParking:          boolPtr(true),
		ParkingPerHousehold: floatPtr(1.0),
		BuiltYear:           intPtr(2018),
		Floor:               intPtr(7),
		TotalFloors:         intPtr(15),
		PropertyType:        strPtr("아파트"),
	}
}

func TestGenerate_BaseQuestionsOnly(t *testing.T) {
	t.Parallel()

	engine := NewEngine(WithYear(2025))
	result := engine.Generate(fullListing(), nil, nil, nil)

	require.Len(t, result.Questions, 5)
	assert.Equal(t, "전세보증보험(HUG/SGI) 가입이 가능한가요?", result.Questions[0])
	for _, q := range result.Questions {
		assert.NotEmpty(t, result.QuestionReasons[q])
	}
}

func TestGenerate_ConditionalQuestions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(l *domain.Listing)
		want   string
	}{
		{
			name:   "unknown households",
			mutate: func(l *domain.Listing) { l.Households = nil },
			want:   "단지 총 세대수가 몇 세대인가요?",
		},
		{
			name:   "unknown parking",
			mutate: func(l *domain.Listing) { l.HasParking = nil; l.ParkingPerHousehold = nil },
			want:   "주차가 가능한가요? 세대당 주차 대수는?",
		},
		{
			name:   "old building",
			mutate: func(l *domain.Listing) { l.BuiltYear = intPtr(2000) },
			want:   "최근 배관/전기 공사 이력이 있나요?",
		},
		{
			name:   "first floor",
			mutate: func(l *domain.Listing) { l.Floor = intPtr(1) },
			want:   "방범 시설이 어떻게 되어 있나요?",
		},
		{
			name:   "top floor",
			mutate: func(l *domain.Listing) { l.Floor = intPtr(15) },
			want:   "옥상 방수 공사는 언제 했나요?",
		},
		{
			name:   "high deposit",
			mutate: func(l *domain.Listing) { l.Deposit = intPtr(45000) },
			want:   "전세가율이 어느 정도인가요?",
		},
	}

	engine := NewEngine(WithYear(2025))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			listing := fullListing()
			tt.mutate(listing)
			result := engine.Generate(listing, nil, nil, nil)
			assert.Contains(t, result.Questions, tt.want)
		})
	}
}

func TestGenerate_RiskQuestions(t *testing.T) {
	t.Parallel()

	engine := NewEngine(WithYear(2025))
	rr := &domain.RiskResult{
		ListingID: "L-1",
		Risks: []domain.RiskItem{
			{Level: domain.RiskHigh, Title: "근저당 설정 가능성", Description: "근저당이 설정되어 있을 수 있습니다."},
			{Level: domain.RiskInfo, Title: "즉시 입주 가능", Description: "바로 입주할 수 있는 매물입니다."},
		},
	}

	result := engine.Generate(fullListing(), nil, rr, nil)

	assert.Contains(t, result.Questions, "근저당 설정 가능성와 관련해서 상태가 어떤가요?")
	assert.NotContains(t, result.Questions, "즉시 입주 가능와 관련해서 상태가 어떤가요?")
}

func TestGenerate_FilterQuestionsSkipMust(t *testing.T) {
	t.Parallel()

	engine := NewEngine(WithYear(2025))
	fr := &domain.FilterResult{
		ListingID:        "L-1",
		FailedConditions: []string{"max_deposit", "min_floor"},
		FailureReasons: map[string]string{
			"max_deposit": "보증금 25000만원 > 상한 20000만원",
			"min_floor":   "2층 < 최소 3층",
		},
	}
	criteria := &domain.SearchCriteria{MustConditions: []string{"max_deposit"}}

	result := engine.Generate(fullListing(), fr, nil, criteria)

	assert.Contains(t, result.Questions, "'2층 < 최소 3층' 부분은 협의나 확인이 가능한가요?")
	for _, q := range result.Questions {
		assert.NotContains(t, q, "보증금 25000만원")
	}
}

func TestGenerate_PropertySpecificQuestions(t *testing.T) {
	t.Parallel()

	engine := NewEngine(WithYear(2025))

	officetel := fullListing()
	officetel.PropertyType = strPtr("오피스텔")
	result := engine.Generate(officetel, nil, nil, nil)
	assert.Contains(t, result.Questions, "주거용으로 사용 가능한가요? 전입신고가 되나요?")

	villa := fullListing()
	villa.PropertyType = strPtr("빌라")
	result = engine.Generate(villa, nil, nil, nil)
	assert.Contains(t, result.Questions, "건물 전체 소유주가 동일한가요?")

	basement := fullListing()
	basement.Floor = intPtr(0)
	result = engine.Generate(basement, nil, nil, nil)
	assert.Contains(t, result.Questions, "침수 이력이 있나요?")
}

func TestGenerate_Dedupe(t *testing.T) {
	t.Parallel()

	engine := NewEngine(WithYear(2025))
	rr := &domain.RiskResult{
		Risks: []domain.RiskItem{
			{Level: domain.RiskHigh, Title: "근저당 설정 가능성", Description: "a"},
			{Level: domain.RiskHigh, Title: "근저당 설정 가능성", Description: "b"},
		},
	}

	result := engine.Generate(fullListing(), nil, rr, nil)

	count := 0
	for _, q := range result.Questions {
		if q == "근저당 설정 가능성와 관련해서 상태가 어떤가요?" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	// First-seen reason wins.
	assert.Equal(t, "리스크 탐지: a",
		result.QuestionReasons["근저당 설정 가능성와 관련해서 상태가 어떤가요?"])
}
