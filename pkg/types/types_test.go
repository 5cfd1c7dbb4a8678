package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int                        { return &v }
func floatPtr(v float64) *float64              { return &v }
func txPtr(t TransactionType) *TransactionType { return &t }

func TestListing_Summary(t *testing.T) {
	t.Parallel()

	l := Listing{
		ID:              "naver_1",
		Title:           "래미안목동",
		TransactionType: txPtr(TransactionJeonse),
		Deposit:         intPtr(45000),
		AreaPyeong:      floatPtr(25.7),
		Floor:           intPtr(15),
	}
	assert.Equal(t, "래미안목동 | 전세 45000만 | 25.7평 | 15층", l.Summary())

	empty := Listing{ID: "naver_2"}
	assert.Equal(t, "naver_2", empty.Summary())
}

func TestListing_IsTopFloor(t *testing.T) {
	t.Parallel()

	l := Listing{Floor: intPtr(25), TotalFloors: intPtr(25)}
	assert.True(t, l.IsTopFloor())

	l.Floor = intPtr(10)
	assert.False(t, l.IsTopFloor())

	unknown := Listing{Floor: intPtr(25)}
	assert.False(t, unknown.IsTopFloor())
}

func TestRiskLevel_Weight(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 25, RiskHigh.Weight())
	assert.Equal(t, 15, RiskMedium.Weight())
	assert.Equal(t, 5, RiskLow.Weight())
	assert.Equal(t, 0, RiskInfo.Weight())
}

func TestFilterResult_Recompute(t *testing.T) {
	t.Parallel()

	criteria := &SearchCriteria{MustConditions: []string{"max_deposit"}}

	tests := []struct {
		name   string
		failed []string
		want   FilterStatus
	}{
		{"no failures", nil, FilterPass},
		{"non-must failure", []string{"min_area_sqm"}, FilterPartial},
		{"must failure", []string{"max_deposit"}, FilterFail},
		{"mixed failures", []string{"min_area_sqm", "max_deposit"}, FilterFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := &FilterResult{ListingID: "x", FailedConditions: tt.failed}
			r.Recompute(criteria)
			assert.Equal(t, tt.want, r.Status)
		})
	}
}

func TestLess_Ordering(t *testing.T) {
	t.Parallel()

	report := func(id string, score float64, risk int) *ListingReport {
		return &ListingReport{
			Listing:     Listing{ID: id},
			ScoreResult: &ScoredListing{ListingID: id, TotalScore: score},
			RiskResult:  &RiskResult{ListingID: id, RiskScore: risk},
		}
	}

	// Higher score wins.
	assert.True(t, Less(report("a", 90, 50), report("b", 80, 0)))
	// Equal score: lower risk wins.
	assert.True(t, Less(report("a", 80, 10), report("b", 80, 20)))
	// Equal score and risk: lexicographic id.
	assert.True(t, Less(report("a", 80, 10), report("b", 80, 10)))
	assert.False(t, Less(report("b", 80, 10), report("a", 80, 10)))
}
