package filter

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

func txPtr(v domain.TransactionType) *domain.TransactionType { return &v }

func baseListing() *domain.Listing {
	return &domain.Listing{
		ID:              "L-1",
		Source:          domain.SourceNaver,
		TransactionType: txPtr(domain.TransactionJeonse),
		Deposit:         intPtr(20000),
		MaintenanceFee:  intPtr(10),
		AreaSqm:         floatPtr(59.8),
		PropertyType:    strPtr("아파트"),
		RegionGu:        "마포구",
		RegionDong:      "공덕동",
		Floor:           intPtr(7),
		TotalFloors:     intPtr(15),
		Households:      intPtr(500),
		BuiltYear:       intPtr(2015),
		HasElevator:     boolPtr(true),
		HasParking:      boolPtr(true),
	}
}

func TestEvaluate_AllPass(t *testing.T) {
	t.Parallel()

	engine := NewEngine()
	criteria := &domain.SearchCriteria{
		TransactionType: domain.TransactionJeonse,
		MaxDeposit:      intPtr(25000),
		Regions:         []string{"마포구"},
		MinAreaSqm:      floatPtr(40),
		RequireElevator: true,
	}

	result := engine.Evaluate(baseListing(), criteria)

	assert.Equal(t, domain.FilterPass, result.Status)
	assert.ElementsMatch(t,
		[]string{"max_deposit", "min_area_sqm", "require_elevator", "regions"},
		result.PassedConditions)
	assert.Empty(t, result.FailedConditions)
}

func TestEvaluate_MustFailure(t *testing.T) {
	t.Parallel()

	engine := NewEngine()
	criteria := &domain.SearchCriteria{
		MaxDeposit:     intPtr(15000),
		MustConditions: []string{"max_deposit"},
	}

	result := engine.Evaluate(baseListing(), criteria)

	assert.Equal(t, domain.FilterFail, result.Status)
	require.Contains(t, result.FailedConditions, "max_deposit")
	assert.Contains(t, result.FailureReasons["max_deposit"], "20000만원")
	assert.Contains(t, result.FailureReasons["max_deposit"], "15000만원")
}

func TestEvaluate_NonMustFailureIsPartial(t *testing.T) {
	t.Parallel()

	engine := NewEngine()
	criteria := &domain.SearchCriteria{
		MaxDeposit: intPtr(25000),
		MinFloor:   intPtr(10),
	}

	result := engine.Evaluate(baseListing(), criteria)

	assert.Equal(t, domain.FilterPartial, result.Status)
	assert.Contains(t, result.FailedConditions, "min_floor")
	assert.Contains(t, result.PassedConditions, "max_deposit")
}

func TestEvaluate_MissingFieldFailsActiveConstraint(t *testing.T) {
	t.Parallel()

	engine := NewEngine()
	listing := baseListing()
	listing.Households = nil
	criteria := &domain.SearchCriteria{MinHouseholds: intPtr(100)}

	result := engine.Evaluate(listing, criteria)

	assert.Equal(t, domain.FilterPartial, result.Status)
	require.Contains(t, result.FailedConditions, "min_households")
	assert.Equal(t, "세대수 정보 없음", result.FailureReasons["min_households"])
}

func TestEvaluate_InactiveConstraintsSkipped(t *testing.T) {
	t.Parallel()

	engine := NewEngine()
	listing := baseListing()
	listing.Households = nil
	listing.BuiltYear = nil

	// No criteria set at all: nothing is evaluated, nothing fails.
	result := engine.Evaluate(listing, &domain.SearchCriteria{})

	assert.Equal(t, domain.FilterPass, result.Status)
	assert.Empty(t, result.PassedConditions)
	assert.Empty(t, result.FailedConditions)
}

func TestEvaluate_Constraints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(l *domain.Listing)
		criteria domain.SearchCriteria
		failed   []string
	}{
		{
			name:     "monthly rent over ceiling",
			mutate:   func(l *domain.Listing) { l.MonthlyRent = intPtr(90) },
			criteria: domain.SearchCriteria{MaxMonthlyRent: intPtr(70)},
			failed:   []string{"max_monthly_rent"},
		},
		{
			name:     "maintenance fee over ceiling",
			mutate:   func(l *domain.Listing) { l.MaintenanceFee = intPtr(25) },
			criteria: domain.SearchCriteria{MaxMaintenanceFee: intPtr(15)},
			failed:   []string{"max_maintenance_fee"},
		},
		{
			name:     "area above max",
			mutate:   func(l *domain.Listing) { l.AreaSqm = floatPtr(120) },
			criteria: domain.SearchCriteria{MaxAreaSqm: floatPtr(85)},
			failed:   []string{"max_area_sqm"},
		},
		{
			name:     "built year too old",
			mutate:   func(l *domain.Listing) { l.BuiltYear = intPtr(1992) },
			criteria: domain.SearchCriteria{MinBuiltYear: intPtr(2000)},
			failed:   []string{"min_built_year"},
		},
		{
			name:     "built year too new",
			mutate:   func(l *domain.Listing) { l.BuiltYear = intPtr(2024) },
			criteria: domain.SearchCriteria{MaxBuiltYear: intPtr(2020)},
			failed:   []string{"max_built_year"},
		},
		{
			name:     "floor above max",
			mutate:   func(l *domain.Listing) { l.Floor = intPtr(20) },
			criteria: domain.SearchCriteria{MaxFloor: intPtr(15)},
			failed:   []string{"max_floor"},
		},
		{
			name:     "parking required but absent",
			mutate:   func(l *domain.Listing) { l.HasParking = boolPtr(false); l.ParkingPerHousehold = nil },
			criteria: domain.SearchCriteria{RequireParking: true},
			failed:   []string{"require_parking"},
		},
		{
			name:     "parking satisfied via ratio",
			mutate:   func(l *domain.Listing) { l.HasParking = nil; l.ParkingPerHousehold = floatPtr(1.2) },
			criteria: domain.SearchCriteria{RequireParking: true},
			failed:   nil,
		},
		{
			name:     "elevator unknown fails requirement",
			mutate:   func(l *domain.Listing) { l.HasElevator = nil },
			criteria: domain.SearchCriteria{RequireElevator: true},
			failed:   []string{"require_elevator"},
		},
		{
			name:     "region mismatch",
			mutate:   func(l *domain.Listing) {},
			criteria: domain.SearchCriteria{Regions: []string{"강남구", "서초구"}},
			failed:   []string{"regions"},
		},
		{
			name:     "region matches via address",
			mutate:   func(l *domain.Listing) { l.RegionGu = ""; l.RegionDong = ""; l.Address = "서울 마포구 공덕동" },
			criteria: domain.SearchCriteria{Regions: []string{"마포구"}},
			failed:   nil,
		},
		{
			name:   "property type mismatch",
			mutate: func(l *domain.Listing) { l.PropertyType = strPtr("빌라") },
			criteria: domain.SearchCriteria{
				PropertyTypes: []domain.PropertyType{domain.PropertyApartment, domain.PropertyOfficetel},
			},
			failed: []string{"property_types"},
		},
		{
			name:   "property type substring match",
			mutate: func(l *domain.Listing) { l.PropertyType = strPtr("아파트분양권") },
			criteria: domain.SearchCriteria{
				PropertyTypes: []domain.PropertyType{domain.PropertyApartment},
			},
			failed: nil,
		},
	}

	engine := NewEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			listing := baseListing()
			tt.mutate(listing)
			result := engine.Evaluate(listing, &tt.criteria)
			assert.ElementsMatch(t, tt.failed, result.FailedConditions)
		})
	}
}

func TestValidateCriteria(t *testing.T) {
	t.Parallel()

	engine := NewEngine()

	err := engine.ValidateCriteria(&domain.SearchCriteria{
		MustConditions: []string{"max_deposit", "regions", CommuteConditionName},
	})
	require.NoError(t, err)

	err = engine.ValidateCriteria(&domain.SearchCriteria{
		MustConditions: []string{"max_price"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_price")
}

func TestConditionNames(t *testing.T) {
	t.Parallel()

	names := NewEngine().ConditionNames()
	assert.Len(t, names, 15)
	assert.Equal(t, "max_deposit", names[0])
	assert.Equal(t, CommuteConditionName, names[len(names)-1])
}
