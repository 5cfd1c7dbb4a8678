// Package filter implements the rule-based constraint engine that classifies
// a listing as PASS, PARTIAL, or FAIL against a user's search criteria.
package filter

import (
	"fmt"
	"strings"

	domain "github.com/dohyunlee/proplens/pkg/types"
)

// CommuteConditionName is the synthetic constraint appended by the
// orchestrator when a listing exceeds the commute bound. It is registered so
// that it can appear in must_conditions.
const CommuteConditionName = "max_commute_minutes"

// checkFunc evaluates one constraint. It returns passed=false with a
// human-readable Korean reason naming the listing's actual value and the
// threshold. A listing missing the field needed by an active constraint
// fails it: what cannot be verified does not pass.
type checkFunc func(l *domain.Listing, c *domain.SearchCriteria) (passed bool, reason string)

// constraint pairs a registered name with its check and an activity test.
type constraint struct {
	name   string
	active func(c *domain.SearchCriteria) bool
	check  checkFunc
}

// Engine evaluates listings against the constraint registry. The registry is
// built once and never mutated afterwards, so a single Engine is safe for
// concurrent use.
type Engine struct {
	constraints []constraint
}

// NewEngine builds the engine with the full constraint registry in its
// fixed evaluation order.
func NewEngine() *Engine {
	return &Engine{constraints: registry()}
}

// ConditionNames returns the registered constraint names in evaluation
// order, including the synthetic commute constraint.
func (e *Engine) ConditionNames() []string {
	names := make([]string, 0, len(e.constraints)+1)
	for _, c := range e.constraints {
		names = append(names, c.name)
	}
	return append(names, CommuteConditionName)
}

// ValidateCriteria checks that every must-condition refers to a registered
// constraint name.
func (e *Engine) ValidateCriteria(c *domain.SearchCriteria) error {
	known := make(map[string]bool, len(e.constraints)+1)
	for _, name := range e.ConditionNames() {
		known[name] = true
	}
	for _, name := range c.MustConditions {
		if !known[name] {
			return fmt.Errorf("unknown must condition %q", name)
		}
	}
	return nil
}

// Evaluate runs every active constraint against the listing and aggregates
// the result. Status is FAIL iff a must-constraint failed, PARTIAL iff
// anything else failed, PASS otherwise.
func (e *Engine) Evaluate(l *domain.Listing, c *domain.SearchCriteria) domain.FilterResult {
	result := domain.FilterResult{
		ListingID:      l.ID,
		FailureReasons: map[string]string{},
	}

	for _, cons := range e.constraints {
		if !cons.active(c) {
			continue
		}
		passed, reason := cons.check(l, c)
		if passed {
			result.PassedConditions = append(result.PassedConditions, cons.name)
		} else {
			result.FailedConditions = append(result.FailedConditions, cons.name)
			result.FailureReasons[cons.name] = reason
		}
	}

	result.Recompute(c)
	return result
}

func registry() []constraint {
	return []constraint{
		{
			name:   "max_deposit",
			active: func(c *domain.SearchCriteria) bool { return c.MaxDeposit != nil },
			check: func(l *domain.Listing, c *domain.SearchCriteria) (bool, string) {
				if l.Deposit == nil {
					return false, "보증금 정보 없음"
				}
				if *l.Deposit <= *c.MaxDeposit {
					return true, ""
				}
				return false, fmt.Sprintf("보증금 %d만원 > 상한 %d만원", *l.Deposit, *c.MaxDeposit)
			},
		},
		{
			name:   "max_monthly_rent",
			active: func(c *domain.SearchCriteria) bool { return c.MaxMonthlyRent != nil },
			check: func(l *domain.Listing, c *domain.SearchCriteria) (bool, string) {
				if l.MonthlyRent == nil {
					return false, "월세 정보 없음"
				}
				if *l.MonthlyRent <= *c.MaxMonthlyRent {
					return true, ""
				}
				return false, fmt.Sprintf("월세 %d만원 > 상한 %d만원", *l.MonthlyRent, *c.MaxMonthlyRent)
			},
		},
		{
			name:   "max_maintenance_fee",
			active: func(c *domain.SearchCriteria) bool { return c.MaxMaintenanceFee != nil },
			check: func(l *domain.Listing, c *domain.SearchCriteria) (bool, string) {
				if l.MaintenanceFee == nil {
					return false, "관리비 정보 없음"
				}
				if *l.MaintenanceFee <= *c.MaxMaintenanceFee {
					return true, ""
				}
				return false, fmt.Sprintf("관리비 %d만원 > 상한 %d만원", *l.MaintenanceFee, *c.MaxMaintenanceFee)
			},
		},
		{
			name:   "min_area_sqm",
			active: func(c *domain.SearchCriteria) bool { return c.MinAreaSqm != nil },
			check: func(l *domain.Listing, c *domain.SearchCriteria) (bool, string) {
				if l.AreaSqm == nil {
					return false, "전용면적 정보 없음"
				}
				if *l.AreaSqm >= *c.MinAreaSqm {
					return true, ""
				}
				return false, fmt.Sprintf("전용면적 %.1f㎡ < 최소 %.1f㎡", *l.AreaSqm, *c.MinAreaSqm)
			},
		},
		{
			name:   "max_area_sqm",
			active: func(c *domain.SearchCriteria) bool { return c.MaxAreaSqm != nil },
			check: func(l *domain.Listing, c *domain.SearchCriteria) (bool, string) {
				if l.AreaSqm == nil {
					return false, "전용면적 정보 없음"
				}
				if *l.AreaSqm <= *c.MaxAreaSqm {
					return true, ""
				}
				return false, fmt.Sprintf("전용면적 %.1f㎡ > 최대 %.1f㎡", *l.AreaSqm, *c.MaxAreaSqm)
			},
		},
		{
			name:   "min_households",
			active: func(c *domain.SearchCriteria) bool { return c.MinHouseholds != nil },
			check: func(l *domain.Listing, c *domain.SearchCriteria) (bool, string) {
				if l.Households == nil {
					return false, "세대수 정보 없음"
				}
				if *l.Households >= *c.MinHouseholds {
					return true, ""
				}
				return false, fmt.Sprintf("세대수 %d < 최소 %d", *l.Households, *c.MinHouseholds)
			},
		},
		{
			name:   "min_built_year",
			active: func(c *domain.SearchCriteria) bool { return c.MinBuiltYear != nil },
			check: func(l *domain.Listing, c *domain.SearchCriteria) (bool, string) {
				if l.BuiltYear == nil {
					return false, "준공연도 정보 없음"
				}
				if *l.BuiltYear >= *c.MinBuiltYear {
					return true, ""
				}
				return false, fmt.Sprintf("준공연도 %d년 < 최소 %d년", *l.BuiltYear, *c.MinBuiltYear)
			},
		},
		{
			name:   "max_built_year",
			active: func(c *domain.SearchCriteria) bool { return c.MaxBuiltYear != nil },
			check: func(l *domain.Listing, c *domain.SearchCriteria) (bool, string) {
				if l.BuiltYear == nil {
					return false, "준공연도 정보 없음"
				}
				if *l.BuiltYear <= *c.MaxBuiltYear {
					return true, ""
				}
				return false, fmt.Sprintf("준공연도 %d년 > 최대 %d년", *l.BuiltYear, *c.MaxBuiltYear)
			},
		},
		{
			name:   "min_floor",
			active: func(c *domain.SearchCriteria) bool { return c.MinFloor != nil },
			check: func(l *domain.Listing, c *domain.SearchCriteria) (bool, string) {
				if l.Floor == nil {
					return false, "층수 정보 없음"
				}
				if *l.Floor >= *c.MinFloor {
					return true, ""
				}
				return false, fmt.Sprintf("%d층 < 최소 %d층", *l.Floor, *c.MinFloor)
			},
		},
		{
			name:   "max_floor",
			active: func(c *domain.SearchCriteria) bool { return c.MaxFloor != nil },
			check: func(l *domain.Listing, c *domain.SearchCriteria) (bool, string) {
				if l.Floor == nil {
					return false, "층수 정보 없음"
				}
				if *l.Floor <= *c.MaxFloor {
					return true, ""
				}
				return false, fmt.Sprintf("%d층 > 최대 %d층", *l.Floor, *c.MaxFloor)
			},
		},
		{
			name:   "require_parking",
			active: func(c *domain.SearchCriteria) bool { return c.RequireParking },
			check: func(l *domain.Listing, _ *domain.SearchCriteria) (bool, string) {
				if l.HasParking != nil && *l.HasParking {
					return true, ""
				}
				if l.ParkingPerHousehold != nil && *l.ParkingPerHousehold > 0 {
					return true, ""
				}
				return false, "주차 불가 또는 정보 없음"
			},
		},
		{
			name:   "require_elevator",
			active: func(c *domain.SearchCriteria) bool { return c.RequireElevator },
			check: func(l *domain.Listing, _ *domain.SearchCriteria) (bool, string) {
				if l.HasElevator != nil && *l.HasElevator {
					return true, ""
				}
				return false, "엘리베이터 없음 또는 정보 없음"
			},
		},
		{
			name:   "regions",
			active: func(c *domain.SearchCriteria) bool { return len(c.Regions) > 0 },
			check:  checkRegions,
		},
		{
			name:   "property_types",
			active: func(c *domain.SearchCriteria) bool { return len(c.PropertyTypes) > 0 },
			check:  checkPropertyTypes,
		},
	}
}

func checkRegions(l *domain.Listing, c *domain.SearchCriteria) (bool, string) {
	var fields []string
	if l.RegionGu != "" {
		fields = append(fields, l.RegionGu)
	}
	if l.RegionDong != "" {
		fields = append(fields, l.RegionDong)
	}
	if l.Address != "" {
		fields = append(fields, l.Address)
	}
	if len(fields) == 0 {
		return false, "지역 정보 없음"
	}

	text := strings.ToLower(strings.Join(fields, " "))
	for _, region := range c.Regions {
		if strings.Contains(text, strings.ToLower(region)) {
			return true, ""
		}
	}
	return false, fmt.Sprintf("지역 불일치 (희망: %s)", strings.Join(c.Regions, ", "))
}

func checkPropertyTypes(l *domain.Listing, c *domain.SearchCriteria) (bool, string) {
	if l.PropertyType == nil {
		return false, "주택유형 정보 없음"
	}

	got := strings.ToLower(*l.PropertyType)
	for _, want := range c.PropertyTypes {
		w := strings.ToLower(string(want))
		if strings.Contains(got, w) || strings.Contains(w, got) {
			return true, ""
		}
	}

	wanted := make([]string, len(c.PropertyTypes))
	for i, t := range c.PropertyTypes {
		wanted[i] = string(t)
	}
	return false, fmt.Sprintf("주택유형 불일치 (희망: %s, 실제: %s)",
		strings.Join(wanted, ", "), *l.PropertyType)
}
