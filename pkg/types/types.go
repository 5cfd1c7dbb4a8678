// Package domain defines the core business types for the PropLens
// listing evaluation pipeline.
package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// ListingSource identifies where a listing was collected from.
type ListingSource string

// Listing source constants.
const (
	SourceNaver   ListingSource = "네이버부동산"
	SourceZigbang ListingSource = "직방"
	SourceDabang  ListingSource = "다방"
	SourceCSV     ListingSource = "CSV"
	SourceManual  ListingSource = "수동입력"
)

// TransactionType is the contract type being searched for.
type TransactionType string

// Transaction type constants.
const (
	TransactionJeonse  TransactionType = "전세"
	TransactionMonthly TransactionType = "월세"
	TransactionSale    TransactionType = "매매"
)

// PropertyType is the normalized building category of a listing.
type PropertyType string

// Property type constants.
const (
	PropertyApartment PropertyType = "아파트"
	PropertyOfficetel PropertyType = "오피스텔"
	PropertyVilla     PropertyType = "빌라"
)

// Listing is one candidate property as produced by ingestion.
//
// Optional fields are pointers; nil means "unknown". Consumers apply their
// own policy to unknowns: the filter engine fails an active constraint it
// cannot verify, the scorer contributes a neutral fraction, and the risk
// engine skips the structural check. Listings are immutable once produced;
// stages that adjust a listing return a modified copy.
type Listing struct {
	ID     string        `json:"id"            db:"id"`
	Source ListingSource `json:"source"        db:"source"`
	URL    string        `json:"url,omitempty" db:"url"`

	// Basics
	Title      string `json:"title,omitempty"       db:"title"`
	Address    string `json:"address,omitempty"     db:"address"`
	RegionGu   string `json:"region_gu,omitempty"   db:"region_gu"`
	RegionDong string `json:"region_dong,omitempty" db:"region_dong"`

	// Transaction (만원 units, non-negative)
	TransactionType *TransactionType `json:"transaction_type,omitempty" db:"transaction_type"`
	Deposit         *int             `json:"deposit,omitempty"          db:"deposit"`
	MonthlyRent     *int             `json:"monthly_rent,omitempty"     db:"monthly_rent"`
	MaintenanceFee  *int             `json:"maintenance_fee,omitempty"  db:"maintenance_fee"`

	// Area
	AreaSqm    *float64 `json:"area_sqm,omitempty"    db:"area_sqm"`
	AreaPyeong *float64 `json:"area_pyeong,omitempty" db:"area_pyeong"`

	// Building
	PropertyType *string `json:"property_type,omitempty" db:"property_type"`
	Floor        *int    `json:"floor,omitempty"         db:"floor"`
	TotalFloors  *int    `json:"total_floors,omitempty"  db:"total_floors"`
	Direction    string  `json:"direction,omitempty"     db:"direction"`

	// Complex
	ComplexName         string   `json:"complex_name,omitempty"          db:"complex_name"`
	Households          *int     `json:"households,omitempty"            db:"households"`
	BuiltYear           *int     `json:"built_year,omitempty"            db:"built_year"`
	ParkingPerHousehold *float64 `json:"parking_per_household,omitempty" db:"parking_per_household"`

	// Options
	HasElevator *bool    `json:"has_elevator,omitempty" db:"has_elevator"`
	HasParking  *bool    `json:"has_parking,omitempty"  db:"has_parking"`
	Options     []string `json:"options,omitempty"      db:"options"`

	// Location
	NearestStation   string   `json:"nearest_station,omitempty"    db:"nearest_station"`
	StationDistanceM *int     `json:"station_distance_m,omitempty" db:"station_distance_m"`
	Latitude         *float64 `json:"latitude,omitempty"           db:"latitude"`
	Longitude        *float64 `json:"longitude,omitempty"          db:"longitude"`

	// Free text, consumed only by the risk and condition detectors.
	Description string `json:"description,omitempty" db:"description"`
}

// Summary returns a short one-line description used in logs and reports.
func (l *Listing) Summary() string {
	parts := []string{}
	if l.Title != "" {
		parts = append(parts, l.Title)
	}
	if l.TransactionType != nil && l.Deposit != nil {
		if l.MonthlyRent != nil && *l.MonthlyRent > 0 {
			parts = append(parts, fmt.Sprintf("%s %d/%d만", *l.TransactionType, *l.Deposit, *l.MonthlyRent))
		} else {
			parts = append(parts, fmt.Sprintf("%s %d만", *l.TransactionType, *l.Deposit))
		}
	}
	if l.AreaPyeong != nil {
		parts = append(parts, fmt.Sprintf("%.1f평", *l.AreaPyeong))
	}
	if l.Floor != nil {
		parts = append(parts, fmt.Sprintf("%d층", *l.Floor))
	}
	if len(parts) == 0 {
		return l.ID
	}
	return strings.Join(parts, " | ")
}

// BuildingAge returns the building age relative to year, or -1 when the
// built year is unknown.
func (l *Listing) BuildingAge(year int) int {
	if l.BuiltYear == nil {
		return -1
	}
	return year - *l.BuiltYear
}

// IsTopFloor reports whether the listing occupies the building's top floor.
// False when either floor field is unknown.
func (l *Listing) IsTopFloor() bool {
	return l.Floor != nil && l.TotalFloors != nil && *l.Floor == *l.TotalFloors
}

// SearchCriteria is the user-supplied constraint set driving a run.
//
// Every field is optional; only set criteria are evaluated. Constraint names
// listed in MustConditions disqualify a listing outright when failed; all
// other failures demote the listing to PARTIAL and feed the question engine.
type SearchCriteria struct {
	TransactionType TransactionType `json:"transaction_type" yaml:"transaction_type"`

	// Budget ceilings (만원)
	MaxDeposit        *int `json:"max_deposit,omitempty"         yaml:"max_deposit"`
	MaxMonthlyRent    *int `json:"max_monthly_rent,omitempty"    yaml:"max_monthly_rent"`
	MaxMaintenanceFee *int `json:"max_maintenance_fee,omitempty" yaml:"max_maintenance_fee"`

	// Location
	Regions            []string `json:"regions,omitempty"             yaml:"regions"`
	CommuteDestination string   `json:"commute_destination,omitempty" yaml:"commute_destination"`
	MaxCommuteMinutes  *int     `json:"max_commute_minutes,omitempty" yaml:"max_commute_minutes"`

	// Building
	PropertyTypes []PropertyType `json:"property_types,omitempty" yaml:"property_types"`
	MinAreaSqm    *float64       `json:"min_area_sqm,omitempty"   yaml:"min_area_sqm"`
	MaxAreaSqm    *float64       `json:"max_area_sqm,omitempty"   yaml:"max_area_sqm"`
	MinHouseholds *int           `json:"min_households,omitempty" yaml:"min_households"`
	MinBuiltYear  *int           `json:"min_built_year,omitempty" yaml:"min_built_year"`
	MaxBuiltYear  *int           `json:"max_built_year,omitempty" yaml:"max_built_year"`

	// Options
	RequireParking     bool   `json:"require_parking,omitempty"     yaml:"require_parking"`
	RequireElevator    bool   `json:"require_elevator,omitempty"    yaml:"require_elevator"`
	MinFloor           *int   `json:"min_floor,omitempty"           yaml:"min_floor"`
	MaxFloor           *int   `json:"max_floor,omitempty"           yaml:"max_floor"`
	PreferredDirection string `json:"preferred_direction,omitempty" yaml:"preferred_direction"`

	// Constraint names that disqualify outright when failed.
	MustConditions []string `json:"must_conditions,omitempty" yaml:"must_conditions"`
}

// IsMust reports whether the named constraint is a must-constraint.
func (c *SearchCriteria) IsMust(name string) bool {
	return slices.Contains(c.MustConditions, name)
}

// FilterStatus classifies a listing against the criteria.
type FilterStatus string

// Filter status constants.
const (
	FilterPass    FilterStatus = "PASS"
	FilterFail    FilterStatus = "FAIL"
	FilterPartial FilterStatus = "PARTIAL"
)

// FilterResult records the per-constraint outcome of filtering one listing.
// Status is FAIL iff FailedConditions intersects the criteria's
// must-constraints, PARTIAL iff something failed but nothing mandatory,
// and PASS iff nothing failed.
type FilterResult struct {
	ListingID        string            `json:"listing_id"`
	Status           FilterStatus      `json:"status"`
	PassedConditions []string          `json:"passed_conditions,omitempty"`
	FailedConditions []string          `json:"failed_conditions,omitempty"`
	FailureReasons   map[string]string `json:"failure_reasons,omitempty"`
}

// Recompute rederives Status from FailedConditions against the criteria.
// Used after synthetic constraints (commute) are appended.
func (r *FilterResult) Recompute(c *SearchCriteria) {
	mustFailed := false
	for _, name := range r.FailedConditions {
		if c.IsMust(name) {
			mustFailed = true
			break
		}
	}
	switch {
	case mustFailed:
		r.Status = FilterFail
	case len(r.FailedConditions) > 0:
		r.Status = FilterPartial
	default:
		r.Status = FilterPass
	}
}

// ScoreBreakdown details one scoring category.
type ScoreBreakdown struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
	MaxScore float64 `json:"max_score"`
	Reason   string  `json:"reason"`
}

// ScoredListing is the scoring engine output for one listing.
// TotalScore is the sum of the breakdown scores on a 100-point scale.
type ScoredListing struct {
	ListingID  string           `json:"listing_id"`
	TotalScore float64          `json:"total_score"`
	Rank       *int             `json:"rank,omitempty"`
	Breakdown  []ScoreBreakdown `json:"breakdown"`
}

// RiskLevel is the severity bucket of a risk item.
type RiskLevel string

// Risk level constants.
const (
	RiskHigh   RiskLevel = "HIGH"
	RiskMedium RiskLevel = "MEDIUM"
	RiskLow    RiskLevel = "LOW"
	RiskInfo   RiskLevel = "INFO"
)

// Weight returns the risk-score contribution of one item at this level.
func (l RiskLevel) Weight() int {
	switch l {
	case RiskHigh:
		return 25
	case RiskMedium:
		return 15
	case RiskLow:
		return 5
	default:
		return 0
	}
}

// RiskItem is one detected risk signal.
type RiskItem struct {
	Category    string    `json:"category"`
	Level       RiskLevel `json:"level"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CheckAction string    `json:"check_action"`
	Source      string    `json:"source,omitempty"`
}

// RiskResult aggregates the risk items found for one listing.
// RiskScore is min(100, Σ item level weights).
type RiskResult struct {
	ListingID string     `json:"listing_id"`
	RiskScore int        `json:"risk_score"`
	Risks     []RiskItem `json:"risks,omitempty"`
	Summary   string     `json:"summary"`
}

// QuestionResult lists the clarification questions derived for one listing.
// Questions contains no duplicates; every entry has a triggering reason.
type QuestionResult struct {
	ListingID       string            `json:"listing_id"`
	Questions       []string          `json:"questions"`
	QuestionReasons map[string]string `json:"question_reasons,omitempty"`
}

// ListingReport bundles a listing with whatever stage results it reached.
// Results are optional because a listing may exit the pipeline early, and
// because a per-listing stage failure is recorded here instead of aborting
// the batch.
type ListingReport struct {
	Listing        Listing         `json:"listing"`
	FilterResult   *FilterResult   `json:"filter_result,omitempty"`
	ScoreResult    *ScoredListing  `json:"score_result,omitempty"`
	RiskResult     *RiskResult     `json:"risk_result,omitempty"`
	QuestionResult *QuestionResult `json:"question_result,omitempty"`
	Errors         []string        `json:"errors,omitempty"`
}

// Report is the final ranked output of one pipeline run.
type Report struct {
	ID          string    `json:"id"         db:"id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	TotalCount  int       `json:"total_count"`
	PassedCount int       `json:"passed_count"`

	Recommendations []ListingReport `json:"recommendations"`
	FilteredOut     []ListingReport `json:"filtered_out"`

	Summary  string   `json:"summary"`
	Insights []string `json:"insights,omitempty"`
}

// Less defines the deterministic recommendation order: total score
// descending, then risk score ascending, then listing id ascending.
func Less(a, b *ListingReport) bool {
	as, bs := totalScore(a), totalScore(b)
	if as != bs {
		return as > bs
	}
	ar, br := riskScore(a), riskScore(b)
	if ar != br {
		return ar < br
	}
	return a.Listing.ID < b.Listing.ID
}

func totalScore(r *ListingReport) float64 {
	if r.ScoreResult == nil {
		return 0
	}
	return r.ScoreResult.TotalScore
}

func riskScore(r *ListingReport) int {
	if r.RiskResult == nil {
		return 0
	}
	return r.RiskResult.RiskScore
}
