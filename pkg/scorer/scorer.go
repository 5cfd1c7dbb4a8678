// Package score rates listings on six weighted categories and produces a
// 0-100 composite with a per-category breakdown.
package score

import (
	"fmt"
	"math"
	"strings"
	"time"

	domain "github.com/dohyunlee/proplens/pkg/types"
)

// Weights defines the relative importance of each scoring category.
// The weights are expressed in points and must sum to 100.
type Weights struct {
	Price     float64 `json:"price"     yaml:"price"`
	Size      float64 `json:"size"      yaml:"size"`
	Complex   float64 `json:"complex"   yaml:"complex"`
	Location  float64 `json:"location"  yaml:"location"`
	Options   float64 `json:"options"   yaml:"options"`
	Condition float64 `json:"condition" yaml:"condition"`
}

// DefaultWeights returns the default category weights.
func DefaultWeights() Weights {
	return Weights{
		Price:     25,
		Size:      15,
		Complex:   20,
		Location:  20,
		Options:   10,
		Condition: 10,
	}
}

// Total returns the sum of all category weights.
func (w Weights) Total() float64 {
	return w.Price + w.Size + w.Complex + w.Location + w.Options + w.Condition
}

// Validate checks that the weights are non-negative and sum to 100.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"price": w.Price, "size": w.Size, "complex": w.Complex,
		"location": w.Location, "options": w.Options, "condition": w.Condition,
	} {
		if v < 0 {
			return fmt.Errorf("weight %s is negative", name)
		}
	}
	if total := w.Total(); math.Abs(total-100) > 1e-9 {
		return fmt.Errorf("weights sum to %g, want 100", total)
	}
	return nil
}

// Description keywords nudging the condition score up or down.
var (
	positiveKeywords = []string{"올수리", "풀옵션", "깨끗", "신축", "리모델링"}
	negativeKeywords = []string{"급매", "협의", "현상태"}
)

// Engine scores listings with a fixed weight set. Safe for concurrent use.
type Engine struct {
	weights Weights
	year    int
}

// Option configures an Engine.
type Option func(*Engine)

// WithYear pins the reference year used for building-age bands. Tests use
// this to stay deterministic.
func WithYear(year int) Option {
	return func(e *Engine) { e.year = year }
}

// New creates an Engine with the given weights. The reference year defaults
// to the current year.
func New(w Weights, opts ...Option) *Engine {
	e := &Engine{weights: w, year: time.Now().Year()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Score rates one listing against the criteria. Unknown fields contribute a
// neutral fraction of their category rather than zero.
func (e *Engine) Score(l *domain.Listing, c *domain.SearchCriteria) domain.ScoredListing {
	breakdown := []domain.ScoreBreakdown{
		e.priceScore(l, c),
		e.sizeScore(l, c),
		e.complexScore(l),
		e.locationScore(l, c),
		e.optionsScore(l),
		e.conditionScore(l),
	}

	total := 0.0
	for _, b := range breakdown {
		total += b.Score
	}

	return domain.ScoredListing{
		ListingID:  l.ID,
		TotalScore: round1(math.Min(total, 100)),
		Breakdown:  breakdown,
	}
}

// priceScore rewards deposits well under budget. Bands on the
// deposit/budget ratio: <=0.70 full, <=0.85 90%, <=1.0 70%, over 30%.
func (e *Engine) priceScore(l *domain.Listing, c *domain.SearchCriteria) domain.ScoreBreakdown {
	maxScore := e.weights.Price

	if l.Deposit == nil || c.MaxDeposit == nil || *c.MaxDeposit == 0 {
		return domain.ScoreBreakdown{
			Category: "가격",
			Score:    round1(maxScore * 0.5),
			MaxScore: maxScore,
			Reason:   "가격 정보 부족으로 중간 점수 부여",
		}
	}

	ratio := float64(*l.Deposit) / float64(*c.MaxDeposit)
	var frac float64
	var label string
	switch {
	case ratio <= 0.7:
		frac, label = 1.0, "매우 저렴"
	case ratio <= 0.85:
		frac, label = 0.9, "적정"
	case ratio <= 1.0:
		frac, label = 0.7, "예산 근접"
	default:
		frac, label = 0.3, "예산 초과"
	}

	return domain.ScoreBreakdown{
		Category: "가격",
		Score:    round1(maxScore * frac),
		MaxScore: maxScore,
		Reason:   fmt.Sprintf("예산의 %.0f%% (%s)", ratio*100, label),
	}
}

// sizeScore saturates inside the wanted band; under-sized listings are
// penalized harder than over-sized ones.
func (e *Engine) sizeScore(l *domain.Listing, c *domain.SearchCriteria) domain.ScoreBreakdown {
	maxScore := e.weights.Size

	if l.AreaSqm == nil {
		return domain.ScoreBreakdown{
			Category: "면적",
			Score:    round1(maxScore * 0.5),
			MaxScore: maxScore,
			Reason:   "면적 정보 부족",
		}
	}

	minArea := 0.0
	if c.MinAreaSqm != nil {
		minArea = *c.MinAreaSqm
	}
	maxArea := 200.0
	if c.MaxAreaSqm != nil {
		maxArea = *c.MaxAreaSqm
	}

	var frac float64
	var label string
	switch {
	case *l.AreaSqm < minArea:
		frac, label = 0.3, "희망보다 좁음"
	case *l.AreaSqm > maxArea:
		frac, label = 0.5, "희망보다 넓음"
	default:
		frac, label = 1.0, "희망 범위 내"
	}

	return domain.ScoreBreakdown{
		Category: "면적",
		Score:    round1(maxScore * frac),
		MaxScore: maxScore,
		Reason:   fmt.Sprintf("%.1f㎡ (%s)", *l.AreaSqm, label),
	}
}

// complexScore blends household count (40%), building age (30%), and
// parking ratio (30%).
func (e *Engine) complexScore(l *domain.Listing) domain.ScoreBreakdown {
	maxScore := e.weights.Complex
	score := 0.0
	var reasons []string

	if l.Households != nil {
		h := *l.Households
		switch {
		case h >= 1500:
			score += maxScore * 0.4
			reasons = append(reasons, fmt.Sprintf("%d세대 (대단지)", h))
		case h >= 1000:
			score += maxScore * 0.35
			reasons = append(reasons, fmt.Sprintf("%d세대 (중대형)", h))
		case h >= 500:
			score += maxScore * 0.25
			reasons = append(reasons, fmt.Sprintf("%d세대 (중형)", h))
		default:
			score += maxScore * 0.1
			reasons = append(reasons, fmt.Sprintf("%d세대 (소형)", h))
		}
	} else {
		score += maxScore * 0.15
		reasons = append(reasons, "세대수 정보 없음")
	}

	if l.BuiltYear != nil {
		age := e.year - *l.BuiltYear
		switch {
		case age <= 5:
			score += maxScore * 0.3
			reasons = append(reasons, fmt.Sprintf("%d년 준공 (신축)", *l.BuiltYear))
		case age <= 10:
			score += maxScore * 0.25
			reasons = append(reasons, fmt.Sprintf("%d년 준공 (준신축)", *l.BuiltYear))
		case age <= 20:
			score += maxScore * 0.15
			reasons = append(reasons, fmt.Sprintf("%d년 준공", *l.BuiltYear))
		default:
			score += maxScore * 0.05
			reasons = append(reasons, fmt.Sprintf("%d년 준공 (노후)", *l.BuiltYear))
		}
	}

	if l.ParkingPerHousehold != nil {
		p := *l.ParkingPerHousehold
		switch {
		case p >= 1.5:
			score += maxScore * 0.3
			reasons = append(reasons, fmt.Sprintf("주차 %.1f대/세대", p))
		case p >= 1.0:
			score += maxScore * 0.2
			reasons = append(reasons, fmt.Sprintf("주차 %.1f대/세대", p))
		default:
			score += maxScore * 0.1
			reasons = append(reasons, fmt.Sprintf("주차 %.1f대/세대 (부족)", p))
		}
	}

	return domain.ScoreBreakdown{
		Category: "단지",
		Score:    round1(score),
		MaxScore: maxScore,
		Reason:   joinReasons(reasons, "정보 부족"),
	}
}

// locationScore maps station distance to up to half the category, with a
// preferred-region bonus for the other half.
func (e *Engine) locationScore(l *domain.Listing, c *domain.SearchCriteria) domain.ScoreBreakdown {
	maxScore := e.weights.Location
	score := maxScore * 0.5
	var reasons []string

	if l.StationDistanceM != nil {
		d := *l.StationDistanceM
		switch {
		case d <= 300:
			score = maxScore * 0.5
			reasons = append(reasons, fmt.Sprintf("역 %dm (초역세권)", d))
		case d <= 500:
			score = maxScore * 0.4
			reasons = append(reasons, fmt.Sprintf("역 %dm (역세권)", d))
		case d <= 1000:
			score = maxScore * 0.25
			reasons = append(reasons, fmt.Sprintf("역 %dm", d))
		default:
			score = maxScore * 0.1
			reasons = append(reasons, fmt.Sprintf("역 %dm (도보 어려움)", d))
		}
	} else {
		reasons = append(reasons, "역 거리 정보 없음")
	}

	if len(c.Regions) > 0 && l.RegionGu != "" {
		for _, region := range c.Regions {
			if strings.Contains(region, l.RegionGu) || strings.Contains(l.RegionGu, region) {
				score += maxScore * 0.5
				reasons = append(reasons, fmt.Sprintf("%s (희망지역)", l.RegionGu))
				break
			}
		}
	}

	return domain.ScoreBreakdown{
		Category: "위치",
		Score:    round1(math.Min(score, maxScore)),
		MaxScore: maxScore,
		Reason:   joinReasons(reasons, "위치 정보 부족"),
	}
}

// optionsScore rewards an elevator, furnished options, and mid-rise floors.
func (e *Engine) optionsScore(l *domain.Listing) domain.ScoreBreakdown {
	maxScore := e.weights.Options
	score := 0.0
	var reasons []string

	if l.HasElevator != nil && *l.HasElevator {
		score += maxScore * 0.3
		reasons = append(reasons, "엘리베이터 있음")
	}

	if n := len(l.Options); n > 0 {
		score += math.Min(float64(n)*0.1, 0.5) * maxScore
		reasons = append(reasons, fmt.Sprintf("옵션 %d개", n))
	}

	if l.Floor != nil && l.TotalFloors != nil && *l.TotalFloors > 0 {
		ratio := float64(*l.Floor) / float64(*l.TotalFloors)
		if ratio >= 0.3 && ratio <= 0.8 {
			score += maxScore * 0.2
			reasons = append(reasons, fmt.Sprintf("%d/%d층 (중층)", *l.Floor, *l.TotalFloors))
		}
	}

	return domain.ScoreBreakdown{
		Category: "옵션",
		Score:    round1(math.Min(score, maxScore)),
		MaxScore: maxScore,
		Reason:   joinReasons(reasons, "옵션 정보 없음"),
	}
}

// conditionScore starts from a neutral base and nudges it per description
// keyword. A later LLM pass may refine this category.
func (e *Engine) conditionScore(l *domain.Listing) domain.ScoreBreakdown {
	maxScore := e.weights.Condition
	score := maxScore * 0.6
	var matched []string

	if l.Description != "" {
		desc := strings.ToLower(l.Description)
		for _, kw := range positiveKeywords {
			if strings.Contains(desc, kw) {
				score = math.Min(score+maxScore*0.1, maxScore)
				matched = append(matched, kw)
			}
		}
		for _, kw := range negativeKeywords {
			if strings.Contains(desc, kw) {
				score = math.Max(score-maxScore*0.1, 0)
				matched = append(matched, kw)
			}
		}
	}

	reason := "설명 기반 기본 점수"
	if len(matched) > 0 {
		reason = "설명 키워드: " + strings.Join(matched, ", ")
	}

	return domain.ScoreBreakdown{
		Category: "상태",
		Score:    round1(score),
		MaxScore: maxScore,
		Reason:   reason,
	}
}

func joinReasons(reasons []string, fallback string) string {
	if len(reasons) == 0 {
		return fallback
	}
	return strings.Join(reasons, ", ")
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
