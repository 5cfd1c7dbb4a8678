// Package risk detects risk signals in a listing: regex pattern rules over
// the free-text fields plus structural checks on the numeric fields.
package risk

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	domain "github.com/dohyunlee/proplens/pkg/types"
)

// PatternRule is one regex rule in the detector table. Expr is matched
// case-insensitively against the listing's description and title.
type PatternRule struct {
	Expr        string           `yaml:"expr"`
	Category    string           `yaml:"category"`
	Level       domain.RiskLevel `yaml:"level"`
	Title       string           `yaml:"title"`
	Description string           `yaml:"description"`
	CheckAction string           `yaml:"check_action"`
}

// Thresholds configures the structural detector.
type Thresholds struct {
	MinHouseholds   int     `yaml:"min_households"`
	MaxBuildingAge  int     `yaml:"max_building_age"`
	MinParkingRatio float64 `yaml:"min_parking_ratio"`
}

// DefaultThresholds returns the structural detection defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinHouseholds:   100,
		MaxBuildingAge:  30,
		MinParkingRatio: 0.5,
	}
}

// DefaultPatterns returns the built-in rule table. Order matters: the first
// HIGH item in table order is the one the summary highlights.
func DefaultPatterns() []PatternRule {
	return []PatternRule{
		{
			Expr:        `보증보험\s*(불가|어려|힘들|안.?됨)`,
			Category:    "보증보험",
			Level:       domain.RiskHigh,
			Title:       "전세보증보험 가입 불가 가능성",
			Description: "보증보험 가입이 어려울 수 있습니다.",
			CheckAction: "HUG/SGI 보증보험 가입 가능 여부를 중개사에게 반드시 확인하세요.",
		},
		{
			Expr:        `(법인|회사)\s*(소유|명의|임대)`,
			Category:    "보증보험",
			Level:       domain.RiskMedium,
			Title:       "법인 소유 매물",
			Description: "법인 소유 매물은 보증보험 조건이 까다로울 수 있습니다.",
			CheckAction: "법인 정보 및 보증보험 가입 가능 여부를 확인하세요.",
		},
		{
			Expr:        `근저당|담보|저당`,
			Category:    "권리관계",
			Level:       domain.RiskHigh,
			Title:       "근저당 설정 가능성",
			Description: "근저당이 설정되어 있을 수 있습니다.",
			CheckAction: "등기부등본에서 근저당 설정액과 채권최고액을 확인하세요.",
		},
		{
			Expr:        `선순위|후순위|채권`,
			Category:    "권리관계",
			Level:       domain.RiskHigh,
			Title:       "선순위 권리 존재 가능성",
			Description: "선순위 권리가 존재할 수 있습니다.",
			CheckAction: "등기부등본에서 권리 순위를 확인하세요.",
		},
		{
			Expr:        `경매|압류|가압류|가처분`,
			Category:    "권리관계",
			Level:       domain.RiskHigh,
			Title:       "법적 분쟁 가능성",
			Description: "경매 또는 법적 절차가 진행 중일 수 있습니다.",
			CheckAction: "등기부등본 및 법원 경매정보를 확인하세요.",
		},
		{
			Expr:        `(급매|급처분|급하게)`,
			Category:    "계약조건",
			Level:       domain.RiskMedium,
			Title:       "급매물",
			Description: "급하게 매물을 내놓은 경우 숨은 문제가 있을 수 있습니다.",
			CheckAction: "급매 사유를 반드시 확인하세요.",
		},
		{
			Expr:        `(협의|조정|상담\s*후)`,
			Category:    "계약조건",
			Level:       domain.RiskLow,
			Title:       "가격 협의 가능",
			Description: "가격 협의가 가능한 매물입니다.",
			CheckAction: "시세 대비 적정가격인지 확인 후 협상하세요.",
		},
		{
			Expr:        `(단기|1년|6개월)\s*(계약|임대)`,
			Category:    "계약조건",
			Level:       domain.RiskMedium,
			Title:       "단기 계약",
			Description: "단기 계약 조건이 있을 수 있습니다.",
			CheckAction: "계약 기간과 연장 조건을 확인하세요.",
		},
		{
			Expr:        `(누수|습기|곰팡이|결로)`,
			Category:    "건물상태",
			Level:       domain.RiskHigh,
			Title:       "누수/습기 문제",
			Description: "건물에 누수 또는 습기 문제가 있을 수 있습니다.",
			CheckAction: "현장 방문 시 벽면, 천장, 창틀 상태를 꼼꼼히 확인하세요.",
		},
		{
			Expr:        `(소음|층간소음|도로소음)`,
			Category:    "건물상태",
			Level:       domain.RiskMedium,
			Title:       "소음 이슈",
			Description: "소음 문제가 있을 수 있습니다.",
			CheckAction: "방문 시 낮/밤 시간대별 소음 수준을 확인하세요.",
		},
		{
			Expr:        `(현상태|현재상태|있는\s*그대로)`,
			Category:    "건물상태",
			Level:       domain.RiskMedium,
			Title:       "현상태 인도",
			Description: "수리나 정비 없이 현재 상태로 인도됩니다.",
			CheckAction: "수리 필요 항목과 비용을 미리 파악하세요.",
		},
		{
			Expr:        `(즉시입주|바로입주|입주\s*가능)`,
			Category:    "입주조건",
			Level:       domain.RiskInfo,
			Title:       "즉시 입주 가능",
			Description: "바로 입주할 수 있는 매물입니다.",
			CheckAction: "빠른 입주가 필요하면 유리한 조건입니다.",
		},
		{
			Expr:        `(협의\s*후\s*입주|입주\s*협의)`,
			Category:    "입주조건",
			Level:       domain.RiskLow,
			Title:       "입주일 협의 필요",
			Description: "입주일을 협의해야 합니다.",
			CheckAction: "희망 입주일에 맞출 수 있는지 확인하세요.",
		},
		{
			Expr:        `전세가율.{0,10}(위험|80%|85%|90%)`,
			Category:    "전세가율",
			Level:       domain.RiskHigh,
			Title:       "높은 전세가율 (깡통전세 위험)",
			Description: "전세가율이 80% 이상으로 깡통전세 위험이 있습니다.",
			CheckAction: "집값 하락 시 보증금 회수가 어려울 수 있습니다. 전세보증보험 필수 가입하세요.",
		},
		{
			Expr:        `전세가율.{0,10}(주의|70%|75%)`,
			Category:    "전세가율",
			Level:       domain.RiskMedium,
			Title:       "전세가율 주의 필요",
			Description: "전세가율이 70% 이상으로 주의가 필요합니다.",
			CheckAction: "향후 집값 변동 추이를 확인하고 보증보험 가입을 권장합니다.",
		},
		{
			Expr:        `깡통전세`,
			Category:    "전세가율",
			Level:       domain.RiskHigh,
			Title:       "깡통전세 경고",
			Description: "깡통전세 위험 신호가 감지되었습니다.",
			CheckAction: "등기부등본 확인, 보증보험 가입 필수, 집주인 재정상태 확인 권장.",
		},
	}
}

// compiledRule pairs a rule with its compiled regex.
type compiledRule struct {
	rule PatternRule
	re   *regexp.Regexp
}

// Engine runs the pattern and structural detectors. Rules are compiled once
// in NewEngine; the engine is safe for concurrent use.
type Engine struct {
	rules      []compiledRule
	thresholds Thresholds
	year       int
}

// Option configures an Engine.
type Option func(*Engine)

// WithYear pins the reference year used for the building-age check.
func WithYear(year int) Option {
	return func(e *Engine) { e.year = year }
}

// NewEngine compiles the rule table. An uncompilable expression is a
// configuration error and aborts construction.
func NewEngine(patterns []PatternRule, thresholds Thresholds, opts ...Option) (*Engine, error) {
	e := &Engine{thresholds: thresholds, year: time.Now().Year()}
	for _, opt := range opts {
		opt(e)
	}
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p.Expr)
		if err != nil {
			return nil, fmt.Errorf("compile risk pattern %q: %w", p.Expr, err)
		}
		e.rules = append(e.rules, compiledRule{rule: p, re: re})
	}
	return e, nil
}

// Analyze detects risks in one listing: pattern rules over description and
// title, then structural checks, deduplicated by (category, title).
func (e *Engine) Analyze(l *domain.Listing) domain.RiskResult {
	text := l.Description
	if l.Title != "" {
		text += " " + l.Title
	}

	var risks []domain.RiskItem
	for _, cr := range e.rules {
		loc := cr.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		item := domain.RiskItem{
			Category:    cr.rule.Category,
			Level:       cr.rule.Level,
			Title:       cr.rule.Title,
			Description: cr.rule.Description,
			CheckAction: cr.rule.CheckAction,
			Source:      surroundingContext(text, loc[0], loc[1]),
		}
		risks = append(risks, item)
	}

	risks = append(risks, e.structuralRisks(l)...)
	risks = dedupe(risks)

	return domain.RiskResult{
		ListingID: l.ID,
		RiskScore: scoreOf(risks),
		Risks:     risks,
		Summary:   summarize(risks),
	}
}

func (e *Engine) structuralRisks(l *domain.Listing) []domain.RiskItem {
	var risks []domain.RiskItem

	if l.Households != nil && *l.Households < e.thresholds.MinHouseholds {
		risks = append(risks, domain.RiskItem{
			Category:    "단지규모",
			Level:       domain.RiskMedium,
			Title:       "소규모 단지",
			Description: fmt.Sprintf("%d세대 소규모 단지입니다.", *l.Households),
			CheckAction: "관리 상태와 관리비를 확인하세요.",
		})
	}

	if age := l.BuildingAge(e.year); age > e.thresholds.MaxBuildingAge {
		risks = append(risks, domain.RiskItem{
			Category:    "건물연식",
			Level:       domain.RiskMedium,
			Title:       "노후 건물",
			Description: fmt.Sprintf("%d년 준공으로 %d년 경과", *l.BuiltYear, age),
			CheckAction: "배관, 전기 시설 상태를 확인하세요.",
		})
	}

	switch {
	case l.Floor != nil && *l.Floor == 1:
		risks = append(risks, domain.RiskItem{
			Category:    "층수",
			Level:       domain.RiskLow,
			Title:       "1층 매물",
			Description: "1층은 프라이버시, 소음, 습기 이슈가 있을 수 있습니다.",
			CheckAction: "방범, 채광, 환기 상태를 확인하세요.",
		})
	case l.IsTopFloor():
		risks = append(risks, domain.RiskItem{
			Category:    "층수",
			Level:       domain.RiskLow,
			Title:       "최상층 매물",
			Description: "최상층은 누수, 단열 이슈가 있을 수 있습니다.",
			CheckAction: "천장 누수 흔적과 단열 상태를 확인하세요.",
		})
	}

	if l.ParkingPerHousehold != nil && *l.ParkingPerHousehold < e.thresholds.MinParkingRatio {
		risks = append(risks, domain.RiskItem{
			Category:    "주차",
			Level:       domain.RiskMedium,
			Title:       "주차 부족",
			Description: fmt.Sprintf("세대당 주차 %.1f대로 부족합니다.", *l.ParkingPerHousehold),
			CheckAction: "실제 주차 가능 여부와 대기 현황을 확인하세요.",
		})
	}

	return risks
}

// surroundingContext excerpts the matched text with up to 20 runes of
// context on each side.
func surroundingContext(text string, start, end int) string {
	runes := []rune(text)
	rStart := len([]rune(text[:start]))
	rEnd := len([]rune(text[:end]))
	lo := max(0, rStart-20)
	hi := min(len(runes), rEnd+20)
	return "..." + string(runes[lo:hi]) + "..."
}

func dedupe(risks []domain.RiskItem) []domain.RiskItem {
	seen := make(map[string]bool, len(risks))
	out := risks[:0]
	for _, r := range risks {
		key := r.Category + "\x00" + r.Title
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

func scoreOf(risks []domain.RiskItem) int {
	score := 0
	for _, r := range risks {
		score += r.Level.Weight()
	}
	return min(score, 100)
}

func summarize(risks []domain.RiskItem) string {
	if len(risks) == 0 {
		return "특별한 리스크 신호가 발견되지 않았습니다. 그러나 등기부등본 확인은 필수입니다."
	}

	var high, medium []domain.RiskItem
	for _, r := range risks {
		switch r.Level {
		case domain.RiskHigh:
			high = append(high, r)
		case domain.RiskMedium:
			medium = append(medium, r)
		}
	}

	var parts []string
	if len(high) > 0 {
		parts = append(parts, fmt.Sprintf("주의가 필요한 항목 %d개", len(high)))
	}
	if len(medium) > 0 {
		parts = append(parts, fmt.Sprintf("확인이 필요한 항목 %d개", len(medium)))
	}

	var b strings.Builder
	if len(parts) > 0 {
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString("가 있습니다. ")
	}

	// The jeonse-ratio warning outranks everything else.
	var highlight *domain.RiskItem
	for i := range high {
		if high[i].Category == "전세가율" {
			highlight = &high[i]
			break
		}
	}
	if highlight == nil && len(high) > 0 {
		highlight = &high[0]
	}
	if highlight != nil {
		fmt.Fprintf(&b, "특히 '%s'에 대해 반드시 확인이 필요합니다.", highlight.Title)
	}

	if b.Len() == 0 {
		// Only INFO/LOW signals.
		return "특별한 리스크 신호가 발견되지 않았습니다. 그러나 등기부등본 확인은 필수입니다."
	}
	return strings.TrimSpace(b.String())
}
