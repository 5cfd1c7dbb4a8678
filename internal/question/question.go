// Package question derives the checklist of questions a tenant should ask
// the listing agent before visiting or signing.
package question

import (
	"fmt"
	"strings"
	"time"

	domain "github.com/dohyunlee/proplens/pkg/types"
)

// oldBuildingAge is the building age past which maintenance-history
// questions are added.
const oldBuildingAge = 20

// highDepositWon is the deposit (만원) past which jeonse-ratio questions
// are added.
const highDepositWon = 40000

type entry struct {
	question string
	reason   string
}

// Contract-diligence questions asked for every listing.
var baseQuestions = []entry{
	{"전세보증보험(HUG/SGI) 가입이 가능한가요?", "전세 사기 예방을 위한 필수 확인 사항"},
	{"등기부등본상 근저당이나 가압류가 있나요?", "권리관계 확인"},
	{"실제 입주 가능일이 언제인가요?", "입주 일정 확인"},
	{"현재 임차인이 있나요? 있다면 보증금은 얼마인가요?", "선순위 임차인 확인"},
	{"관리비에 포함된 항목과 별도 청구 항목은 무엇인가요?", "실제 월 비용 파악"},
}

// Engine generates the question list. Stateless and safe for concurrent use.
type Engine struct {
	year int
}

// Option configures an Engine.
type Option func(*Engine)

// WithYear pins the reference year used for the building-age trigger.
func WithYear(year int) Option {
	return func(e *Engine) { e.year = year }
}

// NewEngine creates an Engine. The reference year defaults to the current
// year.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{year: time.Now().Year()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Generate builds the deduplicated question list for one listing. Filter and
// risk results are optional; nil simply skips their contributions.
// Questions keep first-seen order and each maps to its triggering reason.
func (e *Engine) Generate(l *domain.Listing, fr *domain.FilterResult, rr *domain.RiskResult, c *domain.SearchCriteria) domain.QuestionResult {
	result := domain.QuestionResult{
		ListingID:       l.ID,
		QuestionReasons: map[string]string{},
	}

	add := func(entries []entry) {
		for _, en := range entries {
			if _, seen := result.QuestionReasons[en.question]; seen {
				continue
			}
			result.Questions = append(result.Questions, en.question)
			result.QuestionReasons[en.question] = en.reason
		}
	}

	add(baseQuestions)
	add(e.conditionalQuestions(l))
	if rr != nil {
		add(riskQuestions(rr))
	}
	if fr != nil && c != nil {
		add(filterQuestions(fr, c))
	}
	add(specificQuestions(l))

	return result
}

func (e *Engine) conditionalQuestions(l *domain.Listing) []entry {
	var qs []entry

	if l.Households == nil {
		qs = append(qs, entry{"단지 총 세대수가 몇 세대인가요?", "단지 규모 파악"})
	}
	if l.HasParking == nil && l.ParkingPerHousehold == nil {
		qs = append(qs, entry{"주차가 가능한가요? 세대당 주차 대수는?", "주차 가능 여부 확인"})
	}
	if age := l.BuildingAge(e.year); age >= oldBuildingAge {
		qs = append(qs,
			entry{"최근 배관/전기 공사 이력이 있나요?", "노후 시설 상태 확인"},
			entry{"리모델링 계획이 있나요?", "향후 추가 비용 가능성"},
		)
	}
	if l.Floor != nil && *l.Floor == 1 {
		qs = append(qs,
			entry{"방범 시설이 어떻게 되어 있나요?", "1층 보안 확인"},
			entry{"습기나 결로 문제가 있었나요?", "1층 습기 문제 확인"},
		)
	} else if l.IsTopFloor() {
		qs = append(qs,
			entry{"옥상 방수 공사는 언제 했나요?", "누수 가능성 확인"},
			entry{"여름철 단열은 어떤가요?", "최상층 단열 확인"},
		)
	}
	if l.Deposit != nil && *l.Deposit >= highDepositWon {
		qs = append(qs,
			entry{"전세가율이 어느 정도인가요?", "깡통전세 위험 확인"},
			entry{"최근 실거래가 대비 적정한 가격인가요?", "가격 적정성 확인"},
		)
	}

	return qs
}

// riskQuestions turns every HIGH/MEDIUM risk item into a question.
func riskQuestions(rr *domain.RiskResult) []entry {
	var qs []entry
	for _, r := range rr.Risks {
		if r.Level != domain.RiskHigh && r.Level != domain.RiskMedium {
			continue
		}
		qs = append(qs, entry{
			question: fmt.Sprintf("%s와 관련해서 상태가 어떤가요?", r.Title),
			reason:   "리스크 탐지: " + r.Description,
		})
	}
	return qs
}

// filterQuestions asks whether a failed, non-mandatory constraint can be
// negotiated or clarified.
func filterQuestions(fr *domain.FilterResult, c *domain.SearchCriteria) []entry {
	var qs []entry
	for _, name := range fr.FailedConditions {
		if c.IsMust(name) {
			continue
		}
		reason := fr.FailureReasons[name]
		if reason == "" {
			continue
		}
		qs = append(qs, entry{
			question: fmt.Sprintf("'%s' 부분은 협의나 확인이 가능한가요?", reason),
			reason:   "조건 불충족: " + name,
		})
	}
	return qs
}

func specificQuestions(l *domain.Listing) []entry {
	var qs []entry

	if l.PropertyType != nil {
		pt := *l.PropertyType
		if strings.Contains(pt, "오피스텔") {
			qs = append(qs,
				entry{"주거용으로 사용 가능한가요? 전입신고가 되나요?", "오피스텔 용도 확인"},
				entry{"주거용/업무용 비율이 어떻게 되나요?", "오피스텔 단지 구성 확인"},
			)
		}
		if pt == "빌라" || pt == "다세대" {
			qs = append(qs,
				entry{"건물 전체 소유주가 동일한가요?", "빌라 소유 구조 확인"},
				entry{"관리인이 상주하나요?", "관리 상태 확인"},
			)
		}
	}

	if l.Floor != nil && *l.Floor <= 0 {
		qs = append(qs,
			entry{"침수 이력이 있나요?", "반지하/지하 침수 위험"},
			entry{"환기 시설이 어떻게 되어 있나요?", "반지하/지하 환기 확인"},
		)
	}

	return qs
}
