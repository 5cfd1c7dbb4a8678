// Package molit queries the 국토교통부 실거래가 open API and derives price
// statistics per apartment complex: recent jeonse and sale averages plus the
// 전세가율 (deposit / sale price), the main 깡통전세 signal.
package molit

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dohyunlee/proplens/internal/metrics"
)

const (
	defaultBaseURL = "http://apis.data.go.kr/1613000"
	defaultMonths  = 6

	aptRentPath  = "/RTMSDataSvcAptRent/getRTMSDataSvcAptRent"
	aptTradePath = "/RTMSDataSvcAptTrade/getRTMSDataSvcAptTrade"

	// Transactions count toward a complex only within this area tolerance.
	areaToleranceSqm = 5.0
)

// Client fetches 실거래가 records with a per-region in-memory cache, so a
// batch of listings in the same 구 costs one API round per record kind.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     *slog.Logger
	months  int
	now     func() time.Time

	mu    sync.Mutex
	cache map[string][]priceItem
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the default API endpoint. Used in tests.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithMonths sets how many recent months of transactions to aggregate.
func WithMonths(n int) Option {
	return func(c *Client) {
		c.months = n
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a 실거래가 client.
func NewClient(apiKey string, log *slog.Logger, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		log:     log.With("source", "molit"),
		months:  defaultMonths,
		now:     time.Now,
		cache:   make(map[string][]priceItem),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type priceResponse struct {
	XMLName xml.Name `xml:"response"`
	Header  struct {
		ResultCode string `xml:"resultCode"`
		ResultMsg  string `xml:"resultMsg"`
	} `xml:"header"`
	Body struct {
		Items struct {
			Item []priceItem `xml:"item"`
		} `xml:"items"`
	} `xml:"body"`
}

type priceItem struct {
	AptName       string `xml:"aptNm"`
	ExclusiveArea string `xml:"excluUseAr"`
	Deposit       string `xml:"deposit"`
	MonthlyRent   string `xml:"monthlyRent"`
	DealAmount    string `xml:"dealAmount"`
}

// Stats summarizes the matched transactions of one complex, in 만원.
type Stats struct {
	Avg   int
	Min   int
	Max   int
	Count int
}

// JeonseRatio is the deposit-to-sale-price ratio with its risk band.
type JeonseRatio struct {
	Ratio         float64
	AvgTradePrice int
	RiskLevel     string
}

// PriceAnalysis is the combined market view for one listing.
type PriceAnalysis struct {
	Rent *Stats
	// PriceEvaluation compares the listing deposit against the rent
	// average: 저렴 / 적정 / 비쌈. Empty without rent data.
	PriceEvaluation string
	Trade           *Stats
	JeonseRatio     *JeonseRatio
}

// AnalyzeComplex aggregates rent and trade transactions for one complex and
// evaluates the listing's deposit against them.
func (c *Client) AnalyzeComplex(ctx context.Context, sigungu, complexName string, areaSqm float64, deposit int) (*PriceAnalysis, error) {
	analysis := &PriceAnalysis{}

	rentItems, err := c.recentPrices(ctx, sigungu, "rent")
	if err != nil {
		return nil, err
	}
	if stats := rentStats(rentItems, complexName, areaSqm); stats != nil {
		analysis.Rent = stats
		if stats.Avg > 0 {
			diff := float64(deposit-stats.Avg) / float64(stats.Avg) * 100
			switch {
			case diff < -5:
				analysis.PriceEvaluation = "저렴"
			case diff > 5:
				analysis.PriceEvaluation = "비쌈"
			default:
				analysis.PriceEvaluation = "적정"
			}
		}
	}

	tradeItems, err := c.recentPrices(ctx, sigungu, "trade")
	if err != nil {
		return nil, err
	}
	if stats := tradeStats(tradeItems, complexName, areaSqm); stats != nil {
		analysis.Trade = stats
		if stats.Avg > 0 && deposit > 0 {
			ratio := float64(deposit) / float64(stats.Avg) * 100
			analysis.JeonseRatio = &JeonseRatio{
				Ratio:         math.Round(ratio*10) / 10,
				AvgTradePrice: stats.Avg,
				RiskLevel:     jeonseRiskLevel(ratio),
			}
		}
	}

	return analysis, nil
}

func jeonseRiskLevel(ratio float64) string {
	switch {
	case ratio <= 60:
		return "안전"
	case ratio <= 70:
		return "보통"
	case ratio <= 80:
		return "주의"
	default:
		return "위험"
	}
}

// rentStats averages jeonse deposits of one complex. Monthly-rent rows are
// excluded; only 월세금액 0 counts as jeonse.
func rentStats(items []priceItem, complexName string, areaSqm float64) *Stats {
	var deposits []int
	for _, item := range items {
		if !matchesComplex(item, complexName, areaSqm) {
			continue
		}
		if monthly := strings.TrimSpace(item.MonthlyRent); monthly != "" && monthly != "0" {
			continue
		}
		if deposit := parseWon(item.Deposit); deposit > 0 {
			deposits = append(deposits, deposit)
		}
	}
	return statsOf(deposits)
}

func tradeStats(items []priceItem, complexName string, areaSqm float64) *Stats {
	var prices []int
	for _, item := range items {
		if !matchesComplex(item, complexName, areaSqm) {
			continue
		}
		if price := parseWon(item.DealAmount); price > 0 {
			prices = append(prices, price)
		}
	}
	return statsOf(prices)
}

func matchesComplex(item priceItem, complexName string, areaSqm float64) bool {
	if !strings.Contains(item.AptName, complexName) {
		return false
	}
	area, err := strconv.ParseFloat(strings.TrimSpace(item.ExclusiveArea), 64)
	if err != nil {
		return false
	}
	return math.Abs(area-areaSqm) <= areaToleranceSqm
}

func statsOf(values []int) *Stats {
	if len(values) == 0 {
		return nil
	}
	s := &Stats{Min: values[0], Max: values[0], Count: len(values)}
	total := 0
	for _, v := range values {
		total += v
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	s.Avg = total / len(values)
	return s
}

// recentPrices returns the last months of transactions for one 시군구,
// cached for the client lifetime.
func (c *Client) recentPrices(ctx context.Context, sigungu, kind string) ([]priceItem, error) {
	key := sigungu + "_" + kind

	c.mu.Lock()
	cached, ok := c.cache[key]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	var all []priceItem
	current := c.now()
	for i := 0; i < c.months; i++ {
		yearMonth := current.AddDate(0, -i, 0).Format("200601")
		items, err := c.fetchMonth(ctx, sigungu, yearMonth, kind)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}

	c.mu.Lock()
	c.cache[key] = all
	c.mu.Unlock()

	c.log.Info("transaction records loaded", "region", sigungu, "kind", kind, "records", len(all))
	return all, nil
}

func (c *Client) fetchMonth(ctx context.Context, sigungu, yearMonth, kind string) ([]priceItem, error) {
	path := aptRentPath
	if kind == "trade" {
		path = aptTradePath
	}

	params := url.Values{}
	params.Set("serviceKey", c.apiKey)
	params.Set("LAWD_CD", sigungu)
	params.Set("DEAL_YMD", yearMonth)

	metrics.SourceRequestsTotal.WithLabelValues("molit").Inc()

	u := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("molit: creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.SourceErrorsTotal.WithLabelValues("molit").Inc()
		return nil, fmt.Errorf("molit: fetching %s/%s: %w", sigungu, yearMonth, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.SourceErrorsTotal.WithLabelValues("molit").Inc()
		return nil, fmt.Errorf("molit: reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.SourceErrorsTotal.WithLabelValues("molit").Inc()
		return nil, fmt.Errorf("molit: HTTP %d", resp.StatusCode)
	}

	var pr priceResponse
	if err := xml.Unmarshal(body, &pr); err != nil {
		metrics.SourceErrorsTotal.WithLabelValues("molit").Inc()
		return nil, fmt.Errorf("molit: parsing response: %w", err)
	}
	if code := pr.Header.ResultCode; code != "" && code != "00" && code != "000" {
		metrics.SourceErrorsTotal.WithLabelValues("molit").Inc()
		return nil, fmt.Errorf("molit: API error [%s]: %s", code, pr.Header.ResultMsg)
	}

	return pr.Body.Items.Item, nil
}

// parseWon parses a 만원 amount like "45,000".
func parseWon(s string) int {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
