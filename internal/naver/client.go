// Package naver collects candidate listings from the 네이버부동산 mobile
// API. The client paces its own requests, stops immediately when the
// upstream starts blocking, and caches region searches to avoid repeat
// traffic.
package naver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/dohyunlee/proplens/internal/cache"
	"github.com/dohyunlee/proplens/internal/metrics"
	domain "github.com/dohyunlee/proplens/pkg/types"
)

// Search collaborator failures. ErrSourceBlocked means the upstream started
// refusing us and the client will not issue further requests.
var (
	ErrSourceUnavailable = errors.New("naver: source unavailable")
	ErrSourceBlocked     = errors.New("naver: source blocked")
)

const (
	defaultBaseURL  = "https://m.land.naver.com"
	defaultMaxItems = 50
	maxSearchPages  = 5
	coordDelta      = 0.02
)

var blockStatusCodes = map[int]bool{
	http.StatusForbidden:          true,
	http.StatusTooManyRequests:    true,
	http.StatusServiceUnavailable: true,
}

var tradeTypeCodes = map[domain.TransactionType]string{
	domain.TransactionJeonse:  "B1",
	domain.TransactionMonthly: "B2",
	domain.TransactionSale:    "A1",
}

var propertyTypeCodes = map[domain.PropertyType]string{
	domain.PropertyApartment: "APT",
	domain.PropertyOfficetel: "OPST",
	domain.PropertyVilla:     "VL",
}

// Client queries the mobile article-list API and assembles Listings.
// It implements the pipeline's search collaborator.
type Client struct {
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter
	cache    cache.Cache
	log      *slog.Logger
	maxItems int
	blocked  atomic.Bool

	mu        sync.Mutex
	complexes map[string]map[string]complexInfo
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

// WithRateLimiter overrides the default pacing of one request per two
// seconds. Every API call waits on the limiter first.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithCache injects a search-result cache.
func WithCache(cc cache.Cache) Option {
	return func(c *Client) {
		c.cache = cc
	}
}

// WithMaxItems caps the number of listings returned per region.
func WithMaxItems(n int) Option {
	return func(c *Client) {
		c.maxItems = n
	}
}

// NewClient creates a 네이버부동산 client.
func NewClient(log *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:   defaultBaseURL,
		client:    &http.Client{Timeout: 15 * time.Second},
		limiter:   rate.NewLimiter(rate.Every(2*time.Second), 1),
		log:       log.With("source", "naver"),
		maxItems:  defaultMaxItems,
		complexes: make(map[string]map[string]complexInfo),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search collects listings for every resolvable region in the criteria.
// It is fatal for the whole run: a blocked upstream or an unusable response
// surfaces as ErrSourceBlocked / ErrSourceUnavailable.
func (c *Client) Search(ctx context.Context, criteria *domain.SearchCriteria) ([]domain.Listing, error) {
	codes := make([]string, 0, len(criteria.Regions))
	for _, region := range criteria.Regions {
		code, ok := SigunguCode(region)
		if !ok {
			c.log.Warn("unknown region, skipping", "region", region)
			continue
		}
		codes = append(codes, code)
	}
	if len(codes) == 0 {
		return nil, fmt.Errorf("%w: no searchable region in %v", ErrSourceUnavailable, criteria.Regions)
	}

	var all []domain.Listing
	for _, code := range codes {
		listings, err := c.searchRegion(ctx, code, criteria)
		if err != nil {
			return nil, err
		}
		all = append(all, listings...)
	}
	return all, nil
}

func (c *Client) searchRegion(ctx context.Context, sigungu string, criteria *domain.SearchCriteria) ([]domain.Listing, error) {
	coords, ok := regionCoords[sigungu]
	if !ok {
		c.log.Warn("no coordinates for region", "code", sigungu)
		return nil, nil
	}

	cacheParams := c.cacheParams(sigungu, criteria)
	if c.cache != nil {
		var cached []domain.Listing
		if c.cache.Get(cacheParams, &cached) {
			c.log.Info("using cached listings", "region", sigungu, "count", len(cached))
			return capListings(cached, c.maxItems), nil
		}
	}

	c.log.Info("searching region", "region", GuNameByCode(sigungu), "code", sigungu)

	params := url.Values{}
	params.Set("rletTpCd", c.propertyTypeCode(criteria))
	params.Set("tradTpCd", c.tradeTypeCode(criteria))
	params.Set("z", "14")
	params.Set("lat", formatCoord(coords.Lat))
	params.Set("lng", formatCoord(coords.Lng))
	params.Set("btm", formatCoord(coords.Lat-coordDelta))
	params.Set("lft", formatCoord(coords.Lng-coordDelta))
	params.Set("top", formatCoord(coords.Lat+coordDelta))
	params.Set("rgt", formatCoord(coords.Lng+coordDelta))
	params.Set("cortarNo", sigungu+"00000")
	params.Set("totCnt", "0")
	if criteria.MaxDeposit != nil {
		params.Set("dprcMax", strconv.Itoa(*criteria.MaxDeposit))
	}
	if criteria.MinAreaSqm != nil {
		params.Set("spcMin", strconv.Itoa(int(*criteria.MinAreaSqm)))
	}
	if criteria.MaxAreaSqm != nil {
		params.Set("spcMax", strconv.Itoa(int(*criteria.MaxAreaSqm)))
	}

	var listings []domain.Listing
	dongCodes := map[string]bool{}

	for page := 1; page <= maxSearchPages && len(listings) < c.maxItems; page++ {
		params.Set("page", strconv.Itoa(page))

		var resp articleListResponse
		if err := c.getJSON(ctx, "/cluster/ajax/articleList", params, &resp); err != nil {
			return nil, err
		}
		if resp.Code != "success" || len(resp.Body) == 0 {
			break
		}

		for _, a := range resp.Body {
			l, ok := parseArticle(a)
			if !ok {
				continue
			}
			listings = append(listings, l)
			if a.CortarNo != "" {
				dongCodes[a.CortarNo] = true
			}
		}
		c.log.Debug("page fetched", "page", page, "items", len(resp.Body))

		if !resp.More {
			break
		}
	}

	c.enrichComplexInfo(ctx, listings, dongCodes, c.tradeTypeCode(criteria))

	if c.cache != nil && len(listings) > 0 {
		if err := c.cache.Set(cacheParams, listings); err != nil {
			c.log.Warn("caching listings failed", "error", err)
		}
	}

	c.log.Info("region search done", "region", sigungu, "listings", len(listings))
	return capListings(listings, c.maxItems), nil
}

// enrichComplexInfo backfills households and built year from the complex
// list of every 동 the search touched. Best effort: a blocked upstream
// stops the backfill but not the search result.
func (c *Client) enrichComplexInfo(ctx context.Context, listings []domain.Listing, dongCodes map[string]bool, tradeType string) {
	if len(dongCodes) == 0 || len(listings) == 0 {
		return
	}

	all := map[string]complexInfo{}
	for cortarNo := range dongCodes {
		complexes, err := c.complexList(ctx, cortarNo, tradeType)
		if err != nil {
			c.log.Warn("complex list fetch failed", "cortarNo", cortarNo, "error", err)
			if errors.Is(err, ErrSourceBlocked) {
				break
			}
			continue
		}
		for name, info := range complexes {
			all[name] = info
		}
	}

	matched := 0
	for i := range listings {
		l := &listings[i]
		name := l.ComplexName
		if name == "" {
			name = l.Title
		}
		info, ok := all[name]
		if !ok {
			info, ok = findSimilarComplex(name, all)
		}
		if !ok {
			continue
		}
		matched++
		if l.Households == nil && info.Households > 0 {
			h := info.Households
			l.Households = &h
		}
		if l.BuiltYear == nil && info.BuiltYear > 0 {
			y := info.BuiltYear
			l.BuiltYear = &y
		}
	}
	c.log.Info("complex info matched", "matched", matched, "listings", len(listings))
}

type complexInfo struct {
	No         string
	Name       string
	Households int
	BuiltYear  int
}

// complexList fetches the apartment complexes of one 법정동, paginated.
// Results are memoized per (cortarNo, tradeType) for the client lifetime.
func (c *Client) complexList(ctx context.Context, cortarNo, tradeType string) (map[string]complexInfo, error) {
	key := cortarNo + "_" + tradeType

	c.mu.Lock()
	cached, ok := c.complexes[key]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	complexes := map[string]complexInfo{}
	for page := 1; page <= 10; page++ {
		params := url.Values{}
		params.Set("cortarNo", cortarNo)
		params.Set("rletTpCd", "APT")
		params.Set("tradTpCd", tradeType)
		params.Set("page", strconv.Itoa(page))

		var resp complexListResponse
		if err := c.getJSON(ctx, "/cluster/ajax/complexList", params, &resp); err != nil {
			return nil, err
		}
		if len(resp.Result) == 0 {
			break
		}
		for _, item := range resp.Result {
			if item.Name == "" {
				continue
			}
			complexes[item.Name] = complexInfo{
				No:         item.No,
				Name:       item.Name,
				Households: item.Households,
				BuiltYear:  parseBuiltYear(item.ApprovalDate),
			}
		}
		if !resp.More {
			break
		}
	}

	c.mu.Lock()
	c.complexes[key] = complexes
	c.mu.Unlock()
	return complexes, nil
}

// getJSON performs one paced API call and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	if c.blocked.Load() {
		return fmt.Errorf("%w: client halted after block detection", ErrSourceBlocked)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("naver: rate limit wait: %w", err)
	}
	metrics.SourceRequestsTotal.WithLabelValues("naver").Inc()

	u := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("naver: creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15")
	req.Header.Set("Referer", c.baseURL+"/")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.SourceErrorsTotal.WithLabelValues("naver").Inc()
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.SourceErrorsTotal.WithLabelValues("naver").Inc()
		return fmt.Errorf("%w: reading response: %v", ErrSourceUnavailable, err)
	}

	if blockStatusCodes[resp.StatusCode] {
		c.blocked.Store(true)
		metrics.SourceErrorsTotal.WithLabelValues("naver").Inc()
		c.log.Error("block detected", "status", resp.StatusCode)
		return fmt.Errorf("%w: HTTP %d", ErrSourceBlocked, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.SourceErrorsTotal.WithLabelValues("naver").Inc()
		return fmt.Errorf("%w: HTTP %d", ErrSourceUnavailable, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); strings.Contains(ct, "text/html") {
		// A captcha or block page instead of JSON.
		c.blocked.Store(true)
		metrics.SourceErrorsTotal.WithLabelValues("naver").Inc()
		return fmt.Errorf("%w: HTML response", ErrSourceBlocked)
	}

	if err := json.Unmarshal(body, out); err != nil {
		metrics.SourceErrorsTotal.WithLabelValues("naver").Inc()
		return fmt.Errorf("%w: parsing response: %v", ErrSourceUnavailable, err)
	}
	return nil
}

func (c *Client) tradeTypeCode(criteria *domain.SearchCriteria) string {
	if code, ok := tradeTypeCodes[criteria.TransactionType]; ok {
		return code
	}
	return "B1"
}

func (c *Client) propertyTypeCode(criteria *domain.SearchCriteria) string {
	if len(criteria.PropertyTypes) == 0 {
		return "APT"
	}
	codes := make([]string, 0, len(criteria.PropertyTypes))
	for _, pt := range criteria.PropertyTypes {
		if code, ok := propertyTypeCodes[pt]; ok {
			codes = append(codes, code)
		}
	}
	if len(codes) == 0 {
		return "APT"
	}
	return strings.Join(codes, ":")
}

func (c *Client) cacheParams(sigungu string, criteria *domain.SearchCriteria) map[string]string {
	types := make([]string, 0, len(criteria.PropertyTypes))
	for _, pt := range criteria.PropertyTypes {
		types = append(types, string(pt))
	}
	sort.Strings(types)

	params := map[string]string{
		"region":         sigungu,
		"type":           string(criteria.TransactionType),
		"property_types": strings.Join(types, ","),
	}
	if criteria.MaxDeposit != nil {
		params["max_deposit"] = strconv.Itoa(*criteria.MaxDeposit)
	}
	if criteria.MinAreaSqm != nil {
		params["min_area"] = strconv.FormatFloat(*criteria.MinAreaSqm, 'f', -1, 64)
	}
	return params
}

func capListings(listings []domain.Listing, max int) []domain.Listing {
	if len(listings) > max {
		return listings[:max]
	}
	return listings
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
