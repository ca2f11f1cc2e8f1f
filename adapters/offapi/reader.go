package offapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"ecostim/adapters/jsonl"
	"ecostim/domain/product"
	"ecostim/internal"
	"ecostim/ports"
)

// Config describes a paged product search endpoint
type Config struct {
	BaseURL   string        `yaml:"base_url"`
	Country   string        `yaml:"country"`
	PageSize  int           `yaml:"page_size"`
	MaxPages  int           `yaml:"max_pages"`
	RateLimit int           `yaml:"rate_limit"` // requests per minute
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// DefaultConfig targets the public Open Food Facts search API for Denmark
func DefaultConfig() Config {
	return Config{
		BaseURL:   "https://world.openfoodfacts.org",
		Country:   "denmark",
		PageSize:  100,
		MaxPages:  50,
		RateLimit: 10,
		Timeout:   30 * time.Second,
		UserAgent: "ecostim/1.0",
	}
}

// APIReader pages through the search endpoint and yields product rows
type APIReader struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *internal.Logger
}

var _ ports.RowSource = (*APIReader)(nil)

// NewAPIReader creates a reader; RateLimit <= 0 disables throttling
func NewAPIReader(config Config, logger *internal.Logger) *APIReader {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Every(time.Minute / time.Duration(config.RateLimit))
	}
	return &APIReader{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
	}
}

// Each fetches pages until the API reports the last page, a page comes
// back empty or MaxPages is reached.
func (r *APIReader) Each(ctx context.Context, fn func(product.RawAttributes) error) error {
	total := 0
	for page := 1; r.config.MaxPages <= 0 || page <= r.config.MaxPages; page++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
		body, err := r.fetch(ctx, r.buildURL(page))
		if err != nil {
			return err
		}

		products := gjson.GetBytes(body, "products")
		if !products.IsArray() {
			return fmt.Errorf("page %d: response has no products array", page)
		}
		n := 0
		var cbErr error
		products.ForEach(func(_, doc gjson.Result) bool {
			n++
			cbErr = fn(jsonl.ToRow(doc))
			return cbErr == nil
		})
		if cbErr != nil {
			return cbErr
		}
		total += n
		r.logger.Debug("[offapi] page %d: %d products", page, n)

		pageCount := gjson.GetBytes(body, "page_count").Int()
		if n == 0 || (pageCount > 0 && int64(page) >= pageCount) {
			break
		}
	}
	r.logger.Info("[offapi] fetched %d products", total)
	return nil
}

func (r *APIReader) buildURL(page int) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(r.config.PageSize))
	q.Set("fields", strings.Join(jsonl.Columns, ","))
	if r.config.Country != "" {
		q.Set("countries_tags_en", r.config.Country)
	}
	return strings.TrimRight(r.config.BaseURL, "/") + "/api/v2/search?" + q.Encode()
}

func (r *APIReader) fetch(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if r.config.UserAgent != "" {
		req.Header.Set("User-Agent", r.config.UserAgent)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
