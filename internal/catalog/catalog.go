// Package catalog reads the course dump the storefront sells from.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nikolayk812/coursecart/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const DefaultPageSize = 12

var ErrCourseNotFound = errors.New("course not found")

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.http = httpClient
	}
}

// WithRevalidate sets how long a fetched dump is served before it is fetched again.
func WithRevalidate(d time.Duration) Option {
	return func(c *Client) {
		c.revalidate = d
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithPageSize(n int) Option {
	return func(c *Client) {
		c.pageSize = n
	}
}

type Client struct {
	url        string
	http       *http.Client
	revalidate time.Duration
	pageSize   int
	logger     *zap.Logger
	now        func() time.Time

	sfg singleflight.Group

	mu        sync.RWMutex
	courses   []domain.Course
	fetchedAt time.Time
}

func NewClient(url string, opts ...Option) (*Client, error) {
	if url == "" {
		return nil, fmt.Errorf("url is empty")
	}

	c := &Client{
		url:        url,
		http:       &http.Client{Timeout: 10 * time.Second},
		revalidate: time.Hour,
		pageSize:   DefaultPageSize,
		logger:     zap.NewNop(),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

type Query struct {
	Text  string
	Page  int
	Limit int
}

type Page struct {
	Courses     []domain.Course
	Page        int
	Limit       int
	Total       int
	HasNext     bool
	HasPrevious bool
}

// List filters courses by a case-insensitive title match and returns the
// requested 1-based page.
func (c *Client) List(ctx context.Context, q Query) (Page, error) {
	courses, err := c.courseList(ctx)
	if err != nil {
		return Page{}, err
	}

	if text := strings.ToLower(strings.TrimSpace(q.Text)); text != "" {
		filtered := make([]domain.Course, 0, len(courses))
		for _, course := range courses {
			if strings.Contains(strings.ToLower(course.Title), text) {
				filtered = append(filtered, course)
			}
		}
		courses = filtered
	}

	page := max(q.Page, 1)
	limit := q.Limit
	if limit <= 0 {
		limit = c.pageSize
	}

	start := min((page-1)*limit, len(courses))
	end := min(start+limit, len(courses))

	return Page{
		Courses:     courses[start:end],
		Page:        page,
		Limit:       limit,
		Total:       len(courses),
		HasNext:     end < len(courses),
		HasPrevious: page > 1,
	}, nil
}

func (c *Client) Get(ctx context.Context, slug string) (domain.Course, error) {
	courses, err := c.courseList(ctx)
	if err != nil {
		return domain.Course{}, err
	}

	for _, course := range courses {
		if course.Slug == slug {
			return course, nil
		}
	}

	return domain.Course{}, fmt.Errorf("slug[%s]: %w", slug, ErrCourseNotFound)
}

func (c *Client) courseList(ctx context.Context) ([]domain.Course, error) {
	c.mu.RLock()
	courses, fetchedAt := c.courses, c.fetchedAt
	c.mu.RUnlock()

	if courses != nil && c.now().Sub(fetchedAt) < c.revalidate {
		return courses, nil
	}

	// concurrent misses share one fetch
	v, err, _ := c.sfg.Do(c.url, func() (any, error) {
		fetched, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.courses = fetched
		c.fetchedAt = c.now()
		c.mu.Unlock()

		return fetched, nil
	})
	if err != nil {
		if courses != nil {
			c.logger.Error("catalog refresh failed, serving stale courses", zap.Error(err))
			return courses, nil
		}
		return nil, err
	}

	return v.([]domain.Course), nil
}

func (c *Client) fetch(ctx context.Context) ([]domain.Course, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("http.NewRequestWithContext: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("io.ReadAll: %w", err)
	}

	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("json.Unmarshal: %w", err)
	}

	// anything but an array is an empty catalog
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '[' {
		return []domain.Course{}, nil
	}

	var courses []domain.Course
	if err := json.Unmarshal(raw, &courses); err != nil {
		return nil, fmt.Errorf("json.Unmarshal: %w", err)
	}
	if courses == nil {
		courses = []domain.Course{}
	}

	return courses, nil
}
