// Package cms is the HTTP client for the content platform's REST API. It
// implements domain.ContentStore and domain.CallerDirectory, with a circuit
// breaker so a struggling backend fails fast instead of piling up requests.
package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"

	"toolgate/internal/domain"
	"toolgate/internal/infra/config"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// rateOverrideMetaKey is the user meta field holding a per-caller limit.
const rateOverrideMetaKey = "toolgate_rate_limit"

// Client talks to the platform's REST API with basic auth.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[[]byte]
	logger   *slog.Logger
}

// New creates a Client for the platform at cfg.BaseURL.
func New(cfg config.CMSConfig, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("cms base_url is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse cms base_url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	maxFailures := cfg.Breaker.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	cbTimeout := cfg.Breaker.Timeout
	if cbTimeout == 0 {
		cbTimeout = defaultCBTimeout
	}
	interval := cfg.Breaker.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "cms:" + base.Host,
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    interval,
		Timeout:     cbTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("cms circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		baseURL:  base.String(),
		username: cfg.Username,
		password: cfg.AppPassword,
		http:     &http.Client{Timeout: timeout},
		breaker:  cb,
		logger:   logger,
	}, nil
}

// do performs one API request through the circuit breaker and returns the
// response body. Non-2xx statuses are errors and count against the breaker.
func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	return c.breaker.Execute(func() ([]byte, error) {
		var reader io.Reader
		if body != nil {
			data, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("marshal request: %w", err)
			}
			reader = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		if c.username != "" {
			req.SetBasicAuth(c.username, c.password)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, domain.NewDomainError("cms.do", domain.ErrBackendDown, err.Error())
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("cms %s %s: HTTP %d", method, path, resp.StatusCode)
		}
		return data, nil
	})
}

// apiPost is the platform's wire shape for a post.
type apiPost struct {
	ID      int64 `json:"id"`
	Title   struct {
		Raw      string `json:"raw,omitempty"`
		Rendered string `json:"rendered,omitempty"`
	} `json:"title"`
	Content struct {
		Raw      string `json:"raw,omitempty"`
		Rendered string `json:"rendered,omitempty"`
	} `json:"content"`
	Status string            `json:"status"`
	Author int64             `json:"author"`
	Meta   map[string]string `json:"meta,omitempty"`
}

func (p apiPost) toDomain() *domain.Post {
	title := p.Title.Raw
	if title == "" {
		title = p.Title.Rendered
	}
	content := p.Content.Raw
	if content == "" {
		content = p.Content.Rendered
	}
	return &domain.Post{
		ID:       p.ID,
		Title:    title,
		Content:  content,
		Status:   domain.PostStatus(p.Status),
		AuthorID: p.Author,
		Meta:     p.Meta,
	}
}

func postBody(p *domain.Post) map[string]any {
	body := map[string]any{
		"title":   p.Title,
		"content": p.Content,
	}
	if p.Status != "" {
		body["status"] = string(p.Status)
	}
	if p.AuthorID != 0 {
		body["author"] = p.AuthorID
	}
	if len(p.Meta) > 0 {
		body["meta"] = p.Meta
	}
	return body
}

func (c *Client) CreatePost(ctx context.Context, p *domain.Post) (*domain.Post, error) {
	data, err := c.do(ctx, http.MethodPost, "/wp-json/wp/v2/posts", postBody(p))
	if err != nil {
		return nil, domain.WrapOp("cms.CreatePost", err)
	}
	var ap apiPost
	if err := json.Unmarshal(data, &ap); err != nil {
		return nil, fmt.Errorf("decode post: %w", err)
	}
	return ap.toDomain(), nil
}

func (c *Client) UpdatePost(ctx context.Context, p *domain.Post) (*domain.Post, error) {
	path := fmt.Sprintf("/wp-json/wp/v2/posts/%d", p.ID)
	data, err := c.do(ctx, http.MethodPost, path, postBody(p))
	if err != nil {
		return nil, domain.WrapOp("cms.UpdatePost", err)
	}
	var ap apiPost
	if err := json.Unmarshal(data, &ap); err != nil {
		return nil, fmt.Errorf("decode post: %w", err)
	}
	return ap.toDomain(), nil
}

func (c *Client) GetPost(ctx context.Context, id int64) (*domain.Post, error) {
	path := fmt.Sprintf("/wp-json/wp/v2/posts/%d?context=edit", id)
	data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, domain.WrapOp("cms.GetPost", err)
	}
	var ap apiPost
	if err := json.Unmarshal(data, &ap); err != nil {
		return nil, fmt.Errorf("decode post: %w", err)
	}
	return ap.toDomain(), nil
}

func (c *Client) ListPosts(ctx context.Context, q domain.PostQuery) ([]domain.Post, error) {
	vals := url.Values{}
	if q.Status != "" {
		vals.Set("status", string(q.Status))
	}
	if q.Search != "" {
		vals.Set("search", q.Search)
	}
	if q.PerPage > 0 {
		vals.Set("per_page", strconv.Itoa(q.PerPage))
	}
	if q.Page > 0 {
		vals.Set("page", strconv.Itoa(q.Page))
	}
	path := "/wp-json/wp/v2/posts"
	if len(vals) > 0 {
		path += "?" + vals.Encode()
	}

	data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, domain.WrapOp("cms.ListPosts", err)
	}
	var aps []apiPost
	if err := json.Unmarshal(data, &aps); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}
	posts := make([]domain.Post, 0, len(aps))
	for _, ap := range aps {
		posts = append(posts, *ap.toDomain())
	}
	return posts, nil
}

// Health checks that the platform's API root answers.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/wp-json", nil)
	return domain.WrapOp("cms.Health", err)
}

// apiUser is the platform's wire shape for a user, trimmed to what the
// directory needs.
type apiUser struct {
	ID    int64             `json:"id"`
	Roles []string          `json:"roles"`
	Meta  map[string]string `json:"meta,omitempty"`
}

func (c *Client) fetchUser(ctx context.Context, callerID int64) (*apiUser, error) {
	path := fmt.Sprintf("/wp-json/wp/v2/users/%d?context=edit", callerID)
	data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var u apiUser
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}

// CurrentCallerID resolves the ambient caller placed on the context by the
// transport adapter. The client itself has no notion of a current user.
func (c *Client) CurrentCallerID(ctx context.Context) int64 {
	return domain.CallerIDFromContext(ctx)
}

// RolesOf returns the caller's roles, or nil when the lookup fails; the
// caller then gets base-tier treatment rather than an error.
func (c *Client) RolesOf(ctx context.Context, callerID int64) []domain.Role {
	if callerID <= 0 {
		return nil
	}
	u, err := c.fetchUser(ctx, callerID)
	if err != nil {
		c.logger.Warn("caller role lookup failed", "caller_id", callerID, "error", err)
		return nil
	}
	roles := make([]domain.Role, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, domain.Role(r))
	}
	return roles
}

// RateOverrideOf reads the per-caller limit override from user meta.
func (c *Client) RateOverrideOf(ctx context.Context, callerID int64) (int, bool) {
	if callerID <= 0 {
		return 0, false
	}
	u, err := c.fetchUser(ctx, callerID)
	if err != nil {
		c.logger.Warn("caller override lookup failed", "caller_id", callerID, "error", err)
		return 0, false
	}
	raw, ok := u.Meta[rateOverrideMetaKey]
	if !ok || raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
