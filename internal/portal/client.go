// Package portal talks to the housing portal over plain HTTP form posts.
package portal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Veraticus/roomrush/internal/common"
	"github.com/Veraticus/roomrush/internal/model"
)

// Portal endpoints and markers.
const (
	DefaultBaseURL = "https://ent.qpgzf.cn"
	DefaultTimeout = 30 * time.Second

	CookieName = "SYS_USER_COOKIE_KEY"

	IndexPath  = "/RoomAssign/Index"
	ListPath   = "/RoomAssign/SelectRoom"
	ClaimPath  = "/RoomAssign/AjaxSelectRoom"
	LoginPath  = "/SysLoginManage"
	HomePath   = "/CompanyHome/Main"
	loginRoute = "CompanyIndex"

	// PageSize is large enough that one page holds a whole community.
	PageSize = 300

	SuccessMarker   = "成功"
	ContestedMarker = "已经被其他申请人选中"

	defaultTalent = "1"
)

var loginMarkers = []string{"用户登录", "请登录", "login"}

// Applicant is the portal's identity for the person running the selection.
type Applicant struct {
	ID   string
	Name string
	// Talent is the portal's isapplytalent flag, "1" for talent apartments.
	Talent string
}

// IsTalent reports whether the applicant queues for talent apartments.
func (a Applicant) IsTalent() bool {
	return a.Talent == "1"
}

// Config configures a Client.
type Config struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
	BaseURL    string
	Cookie     string
	Timeout    time.Duration
}

// Client issues portal requests with a fixed session cookie.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	cookie     string
}

// NewClient validates cfg and creates a client. The cookie is normalized so
// both a bare value and a full name=value pair are accepted.
func NewClient(cfg Config) (*Client, error) {
	cookie := NormalizeCookie(cfg.Cookie)
	if cookie == "" {
		return nil, fmt.Errorf("%w: portal session cookie", common.ErrMissingConfig)
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, common.ConfigError("portal base url %q: %v", cfg.BaseURL, err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		httpClient: httpClient,
		logger:     common.Component(cfg.Logger, "portal"),
		baseURL:    baseURL,
		cookie:     cookie,
	}, nil
}

// NormalizeCookie returns a Cookie header value for the portal session. A
// doubled name prefix is collapsed and a missing one is added.
func NormalizeCookie(raw string) string {
	prefix := CookieName + "="
	value := strings.TrimSpace(raw)
	for strings.HasPrefix(value, prefix+prefix) {
		value = strings.TrimPrefix(value, prefix)
	}
	if value == "" || value == prefix {
		return ""
	}
	if strings.Contains(value, prefix) {
		return value
	}
	return prefix + value
}

// BaseURL returns the portal root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// LookupApplicant reads the applicant id and talent flag from the
// assignment index page.
func (c *Client) LookupApplicant(ctx context.Context, name string) (Applicant, error) {
	resp, body, err := c.do(ctx, http.MethodGet, IndexPath, nil)
	if err != nil {
		return Applicant{}, err
	}
	if redirectedToLogin(resp) {
		return Applicant{}, fmt.Errorf("%w: index redirected to login", common.ErrCredentialInvalid)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return Applicant{}, fmt.Errorf("failed to parse index page: %w", err)
	}

	var applicant Applicant
	doc.Find("input").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.AttrOr("name", "") != name {
			return true
		}
		id := strings.TrimSpace(s.AttrOr("value", ""))
		if id == "" {
			return true
		}
		applicant = Applicant{
			ID:     id,
			Name:   name,
			Talent: s.AttrOr("isapplytalent", defaultTalent),
		}
		return false
	})

	if applicant.ID != "" {
		c.logger.Info("Resolved applicant",
			"name", name,
			"id", applicant.ID,
			"talent", applicant.IsTalent())
		return applicant, nil
	}

	if containsLoginMarker(body) {
		return Applicant{}, fmt.Errorf("%w: index page asks for login", common.ErrCredentialInvalid)
	}
	return Applicant{}, fmt.Errorf("%w: %s", common.ErrApplicantNotFound, name)
}

// QueryListing posts the listing search for one community and returns the
// raw markup.
func (c *Client) QueryListing(ctx context.Context, applicant Applicant, community string) (string, error) {
	talent := applicant.Talent
	if talent == "" {
		talent = defaultTalent
	}
	form := url.Values{
		"ApplyIDs":                            {applicant.ID},
		"IsApplyTalent":                       {talent},
		"type":                                {"1"},
		"SearchEntity._PageSize":              {fmt.Sprint(PageSize)},
		"SearchEntity._PageIndex":             {"1"},
		"SearchEntity._CommonSearchCondition": {community},
	}

	resp, body, err := c.do(ctx, http.MethodPost, ListPath, form)
	if err != nil {
		return "", err
	}
	if redirectedToLogin(resp) {
		return "", fmt.Errorf("%w: listing redirected to login", common.ErrCredentialInvalid)
	}
	if !strings.Contains(body, "common-table") && containsLoginMarker(body) {
		return "", fmt.Errorf("%w: listing asks for login", common.ErrCredentialInvalid)
	}
	return body, nil
}

// Claim submits one selection request for roomID and classifies the reply.
// Network failures are returned as errors; an ambiguous reply is
// model.ClaimTransient with a nil error.
func (c *Client) Claim(ctx context.Context, applicantID, roomID string) (model.ClaimOutcome, error) {
	form := url.Values{
		"ApplyIDs": {applicantID},
		"roomID":   {roomID},
	}

	resp, body, err := c.do(ctx, http.MethodPost, ClaimPath, form)
	if err != nil {
		return model.ClaimTransient, err
	}
	if redirectedToLogin(resp) {
		return model.ClaimTransient, fmt.Errorf("%w: claim redirected to login", common.ErrCredentialInvalid)
	}

	reply := strings.TrimSpace(body)
	c.logger.Info("Claim response", "room", roomID, "status", resp.StatusCode, "body", truncate(reply, 200))

	return ClassifyClaim(reply)
}

// ClassifyClaim maps a claim reply to its outcome.
func ClassifyClaim(body string) (model.ClaimOutcome, error) {
	switch {
	case strings.Contains(body, ContestedMarker):
		return model.ClaimContested, nil
	case strings.Contains(body, SuccessMarker):
		return model.ClaimClaimed, nil
	case containsLoginMarker(body):
		return model.ClaimTransient, fmt.Errorf("%w: claim asks for login", common.ErrCredentialInvalid)
	default:
		return model.ClaimTransient, nil
	}
}

// CheckSession verifies that the cookie still opens the index page.
func (c *Client) CheckSession(ctx context.Context) error {
	resp, body, err := c.do(ctx, http.MethodGet, IndexPath, nil)
	if err != nil {
		return err
	}
	if redirectedToLogin(resp) {
		return fmt.Errorf("%w: index redirected to login", common.ErrCredentialInvalid)
	}
	if strings.Contains(body, "用户登录") || strings.Contains(body, "请登录") {
		return fmt.Errorf("%w: index page asks for login", common.ErrCredentialInvalid)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values) (*http.Response, string, error) {
	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Cookie", c.cookie)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s response: %w", path, err)
	}

	c.logger.Debug("Portal request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	// A missing endpoint points at a wrong base URL and is not retried.
	if (resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusMethodNotAllowed) && !redirectedToLogin(resp) {
		return resp, "", common.Permanent(fmt.Errorf("%w: %s %s returned %d", common.ErrUnexpectedStatus, method, path, resp.StatusCode))
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return resp, "", fmt.Errorf("%w: %s %s returned %d", common.ErrUnexpectedStatus, method, path, resp.StatusCode)
	}

	return resp, string(data), nil
}

func redirectedToLogin(resp *http.Response) bool {
	if resp == nil {
		return false
	}
	if resp.Request != nil && resp.Request.URL != nil &&
		strings.Contains(resp.Request.URL.String(), loginRoute) {
		return true
	}
	return strings.Contains(resp.Header.Get("Location"), loginRoute)
}

func containsLoginMarker(body string) bool {
	for _, marker := range loginMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
