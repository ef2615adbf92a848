package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/roomrush/internal/common"
	"github.com/Veraticus/roomrush/internal/listing"
	"github.com/Veraticus/roomrush/internal/model"
	"github.com/Veraticus/roomrush/internal/portal"
)

// Selectors and labels of the portal's selection page.
const (
	assignButton     = "a[onclick='assignRoom(1)']"
	dialogClose      = ".ui-dialog-titlebar-close"
	frameSelector    = "#" + FrameID
	searchInput      = "#SearchEntity__CommonSearchCondition"
	searchButton     = "#submitButton"
	listingTable     = "table#common-table"
	contentionDialog = "#sysConfirm"
	mainMarker       = "#mainCompany"
	accountInput     = "input[name='UserAccount']"
	passwordInput    = "input[name='PD']"
	loginButton      = ".CompanyloginButton"

	confirmLabel      = "确定"
	finalConfirmLabel = "最终确认"
)

// Default timings.
const (
	DefaultClickInterval = 200 * time.Millisecond
	DefaultManualGrace   = 30 * time.Second
	DefaultLoginTimeout  = 10 * time.Minute
)

// timings bounds each wait on the page.
type timings struct {
	poll         time.Duration
	cookieCheck  time.Duration
	element      time.Duration
	confirm      time.Duration
	finalConfirm time.Duration
	contention   time.Duration
}

var defaultTimings = timings{
	poll:         100 * time.Millisecond,
	cookieCheck:  3 * time.Second,
	element:      10 * time.Second,
	confirm:      5 * time.Second,
	finalConfirm: 60 * time.Second,
	contention:   2 * time.Second,
}

// Config configures a Transport.
type Config struct {
	Logger        *slog.Logger
	BaseURL       string
	Cookie        string
	Account       string
	Password      string
	ClickInterval time.Duration
	ManualGrace   time.Duration
	LoginTimeout  time.Duration
	AutoConfirm   bool
}

// Transport runs a selection by clicking through the portal like an
// operator would. It holds the page exclusively for the run.
type Transport struct {
	page   Page
	logger *slog.Logger
	rows   map[string]int
	config Config
	wait   timings
	mu     sync.Mutex
}

// NewTransport creates a transport over page.
func NewTransport(page Page, config Config) *Transport {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.BaseURL == "" {
		config.BaseURL = portal.DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.ClickInterval <= 0 {
		config.ClickInterval = DefaultClickInterval
	}
	if config.ManualGrace < 0 {
		config.ManualGrace = 0
	}
	if config.LoginTimeout <= 0 {
		config.LoginTimeout = DefaultLoginTimeout
	}
	return &Transport{
		page:   page,
		logger: config.Logger.With("component", "browser-transport"),
		rows:   map[string]int{},
		config: config,
		wait:   defaultTimings,
	}
}

// Name identifies the transport in run history.
func (t *Transport) Name() string {
	return "browser"
}

// Prepare signs in, opens the selection index and picks the applicant.
// The applicant's id is read from the input's value, falling back to the
// name when the portal renders none.
func (t *Transport) Prepare(ctx context.Context, applicantName string) (string, error) {
	if err := t.login(ctx); err != nil {
		return "", err
	}
	if err := t.page.Navigate(ctx, t.config.BaseURL+portal.IndexPath); err != nil {
		return "", fmt.Errorf("failed to open selection index: %w", err)
	}

	selector := fmt.Sprintf("input[name=%s]", quote(applicantName))
	found, err := t.waitFor(ctx, t.wait.element, func(ctx context.Context) (bool, error) {
		_, ok, err := t.page.Attribute(ctx, Top, selector, "name")
		return ok, err
	})
	if err != nil {
		return "", err
	}
	if !found {
		if t.onLoginPage(ctx) {
			return "", common.ErrCredentialInvalid
		}
		return "", fmt.Errorf("%w: %s", common.ErrApplicantNotFound, applicantName)
	}

	id, _, err := t.page.Attribute(ctx, Top, selector, "value")
	if err != nil {
		return "", err
	}
	if _, err := t.page.Click(ctx, Top, selector); err != nil {
		return "", err
	}
	if id == "" {
		id = applicantName
	}
	t.logger.Info("Applicant selected", "applicant", applicantName, "id", id)
	return id, nil
}

// Begin clicks the assign button until the selection dialog opens. Before
// the portal opens the round it answers with a notice dialog, which is
// closed before the next try.
func (t *Transport) Begin(ctx context.Context) error {
	t.logger.Info("Entering selection page")
	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := t.page.Click(ctx, Top, assignButton); err != nil {
			t.logger.Debug("Assign click failed", "attempt", attempt, "error", err)
		}
		if err := sleep(ctx, t.config.ClickInterval); err != nil {
			return err
		}

		src, ok, err := t.page.Attribute(ctx, Top, frameSelector, "src")
		if err == nil && ok && strings.Contains(src, "ApplyIDs") {
			t.logger.Info("Selection page open", "attempts", attempt)
			return nil
		}

		t.logger.Debug("Selection not open yet", "attempt", attempt)
		if _, err := t.page.Click(ctx, Top, dialogClose); err != nil {
			t.logger.Debug("Closing notice failed", "error", err)
		}
		if err := sleep(ctx, t.config.ClickInterval); err != nil {
			return err
		}
	}
}

// ResolveCandidates searches the condition's community inside the selection
// dialog and picks one row with listing.SelectFallback. The returned id is
// the row's room id, or a row reference when the row carries none.
func (t *Transport) ResolveCandidates(ctx context.Context, c model.Condition) ([]string, error) {
	html, err := t.search(ctx, c.CommunityName)
	if err != nil {
		return nil, err
	}
	records, err := listing.ParseString(html, t.logger)
	if err != nil {
		return nil, err
	}

	pick, ok := listing.SelectFallback(records, c)
	if !ok {
		return nil, nil
	}
	id := candidateID(pick.Record)

	t.mu.Lock()
	t.rows = map[string]int{id: pick.Record.Row}
	t.mu.Unlock()

	t.logger.Info("Picked listing row",
		"tier", pick.Tier.String(),
		"room", pick.Record.String(),
		"id", id)
	return []string{id}, nil
}

// AttemptClaim clicks the picked row and walks the confirmation dialogs.
func (t *Transport) AttemptClaim(ctx context.Context, roomID string) (model.ClaimOutcome, error) {
	t.mu.Lock()
	row, ok := t.rows[roomID]
	t.mu.Unlock()
	if !ok {
		return model.ClaimTransient, fmt.Errorf("room %s was not found on the listing page", roomID)
	}

	clicked, err := t.page.ClickRow(ctx, row)
	if err != nil {
		return model.ClaimTransient, err
	}
	if !clicked {
		return model.ClaimTransient, fmt.Errorf("%w: listing row %d", ErrElementNotFound, row)
	}

	if err := t.clickButton(ctx, confirmLabel, t.wait.confirm); err != nil {
		return model.ClaimTransient, err
	}

	if !t.config.AutoConfirm {
		t.logger.Warn("Waiting for manual final confirmation", "room", roomID, "grace", t.config.ManualGrace)
		if err := sleep(ctx, t.config.ManualGrace); err != nil {
			return model.ClaimTransient, err
		}
		return model.ClaimClaimed, nil
	}

	if err := t.clickButton(ctx, finalConfirmLabel, t.wait.finalConfirm); err != nil {
		return model.ClaimTransient, err
	}
	return t.checkContention(ctx, roomID)
}

// Login opens the login page, fills in the account when configured and
// waits for the operator to pass the captcha. It returns the session cookie
// as a "SYS_USER_COOKIE_KEY=<value>" header value.
func (t *Transport) Login(ctx context.Context) (string, error) {
	if err := t.loginWithPassword(ctx); err != nil {
		return "", err
	}
	value, ok, err := t.page.Cookie(ctx, portal.CookieName)
	if err != nil {
		return "", fmt.Errorf("failed to read session cookie: %w", err)
	}
	if !ok || value == "" {
		return "", fmt.Errorf("%w: no %s cookie after login", common.ErrCredentialInvalid, portal.CookieName)
	}
	return portal.NormalizeCookie(value), nil
}

func (t *Transport) login(ctx context.Context) error {
	if t.config.Cookie != "" {
		ok, err := t.loginWithCookie(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		t.logger.Warn("Cookie login failed, falling back to account login")
	}
	if t.config.Account == "" {
		return fmt.Errorf("%w: cookie rejected and no account configured", common.ErrCredentialInvalid)
	}
	return t.loginWithPassword(ctx)
}

func (t *Transport) loginWithCookie(ctx context.Context) (bool, error) {
	u, err := url.Parse(t.config.BaseURL)
	if err != nil {
		return false, common.ConfigError("invalid portal base url %q", t.config.BaseURL)
	}
	if err := t.page.Navigate(ctx, t.config.BaseURL+"/"); err != nil {
		return false, err
	}
	value := strings.TrimPrefix(portal.NormalizeCookie(t.config.Cookie), portal.CookieName+"=")
	if err := t.page.SetCookie(ctx, portal.CookieName, value, u.Hostname(), time.Now().Add(10*time.Hour)); err != nil {
		return false, fmt.Errorf("failed to set session cookie: %w", err)
	}
	if err := t.page.Navigate(ctx, t.config.BaseURL+portal.HomePath); err != nil {
		return false, err
	}

	ok, err := t.waitFor(ctx, t.wait.cookieCheck, func(ctx context.Context) (bool, error) {
		_, ok, err := t.page.Text(ctx, Top, mainMarker)
		return ok, err
	})
	if err != nil {
		return false, err
	}
	if ok {
		t.logger.Info("Signed in with session cookie")
	}
	return ok, nil
}

func (t *Transport) loginWithPassword(ctx context.Context) error {
	if err := t.page.Navigate(ctx, t.config.BaseURL+portal.LoginPath); err != nil {
		return err
	}
	if t.config.Account != "" {
		if _, err := t.waitFor(ctx, t.wait.element, func(ctx context.Context) (bool, error) {
			return t.page.SetValue(ctx, Top, accountInput, t.config.Account)
		}); err != nil {
			return err
		}
		if _, err := t.page.SetValue(ctx, Top, passwordInput, t.config.Password); err != nil {
			return err
		}
		if _, err := t.page.Click(ctx, Top, loginButton); err != nil {
			return err
		}
	}

	t.logger.Warn("Complete the captcha in the browser window", "timeout", t.config.LoginTimeout)
	home := t.config.BaseURL + portal.HomePath
	ok, err := t.waitFor(ctx, t.config.LoginTimeout, func(ctx context.Context) (bool, error) {
		loc, err := t.page.Location(ctx)
		return strings.HasPrefix(loc, home), err
	})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: login did not finish within %s", common.ErrCredentialInvalid, t.config.LoginTimeout)
	}
	t.logger.Info("Signed in")
	return nil
}

func (t *Transport) onLoginPage(ctx context.Context) bool {
	loc, err := t.page.Location(ctx)
	if err != nil {
		return false
	}
	return strings.Contains(loc, portal.LoginPath) || strings.Contains(loc, "CompanyIndex")
}

// search submits community in the selection dialog and returns the
// dialog's markup once the listing table is present.
func (t *Transport) search(ctx context.Context, community string) (string, error) {
	found, err := t.waitFor(ctx, t.wait.confirm, func(ctx context.Context) (bool, error) {
		return t.page.SetValue(ctx, Frame, searchInput, community)
	})
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("%w: search box", ErrElementNotFound)
	}
	if _, err := t.page.Click(ctx, Frame, searchButton); err != nil {
		return "", err
	}
	if err := sleep(ctx, t.config.ClickInterval); err != nil {
		return "", err
	}

	found, err = t.waitFor(ctx, t.wait.element, func(ctx context.Context) (bool, error) {
		_, ok, err := t.page.Attribute(ctx, Frame, listingTable, "id")
		return ok, err
	})
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("%w: listing table", ErrElementNotFound)
	}
	return t.page.HTML(ctx, Frame)
}

func (t *Transport) clickButton(ctx context.Context, label string, timeout time.Duration) error {
	ok, err := t.waitFor(ctx, timeout, func(ctx context.Context) (bool, error) {
		return t.page.ClickButton(ctx, label)
	})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s button", ErrElementNotFound, label)
	}
	return nil
}

// checkContention looks for the portal's "already taken" dialog after the
// final confirmation. Its absence means the claim went through.
func (t *Transport) checkContention(ctx context.Context, roomID string) (model.ClaimOutcome, error) {
	var text string
	ok, err := t.waitFor(ctx, t.wait.contention, func(ctx context.Context) (bool, error) {
		var found bool
		var err error
		text, found, err = t.page.Text(ctx, Top, contentionDialog)
		return found && text != "", err
	})
	if err != nil {
		return model.ClaimTransient, err
	}
	if ok && strings.Contains(text, portal.ContestedMarker) {
		if err := t.clickButton(ctx, confirmLabel, t.wait.contention); err != nil {
			t.logger.Debug("Dismissing contention dialog failed", "error", err)
		}
		t.logger.Warn("Room taken by another applicant", "room", roomID)
		return model.ClaimContested, nil
	}
	return model.ClaimClaimed, nil
}

// waitFor polls check until it reports true, the timeout passes or ctx is
// done. Check errors are treated as "not yet"; only ctx errors are returned.
func (t *Transport) waitFor(ctx context.Context, timeout time.Duration, check func(context.Context) (bool, error)) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		ok, err := check(ctx)
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err == nil && ok {
			return true, nil
		}
		if err != nil {
			t.logger.Debug("Page check failed", "error", err)
		}
		if !time.Now().Before(deadline) {
			return false, nil
		}
		if err := sleep(ctx, t.wait.poll); err != nil {
			return false, err
		}
	}
}

func candidateID(r model.ListingRecord) string {
	if r.RoomID != "" {
		return r.RoomID
	}
	return "row-" + strconv.Itoa(r.Row)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
