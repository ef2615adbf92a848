package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/roomrush/internal/common"
	"github.com/Veraticus/roomrush/internal/gate"
)

// Selection modes.
const (
	ModeHTTP    = "http"
	ModeBrowser = "browser"
)

// Config keys.
const (
	KeyPortalBaseURL   = "portal.base_url"
	KeyPortalCookie    = "portal.cookie"
	KeyPortalAccount   = "portal.account"
	KeyPortalPassword  = "portal.password"
	KeyRequestTimeout  = "portal.request_timeout"
	KeyApplicantName   = "applicant.name"
	KeyScheduleStart   = "schedule.start"
	KeyLeadTime        = "schedule.lead_time"
	KeyMode            = "selection.mode"
	KeyAutoConfirm     = "selection.auto_confirm"
	KeyClickInterval   = "selection.click_interval"
	KeyManualGrace     = "selection.manual_grace"
	KeyRetryAttempts   = "retry.max_attempts"
	KeyRetryDelay      = "retry.delay"
	KeyDatabasePath    = "database.path"
	KeyBrowserHeadless = "browser.headless"
	KeyBrowserExecPath = "browser.exec_path"
	KeyLoginTimeout    = "browser.login_timeout"
	KeyLogLevel        = "logging.level"
	KeyLogFormat       = "logging.format"
	KeyLogFile         = "logging.file"
)

// SetDefaults registers default values for every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyPortalBaseURL, "https://ent.qpgzf.cn")
	v.SetDefault(KeyRequestTimeout, 30*time.Second)
	v.SetDefault(KeyLeadTime, gate.DefaultLeadTime)
	v.SetDefault(KeyMode, ModeHTTP)
	v.SetDefault(KeyAutoConfirm, true)
	v.SetDefault(KeyClickInterval, 200*time.Millisecond)
	v.SetDefault(KeyManualGrace, 30*time.Second)
	v.SetDefault(KeyRetryAttempts, common.DefaultMaxAttempts)
	v.SetDefault(KeyRetryDelay, common.DefaultRetryDelay)
	v.SetDefault(KeyDatabasePath, "$HOME/.local/share/roomrush/roomrush.db")
	v.SetDefault(KeyBrowserHeadless, false)
	v.SetDefault(KeyLoginTimeout, 10*time.Minute)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
	v.SetDefault(KeyLogFile, "$HOME/.local/share/roomrush/roomrush.log")
}

// Portal holds session settings.
type Portal struct {
	BaseURL        string
	Cookie         string
	Account        string
	Password       string
	RequestTimeout time.Duration
}

// Selection holds run behavior settings.
type Selection struct {
	Mode          string
	ClickInterval time.Duration
	ManualGrace   time.Duration
	AutoConfirm   bool
}

// Browser holds settings for the browser transport.
type Browser struct {
	ExecPath     string
	LoginTimeout time.Duration
	Headless     bool
}

// Settings is the resolved configuration for one invocation.
type Settings struct {
	Portal       Portal
	Selection    Selection
	Browser      Browser
	Applicant    string
	StartText    string
	DatabasePath string
	// LogFile receives log lines while the full-screen monitor owns the terminal.
	LogFile      string
	LeadTime     time.Duration
	RetryDelay   time.Duration
	RetryMax     int
}

// Load reads Settings from v. It does not validate; see Validate.
func Load(v *viper.Viper) Settings {
	return Settings{
		Portal: Portal{
			BaseURL:        strings.TrimSpace(v.GetString(KeyPortalBaseURL)),
			Cookie:         strings.TrimSpace(v.GetString(KeyPortalCookie)),
			Account:        strings.TrimSpace(v.GetString(KeyPortalAccount)),
			Password:       v.GetString(KeyPortalPassword),
			RequestTimeout: v.GetDuration(KeyRequestTimeout),
		},
		Selection: Selection{
			Mode:          strings.ToLower(strings.TrimSpace(v.GetString(KeyMode))),
			ClickInterval: v.GetDuration(KeyClickInterval),
			ManualGrace:   v.GetDuration(KeyManualGrace),
			AutoConfirm:   v.GetBool(KeyAutoConfirm),
		},
		Browser: Browser{
			ExecPath:     ExpandPath(v.GetString(KeyBrowserExecPath)),
			LoginTimeout: v.GetDuration(KeyLoginTimeout),
			Headless:     v.GetBool(KeyBrowserHeadless),
		},
		Applicant:    strings.TrimSpace(v.GetString(KeyApplicantName)),
		StartText:    strings.TrimSpace(v.GetString(KeyScheduleStart)),
		DatabasePath: ExpandPath(v.GetString(KeyDatabasePath)),
		LogFile:      ExpandPath(v.GetString(KeyLogFile)),
		LeadTime:     v.GetDuration(KeyLeadTime),
		RetryDelay:   v.GetDuration(KeyRetryDelay),
		RetryMax:     v.GetInt(KeyRetryAttempts),
	}
}

// Start parses the scheduled start time. An empty value means "start now"
// and returns the zero time.
func (s Settings) Start() (time.Time, error) {
	if s.StartText == "" {
		return time.Time{}, nil
	}
	t, err := gate.ParseStartTime(s.StartText)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}
	return t, nil
}
