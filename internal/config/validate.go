package config

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Veraticus/roomrush/internal/common"
	"github.com/Veraticus/roomrush/internal/model"
)

const (
	minClickInterval = 50 * time.Millisecond
	maxClickInterval = 5 * time.Second
	maxManualRoomIDs = 50
	minCookieLength  = 20
	minAccountLength = 6
)

// Result collects everything Validate found. Errors block a run; warnings
// are printed and the run proceeds.
type Result struct {
	Errors   []string
	Warnings []string
}

// IsValid reports whether no blocking errors were found.
func (r Result) IsValid() bool {
	return len(r.Errors) == 0
}

// Err returns nil when valid, otherwise a config error listing every problem.
func (r Result) Err() error {
	if r.IsValid() {
		return nil
	}
	return common.ConfigError("%s", strings.Join(r.Errors, "; "))
}

func (r *Result) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validate checks settings together with the run's conditions and manual
// room ids. When manualRoomIDs is non-empty the condition list may be empty.
func Validate(s Settings, conditions []model.Condition, manualRoomIDs []string) Result {
	var r Result

	switch s.Selection.Mode {
	case ModeHTTP:
		if s.Portal.Cookie == "" {
			r.errorf("portal.cookie is required in %s mode", ModeHTTP)
		} else if len(s.Portal.Cookie) <= minCookieLength {
			r.warnf("portal.cookie looks too short to be a session cookie")
		}
	case ModeBrowser:
		if s.Portal.Account == "" && s.Portal.Cookie == "" {
			r.errorf("portal.account or portal.cookie is required in %s mode", ModeBrowser)
		}
		if s.Portal.Account != "" && s.Portal.Password == "" {
			r.errorf("portal.password is required when portal.account is set")
		}
		if s.Portal.Account != "" && utf8.RuneCountInString(s.Portal.Account) < minAccountLength {
			r.warnf("portal.account is shorter than %d characters", minAccountLength)
		}
		switch {
		case s.Selection.ClickInterval < minClickInterval:
			r.warnf("selection.click_interval below %s may get the session throttled", minClickInterval)
		case s.Selection.ClickInterval > maxClickInterval:
			r.warnf("selection.click_interval above %s is slow to react at the start time", maxClickInterval)
		}
	default:
		r.errorf("selection.mode must be %q or %q, got %q", ModeHTTP, ModeBrowser, s.Selection.Mode)
	}

	if s.Applicant == "" {
		r.errorf("applicant.name is required")
	} else if n := utf8.RuneCountInString(s.Applicant); n < 2 || n > 10 {
		r.warnf("applicant.name %q has an unusual length", s.Applicant)
	}

	start, err := s.Start()
	switch {
	case err != nil:
		r.errorf("schedule.start must look like %q", "2006-01-02 15:04:05")
	case !start.IsZero() && start.Hour() < 6:
		r.warnf("schedule.start %s is in the early morning, check the hour", start.Format("15:04:05"))
	}

	if s.RetryMax < 0 {
		r.errorf("retry.max_attempts must not be negative")
	}

	validateConditions(&r, conditions, len(manualRoomIDs) > 0)
	validateRoomIDs(&r, manualRoomIDs)

	return r
}

func validateConditions(r *Result, conditions []model.Condition, manual bool) {
	if len(conditions) == 0 {
		if !manual {
			r.errorf("at least one condition is required")
		}
		return
	}
	for i, c := range conditions {
		n := i + 1
		if strings.TrimSpace(c.CommunityName) == "" {
			r.errorf("condition %d: community is required", n)
		}
		if err := model.ValidateFloorRange(c.FloorRange); err != nil {
			r.errorf("condition %d: %v", n, err)
		}
		if !c.HouseType.Valid() {
			r.errorf("condition %d: invalid house type %d", n, int(c.HouseType))
		}
		if c.BuildingNo < 0 {
			r.warnf("condition %d: negative building number matches no room", n)
		}
		if c.MaxPrice < 0 {
			r.warnf("condition %d: negative max price matches no room", n)
		}
		if c.MinArea < 0 {
			r.warnf("condition %d: negative min area is ignored", n)
		}
	}
}

func validateRoomIDs(r *Result, ids []string) {
	if len(ids) > maxManualRoomIDs {
		r.warnf("%d manual room ids given, more than %d slows every claim round", len(ids), maxManualRoomIDs)
	}
	seen := make(map[string]bool, len(ids))
	var dups []string
	for _, id := range ids {
		if seen[id] {
			dups = append(dups, id)
			continue
		}
		seen[id] = true
	}
	if len(dups) > 0 {
		r.warnf("duplicate room ids: %s", strings.Join(dups, ", "))
	}
}
