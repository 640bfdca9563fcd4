package capture

import (
	"context"
	"time"

	"github.com/dgnsrekt/ui_capture/internal/config"
)

// ErrorScenario drives a page into a visible error state before it is captured.
// The set is closed: only types in this package implement it.
type ErrorScenario interface {
	// Name is the page name used in the output filename.
	Name() string
	// Path is navigated to before Apply runs.
	Path() string
	Apply(ctx context.Context, tab Tab, sleep sleepFunc) error
	errorScenario()
}

// LoginInvalidCredentials submits the login form with a wrong email/password pair.
type LoginInvalidCredentials struct {
	EmailSelector    string
	PasswordSelector string
	SubmitSelector   string
	Email            string
	Password         string

	FormSettle  time.Duration
	ErrorSettle time.Duration
	// ErrorSelector, when set, replaces the ErrorSettle pause with a bounded wait.
	ErrorSelector string
	ErrorTimeout  time.Duration
}

// NewLoginInvalidCredentials returns the login scenario with the configured pauses.
func NewLoginInvalidCredentials(cfg *config.Config) LoginInvalidCredentials {
	return LoginInvalidCredentials{
		EmailSelector:    `input[type="email"]`,
		PasswordSelector: `input[type="password"]`,
		SubmitSelector:   `button[type="submit"]`,
		Email:            "invalid@test.com",
		Password:         "wrongpassword",
		FormSettle:       cfg.FormSettle,
		ErrorSettle:      cfg.ErrorSettle,
		ErrorSelector:    cfg.ErrorSelector,
		ErrorTimeout:     cfg.NavTimeout,
	}
}

func (LoginInvalidCredentials) Name() string { return "login" }
func (LoginInvalidCredentials) Path() string { return "/login" }
func (LoginInvalidCredentials) errorScenario() {}

func (s LoginInvalidCredentials) Apply(ctx context.Context, tab Tab, sleep sleepFunc) error {
	if err := sleep(ctx, s.FormSettle); err != nil {
		return err
	}
	if err := tab.Fill(ctx, s.EmailSelector, s.Email); err != nil {
		return newError(CodeInteraction, "fill "+s.EmailSelector, err)
	}
	if err := tab.Fill(ctx, s.PasswordSelector, s.Password); err != nil {
		return newError(CodeInteraction, "fill "+s.PasswordSelector, err)
	}
	if err := tab.Click(ctx, s.SubmitSelector); err != nil {
		return newError(CodeInteraction, "click "+s.SubmitSelector, err)
	}
	if s.ErrorSelector == "" {
		return sleep(ctx, s.ErrorSettle)
	}
	if err := tab.WaitVisible(ctx, s.ErrorSelector, s.ErrorTimeout); err != nil {
		return newError(CodeInteraction, "wait for "+s.ErrorSelector, err)
	}
	return nil
}

func defaultScenarios(cfg *config.Config) map[string]ErrorScenario {
	login := NewLoginInvalidCredentials(cfg)
	return map[string]ErrorScenario{
		login.Name(): login,
	}
}
