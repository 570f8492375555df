package scenario

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/use-agent/dashcheck/browser"
	"github.com/use-agent/dashcheck/models"
	"github.com/use-agent/dashcheck/record"
)

// LoginSelectors locate the login form.
type LoginSelectors struct {
	Email    string
	Password string
	Submit   string
}

// Authenticate fills and submits the login form, then waits for the network
// to go idle. Every failure is fatal. Empty credentials are submitted as-is;
// whatever breaks afterwards is left to surface downstream.
func (r *Runner) Authenticate(ctx context.Context, p browser.Page, sel LoginSelectors, creds models.Credentials) error {
	r.log.Info("filling login credentials", "creds", creds)

	if err := p.Fill(ctx, sel.Email, creds.Email); err != nil {
		return models.NewRunError(models.ErrCodeAuthFailed, "could not fill email", err)
	}
	if err := p.Fill(ctx, sel.Password, creds.Password); err != nil {
		return models.NewRunError(models.ErrCodeAuthFailed, "could not fill password", err)
	}

	r.log.Info("submitting login form")
	err := p.WaitNetworkIdle(ctx, func(ctx context.Context) error {
		if err := p.Click(ctx, sel.Submit); err != nil {
			return models.NewRunError(models.ErrCodeAuthFailed, "could not submit login form", err)
		}
		return nil
	})
	if err != nil {
		return settleError(err, models.ErrCodeAuthFailed, "page did not settle after login")
	}
	return nil
}

// settleError keeps a RunError raised by the triggering action and wraps
// any other error as code.
func settleError(err error, code, msg string) error {
	var runErr *models.RunError
	if errors.As(err, &runErr) {
		return runErr
	}
	return models.NewRunError(code, msg, err)
}

// moduleLinkSelector is where sidebar module links live.
const moduleLinkSelector = "a"

// NavigateToModule clicks the sidebar link labelled label and waits for the
// URL to match pattern within the navigation timeout.
func (r *Runner) NavigateToModule(ctx context.Context, p browser.Page, label, pattern string) error {
	r.log.Info("opening module", "label", label, "pattern", pattern)

	if err := p.ClickText(ctx, moduleLinkSelector, label); err != nil {
		return models.NewRunError(models.ErrCodeNavigation, fmt.Sprintf("could not click %q link", label), err)
	}
	if err := p.WaitURL(ctx, pattern, r.timeouts.Navigation); err != nil {
		return models.NewRunError(models.ErrCodeNavigationTimeout,
			fmt.Sprintf("url did not reach %s within %s", pattern, r.timeouts.Navigation), err)
	}
	return nil
}

// VerifyLanding reports whether the page looks like the module landing:
// the URL contains marker, or one of indicators is visible within the
// landing timeout. Each check degrades to false on error.
func (r *Runner) VerifyLanding(ctx context.Context, p browser.Page, marker string, indicators ...string) bool {
	url, err := p.URL(ctx)
	if err != nil {
		r.log.Debug("could not read current url", "error", err)
	} else {
		r.log.Info("current url", "url", url)
		if strings.Contains(url, marker) {
			return true
		}
	}

	for _, text := range indicators {
		ok, err := p.TextVisible(ctx, text, r.timeouts.Landing)
		if err != nil {
			r.log.Debug("landing indicator check failed", "text", text, "error", err)
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

// Validate checks every scraped value. See record.Validate.
func (r *Runner) Validate(rec *record.Record) record.Report {
	return record.Validate(rec)
}

// validateStep logs every value, then fails the run if any is empty.
func (r *Runner) validateStep(_ context.Context, _ browser.Page, rec *record.Record) (*record.Record, error) {
	for _, t := range rec.Triples() {
		r.log.Info("value", "key", t.QualifiedKey(), "value", t.Value, "empty", record.IsEmpty(t.Value))
	}

	rep := r.Validate(rec)
	r.report = &rep

	r.log.Info("validation results",
		"dashboard_values", rec.Group(record.Dashboard).Len(),
		"customer_fields", rec.Group(record.CustomerData).Len(),
		"empty_values", len(rep.EmptyValues),
	)

	if !rep.AllValuesValid {
		return rec, models.NewRunError(models.ErrCodeEmptyValue,
			fmt.Sprintf("found %d empty values: %s", len(rep.EmptyValues), strings.Join(rep.EmptyValues, ", ")),
			nil,
		)
	}
	return rec, nil
}
