package scenario

import (
	"context"

	"github.com/use-agent/dashcheck/browser"
	"github.com/use-agent/dashcheck/models"
	"github.com/use-agent/dashcheck/record"
)

// Selectors is the DOM contract of the admin dashboard's Customer module.
type Selectors struct {
	Login LoginSelectors

	ModuleLabel   string
	ModulePattern string
	LandingMarker string
	LandingTexts  []string

	Cards            CardSelectors
	CardsSkipFromEnd int

	Bars      string
	Tooltip   string
	AgePrefix string
	AgeLabels []string

	Gender       string
	GenderPrefix string
	GenderLabels []string

	LocationBar string
	LocationKey string

	ListButton      string
	ListButtonLabel string

	Row RowSelectors
}

// DefaultSelectors matches the QA deployment of the admin dashboard.
var DefaultSelectors = Selectors{
	Login: LoginSelectors{
		Email:    `input[type="email"]`,
		Password: `input[type="password"]`,
		Submit:   `button[type="submit"]`,
	},

	ModuleLabel:   "Customer",
	ModulePattern: "**/customer",
	LandingMarker: "customer",
	LandingTexts:  []string{"Customer Overview", "Dashboard"},

	Cards: CardSelectors{
		Card:  ".rounded-xl.border.bg-card",
		Title: ".text-black2.text-h3",
		Value: ".text-h1.text-black",
	},
	CardsSkipFromEnd: 3,

	Bars:      ".recharts-rectangle",
	Tooltip:   ".text-h7.tabular-nums.text-muted-foreground",
	AgePrefix: "Dashboard_Metric_Age_",
	AgeLabels: []string{"18-25", "25-33", "33-40"},

	Gender:       ".text-h7.text-black3",
	GenderPrefix: "Dashboard_Metric_Gender_",
	GenderLabels: []string{"Male", "Female", "Other"},

	LocationBar: `.p-6.grid.grid-cols-1.md\:grid-cols-1.lg\:grid-cols-1 > .rounded-xl > .flex.aspect-video > ` +
		`.recharts-responsive-container > .recharts-wrapper > .recharts-surface > ` +
		`.recharts-layer.recharts-bar > .recharts-layer.recharts-bar-rectangles > g > g:nth-child(3) > .recharts-rectangle`,
	LocationKey: "Dashboard_Metric_Location_Bagmati",

	ListButton:      "button",
	ListButtonLabel: "Customer Lists",

	Row: RowSelectors{
		Row:  "table tbody tr:first-child",
		Cell: `td, [role="cell"]`,
	},
}

// Target is where and as whom the flow logs in.
type Target struct {
	BaseURL     string
	Credentials models.Credentials
}

// CustomerFlow returns the Customer module check: log in, open the module,
// confirm the landing, scrape the dashboard metrics, open the customer list,
// scrape its first row and validate everything collected.
func (r *Runner) CustomerFlow(t Target, sel Selectors) []Step {
	return []Step{
		{
			Name:    "authenticate",
			Reaches: StateAuthenticated,
			Run: func(ctx context.Context, p browser.Page, rec *record.Record) (*record.Record, error) {
				r.log.Info("opening login page", "url", t.BaseURL)
				if err := p.Navigate(ctx, t.BaseURL); err != nil {
					return rec, models.NewRunError(models.ErrCodeNavigation, "could not open login page", err)
				}
				return rec, r.Authenticate(ctx, p, sel.Login, t.Credentials)
			},
		},
		{
			Name:    "navigate to customer module",
			Reaches: StateOnModuleLanding,
			Run: func(ctx context.Context, p browser.Page, rec *record.Record) (*record.Record, error) {
				return rec, r.NavigateToModule(ctx, p, sel.ModuleLabel, sel.ModulePattern)
			},
		},
		{
			Name:    "verify landing",
			Reaches: StateOnModuleLanding,
			Run: func(ctx context.Context, p browser.Page, rec *record.Record) (*record.Record, error) {
				if !r.VerifyLanding(ctx, p, sel.LandingMarker, sel.LandingTexts...) {
					return rec, models.NewRunError(models.ErrCodeLandingNotVerified,
						"customer module landing could not be confirmed", nil)
				}
				return rec, nil
			},
		},
		{
			Name:    "extract dashboard metrics",
			Reaches: StateMetricsExtracted,
			Run:     r.metricsStep(sel),
		},
		{
			Name:    "open customer list",
			Reaches: StateListNavigated,
			Run: func(ctx context.Context, p browser.Page, rec *record.Record) (*record.Record, error) {
				err := p.WaitNetworkIdle(ctx, func(ctx context.Context) error {
					if err := p.ClickText(ctx, sel.ListButton, sel.ListButtonLabel); err != nil {
						return models.NewRunError(models.ErrCodeNavigation, "could not open customer list", err)
					}
					return nil
				})
				if err != nil {
					return rec, settleError(err, models.ErrCodeNavigation, "customer list did not settle")
				}
				return rec, nil
			},
		},
		{
			Name:    "extract first row",
			Reaches: StateRowExtracted,
			Run: func(ctx context.Context, p browser.Page, rec *record.Record) (*record.Record, error) {
				g, err := r.ExtractFirstRow(ctx, p, sel.Row)
				rec = rec.Merge(record.CustomerData, g)
				return rec, r.contain(ctx, "first row", err)
			},
		},
		{
			Name:    "validate",
			Reaches: StateValidated,
			Run:     r.validateStep,
		},
	}
}

// metricsStep runs the four dashboard extractors in order. Each group is
// merged before the failure policy is applied to it.
func (r *Runner) metricsStep(sel Selectors) StepFunc {
	return func(ctx context.Context, p browser.Page, rec *record.Record) (*record.Record, error) {
		extractors := []struct {
			group string
			run   func() (*record.Group, error)
		}{
			{"cards", func() (*record.Group, error) {
				return r.ExtractCards(ctx, p, sel.Cards, sel.CardsSkipFromEnd)
			}},
			{"age", func() (*record.Group, error) {
				return r.ExtractHoverSeries(ctx, p, sel.Bars, sel.Tooltip, sel.AgePrefix, sel.AgeLabels)
			}},
			{"gender", func() (*record.Group, error) {
				return r.ExtractLabeledValues(ctx, p, sel.Gender, sel.GenderPrefix, sel.GenderLabels)
			}},
			{"location", func() (*record.Group, error) {
				return r.ExtractSingleHoverValue(ctx, p, sel.LocationBar, sel.Tooltip, sel.LocationKey)
			}},
		}

		for _, ex := range extractors {
			g, err := ex.run()
			rec = rec.Merge(record.Dashboard, g)
			if err := r.contain(ctx, ex.group, err); err != nil {
				return rec, err
			}
		}
		return rec, nil
	}
}
