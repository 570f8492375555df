package scenario

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/use-agent/dashcheck/browser"
)

// fakeElement is an in-memory DOM node. Hovering it sets the page tooltip.
type fakeElement struct {
	page     *fakePage
	text     string
	textErr  error
	tooltip  string
	hoverErr error
	children map[string][]*fakeElement
}

func (e *fakeElement) Text(context.Context) (string, error) { return e.text, e.textErr }

func (e *fakeElement) Visible(context.Context, time.Duration) (bool, error) { return true, nil }

func (e *fakeElement) Elements(_ context.Context, selector string) ([]browser.Element, error) {
	return toElements(e.children[selector]), nil
}

func (e *fakeElement) Hover(context.Context, bool) error {
	if e.hoverErr != nil {
		return e.hoverErr
	}
	if e.page != nil {
		e.page.tooltip = e.tooltip
	}
	return nil
}

func toElements(in []*fakeElement) []browser.Element {
	out := make([]browser.Element, len(in))
	for i, el := range in {
		out[i] = el
	}
	return out
}

// fakePage records every call and serves elements from a selector table.
type fakePage struct {
	url      string
	elements map[string][]*fakeElement
	texts    map[string]bool

	// navigations maps a ClickText label to the URL the page lands on.
	navigations map[string]string

	tooltipSelector string
	tooltip         string
	hoverTargets    map[string]string

	// errs fails the named method.
	errs  map[string]error
	calls []string
}

func newFakePage() *fakePage {
	return &fakePage{
		elements:     map[string][]*fakeElement{},
		texts:        map[string]bool{},
		navigations:  map[string]string{},
		hoverTargets: map[string]string{},
		errs:         map[string]error{},
	}
}

func (p *fakePage) record(call string) error {
	p.calls = append(p.calls, call)
	name, _, _ := strings.Cut(call, "(")
	return p.errs[name]
}

func (p *fakePage) add(selector string, els ...*fakeElement) {
	for _, el := range els {
		el.page = p
	}
	p.elements[selector] = append(p.elements[selector], els...)
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	if err := p.record("Navigate(" + url + ")"); err != nil {
		return err
	}
	p.url = url
	return nil
}

func (p *fakePage) Fill(_ context.Context, selector, value string) error {
	return p.record(fmt.Sprintf("Fill(%s,%s)", selector, value))
}

func (p *fakePage) Click(_ context.Context, selector string) error {
	return p.record("Click(" + selector + ")")
}

func (p *fakePage) ClickText(_ context.Context, selector, text string) error {
	if err := p.record(fmt.Sprintf("ClickText(%s,%s)", selector, text)); err != nil {
		return err
	}
	if url, ok := p.navigations[text]; ok {
		p.url = url
	}
	return nil
}

// WaitNetworkIdle records itself after the action so call order reads as
// action then settle.
func (p *fakePage) WaitNetworkIdle(ctx context.Context, action func(ctx context.Context) error) error {
	if action != nil {
		if err := action(ctx); err != nil {
			return err
		}
	}
	return p.record("WaitNetworkIdle()")
}

func (p *fakePage) WaitURL(_ context.Context, pattern string, _ time.Duration) error {
	if err := p.record("WaitURL(" + pattern + ")"); err != nil {
		return err
	}
	ok, err := browser.MatchURL(pattern, p.url)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("url %q: %w", p.url, browser.ErrWaitTimeout)
	}
	return nil
}

func (p *fakePage) URL(context.Context) (string, error) {
	if err := p.record("URL()"); err != nil {
		return "", err
	}
	return p.url, nil
}

func (p *fakePage) Elements(_ context.Context, selector string) ([]browser.Element, error) {
	if err := p.record("Elements(" + selector + ")"); err != nil {
		return nil, err
	}
	return toElements(p.elements[selector]), nil
}

func (p *fakePage) WaitVisible(_ context.Context, selector string, _ time.Duration) (bool, error) {
	if err := p.record("WaitVisible(" + selector + ")"); err != nil {
		return false, err
	}
	return len(p.elements[selector]) > 0, nil
}

func (p *fakePage) TextVisible(_ context.Context, text string, _ time.Duration) (bool, error) {
	if err := p.record("TextVisible(" + text + ")"); err != nil {
		return false, err
	}
	return p.texts[text], nil
}

func (p *fakePage) Hover(_ context.Context, selector string, _ bool) error {
	if err := p.record("Hover(" + selector + ")"); err != nil {
		return err
	}
	txt, ok := p.hoverTargets[selector]
	if !ok {
		return fmt.Errorf("element %q not found", selector)
	}
	p.tooltip = txt
	return nil
}

func (p *fakePage) WaitStableText(_ context.Context, selector string, _ time.Duration) (string, error) {
	if err := p.record("WaitStableText(" + selector + ")"); err != nil {
		return "", err
	}
	if selector != p.tooltipSelector || p.tooltip == "" {
		return "", fmt.Errorf("text of %q: %w", selector, browser.ErrWaitTimeout)
	}
	return p.tooltip, nil
}

func card(title, value string) *fakeElement {
	sel := DefaultSelectors.Cards
	return &fakeElement{children: map[string][]*fakeElement{
		sel.Title: {{text: title}},
		sel.Value: {{text: value}},
	}}
}

func row(cells ...string) *fakeElement {
	els := make([]*fakeElement, len(cells))
	for i, c := range cells {
		els[i] = &fakeElement{text: c}
	}
	return &fakeElement{children: map[string][]*fakeElement{DefaultSelectors.Row.Cell: els}}
}

// dashboardPage builds a page that satisfies the whole customer flow.
func dashboardPage() *fakePage {
	sel := DefaultSelectors
	p := newFakePage()
	p.navigations[sel.ModuleLabel] = "https://dash.test/customer"
	p.tooltipSelector = sel.Tooltip

	p.add(sel.Cards.Card,
		card("Total Customers", " 1,204 "),
		card("Active", "980"),
		card("New This Month", "57"),
		card("Churned", "12"),
		card("Chart A", "-"),
		card("Chart B", "-"),
		card("Chart C", "-"),
	)
	p.add(sel.Bars,
		&fakeElement{tooltip: "312"},
		&fakeElement{tooltip: "498"},
		&fakeElement{tooltip: "201"},
		&fakeElement{tooltip: "88"},
	)
	p.add(sel.Gender,
		&fakeElement{text: "52%"},
		&fakeElement{text: "45%"},
		&fakeElement{text: "3%"},
	)
	p.hoverTargets[sel.LocationBar] = " 640 "
	p.add(sel.Row.Row, row("C-001", "Ram Shrestha", "ram@example.com", "Bagmati"))
	return p
}
