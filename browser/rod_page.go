package browser

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// rodPage implements Page on top of a go-rod page.
type rodPage struct {
	page *rod.Page

	// hijacked is set when a HijackRouter runs on the page. Request-idle
	// tracking conflicts with the Fetch domain the router uses, so idle
	// waits fall back to DOM stability.
	hijacked bool

	actionTimeout time.Duration
	idleTimeout   time.Duration
}

// NewPage wraps an existing rod page. Zero timeouts fall back to 10s for
// actions and 15s for network idle.
func NewPage(page *rod.Page, actionTimeout, idleTimeout time.Duration) Page {
	return newRodPage(page, actionTimeout, idleTimeout)
}

func newRodPage(page *rod.Page, actionTimeout, idleTimeout time.Duration) *rodPage {
	if actionTimeout <= 0 {
		actionTimeout = 10 * time.Second
	}
	if idleTimeout <= 0 {
		idleTimeout = 15 * time.Second
	}
	return &rodPage{page: page, actionTimeout: actionTimeout, idleTimeout: idleTimeout}
}

// bind returns the page bound to ctx with the given deadline.
func (p *rodPage) bind(ctx context.Context, d time.Duration) (*rod.Page, context.CancelFunc) {
	actx, cancel := context.WithTimeout(ctx, d)
	return p.page.Context(actx), cancel
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	page, cancel := p.bind(ctx, p.idleTimeout)
	defer cancel()

	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	return nil
}

func (p *rodPage) Fill(ctx context.Context, selector, value string) error {
	page, cancel := p.bind(ctx, p.actionTimeout)
	defer cancel()

	el, err := page.Element(selector)
	if err != nil {
		return fmt.Errorf("element %q not found: %w", selector, err)
	}
	if _, err := el.Eval(`function () {
		this.value = '';
		this.dispatchEvent(new Event('input', { bubbles: true }));
	}`); err != nil {
		return fmt.Errorf("clear %q: %w", selector, err)
	}
	if value == "" {
		return nil
	}
	if err := el.Input(value); err != nil {
		return fmt.Errorf("input into %q: %w", selector, err)
	}
	return nil
}

func (p *rodPage) Click(ctx context.Context, selector string) error {
	page, cancel := p.bind(ctx, p.actionTimeout)
	defer cancel()

	el, err := page.Element(selector)
	if err != nil {
		return fmt.Errorf("element %q not found: %w", selector, err)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (p *rodPage) ClickText(ctx context.Context, selector, text string) error {
	page, cancel := p.bind(ctx, p.actionTimeout)
	defer cancel()

	el, err := page.ElementR(selector, "/"+regexp.QuoteMeta(text)+"/i")
	if err != nil {
		return fmt.Errorf("%s with text %q not found: %w", selector, text, err)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (p *rodPage) WaitNetworkIdle(ctx context.Context, action func(ctx context.Context) error) error {
	page, cancel := p.bind(ctx, p.idleTimeout)
	defer cancel()

	// The listener must exist before action, or requests already in flight
	// are missed and the wait returns a false idle.
	var waitIdle func()
	if !p.hijacked {
		waitIdle = page.WaitRequestIdle(500*time.Millisecond, nil, nil, nil)
	}

	if action != nil {
		if err := action(ctx); err != nil {
			return err
		}
	}

	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	if waitIdle == nil {
		if err := page.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
			return fmt.Errorf("wait dom stable: %w", err)
		}
		return nil
	}
	waitIdle()
	if err := page.GetContext().Err(); err != nil {
		return fmt.Errorf("wait network idle: %w", err)
	}
	return nil
}

func (p *rodPage) WaitURL(ctx context.Context, pattern string, timeout time.Duration) error {
	re, err := CompileURLGlob(pattern)
	if err != nil {
		return fmt.Errorf("bad url pattern %q: %w", pattern, err)
	}
	var last string
	err = poll(ctx, timeout, func(ctx context.Context) (bool, error) {
		info, err := p.page.Context(ctx).Info()
		if err != nil {
			return false, err
		}
		last = info.URL
		return re.MatchString(last), nil
	})
	if err != nil {
		return fmt.Errorf("url %q never matched %q: %w", last, pattern, err)
	}
	return nil
}

func (p *rodPage) URL(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (p *rodPage) Elements(ctx context.Context, selector string) ([]Element, error) {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	return wrapElements(p.page, els), nil
}

func (p *rodPage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	err := poll(ctx, timeout, func(ctx context.Context) (bool, error) {
		els, err := p.page.Context(ctx).Elements(selector)
		if err != nil {
			return false, err
		}
		for _, el := range els {
			if ok, _ := el.Context(ctx).Visible(); ok {
				return true, nil
			}
		}
		return false, nil
	})
	if errors.Is(err, ErrWaitTimeout) {
		return false, nil
	}
	return err == nil, err
}

// textVisibleJS walks text nodes and reports whether any node containing
// the text sits in a rendered, non-hidden element.
const textVisibleJS = `(text) => {
	if (!document.body) return false;
	const walker = document.createTreeWalker(document.body, NodeFilter.SHOW_TEXT);
	while (walker.nextNode()) {
		const node = walker.currentNode;
		if (!node.textContent.includes(text)) continue;
		const el = node.parentElement;
		if (!el) continue;
		const rect = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		if (rect.width > 0 && rect.height > 0 &&
			style.visibility !== 'hidden' && style.display !== 'none') {
			return true;
		}
	}
	return false;
}`

func (p *rodPage) TextVisible(ctx context.Context, text string, timeout time.Duration) (bool, error) {
	err := poll(ctx, timeout, func(ctx context.Context) (bool, error) {
		res, err := p.page.Context(ctx).Eval(textVisibleJS, text)
		if err != nil {
			return false, err
		}
		return res.Value.Bool(), nil
	})
	if errors.Is(err, ErrWaitTimeout) {
		return false, nil
	}
	return err == nil, err
}

func (p *rodPage) Hover(ctx context.Context, selector string, force bool) error {
	page, cancel := p.bind(ctx, p.actionTimeout)
	defer cancel()

	el, err := page.Element(selector)
	if err != nil {
		return fmt.Errorf("element %q not found: %w", selector, err)
	}
	return hoverElement(page, el, force)
}

func (p *rodPage) WaitStableText(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	txt, err := settleText(ctx, timeout, func(ctx context.Context) (string, bool, error) {
		els, err := p.page.Context(ctx).Elements(selector)
		if err != nil || len(els) == 0 {
			return "", false, err
		}
		txt, err := els[0].Context(ctx).Text()
		return txt, err == nil, err
	})
	if err != nil {
		return "", fmt.Errorf("text of %q did not settle: %w", selector, err)
	}
	return txt, nil
}

// hoverElement moves the mouse over el. Without force it goes through rod's
// Hover, which scrolls the element into view and checks it is interactable.
// With force the pointer is moved straight to a point inside the element's
// box, so covered or animating chart shapes can still be hovered.
func hoverElement(page *rod.Page, el *rod.Element, force bool) error {
	if !force {
		return el.Hover()
	}
	_ = el.ScrollIntoView()
	shape, err := el.Shape()
	if err != nil {
		return fmt.Errorf("element shape: %w", err)
	}
	pt := shape.OnePointInside()
	if pt == nil {
		return errors.New("element has no visible box to hover")
	}
	return page.Mouse.MoveTo(*pt)
}

// rodElement implements Element.
type rodElement struct {
	page *rod.Page
	el   *rod.Element
}

func wrapElements(page *rod.Page, els rod.Elements) []Element {
	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = &rodElement{page: page, el: el}
	}
	return out
}

func (e *rodElement) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}

func (e *rodElement) Visible(ctx context.Context, timeout time.Duration) (bool, error) {
	err := poll(ctx, timeout, func(ctx context.Context) (bool, error) {
		return e.el.Context(ctx).Visible()
	})
	if errors.Is(err, ErrWaitTimeout) {
		return false, nil
	}
	return err == nil, err
}

func (e *rodElement) Elements(ctx context.Context, selector string) ([]Element, error) {
	els, err := e.el.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	return wrapElements(e.page, els), nil
}

func (e *rodElement) Hover(ctx context.Context, force bool) error {
	return hoverElement(e.page.Context(ctx), e.el.Context(ctx), force)
}
