// Package browser is the page abstraction the scenario drives, with a go-rod
// implementation behind it.
package browser

import (
	"context"
	"time"
)

// Page is a navigable, queryable browser tab.
//
// Every method blocks until the action completes or ctx ends. Methods that
// take a timeout bound their own wait independently of ctx.
type Page interface {
	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error

	// Fill replaces the value of the first input matching selector.
	// An empty value clears the field.
	Fill(ctx context.Context, selector, value string) error

	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string) error

	// ClickText clicks the first element matching selector whose text
	// contains text (case-insensitive).
	ClickText(ctx context.Context, selector, text string) error

	// WaitNetworkIdle runs action, then waits until the page stops issuing
	// requests. Request tracking starts before action runs so requests it
	// triggers are counted. An error from action is returned unchanged.
	// A nil action just waits.
	WaitNetworkIdle(ctx context.Context, action func(ctx context.Context) error) error

	// WaitURL waits until the current URL matches the glob pattern.
	WaitURL(ctx context.Context, pattern string, timeout time.Duration) error

	// URL returns the current URL.
	URL(ctx context.Context) (string, error)

	// Elements returns every element matching selector without waiting.
	Elements(ctx context.Context, selector string) ([]Element, error)

	// WaitVisible waits until at least one element matching selector is
	// visible. It returns false, not an error, when timeout elapses.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) (bool, error)

	// TextVisible reports whether text is rendered visibly anywhere on the
	// page within timeout.
	TextVisible(ctx context.Context, text string, timeout time.Duration) (bool, error)

	// Hover moves the pointer over the first element matching selector.
	// force skips the actionability checks (scrolling, overlap).
	Hover(ctx context.Context, selector string, force bool) error

	// WaitStableText waits until the first element matching selector shows
	// non-empty text that stays unchanged across several polls, bounded by
	// timeout.
	WaitStableText(ctx context.Context, selector string, timeout time.Duration) (string, error)
}

// Element is a handle to one DOM element.
type Element interface {
	Text(ctx context.Context) (string, error)
	Visible(ctx context.Context, timeout time.Duration) (bool, error)
	Elements(ctx context.Context, selector string) ([]Element, error)
	Hover(ctx context.Context, force bool) error
}
