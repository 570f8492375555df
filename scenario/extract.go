package scenario

import (
	"context"
	"fmt"
	"strings"

	"github.com/use-agent/dashcheck/browser"
	"github.com/use-agent/dashcheck/record"
)

// MetricKeyPrefix prefixes the 1-based index of each summary card key.
const MetricKeyPrefix = "Dashboard_Metric_"

// CardSelectors locate summary cards and the title and value inside each.
type CardSelectors struct {
	Card  string
	Title string
	Value string
}

// RowSelectors locate the first table row and its cells.
type RowSelectors struct {
	Row  string
	Cell string
}

// ExtractCards reads every card except the last skipFromEnd and stores
// "<value> (<title>)" under Dashboard_Metric_<n>. Cards read before a
// failure stay in the returned group.
func (r *Runner) ExtractCards(ctx context.Context, p browser.Page, sel CardSelectors, skipFromEnd int) (*record.Group, error) {
	g := record.NewGroup()

	if ok, err := p.WaitVisible(ctx, sel.Card, r.timeouts.Settle); err != nil {
		return g, fmt.Errorf("wait for cards: %w", err)
	} else if !ok {
		r.log.Warn("no visible cards", "selector", sel.Card)
	}

	cards, err := p.Elements(ctx, sel.Card)
	if err != nil {
		return g, fmt.Errorf("list cards: %w", err)
	}
	r.log.Info("cards found", "count", len(cards), "skip_from_end", skipFromEnd)

	for i := 0; i < len(cards)-skipFromEnd; i++ {
		title, err := childText(ctx, cards[i], sel.Title)
		if err != nil {
			return g, fmt.Errorf("card %d title: %w", i+1, err)
		}
		value, err := childText(ctx, cards[i], sel.Value)
		if err != nil {
			return g, fmt.Errorf("card %d value: %w", i+1, err)
		}

		key := fmt.Sprintf("%s%d", MetricKeyPrefix, i+1)
		v := fmt.Sprintf("%s (%s)", strings.TrimSpace(value), strings.TrimSpace(title))
		g.Set(key, v)
		r.log.Info("metric extracted", "key", key, "value", v)
	}
	return g, nil
}

// ExtractHoverSeries hovers the first min(len(elements), len(labels))
// elements matching items in order and stores the tooltip text shown for
// each under prefix+label. An empty tooltip leaves its label unset; a hover
// failure stops the series.
func (r *Runner) ExtractHoverSeries(ctx context.Context, p browser.Page, items, tooltip, prefix string, labels []string) (*record.Group, error) {
	g := record.NewGroup()

	els, err := p.Elements(ctx, items)
	if err != nil {
		return g, fmt.Errorf("list %q: %w", items, err)
	}

	n := min(len(els), len(labels))
	for i := 0; i < n; i++ {
		if err := els[i].Hover(ctx, true); err != nil {
			return g, fmt.Errorf("hover %s: %w", labels[i], err)
		}
		txt, err := p.WaitStableText(ctx, tooltip, r.timeouts.Settle)
		if err != nil {
			return g, fmt.Errorf("tooltip for %s: %w", labels[i], err)
		}
		if txt == "" {
			continue
		}
		g.Set(prefix+labels[i], strings.TrimSpace(txt))
		r.log.Info("series value extracted", "key", prefix+labels[i], "value", strings.TrimSpace(txt))
	}
	return g, nil
}

// ExtractLabeledValues pairs the i-th element matching selector with the
// i-th label. Fewer elements than labels is an error; values paired before
// it are kept.
func (r *Runner) ExtractLabeledValues(ctx context.Context, p browser.Page, selector, prefix string, labels []string) (*record.Group, error) {
	g := record.NewGroup()

	els, err := p.Elements(ctx, selector)
	if err != nil {
		return g, fmt.Errorf("list %q: %w", selector, err)
	}

	for i, label := range labels {
		if i >= len(els) {
			return g, fmt.Errorf("no element for %s: only %d match %q", label, len(els), selector)
		}
		txt, err := els[i].Text(ctx)
		if err != nil {
			return g, fmt.Errorf("text for %s: %w", label, err)
		}
		if txt == "" {
			continue
		}
		g.Set(prefix+label, strings.TrimSpace(txt))
		r.log.Info("labeled value extracted", "key", prefix+label, "value", strings.TrimSpace(txt))
	}
	return g, nil
}

// ExtractSingleHoverValue hovers the element at selector and stores the
// trimmed tooltip text under key.
func (r *Runner) ExtractSingleHoverValue(ctx context.Context, p browser.Page, selector, tooltip, key string) (*record.Group, error) {
	g := record.NewGroup()

	if err := p.Hover(ctx, selector, true); err != nil {
		return g, fmt.Errorf("hover %s: %w", key, err)
	}
	txt, err := p.WaitStableText(ctx, tooltip, r.timeouts.Settle)
	if err != nil {
		return g, fmt.Errorf("tooltip for %s: %w", key, err)
	}
	g.Set(key, strings.TrimSpace(txt))
	r.log.Info("hover value extracted", "key", key, "value", strings.TrimSpace(txt))
	return g, nil
}

// ExtractFirstRow stores the trimmed text of every cell of the first table
// row as Column_1..Column_N. A row that never becomes visible yields an
// empty group and no error.
func (r *Runner) ExtractFirstRow(ctx context.Context, p browser.Page, sel RowSelectors) (*record.Group, error) {
	g := record.NewGroup()

	ok, err := p.WaitVisible(ctx, sel.Row, r.timeouts.Row)
	if err != nil {
		return g, fmt.Errorf("wait for first row: %w", err)
	}
	if !ok {
		r.log.Warn("first row not visible", "selector", sel.Row, "timeout", r.timeouts.Row)
		return g, nil
	}

	rows, err := p.Elements(ctx, sel.Row)
	if err != nil {
		return g, fmt.Errorf("list rows: %w", err)
	}
	if len(rows) == 0 {
		return g, nil
	}

	cells, err := rows[0].Elements(ctx, sel.Cell)
	if err != nil {
		return g, fmt.Errorf("list cells: %w", err)
	}
	for i, cell := range cells {
		txt, err := cell.Text(ctx)
		if err != nil {
			return g, fmt.Errorf("cell %d: %w", i+1, err)
		}
		key := fmt.Sprintf("Column_%d", i+1)
		g.Set(key, strings.TrimSpace(txt))
	}
	r.log.Info("first row extracted", "cells", g.Len())
	return g, nil
}

func childText(ctx context.Context, el browser.Element, selector string) (string, error) {
	els, err := el.Elements(ctx, selector)
	if err != nil {
		return "", err
	}
	if len(els) == 0 {
		return "", fmt.Errorf("no %q inside element", selector)
	}
	return els[0].Text(ctx)
}
