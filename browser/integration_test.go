package browser_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/dashcheck/browser"
	"github.com/use-agent/dashcheck/config"
	"github.com/use-agent/dashcheck/models"
	"github.com/use-agent/dashcheck/record"
	"github.com/use-agent/dashcheck/scenario"
)

const loginHTML = `<!doctype html>
<html><head><title>Login</title></head><body>
<form id="login">
  <input type="email" name="email">
  <input type="password" name="password">
  <button type="submit">Sign in</button>
</form>
<script>
document.getElementById('login').addEventListener('submit', function (e) {
  e.preventDefault();
  location.href = '/home';
});
</script>
</body></html>`

const homeHTML = `<!doctype html>
<html><head><title>Home</title></head><body>
<nav><a href="/orders">Orders</a> <a href="/customer">Customer</a></nav>
</body></html>`

const customerHTML = `<!doctype html>
<html><head><title>Customer</title>
<style>
  .recharts-rectangle { display: block; width: 24px; height: 24px; margin: 4px; background: #888; }
  table { display: none; }
  table.loaded { display: table; }
</style>
</head><body>
<h1>Customer Overview</h1>

<section id="cards"></section>

<div class="age-chart">
  <div class="recharts-rectangle" data-tip="312"></div>
  <div class="recharts-rectangle" data-tip="498"></div>
  <div class="recharts-rectangle" data-tip="201"></div>
</div>

<span class="text-h7 text-black3">52%</span>
<span class="text-h7 text-black3">45%</span>
<span class="text-h7 text-black3">3%</span>

<div class="p-6 grid grid-cols-1 md:grid-cols-1 lg:grid-cols-1">
  <div class="rounded-xl">
    <div class="flex aspect-video">
      <div class="recharts-responsive-container">
        <div class="recharts-wrapper">
          <div class="recharts-surface">
            <div class="recharts-layer recharts-bar">
              <div class="recharts-layer recharts-bar-rectangles">
                <g>
                  <g><div class="recharts-rectangle" data-tip="110"></div></g>
                  <g><div class="recharts-rectangle" data-tip="220"></div></g>
                  <g><div class="recharts-rectangle" data-tip="640"></div></g>
                </g>
              </div>
            </div>
          </div>
        </div>
      </div>
    </div>
  </div>
</div>

<div class="text-h7 tabular-nums text-muted-foreground"></div>

<button id="lists">Customer Lists</button>
<table>
  <tbody>
    <tr><td>C-001</td><td>Ram Shrestha</td><td>ram@example.com</td></tr>
    <tr><td>C-002</td><td>Sita Rai</td><td>sita@example.com</td></tr>
  </tbody>
</table>

<script>
const cards = [
  ['Total Customers', '1,204'], ['Active', '980'], ['New This Month', '57'], ['Churned', '12'],
  ['Chart A', ''], ['Chart B', ''], ['Chart C', ''],
];
// cards render late, like a data fetch
setTimeout(function () {
  const root = document.getElementById('cards');
  for (const [title, value] of cards) {
    const card = document.createElement('div');
    card.className = 'rounded-xl border bg-card';
    card.innerHTML = '<div class="text-black2 text-h3"></div><div class="text-h1 text-black"></div>';
    card.children[0].textContent = title;
    card.children[1].textContent = value;
    root.appendChild(card);
  }
}, 200);

const tip = document.querySelector('.text-h7.tabular-nums.text-muted-foreground');
for (const bar of document.querySelectorAll('.recharts-rectangle')) {
  bar.addEventListener('mouseenter', function () { tip.textContent = bar.dataset.tip; });
}

document.getElementById('lists').addEventListener('click', function () {
  setTimeout(function () { document.querySelector('table').classList.add('loaded'); }, 300);
});
</script>
</body></html>`

func fixtureServer() *httptest.Server {
	mux := http.NewServeMux()
	page := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = io.WriteString(w, body)
		}
	}
	mux.HandleFunc("/{$}", page(loginHTML))
	mux.HandleFunc("/home", page(homeHTML))
	mux.HandleFunc("/customer", page(customerHTML))
	return httptest.NewServer(mux)
}

func TestCustomerFlow_AgainstFixture(t *testing.T) {
	if os.Getenv("DASHCHECK_BROWSER_TESTS") != "1" {
		t.Skip("set DASHCHECK_BROWSER_TESTS=1 to run browser tests")
	}

	srv := fixtureServer()
	defer srv.Close()

	timeouts := config.TimeoutConfig{
		Navigation:  5 * time.Second,
		Landing:     5 * time.Second,
		Row:         2 * time.Second,
		Settle:      2 * time.Second,
		Action:      10 * time.Second,
		NetworkIdle: 15 * time.Second,
	}
	b, err := browser.Launch(config.BrowserConfig{
		Headless:     true,
		NoSandbox:    true,
		BrowserBin:   os.Getenv("DASHCHECK_BROWSER_BIN"),
		WindowWidth:  1280,
		WindowHeight: 720,
	}, timeouts)
	require.NoError(t, err)
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	page, closePage, err := b.OpenPage(ctx)
	require.NoError(t, err)
	defer closePage()

	runner := scenario.NewRunner(scenario.Options{
		Timeouts: timeouts,
		Strict:   true,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	target := scenario.Target{
		BaseURL:     srv.URL + "/",
		Credentials: models.Credentials{Email: "qa@example.com", Password: "secret"},
	}

	res, err := runner.Run(ctx, page, runner.CustomerFlow(target, scenario.DefaultSelectors))
	require.NoError(t, err)
	assert.Equal(t, scenario.StateDone, res.State)

	dash := res.Record.Group(record.Dashboard)
	assert.Equal(t, map[string]string{
		"Dashboard_Metric_1":                "1,204 (Total Customers)",
		"Dashboard_Metric_2":                "980 (Active)",
		"Dashboard_Metric_3":                "57 (New This Month)",
		"Dashboard_Metric_4":                "12 (Churned)",
		"Dashboard_Metric_Age_18-25":        "312",
		"Dashboard_Metric_Age_25-33":        "498",
		"Dashboard_Metric_Age_33-40":        "201",
		"Dashboard_Metric_Gender_Male":      "52%",
		"Dashboard_Metric_Gender_Female":    "45%",
		"Dashboard_Metric_Gender_Other":     "3%",
		"Dashboard_Metric_Location_Bagmati": "640",
	}, dash.Map())

	assert.Equal(t, []record.Entry{
		{Key: "Column_1", Value: "C-001"},
		{Key: "Column_2", Value: "Ram Shrestha"},
		{Key: "Column_3", Value: "ram@example.com"},
	}, res.Record.Group(record.CustomerData).Entries())
}

func TestPage_WaitURLTimesOut(t *testing.T) {
	if os.Getenv("DASHCHECK_BROWSER_TESTS") != "1" {
		t.Skip("set DASHCHECK_BROWSER_TESTS=1 to run browser tests")
	}

	srv := fixtureServer()
	defer srv.Close()

	b, err := browser.Launch(config.BrowserConfig{Headless: true, NoSandbox: true}, config.TimeoutConfig{})
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	page, closePage, err := b.OpenPage(ctx)
	require.NoError(t, err)
	defer closePage()

	require.NoError(t, page.Navigate(ctx, srv.URL+"/home"))
	err = page.WaitURL(ctx, "**/customer", 300*time.Millisecond)
	assert.ErrorIs(t, err, browser.ErrWaitTimeout)

	ok, err := page.TextVisible(ctx, "Customer", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

const slowListHTML = `<!doctype html>
<html><head><title>List</title></head><body>
<button id="load">Customer Lists</button>
<script>
document.getElementById('load').addEventListener('click', function () {
  fetch('/slow').then(function (r) { return r.text(); });
});
</script>
</body></html>`

func TestPage_WaitNetworkIdleCountsRequestsFromAction(t *testing.T) {
	if os.Getenv("DASHCHECK_BROWSER_TESTS") != "1" {
		t.Skip("set DASHCHECK_BROWSER_TESTS=1 to run browser tests")
	}

	var slowDone atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, slowListHTML)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(1200 * time.Millisecond)
		slowDone.Store(true)
		_, _ = io.WriteString(w, "ok")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	// No blocking, so the page is not hijacked and request tracking is used.
	b, err := browser.Launch(config.BrowserConfig{Headless: true, NoSandbox: true}, config.TimeoutConfig{})
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	page, closePage, err := b.OpenPage(ctx)
	require.NoError(t, err)
	defer closePage()

	require.NoError(t, page.Navigate(ctx, srv.URL+"/"))
	err = page.WaitNetworkIdle(ctx, func(ctx context.Context) error {
		return page.Click(ctx, "#load")
	})
	require.NoError(t, err)
	assert.True(t, slowDone.Load(), "idle reported while /slow was still in flight")
}
