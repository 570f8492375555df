// Package preflight probes the target over plain HTTP before a browser is
// spent on it.
package preflight

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	tls "github.com/refraction-networking/utls"
	"golang.org/x/net/html/charset"

	"github.com/use-agent/dashcheck/models"
)

// chromeH1Spec is a Chrome ClientHello with ALPN limited to http/1.1, since
// net/http cannot speak h2 over a utls connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"
	maxBody   = 5 << 20
)

// Prober issues the preflight request.
type Prober struct {
	client *http.Client
	login  []cascadia.Selector
}

// New returns a Prober that looks for loginSelectors in the static markup.
// Selectors that do not parse are rejected.
func New(timeout time.Duration, loginSelectors ...string) (*Prober, error) {
	p := &Prober{client: newClient(timeout)}
	for _, s := range loginSelectors {
		sel, err := cascadia.Compile(s)
		if err != nil {
			return nil, fmt.Errorf("preflight: bad login selector %q: %w", s, err)
		}
		p.login = append(p.login, sel)
	}
	return p, nil
}

func newClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: 10 * time.Second}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("preflight: apply tls spec: %w", err)
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2: false,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// Probe fetches url. Transport errors and 5xx responses fail with
// PREFLIGHT_FAILED; anything else is reported, including 4xx.
func (p *Prober) Probe(ctx context.Context, url string) (*models.PreflightInfo, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, models.NewRunError(models.ErrCodeInvalidInput, "invalid base url", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, models.NewRunError(models.ErrCodePreflight, "base url unreachable", err)
	}
	defer resp.Body.Close()

	info := &models.PreflightInfo{
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
	}

	if resp.StatusCode >= 500 {
		info.DurationMs = time.Since(start).Milliseconds()
		return info, models.NewRunError(models.ErrCodePreflight,
			fmt.Sprintf("base url returned status %d", resp.StatusCode), nil)
	}

	if ct := resp.Header.Get("Content-Type"); isHTML(ct) {
		doc, err := parse(io.LimitReader(resp.Body, maxBody), ct)
		if err == nil {
			info.Title = strings.TrimSpace(doc.Find("title").First().Text())
			info.LoginMarkup = p.hasLoginMarkup(doc)
		}
	}
	info.DurationMs = time.Since(start).Milliseconds()
	return info, nil
}

// parse decodes body to UTF-8 using the declared or sniffed charset.
func parse(body io.Reader, contentType string) (*goquery.Document, error) {
	r, err := charset.NewReader(body, contentType)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(r)
}

func (p *Prober) hasLoginMarkup(doc *goquery.Document) bool {
	if len(p.login) == 0 {
		return false
	}
	for _, sel := range p.login {
		if doc.FindMatcher(sel).Length() == 0 {
			return false
		}
	}
	return true
}

func isHTML(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}
