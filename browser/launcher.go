package browser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/dashcheck/config"
	"github.com/use-agent/dashcheck/models"
	"github.com/ysmood/gson"
)

// Browser owns the Chromium process. Every run gets its own incognito
// context from OpenPage, so runs never share cookies or storage.
// It is safe for concurrent use.
type Browser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	cfg      config.BrowserConfig
	timeouts config.TimeoutConfig
}

// Launch starts Chromium and connects to it over CDP.
func Launch(cfg config.BrowserConfig, timeouts config.TimeoutConfig) (*Browser, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.DefaultProxy != "" {
		l = l.Proxy(cfg.DefaultProxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		l.Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", cfg.WindowWidth, cfg.WindowHeight))
	}
	l.Set(flags.Flag("disable-features"), "TranslateUI")
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewRunError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL, "headless", cfg.Headless)

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, models.NewRunError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}

	return &Browser{
		browser:  b,
		launcher: l,
		cfg:      cfg,
		timeouts: timeouts,
	}, nil
}

// OpenPage creates a fresh page in a new incognito context. The returned
// func closes the page and disposes the context; it is safe to call even
// after ctx has ended.
func (b *Browser) OpenPage(ctx context.Context) (Page, func(), error) {
	incognito, err := b.browser.Context(ctx).Incognito()
	if err != nil {
		return nil, nil, models.NewRunError(models.ErrCodeBrowserCrash, "failed to create incognito context", err)
	}

	var page *rod.Page
	if b.cfg.Stealth {
		page, err = stealth.Page(incognito)
	} else {
		page, err = incognito.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		_ = incognito.Close()
		return nil, nil, models.NewRunError(models.ErrCodeBrowserCrash, "failed to create page", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             b.cfg.WindowWidth,
		Height:            b.cfg.WindowHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		slog.Warn("failed to set viewport, keeping browser default", "error", err)
	}

	if len(b.cfg.ExtraHeaders) > 0 {
		if err := (proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(b.cfg.ExtraHeaders)}).Call(page); err != nil {
			slog.Warn("failed to set extra headers", "error", err)
		}
	}

	router := setupHijack(page, b.cfg.BlockedResourceTypes, b.cfg.BlockTrackers)

	closeFn := func() {
		if router != nil {
			_ = router.Stop()
		}
		if err := page.Close(); err != nil {
			slog.Debug("page close failed", "error", err)
		}
		if err := incognito.Close(); err != nil {
			slog.Debug("incognito context close failed", "error", err)
		}
	}

	p := newRodPage(page, b.timeouts.Action, b.timeouts.NetworkIdle)
	p.hijacked = router != nil
	return p, closeFn, nil
}

// Close kills the browser and removes its temporary profile.
// Call this on shutdown to prevent zombie Chrome processes.
func (b *Browser) Close() {
	slog.Info("closing browser")
	if err := b.browser.Close(); err != nil {
		slog.Warn("browser close failed, killing process", "error", err)
		b.launcher.Kill()
	}
	b.launcher.Cleanup()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
