package browser

import (
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// configToProto maps human-readable config strings to Rod protocol resource types.
var configToProto = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
	"Script":     proto.NetworkResourceTypeScript,
}

// trackerDomains are analytics and session-replay hosts that keep the
// network busy long after the dashboard has rendered.
var trackerDomains = map[string]struct{}{
	"google-analytics.com":  {},
	"googletagmanager.com":  {},
	"doubleclick.net":       {},
	"googlesyndication.com": {},
	"facebook.net":          {},
	"hotjar.com":            {},
	"hotjar.io":             {},
	"mixpanel.com":          {},
	"segment.io":            {},
	"segment.com":           {},
	"fullstory.com":         {},
	"clarity.ms":            {},
	"sentry.io":             {},
	"posthog.com":           {},
	"intercom.io":           {},
	"vercel-insights.com":   {},
}

// isTrackerDomain checks if a hostname (or any parent domain) is in the blocklist.
func isTrackerDomain(host string) bool {
	host = strings.ToLower(host)
	if _, ok := trackerDomains[host]; ok {
		return true
	}
	// Check parent domains (e.g., "region1.google-analytics.com" → "google-analytics.com").
	for {
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			break
		}
		host = host[idx+1:]
		if _, ok := trackerDomains[host]; ok {
			return true
		}
	}
	return false
}

// setupHijack installs a request interceptor on the page that blocks the
// configured resource types and, optionally, tracker domains.
//
// Returns the running HijackRouter so the caller can stop it with the page.
// Returns nil if there is nothing to block.
func setupHijack(page *rod.Page, blockedTypes []string, blockTrackers bool) *rod.HijackRouter {
	blocked := make(map[proto.NetworkResourceType]struct{}, len(blockedTypes))
	for _, name := range blockedTypes {
		if rt, ok := configToProto[name]; ok {
			blocked[rt] = struct{}{}
		}
	}
	if len(blocked) == 0 && !blockTrackers {
		return nil
	}

	router := page.HijackRequests()

	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		if _, shouldBlock := blocked[ctx.Request.Type()]; shouldBlock {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}

		if blockTrackers {
			if u, err := url.Parse(ctx.Request.URL().String()); err == nil {
				if isTrackerDomain(u.Hostname()) {
					ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
					return
				}
			}
		}

		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// router.Run() blocks until router.Stop().
	go router.Run()

	return router
}
