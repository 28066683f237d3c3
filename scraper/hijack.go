package scraper

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// configToProto maps config resource names to Rod protocol resource types.
var configToProto = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
	"Script":     proto.NetworkResourceTypeScript,
}

// trackerDomains are ad and analytics hosts that keep the network busy on
// report pages without contributing to the screener table.
var trackerDomains = map[string]struct{}{
	"doubleclick.net":       {},
	"googlesyndication.com": {},
	"googleadservices.com":  {},
	"google-analytics.com":  {},
	"googletagmanager.com":  {},
	"googletagservices.com": {},
	"adservice.google.com":  {},
	"facebook.net":          {},
	"amazon-adsystem.com":   {},
	"criteo.com":            {},
	"taboola.com":           {},
	"outbrain.com":          {},
	"pubmatic.com":          {},
	"hotjar.com":            {},
	"clarity.ms":            {},
	"scorecardresearch.com": {},
	"onesignal.com":         {},
}

// isTrackerHost reports whether host or any parent domain is a tracker.
func isTrackerHost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for host != "" {
		if _, ok := trackerDomains[host]; ok {
			return true
		}
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			break
		}
		host = host[idx+1:]
	}
	return false
}

// blockedTypes converts config names to a lookup set, ignoring unknown
// names.
func blockedTypes(names []string) map[proto.NetworkResourceType]struct{} {
	blocked := make(map[proto.NetworkResourceType]struct{}, len(names))
	for _, name := range names {
		if rt, ok := configToProto[name]; ok {
			blocked[rt] = struct{}{}
			continue
		}
		slog.Warn("ignoring unknown blocked resource type", "type", name)
	}
	return blocked
}

// blockPolicy decides which intercepted requests are failed.
type blockPolicy struct {
	types    map[proto.NetworkResourceType]struct{}
	trackers bool
}

func newBlockPolicy(names []string, blockAds bool) blockPolicy {
	return blockPolicy{types: blockedTypes(names), trackers: blockAds}
}

// empty reports whether the policy never blocks anything.
func (p blockPolicy) empty() bool {
	return len(p.types) == 0 && !p.trackers
}

// blocks reports whether a request of type rt to rawURL is dropped.
// Documents, XHR and downloads are never in the type set, so the screener
// page and its export always pass unless they live on a tracker host.
func (p blockPolicy) blocks(rt proto.NetworkResourceType, rawURL string) bool {
	if _, drop := p.types[rt]; drop {
		return true
	}
	if !p.trackers {
		return false
	}
	u, err := url.Parse(rawURL)
	return err == nil && isTrackerHost(u.Hostname())
}

// setupHijack installs a request interceptor applying the block policy
// built from blockedNames and blockAds. Returns nil if there is nothing to
// block; otherwise the caller must Stop the returned router.
func setupHijack(page *rod.Page, blockedNames []string, blockAds bool) *rod.HijackRouter {
	policy := newBlockPolicy(blockedNames, blockAds)
	if policy.empty() {
		return nil
	}

	router := page.HijackRequests()
	_ = router.Add("*", "", func(h *rod.Hijack) {
		if policy.blocks(h.Request.Type(), h.Request.URL().String()) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})

	go router.Run()
	return router
}
