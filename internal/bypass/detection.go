package bypass

import (
	"bytes"
	"net/http"
	"strings"
)

// Response is the slice of an HTTP response the detectors look at.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Detector reports whether a bot protection product blocked or challenged the
// request, and which product it was.
type Detector func(r *Response) (detected bool, source string)

// DefaultDetectors returns the standard list of bot protection detectors.
func DefaultDetectors() []Detector {
	return []Detector{
		detectCloudflare,
		detectAkamai,
		detectDataDome,
		detectPerimeterX,
		detectSucuri,
	}
}

// Analyze runs r through detectors in order and returns the first match.
func Analyze(r *Response, detectors []Detector) (bool, string) {
	if r == nil {
		return false, ""
	}
	for _, d := range detectors {
		if detected, source := d(r); detected {
			return true, source
		}
	}
	return false, ""
}

func headerValue(h http.Header, key string) string {
	if v := h.Get(key); v != "" {
		return v
	}
	// Headers built by hand may not be canonicalised.
	lowerKey := strings.ToLower(key)
	for k, vals := range h {
		if strings.ToLower(k) == lowerKey && len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}

func bodyHasAny(body []byte, needles ...string) bool {
	for _, n := range needles {
		if bytes.Contains(body, []byte(n)) {
			return true
		}
	}
	return false
}

func detectCloudflare(r *Response) (bool, string) {
	if r.StatusCode != http.StatusForbidden && r.StatusCode != http.StatusServiceUnavailable {
		return false, ""
	}
	if strings.Contains(strings.ToLower(headerValue(r.Header, "Server")), "cloudflare") {
		return true, "Cloudflare"
	}
	if bodyHasAny(r.Body, "cf-browser-verification", "cloudflare-nginx", "cf-turnstile", "Attention Required! | Cloudflare") {
		return true, "Cloudflare"
	}
	return false, ""
}

func detectAkamai(r *Response) (bool, string) {
	if r.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if strings.Contains(strings.ToLower(headerValue(r.Header, "Server")), "akamai") {
		return true, "Akamai"
	}
	// Generic "Reference #" block page.
	if bodyHasAny(r.Body, "Reference #") && bodyHasAny(r.Body, "Access Denied") {
		return true, "Akamai"
	}
	return false, ""
}

func detectDataDome(r *Response) (bool, string) {
	if r.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if strings.Contains(strings.ToLower(headerValue(r.Header, "Server")), "datadome") {
		return true, "DataDome"
	}
	if headerValue(r.Header, "X-DataDome") != "" || headerValue(r.Header, "X-DataDome-Response") != "" {
		return true, "DataDome"
	}
	if bodyHasAny(r.Body, "geo.captcha-delivery.com", "datadome") {
		return true, "DataDome"
	}
	return false, ""
}

// detectPerimeterX looks for PerimeterX (HUMAN) signatures.
func detectPerimeterX(r *Response) (bool, string) {
	if r.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if headerValue(r.Header, "X-Px-Captcha") != "" {
		return true, "PerimeterX"
	}
	if bodyHasAny(r.Body, "client.perimeterx.net", "px-captcha", "_pxBlock") {
		return true, "PerimeterX"
	}
	return false, ""
}

// detectSucuri catches the Sucuri website firewall, common on small
// WordPress business sites.
func detectSucuri(r *Response) (bool, string) {
	if r.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if strings.Contains(strings.ToLower(headerValue(r.Header, "Server")), "sucuri") ||
		headerValue(r.Header, "X-Sucuri-ID") != "" {
		return true, "Sucuri"
	}
	if bodyHasAny(r.Body, "Sucuri WebSite Firewall", "cdn.sucuri.net") {
		return true, "Sucuri"
	}
	return false, ""
}
