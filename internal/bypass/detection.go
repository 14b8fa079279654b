// Package bypass recognises bot-protection walls in fetched pages, so a
// challenge page is never mistaken for competitor content.
package bypass

import (
	"bytes"
	"net/http"
	"strings"
)

// Response is the part of an HTTP exchange the detectors look at.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Detector reports whether resp is a bot-protection challenge and, if so,
// which vendor served it.
type Detector func(resp Response) (detected bool, vendor string)

// DefaultDetectors returns the standard list of bot protection detectors.
func DefaultDetectors() []Detector {
	return []Detector{
		detectCloudflare,
		detectAkamai,
		detectDataDome,
		detectPerimeterX,
	}
}

// Analyze runs resp through detectors and returns the first vendor that
// matched, or "" when the page looks genuine.
func Analyze(resp Response, detectors []Detector) string {
	for _, d := range detectors {
		if detected, vendor := d(resp); detected {
			return vendor
		}
	}
	return ""
}

func blocked(resp Response) bool {
	return resp.StatusCode == http.StatusForbidden
}

func serverContains(resp Response, needle string) bool {
	return strings.Contains(strings.ToLower(resp.Header.Get("Server")), needle)
}

func bodyContainsAny(body []byte, needles ...string) bool {
	for _, n := range needles {
		if bytes.Contains(body, []byte(n)) {
			return true
		}
	}
	return false
}

// Cloudflare challenges come back as 403 or 503.
func detectCloudflare(resp Response) (bool, string) {
	if resp.StatusCode != http.StatusForbidden && resp.StatusCode != http.StatusServiceUnavailable {
		return false, ""
	}
	if serverContains(resp, "cloudflare") ||
		bodyContainsAny(resp.Body, "cf-browser-verification", "cloudflare-nginx", "cf-turnstile", "Attention Required! | Cloudflare") {
		return true, "Cloudflare"
	}
	return false, ""
}

func detectAkamai(resp Response) (bool, string) {
	if !blocked(resp) {
		return false, ""
	}
	if serverContains(resp, "akamai") {
		return true, "Akamai"
	}
	// generic "Reference #" block page
	if bodyContainsAny(resp.Body, "Reference #") && bodyContainsAny(resp.Body, "Access Denied") {
		return true, "Akamai"
	}
	return false, ""
}

func detectDataDome(resp Response) (bool, string) {
	if !blocked(resp) {
		return false, ""
	}
	if serverContains(resp, "datadome") ||
		resp.Header.Get("X-DataDome") != "" || resp.Header.Get("X-DataDome-Response") != "" ||
		bodyContainsAny(resp.Body, "geo.captcha-delivery.com", "datadome") {
		return true, "DataDome"
	}
	return false, ""
}

func detectPerimeterX(resp Response) (bool, string) {
	if !blocked(resp) {
		return false, ""
	}
	if resp.Header.Get("X-Px-Captcha") != "" ||
		bodyContainsAny(resp.Body, "client.perimeterx.net", "px-captcha", "_pxBlock") {
		return true, "PerimeterX"
	}
	return false, ""
}
