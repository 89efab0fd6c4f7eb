package model

import (
	"net/url"
	"strings"
)

// NormalizeWebsite ensures a URL has a scheme so it can be parsed and
// displayed consistently. Empty input stays empty.
func NormalizeWebsite(website string) string {
	website = strings.TrimSpace(website)
	if website == "" {
		return ""
	}
	if !strings.HasPrefix(website, "http://") && !strings.HasPrefix(website, "https://") {
		website = "https://" + website
	}
	return website
}

// NormalizeDomain extracts the deduplication key from a website URL:
// the lower-cased hostname with a leading "www." stripped. Returns ""
// when no hostname can be extracted.
func NormalizeDomain(website string) string {
	website = NormalizeWebsite(website)
	if website == "" {
		return ""
	}
	parsed, err := url.Parse(website)
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")
	return host
}
