// Package urlutils provides URL helper functions.
package urlutils

import (
	"net/url"
	"strings"
)

// PlaceholderLink stands in for a link the photo service did not provide
const PlaceholderLink = "#"

// ReferralQuery is appended to links back to the photo service
const ReferralQuery = "utm_source=tabskin&utm_medium=referral"

// IsValidURL checks if a URL is valid
func IsValidURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// ResolveURL resolves a relative URL against a base URL
// If the URL is already absolute, it returns it unchanged
func ResolveURL(baseURL, relativeURL string) (string, error) {
	rel, err := url.Parse(relativeURL)
	if err != nil {
		return "", err
	}

	if rel.IsAbs() {
		return relativeURL, nil
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}

	return base.ResolveReference(rel).String(), nil
}

// LinkOrPlaceholder returns link, or PlaceholderLink when link is blank
func LinkOrPlaceholder(link string) string {
	if strings.TrimSpace(link) == "" {
		return PlaceholderLink
	}
	return link
}

// WithReferral appends the referral parameters to link. Blank and placeholder links are returned unchanged.
func WithReferral(link string) string {
	if link == "" || link == PlaceholderLink {
		return link
	}
	if strings.Contains(link, "?") {
		return link + "&" + ReferralQuery
	}
	return link + "?" + ReferralQuery
}
