package utils

import "strings"

// ClassifyUserAgent maps a raw User-Agent header to coarse device and
// browser classes. The classes feed the single-device session policy, so
// they stay deliberately coarse: two logins from the same browser on the
// same machine must classify identically.
func ClassifyUserAgent(userAgent string) (device string, browser string) {
	ua := strings.ToLower(userAgent)

	switch {
	case ua == "":
		device = "Unknown"
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		device = "Tablet"
	case strings.Contains(ua, "mobile") || strings.Contains(ua, "iphone") || strings.Contains(ua, "android"):
		device = "Mobile"
	default:
		device = "Desktop"
	}

	switch {
	case ua == "":
		browser = "Unknown"
	case strings.Contains(ua, "edg/") || strings.Contains(ua, "edge"):
		browser = "Edge"
	case strings.Contains(ua, "opr/") || strings.Contains(ua, "opera"):
		browser = "Opera"
	case strings.Contains(ua, "firefox"):
		browser = "Firefox"
	case strings.Contains(ua, "chrome") || strings.Contains(ua, "crios"):
		browser = "Chrome"
	case strings.Contains(ua, "safari"):
		browser = "Safari"
	default:
		browser = "Other"
	}
	return device, browser
}
