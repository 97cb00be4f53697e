// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

package profile

import (
	"strings"

	"github.com/tomtom215/flytrap/internal/models"
)

// DetectDeviceType classifies a user agent string into a device type.
// Order matters: iPad UAs contain "Mobile", Android tablet UAs contain
// "Linux", so the more specific markers are checked first.
func DetectDeviceType(userAgent string) string {
	ua := strings.ToLower(userAgent)

	switch {
	case strings.Contains(ua, "ipad"):
		return models.DeviceIPad
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipod"):
		return models.DeviceIPhone
	case strings.Contains(ua, "android"):
		return models.DeviceAndroid
	case strings.Contains(ua, "windows"):
		return models.DeviceWindows
	case strings.Contains(ua, "macintosh"), strings.Contains(ua, "mac os x"):
		return models.DeviceMac
	case strings.Contains(ua, "linux"), strings.Contains(ua, "x11"):
		return models.DeviceLinux
	default:
		return models.DeviceOther
	}
}

// DetectBrowser extracts browser name, version, and engine from a user
// agent string. Chromium derivatives embed "Chrome/" so they are checked
// before Chrome, and Chrome embeds "Safari/" so Safari is checked last.
func DetectBrowser(userAgent string) models.BrowserInfo {
	ua := userAgent

	switch {
	case strings.Contains(ua, "Edg/"):
		return models.BrowserInfo{Name: "Edge", Version: versionAfter(ua, "Edg/"), Engine: "Blink"}
	case strings.Contains(ua, "OPR/"):
		return models.BrowserInfo{Name: "Opera", Version: versionAfter(ua, "OPR/"), Engine: "Blink"}
	case strings.Contains(ua, "SamsungBrowser/"):
		return models.BrowserInfo{Name: "Samsung Internet", Version: versionAfter(ua, "SamsungBrowser/"), Engine: "Blink"}
	case strings.Contains(ua, "Firefox/"):
		return models.BrowserInfo{Name: "Firefox", Version: versionAfter(ua, "Firefox/"), Engine: "Gecko"}
	case strings.Contains(ua, "CriOS/"):
		return models.BrowserInfo{Name: "Chrome", Version: versionAfter(ua, "CriOS/"), Engine: "WebKit"}
	case strings.Contains(ua, "Chrome/"):
		return models.BrowserInfo{Name: "Chrome", Version: versionAfter(ua, "Chrome/"), Engine: "Blink"}
	case strings.Contains(ua, "Safari/") && strings.Contains(ua, "Version/"):
		return models.BrowserInfo{Name: "Safari", Version: versionAfter(ua, "Version/"), Engine: "WebKit"}
	default:
		return models.BrowserInfo{Name: "Unknown", Version: "", Engine: ""}
	}
}

// DetectPlatform extracts a human-readable platform label from a user
// agent string.
func DetectPlatform(userAgent string) string {
	ua := strings.ToLower(userAgent)

	switch {
	case strings.Contains(ua, "windows nt 10"):
		return "Windows 10/11"
	case strings.Contains(ua, "windows"):
		return "Windows"
	case strings.Contains(ua, "iphone os"), strings.Contains(ua, "cpu os"):
		return "iOS"
	case strings.Contains(ua, "mac os x"):
		return "macOS"
	case strings.Contains(ua, "android"):
		return "Android"
	case strings.Contains(ua, "cros"):
		return "ChromeOS"
	case strings.Contains(ua, "linux"), strings.Contains(ua, "x11"):
		return "Linux"
	default:
		return "Unknown"
	}
}

// versionAfter returns the dotted version token following the given marker.
func versionAfter(ua, marker string) string {
	idx := strings.Index(ua, marker)
	if idx == -1 {
		return ""
	}
	rest := ua[idx+len(marker):]
	end := 0
	for end < len(rest) {
		c := rest[end]
		if (c < '0' || c > '9') && c != '.' {
			break
		}
		end++
	}
	return rest[:end]
}
