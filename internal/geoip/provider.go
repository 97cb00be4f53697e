// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

package geoip

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/flytrap/internal/models"
)

// Provider defines the interface for geolocation lookup services.
// Implementations can use external APIs (ip-api.com, MaxMind) or local databases.
type Provider interface {
	// Lookup returns geolocation data for the given IP address.
	// Returns nil and an error if the lookup fails or the IP is invalid.
	Lookup(ctx context.Context, ipAddress string) (*models.GeoIPInfo, error)

	// Name returns the provider name for logging and metrics.
	Name() string
}

// ErrRateLimited is returned when the provider's client-side rate limit
// would be exceeded by another lookup.
var ErrRateLimited = fmt.Errorf("geoip rate limit exceeded")

// IPAPIProvider implements Provider using the free ip-api.com service.
// Rate limit: 45 requests per minute (free tier, no API key required).
// For higher limits, commercial endpoints are available at pro.ip-api.com.
type IPAPIProvider struct {
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
}

// ipAPIResponse represents the JSON response from ip-api.com
type ipAPIResponse struct {
	Status      string  `json:"status"`      // "success" or "fail"
	Message     string  `json:"message"`     // Error message if status is "fail"
	Country     string  `json:"country"`     // Country name
	CountryCode string  `json:"countryCode"` // ISO 3166-1 alpha-2 country code
	Region      string  `json:"region"`      // Region/state code
	RegionName  string  `json:"regionName"`  // Region/state name
	City        string  `json:"city"`        // City name
	Lat         float64 `json:"lat"`         // Latitude
	Lon         float64 `json:"lon"`         // Longitude
	Timezone    string  `json:"timezone"`    // Timezone (e.g., "America/New_York")
	ISP         string  `json:"isp"`         // ISP name
	Query       string  `json:"query"`       // IP address queried
}

// NewIPAPIProvider creates a new ip-api.com provider with a client-side
// token bucket matching the service's per-minute quota.
func NewIPAPIProvider(baseURL string, timeout time.Duration, ratePerMin int) *IPAPIProvider {
	if baseURL == "" {
		baseURL = "http://ip-api.com/json"
	}
	return &IPAPIProvider{
		client: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(ratePerMin)), ratePerMin),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the provider name.
func (p *IPAPIProvider) Name() string {
	return "ip-api.com"
}

// Lookup queries ip-api.com for geolocation data.
func (p *IPAPIProvider) Lookup(ctx context.Context, ipAddress string) (*models.GeoIPInfo, error) {
	if !p.limiter.Allow() {
		return nil, ErrRateLimited
	}

	if ip := net.ParseIP(ipAddress); ip == nil {
		return nil, fmt.Errorf("invalid IP address: %s", ipAddress)
	}

	result, err := p.query(ctx, ipAddress)
	if err != nil {
		return nil, err
	}

	return convertIPAPIResponse(result), nil
}

func (p *IPAPIProvider) query(ctx context.Context, ipAddress string) (*ipAPIResponse, error) {
	// The fields parameter trims the response to what we store
	url := fmt.Sprintf("%s/%s?fields=status,message,country,countryCode,region,regionName,city,lat,lon,timezone,isp,query",
		p.baseURL, ipAddress)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query ip-api.com: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ip-api.com returned status %d", resp.StatusCode)
	}

	var result ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode ip-api.com response: %w", err)
	}

	if result.Status != "success" {
		return nil, fmt.Errorf("ip-api.com lookup failed: %s", result.Message)
	}

	return &result, nil
}

func convertIPAPIResponse(result *ipAPIResponse) *models.GeoIPInfo {
	return &models.GeoIPInfo{
		Country:     result.Country,
		CountryCode: result.CountryCode,
		Region:      result.RegionName,
		City:        result.City,
		Latitude:    result.Lat,
		Longitude:   result.Lon,
		ISP:         result.ISP,
		Timezone:    result.Timezone,
	}
}

// IsPrivateIP checks if the IP address is in a private/local range.
// Private IPs cannot be geolocated and are handled without a provider call.
func IsPrivateIP(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}

	return isInPrivateRanges(ip)
}

func isInPrivateRanges(ip net.IP) bool {
	// RFC 1918: 10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16
	// Loopback: 127.0.0.0/8
	// Link-local: 169.254.0.0/16
	privateRanges := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"169.254.0.0/16",
		"::1/128",   // IPv6 loopback
		"fc00::/7",  // IPv6 unique local
		"fe80::/10", // IPv6 link-local
	}

	for _, cidr := range privateRanges {
		if isInCIDR(ip, cidr) {
			return true
		}
	}

	return false
}

func isInCIDR(ip net.IP, cidr string) bool {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return false
	}
	return network.Contains(ip)
}

// LocalGeoIP returns the placeholder geolocation used for private/LAN addresses.
func LocalGeoIP() *models.GeoIPInfo {
	return &models.GeoIPInfo{
		Country:     "Local",
		CountryCode: "LO",
		City:        "Local Network",
	}
}

// NormalizeIPAddress strips port from IP address if present
func NormalizeIPAddress(ipAddr string) string {
	if strings.HasPrefix(ipAddr, "[") {
		return normalizeIPv6Address(ipAddr)
	}
	return normalizeIPv4Address(ipAddr)
}

func normalizeIPv6Address(ipAddr string) string {
	// Handle IPv6 with port: [::1]:8080 -> ::1
	if idx := strings.LastIndex(ipAddr, "]:"); idx != -1 {
		return ipAddr[1:idx]
	}
	// Remove brackets if no port
	return strings.Trim(ipAddr, "[]")
}

func normalizeIPv4Address(ipAddr string) string {
	// Handle IPv4 with port: 192.0.2.1:54321 -> 192.0.2.1
	// Only strip if it looks like host:port (single colon)
	if strings.Count(ipAddr, ":") != 1 {
		return ipAddr
	}

	if idx := strings.LastIndex(ipAddr, ":"); idx != -1 {
		return ipAddr[:idx]
	}

	return ipAddr
}
