package service

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	ipAPIBaseURL     = "http://ip-api.com"
	geoLookupTimeout = 5 * time.Second
	locationUnknown  = "Unknown"
	locationLocalNet = "Local Network"
)

// IPAPIResolver resolves IPs through ip-api.com. Private and loopback
// addresses short-circuit without a network call; any failure degrades to
// "Unknown" and never surfaces to the caller.
type IPAPIResolver struct {
	HTTPClient *http.Client
	BaseURL    string
	Log        *logrus.Logger
}

func NewIPAPIResolver(log *logrus.Logger) *IPAPIResolver {
	return &IPAPIResolver{
		HTTPClient: &http.Client{Timeout: geoLookupTimeout},
		BaseURL:    ipAPIBaseURL,
		Log:        log,
	}
}

type ipAPIResponse struct {
	Status     string `json:"status"`
	City       string `json:"city"`
	RegionName string `json:"regionName"`
	Country    string `json:"country"`
}

func (r *IPAPIResolver) Resolve(ctx context.Context, ip string) string {
	if ip == "" {
		return locationUnknown
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return locationUnknown
	}
	if parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsLinkLocalUnicast() {
		return locationLocalNet
	}

	ctx, cancel := context.WithTimeout(ctx, geoLookupTimeout)
	defer cancel()

	base := r.BaseURL
	if base == "" {
		base = ipAPIBaseURL
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodGet,
		base+"/json/"+ip+"?fields=status,country,regionName,city", nil)
	if err != nil {
		return locationUnknown
	}
	client := r.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: geoLookupTimeout}
	}
	response, err := client.Do(request)
	if err != nil {
		if r.Log != nil {
			r.Log.WithError(err).Debug("geo lookup failed")
		}
		return locationUnknown
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return locationUnknown
	}

	var body ipAPIResponse
	if err := json.NewDecoder(response.Body).Decode(&body); err != nil {
		return locationUnknown
	}
	if body.Status != "success" {
		return locationUnknown
	}

	parts := make([]string, 0, 3)
	for _, part := range []string{body.City, body.RegionName, body.Country} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return locationUnknown
	}
	return strings.Join(parts, ", ")
}
