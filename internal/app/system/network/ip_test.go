package network

import (
	"net/http/httptest"
	"testing"
)

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name          string
		xForwardedFor string
		xRealIP       string
		remoteAddr    string
		want          string
	}{
		{
			name:          "X-Forwarded-For single IP",
			xForwardedFor: "192.168.1.1",
			remoteAddr:    "10.0.0.1:12345",
			want:          "192.168.1.1",
		},
		{
			name:          "X-Forwarded-For chain takes first hop",
			xForwardedFor: "192.168.1.1, 10.0.0.2, 172.16.0.1",
			remoteAddr:    "10.0.0.1:12345",
			want:          "192.168.1.1",
		},
		{
			name:       "X-Real-IP when no X-Forwarded-For",
			xRealIP:    " 203.0.113.9 ",
			remoteAddr: "10.0.0.1:12345",
			want:       "203.0.113.9",
		},
		{
			name:       "RemoteAddr with port",
			remoteAddr: "10.0.0.1:12345",
			want:       "10.0.0.1",
		},
		{
			name:       "RemoteAddr IPv6 with port",
			remoteAddr: "[::1]:8080",
			want:       "::1",
		},
		{
			name:       "RemoteAddr without port",
			remoteAddr: "10.0.0.1",
			want:       "10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xForwardedFor != "" {
				req.Header.Set("X-Forwarded-For", tt.xForwardedFor)
			}
			if tt.xRealIP != "" {
				req.Header.Set("X-Real-IP", tt.xRealIP)
			}
			if got := GetClientIP(req); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetLocation(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if got := GetLocation(req); got != "" {
		t.Errorf("GetLocation() = %q, want empty", got)
	}

	req.Header.Set("CF-IPCountry", "XX")
	if got := GetLocation(req); got != "" {
		t.Errorf("GetLocation() with unknown country = %q, want empty", got)
	}

	req.Header.Set("X-Client-Location", "Chennai, IN")
	if got := GetLocation(req); got != "Chennai, IN" {
		t.Errorf("GetLocation() = %q, want %q", got, "Chennai, IN")
	}
}

func TestDeviceType(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want string
	}{
		{"empty", "", "unknown"},
		{"desktop chrome", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", "desktop"},
		{"iphone", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1", "mobile"},
		{"ipad", "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1", "tablet"},
		{"googlebot", "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", "bot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeviceType(tt.ua); got != tt.want {
				t.Errorf("DeviceType(%q) = %q, want %q", tt.ua, got, tt.want)
			}
		})
	}
}
