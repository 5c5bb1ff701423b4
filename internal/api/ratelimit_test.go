package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := newRateLimiter(2)

	if !rl.allow("10.0.0.1") {
		t.Fatal("first request should be allowed")
	}
	if !rl.allow("10.0.0.1") {
		t.Fatal("second request should be allowed (burst)")
	}
	if rl.allow("10.0.0.1") {
		t.Fatal("third request should exhaust the bucket")
	}

	// Separate IPs get separate buckets.
	if !rl.allow("10.0.0.2") {
		t.Fatal("other IP should have its own allowance")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		realIP     string
		forwarded  string
		trustProxy bool
		want       string
	}{
		{
			name:       "remote addr only",
			remoteAddr: "192.0.2.1:1234",
			want:       "192.0.2.1",
		},
		{
			name:       "ignores proxy headers when not trusted",
			remoteAddr: "192.0.2.1:1234",
			realIP:     "198.51.100.9",
			trustProxy: false,
			want:       "192.0.2.1",
		},
		{
			name:       "x-real-ip preferred when trusted",
			remoteAddr: "192.0.2.1:1234",
			realIP:     "198.51.100.9",
			forwarded:  "203.0.113.5",
			trustProxy: true,
			want:       "198.51.100.9",
		},
		{
			name:       "x-forwarded-for first hop",
			remoteAddr: "192.0.2.1:1234",
			forwarded:  "203.0.113.5, 198.51.100.9",
			trustProxy: true,
			want:       "203.0.113.5",
		},
		{
			name:       "invalid header value rejected",
			remoteAddr: "192.0.2.1:1234",
			realIP:     "not-an-ip",
			trustProxy: true,
			want:       "192.0.2.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}

			if got := clientIP(req, tt.trustProxy); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
