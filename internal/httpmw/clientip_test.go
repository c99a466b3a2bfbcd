package httpmw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResolveClientAddr(t *testing.T) {
	tests := []struct {
		name        string
		remoteAddr  string
		xff         string
		trustedHops int
		want        string
		wantXFFKept bool
	}{
		{"empty remote", "", "", 0, "0.0.0.0", false},
		{"no port", "10.0.0.1", "", 0, "10.0.0.1", false},
		{"garbage host", "not-an-ip:80", "", 0, "0.0.0.0", false},
		{"public peer ignores xff", "203.0.113.9:4000", "1.2.3.4", 1, "203.0.113.9", false},
		{"private peer no hops ignores xff", "10.0.0.5:4000", "1.2.3.4", 0, "10.0.0.5", false},
		{"private peer one hop", "10.0.0.5:4000", "198.51.100.7", 1, "198.51.100.7", true},
		{"loopback peer one hop", "127.0.0.1:4000", "198.51.100.7", 1, "198.51.100.7", true},
		{"one hop takes rightmost", "10.0.0.5:4000", "6.6.6.6, 198.51.100.7", 1, "198.51.100.7", true},
		{"two hops", "10.0.0.5:4000", "6.6.6.6, 198.51.100.7, 10.1.1.1", 2, "198.51.100.7", true},
		{"too few entries fails closed", "10.0.0.5:4000", "198.51.100.7", 3, "10.0.0.5", false},
		{"invalid candidate falls back", "10.0.0.5:4000", "bogus", 1, "10.0.0.5", true},
		{"no xff", "10.0.0.5:4000", "", 1, "10.0.0.5", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", http.NoBody)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}

			if got := resolveClientAddr(r, tt.trustedHops); got != tt.want {
				t.Fatalf("resolveClientAddr = %q, want %q", got, tt.want)
			}
			if kept := r.Header.Get("X-Forwarded-For") != ""; kept != tt.wantXFFKept {
				t.Fatalf("X-Forwarded-For kept = %v, want %v", kept, tt.wantXFFKept)
			}
		})
	}
}

func TestClientIPWithOptions_StoresInContext(t *testing.T) {
	var got string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ClientIPFromContext(r.Context())
	})

	r := httptest.NewRequest("GET", "/", http.NoBody)
	r.RemoteAddr = "10.0.0.5:4000"
	r.Header.Set("X-Forwarded-For", "198.51.100.7")
	ClientIPWithOptions(ClientIPOptions{TrustedHops: 1})(handler).ServeHTTP(httptest.NewRecorder(), r)

	if got != "198.51.100.7" {
		t.Fatalf("client ip = %q", got)
	}
}

func TestClientIP_DefaultIgnoresForwarded(t *testing.T) {
	var got string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ClientIPFromContext(r.Context())
	})

	r := httptest.NewRequest("GET", "/", http.NoBody)
	r.RemoteAddr = "10.0.0.5:4000"
	r.Header.Set("X-Forwarded-For", "198.51.100.7")
	ClientIP(handler).ServeHTTP(httptest.NewRecorder(), r)

	if got != "10.0.0.5" {
		t.Fatalf("client ip = %q, want peer address", got)
	}
}

func TestClientIPContext(t *testing.T) {
	if got := ClientIPFromContext(context.Background()); got != "" {
		t.Fatalf("bare context ip = %q", got)
	}
	if got := ClientIPFromContext(WithClientIP(context.Background(), "")); got != "" {
		t.Fatalf("empty ip stored: %q", got)
	}
	if got := ClientIPFromContext(WithClientIP(context.Background(), "1.2.3.4")); got != "1.2.3.4" {
		t.Fatalf("ip = %q", got)
	}
}
