package ipfilter

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		allowed   []string
		wantCount int
		wantErr   bool
	}{
		{name: "empty list", allowed: nil, wantCount: 0},
		{name: "single IP", allowed: []string{"192.168.1.1"}, wantCount: 1},
		{name: "CIDR range", allowed: []string{"10.0.0.0/8"}, wantCount: 1},
		{name: "with whitespace", allowed: []string{"  192.168.1.1  ", " 10.0.0.0/8 ", ""}, wantCount: 2},
		{name: "IPv6", allowed: []string{"::1", "2001:db8::/32"}, wantCount: 2},
		{name: "invalid IP", allowed: []string{"192.168.1.1", "invalid"}, wantErr: true},
		{name: "invalid CIDR", allowed: []string{"10.0.0.0/33"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse(tt.allowed, newTestLogger())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if f.Count() != tt.wantCount {
				t.Errorf("Count() = %d, want %d", f.Count(), tt.wantCount)
			}
			if f.Enabled() != (tt.wantCount > 0) {
				t.Errorf("Enabled() = %v", f.Enabled())
			}
		})
	}
}

func TestFilter_Allows(t *testing.T) {
	f, err := Parse([]string{"192.168.1.1", "10.0.0.0/8", "2001:db8::/32"}, newTestLogger())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	tests := []struct {
		ip   string
		want bool
	}{
		{"192.168.1.1", true},
		{"192.168.1.2", false},
		{"10.20.30.40", true},
		{"::ffff:10.1.1.1", true},
		{"2001:db8::1", true},
		{"2001:db9::1", false},
	}
	for _, tt := range tests {
		if got := f.Allows(netip.MustParseAddr(tt.ip)); got != tt.want {
			t.Errorf("Allows(%s) = %v, want %v", tt.ip, got, tt.want)
		}
	}

	empty, _ := Parse(nil, newTestLogger())
	if !empty.Allows(netip.MustParseAddr("8.8.8.8")) {
		t.Error("empty filter should allow everything")
	}
}

func TestClientAddr(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
		wantOK     bool
	}{
		{name: "remote addr", remoteAddr: "192.168.1.1:12345", want: "192.168.1.1", wantOK: true},
		{name: "remote addr without port", remoteAddr: "192.168.1.1", want: "192.168.1.1", wantOK: true},
		{
			name:       "forwarded for wins",
			remoteAddr: "127.0.0.1:1",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1", "X-Real-IP": "198.51.100.1"},
			want:       "203.0.113.9",
			wantOK:     true,
		},
		{
			name:       "real ip",
			remoteAddr: "127.0.0.1:1",
			headers:    map[string]string{"X-Real-IP": "198.51.100.1"},
			want:       "198.51.100.1",
			wantOK:     true,
		},
		{name: "garbage", remoteAddr: "nonsense", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			got, ok := ClientAddr(req)
			if ok != tt.wantOK {
				t.Fatalf("ClientAddr() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.String() != tt.want {
				t.Errorf("ClientAddr() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFilter_Middleware(t *testing.T) {
	f, _ := Parse([]string{"10.0.0.0/8"}, newTestLogger())
	handler := f.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		remoteAddr string
		want       int
	}{
		{"10.1.2.3:555", http.StatusOK},
		{"192.168.1.1:555", http.StatusForbidden},
		{"bogus", http.StatusForbidden},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/api/v1/sessions", nil)
		req.RemoteAddr = tt.remoteAddr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("remote %s: status = %d, want %d", tt.remoteAddr, rec.Code, tt.want)
		}
	}
}
