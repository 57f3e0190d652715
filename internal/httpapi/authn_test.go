package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc123", "abc123"},
		{"bearer abc123", "abc123"},
		{"Bearer   abc123  ", "abc123"},
		{"Basic abc123", ""},
		{"Bearer ", ""},
		{"abc123", ""},
	}
	for _, tc := range cases {
		if got := extractBearerToken(tc.header); got != tc.want {
			t.Fatalf("header %q: got %q, want %q", tc.header, got, tc.want)
		}
	}
}

func TestPublicPathMatrix(t *testing.T) {
	public := []*http.Request{
		httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil),
		httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil),
		httptest.NewRequest(http.MethodPost, "/v1/users", nil),
		httptest.NewRequest(http.MethodGet, "/healthz", nil),
		httptest.NewRequest(http.MethodGet, "/metrics", nil),
	}
	for _, r := range public {
		if !isPublicPath(r) {
			t.Fatalf("%s %s should be public", r.Method, r.URL.Path)
		}
	}

	protected := []*http.Request{
		httptest.NewRequest(http.MethodGet, "/v1/users", nil),
		httptest.NewRequest(http.MethodGet, "/v1/users/user-1", nil),
		httptest.NewRequest(http.MethodGet, "/v1/documents", nil),
		httptest.NewRequest(http.MethodGet, "/v1/me", nil),
	}
	for _, r := range protected {
		if isPublicPath(r) {
			t.Fatalf("%s %s should not be public", r.Method, r.URL.Path)
		}
	}
}
