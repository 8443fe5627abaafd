package testutil

import (
	"net/http"
	"testing"
)

// CSRFHeader is the header script clients echo the token in.
const CSRFHeader = "X-CSRF-Token"

// CSRFPair is a token and the cookies issued alongside it.
type CSRFPair struct {
	Token   string
	Cookies []*http.Cookie
}

// FetchCSRF requests GET /api/auth/csrf from h and returns the token from
// the JSON envelope together with the Set-Cookie values. It fails the test
// when either is missing.
func FetchCSRF(t *testing.T, h http.Handler) CSRFPair {
	t.Helper()
	rec := NewRecorder()
	h.ServeHTTP(rec, NewRequest(http.MethodGet, "/api/auth/csrf"))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/auth/csrf status = %d, want %d", rec.Code, http.StatusOK)
	}

	var data struct {
		Token string `json:"token"`
	}
	rec.DecodeData(t, &data)
	cookies := rec.Result().Cookies()
	if data.Token == "" || len(cookies) == 0 {
		t.Fatalf("GET /api/auth/csrf token=%q cookies=%d, want both", data.Token, len(cookies))
	}
	return CSRFPair{Token: data.Token, Cookies: cookies}
}

// Apply sets the token header and cookies on r.
func (p CSRFPair) Apply(r *http.Request) *http.Request {
	r.Header.Set(CSRFHeader, p.Token)
	for _, c := range p.Cookies {
		r.AddCookie(c)
	}
	return r
}
