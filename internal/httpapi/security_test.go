package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/rr4180885/myshop2/internal/domain"
)

func TestMiddlewareSetsSecurityHeaders(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if got := res.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected X-Content-Type-Options nosniff, got %q", got)
	}
	if got := res.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected X-Frame-Options DENY, got %q", got)
	}
	if got := res.Header().Get("Referrer-Policy"); got == "" {
		t.Fatalf("expected Referrer-Policy to be set")
	}
}

func TestLoginRateLimitReturns429(t *testing.T) {
	api := newTestAPI(t)
	body, _ := json.Marshal(domain.LoginRequest{Username: "admin", Password: "wrong-pass"})

	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "127.0.0.1:5000"
		res := httptest.NewRecorder()

		api.Handler().ServeHTTP(res, req)

		if i < 5 && res.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d expected 401 before limit, got %d", i+1, res.Code)
		}
		if i == 5 && res.Code != http.StatusTooManyRequests {
			t.Fatalf("attempt 6 expected 429, got %d", res.Code)
		}
	}
}

func TestJSONBodyTooLargeRejected(t *testing.T) {
	api := newTestAPI(t)
	veryLong := strings.Repeat("a", (1<<20)+1024)
	body := fmt.Sprintf(`{"username":"%s","password":"x"}`, veryLong)

	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized body, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "too large") {
		t.Fatalf("expected too large message, got %s", res.Body.String())
	}
}

func TestUnknownJSONFieldRejected(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)

	rec := doJSON(t, api, http.MethodPut, "/api/settings", token, map[string]any{"shopOwner": "x"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
}

func TestCookieMutationRequiresCSRFToken(t *testing.T) {
	api := newTestAPI(t)
	session := loginCookie(t, api)
	payload := `{"shopName":"Cookie Shop"}`

	req := httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(session)
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without CSRF token, got %d", res.Code)
	}

	req = httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CSRF-Token", fetchCSRFToken(t, api))
	req.AddCookie(session)
	res = httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 with CSRF token, got %d (%s)", res.Code, res.Body.String())
	}
}

func TestCookieReadsDoNotNeedCSRFToken(t *testing.T) {
	api := newTestAPI(t)
	session := loginCookie(t, api)

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.AddCookie(session)
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestBearerMutationSkipsCSRF(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)

	rec := doJSON(t, api, http.MethodPost, "/api/settings/reset", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for bearer mutation, got %d", rec.Code)
	}
}

func TestCSRFTokenValidation(t *testing.T) {
	api := newTestAPI(t)
	token := api.generateCSRFToken()

	if !api.validateCSRFToken(token) {
		t.Fatalf("expected fresh token to validate")
	}
	if api.validateCSRFToken("") || api.validateCSRFToken("forged") {
		t.Fatalf("expected empty and forged tokens to be rejected")
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)

	rec := doJSON(t, api, http.MethodPost, "/api/logout", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodGet, "/api/products", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected revoked token to be rejected, got %d", rec.Code)
	}
	rec = doJSON(t, api, http.MethodGet, "/api/user", token, nil)
	if strings.TrimSpace(rec.Body.String()) != "null" {
		t.Fatalf("expected null user after logout, got %s", rec.Body.String())
	}
}

func TestBadPathIDReturns400(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)

	rec := doJSON(t, api, http.MethodGet, "/api/products/abc", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func fetchCSRFToken(t *testing.T, api *API) string {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("csrf token: expected 200, got %d", res.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode csrf token: %v", err)
	}
	if body["csrfToken"] == "" {
		t.Fatalf("expected csrfToken in response")
	}
	return body["csrfToken"]
}

func loginAsAdmin(t *testing.T, api *API) string {
	t.Helper()

	rec := doJSON(t, api, http.MethodPost, "/api/login", "", domain.LoginRequest{Username: "admin", Password: "admin123"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("login: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	var resp domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return resp.AccessToken
}

func loginCookie(t *testing.T, api *API) *http.Cookie {
	t.Helper()

	rec := doJSON(t, api, http.MethodPost, "/api/login", "", domain.LoginRequest{Username: "admin", Password: "admin123"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("login: expected 201, got %d", rec.Code)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatalf("login did not set %s cookie", sessionCookieName)
	return nil
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
