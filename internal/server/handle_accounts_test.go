package server

import (
	"net/http"
	"strings"
	"testing"
)

func TestPlayerRegistrationAndLogin(t *testing.T) {
	env := newTestEnv(t)
	reg := RegisterRequest{DeviceID: "dev-1", PublicNick: "condor", FullName: "Ana Quispe", PasswordHash: "h1"}

	rec := env.do(t, http.MethodPost, "/api/players/register", reg)
	expectStatus(t, rec, http.StatusCreated)
	acc := decode[AccountResponse](t, rec)
	if acc.Status != "pending" || acc.Role != "player" {
		t.Fatalf("account = %+v", acc)
	}

	taken := reg
	taken.DeviceID = "dev-2"
	expectStatus(t, env.do(t, http.MethodPost, "/api/players/register", taken), http.StatusConflict)

	// Judges have their own nickname space.
	expectStatus(t, env.do(t, http.MethodPost, "/api/judges/register", taken), http.StatusCreated)

	login := func(nick, hash string) LoginResponse {
		t.Helper()
		rec := env.do(t, http.MethodPost, "/api/players/login", LoginRequest{PublicNick: nick, PasswordHash: hash})
		expectStatus(t, rec, http.StatusOK)
		return decode[LoginResponse](t, rec)
	}

	if got := login("nadie", "h1"); got.Success || got.Error != "account not found" {
		t.Errorf("unknown nick = %+v", got)
	}
	if got := login("condor", "nope"); got.Success || got.Error != "wrong password" {
		t.Errorf("wrong password = %+v", got)
	}
	if got := login("condor", "h1"); !got.Success || got.CanPlay || got.Status != "pending" {
		t.Errorf("pending login = %+v", got)
	}

	status := "/api/admin/players/" + acc.ID + "/status"
	expectStatus(t, env.do(t, http.MethodPut, status, StatusRequest{Status: "approved"}), http.StatusForbidden)
	expectStatus(t, env.do(t, http.MethodPut, status, StatusRequest{Status: "approved"}, AdminKeyHeader, testAdminKey), http.StatusOK)

	if got := login("condor", "h1"); !got.CanPlay || got.AccountID != acc.ID || got.DeviceID != "dev-1" {
		t.Errorf("approved login = %+v", got)
	}

	rec = env.do(t, http.MethodGet, "/api/players/device/dev-1", nil)
	expectStatus(t, rec, http.StatusOK)
	if strings.Contains(rec.Body.String(), "h1") {
		t.Errorf("device lookup leaks the password hash: %s", rec.Body.String())
	}
	expectStatus(t, env.do(t, http.MethodGet, "/api/judges/device/dev-1", nil), http.StatusNotFound)
}

func TestAdminAccountListing(t *testing.T) {
	env := newTestEnv(t)
	for _, dev := range []string{"a", "b"} {
		reg := RegisterRequest{DeviceID: dev, PublicNick: "nick-" + dev, PasswordHash: "h"}
		expectStatus(t, env.do(t, http.MethodPost, "/api/judges/register", reg), http.StatusCreated)
	}

	rec := env.do(t, http.MethodGet, "/api/admin/judges?status=pending", nil, AdminKeyHeader, testAdminKey)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[[]AccountResponse](t, rec); len(got) != 2 {
		t.Fatalf("pending judges = %d, want 2", len(got))
	}

	rec = env.do(t, http.MethodGet, "/api/admin/players", nil, AdminKeyHeader, testAdminKey)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[[]AccountResponse](t, rec); len(got) != 0 {
		t.Fatalf("players = %d, want 0", len(got))
	}

	expectStatus(t, env.do(t, http.MethodGet, "/api/admin/wizards", nil, AdminKeyHeader, testAdminKey), http.StatusBadRequest)
	expectStatus(t, env.do(t, http.MethodGet, "/api/admin/judges?status=banned", nil, AdminKeyHeader, testAdminKey), http.StatusBadRequest)
	expectStatus(t, env.do(t, http.MethodGet, "/api/admin/judges", nil), http.StatusForbidden)
}
