package handlers

import (
	"net/http"
	"testing"
)

func TestListOrganisations(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, alumniRequest("a@x.com", "Acme"))
	env.register(t, alumniRequest("b@x.com", "Acme"))
	env.register(t, alumniRequest("c@x.com", "Globex"))
	token := env.login(t, "a@x.com", "secret-pass-1")

	recorder := env.do(t, http.MethodGet, "/api/organisation/", token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	var resp OrganisationListResponse
	decode(t, recorder, &resp)
	if len(resp.Organisations) != 2 {
		t.Fatalf("expected 2 organisations, got %d", len(resp.Organisations))
	}
	acme := 0
	for _, org := range resp.Organisations {
		if org.Name == "Acme" {
			acme++
		}
	}
	if acme != 1 {
		t.Fatalf("expected exactly one Acme entry, got %d", acme)
	}
}

func TestOrganisationMembers(t *testing.T) {
	env := newTestEnv(t)
	userA := env.register(t, alumniRequest("a@x.com", "Acme"))
	env.register(t, alumniRequest("b@x.com", "Globex"))
	token := env.login(t, "a@x.com", "secret-pass-1")

	recorder := env.do(t, http.MethodGet, "/api/organisation/"+itoa(*userA.OrganisationID), token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var resp OrganisationMembersResponse
	decode(t, recorder, &resp)
	if resp.Organisation.Name != "Acme" {
		t.Fatalf("unexpected organisation: %+v", resp.Organisation)
	}
	if len(resp.Members) != 1 || resp.Members[0].ID != userA.ID {
		t.Fatalf("unexpected members: %+v", resp.Members)
	}
}

func TestOrganisationMembersNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, studentRequest("a@x.com"))
	token := env.login(t, "a@x.com", "secret-pass-1")

	recorder := env.do(t, http.MethodGet, "/api/organisation/9999", token, nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown organisation, got %d", recorder.Code)
	}
}

func TestOrganisationRoutesRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/organisation/", "/api/organisation/1"} {
		recorder := env.do(t, http.MethodGet, path, "", nil)
		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("GET %s without token: expected 401, got %d", path, recorder.Code)
		}
	}
}
