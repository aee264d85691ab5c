package web

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/evcraddock/offer-form/internal/admin"
	"github.com/evcraddock/offer-form/internal/places"
	"github.com/evcraddock/offer-form/internal/roster"
	"github.com/evcraddock/offer-form/internal/settings"
)

func TestAdminRoutesRequireAuth(t *testing.T) {
	e := newTestEnv(t, nil)

	tests := []struct {
		method, path string
	}{
		{"POST", "/api/admin/agents"},
		{"PUT", "/api/admin/agents/1"},
		{"DELETE", "/api/admin/agents/1"},
		{"POST", "/api/admin/agents/seed"},
		{"PUT", "/api/admin/settings"},
		{"POST", "/api/admin/logos"},
		{"DELETE", "/api/admin/logos/1"},
		{"POST", "/api/admin/shortlinks"},
		{"GET", "/api/admin/shortlinks"},
		{"GET", "/api/admin/qr"},
		{"GET", "/api/keys"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := e.do(t, tt.method, tt.path, nil)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestAdminAgents(t *testing.T) {
	e := newTestEnv(t, nil)
	withSession := e.login(t)

	w := e.do(t, "POST", "/api/admin/agents", roster.Agent{Name: "Ben Snell", Email: "bens@prdburleighheads.com.au"}, withSession)
	if w.Code != http.StatusCreated {
		t.Fatalf("add status = %d; body: %s", w.Code, w.Body.String())
	}
	added := decode[roster.Agent](t, w)

	w = e.do(t, "POST", "/api/admin/agents", roster.Agent{Name: "Ben Snell"}, withSession)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want %d", w.Code, http.StatusConflict)
	}

	w = e.do(t, "POST", "/api/admin/agents", roster.Agent{Email: "x@example.com"}, withSession)
	if w.Code != http.StatusBadRequest {
		t.Errorf("nameless status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	w = e.do(t, "PUT", "/api/admin/agents/"+itoa(added.ID), roster.Agent{Name: "Ben Snell", Mobile: "0400 000 001"}, withSession)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d", w.Code)
	}

	w = e.do(t, "GET", "/api/agents", nil)
	agents := decode[[]roster.Agent](t, w)
	if len(agents) != 1 || agents[0].Mobile != "0400 000 001" {
		t.Errorf("agents = %+v", agents)
	}

	w = e.do(t, "DELETE", "/api/admin/agents/"+itoa(added.ID), nil, withSession)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", w.Code)
	}
	w = e.do(t, "DELETE", "/api/admin/agents/"+itoa(added.ID), nil, withSession)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestAdminSeedAgents(t *testing.T) {
	e := newTestEnv(t, nil)

	w := e.do(t, "POST", "/api/admin/agents/seed", nil, e.login(t))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := decode[map[string]int](t, w); got["added"] != len(roster.DefaultAgents) {
		t.Errorf("added = %d, want %d", got["added"], len(roster.DefaultAgents))
	}
}

func TestAdminSettings(t *testing.T) {
	e := newTestEnv(t, nil)

	logo := "https://example.com/logo.png"
	w := e.do(t, "PUT", "/api/admin/settings", settings.Patch{LogoURL: &logo}, e.login(t))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	w = e.do(t, "GET", "/api/settings", nil)
	got := decode[settings.Settings](t, w)
	if got.LogoURL != logo {
		t.Errorf("logo = %q, want %q", got.LogoURL, logo)
	}
	if got.Placeholders.SettlementDate == "" {
		t.Error("expected stock placeholders to remain")
	}
}

func TestAdminClearPlaceholder(t *testing.T) {
	e := newTestEnv(t, nil)
	withSession := e.login(t)

	w := e.do(t, "PUT", "/api/admin/settings", settings.Patch{Clear: []string{"financeDate"}}, withSession)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	if got := decode[settings.Settings](t, w); got.Placeholders.FinanceDate != "" {
		t.Errorf("finance date = %q, want cleared", got.Placeholders.FinanceDate)
	}

	w = e.do(t, "PUT", "/api/admin/settings", settings.Patch{Clear: []string{"nope"}}, withSession)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown key status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestAdminUploadLogo(t *testing.T) {
	e := newTestEnv(t, nil)
	withSession := e.login(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("name", "Office logo"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	part, err := mw.CreateFormFile("file", "logo.png")
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	if _, err := part.Write(pngBytes); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	r := httptest.NewRequest("POST", "/api/admin/logos", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	withSession(r)
	w := httptest.NewRecorder()
	e.srv.ServeHTTP(w, r)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	logo := decode[settings.Logo](t, w)
	if !strings.HasPrefix(logo.URL, "data:image/png;base64,") {
		t.Errorf("url = %q, want inline data URL", logo.URL)
	}

	w = e.do(t, "GET", "/api/logos", nil)
	if logos := decode[[]settings.Logo](t, w); len(logos) != 1 || logos[0].Name != "Office logo" {
		t.Errorf("logos = %+v", logos)
	}

	w = e.do(t, "DELETE", "/api/admin/logos/"+itoa(logo.ID), nil, withSession)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", w.Code)
	}
}

func TestAdminLogoURL(t *testing.T) {
	e := newTestEnv(t, nil)
	withSession := e.login(t)

	w := e.do(t, "POST", "/api/admin/logos", map[string]string{"name": "Hosted", "url": "https://example.com/l.png"}, withSession)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}

	w = e.do(t, "POST", "/api/admin/logos", map[string]string{"name": "Empty"}, withSession)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing url status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestAdminUploadRejectsNonImage(t *testing.T) {
	e := newTestEnv(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "notes.txt")
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	if _, err := part.Write([]byte("plain text")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	r := httptest.NewRequest("POST", "/api/admin/logos", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	e.login(t)(r)
	w := httptest.NewRecorder()
	e.srv.ServeHTTP(w, r)

	if w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnsupportedMediaType)
	}
}

func TestAdminShortLinks(t *testing.T) {
	e := newTestEnv(t, nil)
	withSession := e.login(t)

	w := e.do(t, "POST", "/api/admin/shortlinks", map[string]string{"agent": "Ben Snell", "address": "12 Smith St"}, withSession)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	link := decode[admin.Link](t, w)
	if link.ID == "" || !strings.HasSuffix(link.URL, "/?id="+link.ID) {
		t.Errorf("link = %+v", link)
	}
	if link.QRFilename != "QR_12_Smith_St.png" {
		t.Errorf("qr filename = %q", link.QRFilename)
	}

	w = e.do(t, "POST", "/api/admin/shortlinks", map[string]string{"agent": "Ben Snell"}, withSession)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing address status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	w = e.do(t, "GET", "/api/admin/shortlinks?limit=5", nil, withSession)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}

	w = e.do(t, "GET", "/api/admin/shortlinks?limit=0", nil, withSession)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestAdminQRCode(t *testing.T) {
	e := newTestEnv(t, nil)
	withSession := e.login(t)

	w := e.do(t, "GET", "/api/admin/qr?data=https%3A%2F%2Foffer.example.com%2F%3Fid%3Dabcde&address=12+Smith+St", nil, withSession)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "QR_12_Smith_St.png") {
		t.Errorf("disposition = %q", cd)
	}

	w = e.do(t, "GET", "/api/admin/qr", nil, withSession)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing data status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestDeposit(t *testing.T) {
	e := newTestEnv(t, nil)

	tests := []struct {
		query string
		want  string
	}{
		{"?price=1500000&percent=10", "150,000"},
		{"?price=%24750%2C000&percent=5", "37,500"},
		{"?price=abc&percent=10", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := e.do(t, "GET", "/api/deposit"+tt.query, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			if got := decode[map[string]string](t, w); got["deposit"] != tt.want {
				t.Errorf("deposit = %q, want %q", got["deposit"], tt.want)
			}
		})
	}
}

func TestAddressLookup(t *testing.T) {
	e := newTestEnv(t, nil)
	w := e.do(t, "GET", "/api/address/suggest?q=12+Smith", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("unconfigured status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}

	e = newTestEnv(t, &fakePlaces{
		suggestions: []places.Suggestion{{PlaceID: "p1", Description: "12 Smith St, Burleigh Heads QLD"}},
		address:     "12 Smith St, Burleigh Heads QLD 4220, Australia",
	})

	w = e.do(t, "GET", "/api/address/suggest?q=12+Smith", nil)
	if got := decode[[]places.Suggestion](t, w); len(got) != 1 || got[0].PlaceID != "p1" {
		t.Errorf("suggestions = %+v", got)
	}

	w = e.do(t, "GET", "/api/address/resolve?place_id=p1", nil)
	if got := decode[map[string]string](t, w); !strings.HasPrefix(got["address"], "12 Smith St") {
		t.Errorf("address = %q", got["address"])
	}

	w = e.do(t, "GET", "/api/address/resolve", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing place status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
