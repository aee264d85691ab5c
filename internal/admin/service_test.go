package admin

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evcraddock/offer-form/internal/blob"
	"github.com/evcraddock/offer-form/internal/db"
	"github.com/evcraddock/offer-form/internal/offer"
	"github.com/evcraddock/offer-form/internal/qr"
	"github.com/evcraddock/offer-form/internal/roster"
	"github.com/evcraddock/offer-form/internal/settings"
	"github.com/evcraddock/offer-form/internal/shortlink"
)

const defaultLogo = "https://example.com/default.png"

func testService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	s, err := NewService(
		roster.NewStore(d),
		settings.NewStore(d, defaultLogo),
		shortlink.NewStore(d),
		blob.NewUploader(nil, 0),
		qr.NewClient(""),
		"https://offers.example.com",
	)
	require.NoError(t, err)
	return s, d
}

func next[T any](t *testing.T, c <-chan T) T {
	t.Helper()
	select {
	case v := <-c:
		return v
	case <-time.After(time.Second):
		t.Fatal("no snapshot published")
	}
	var zero T
	return zero
}

func TestAgentWritesPublish(t *testing.T) {
	s, _ := testService(t)
	sub := s.Hub().Agents.Subscribe()
	defer sub.Unsubscribe()
	assert.Empty(t, next(t, sub.C()))

	a, err := s.AddAgent(roster.Agent{Name: "Ben Fields", Email: "Ben@Example.com"})
	require.NoError(t, err)
	list := next(t, sub.C())
	require.Len(t, list, 1)
	assert.Equal(t, "ben@example.com", list[0].Email)

	_, err = s.UpdateAgent(a.ID, roster.Agent{Name: "Ben Fields", Email: "ben@prd.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "ben@prd.example.com", next(t, sub.C())[0].Email)

	agent, ok := s.Hub().LookupAgent("Ben Fields")
	require.True(t, ok)
	assert.Equal(t, "ben@prd.example.com", agent.Email)

	require.NoError(t, s.DeleteAgent(a.ID))
	assert.Empty(t, next(t, sub.C()))

	assert.ErrorIs(t, s.DeleteAgent(a.ID), roster.ErrNotFound)
}

func TestSeedAgents(t *testing.T) {
	s, _ := testService(t)

	n, err := s.SeedAgents()
	require.NoError(t, err)
	assert.Equal(t, len(roster.DefaultAgents), n)
	assert.Len(t, s.Hub().Agents.Current(), len(roster.DefaultAgents))

	n, err = s.SeedAgents()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSaveSettingsPublishes(t *testing.T) {
	s, _ := testService(t)
	assert.Equal(t, defaultLogo, s.Hub().Settings.Current().LogoURL)

	logo := "https://example.com/new.png"
	_, err := s.SaveSettings(settings.Patch{
		LogoURL:      &logo,
		Placeholders: &offer.Defaults{BalanceDepositPercent: "10"},
	})
	require.NoError(t, err)

	current := s.Hub().Settings.Current()
	assert.Equal(t, logo, current.LogoURL)
	assert.Equal(t, "10", s.Hub().Defaults().BalanceDepositPercent)
	assert.Equal(t, "Payable immediately", current.Placeholders.BalanceDepositTerms)
}

func TestLogos(t *testing.T) {
	s, _ := testService(t)
	sub := s.Hub().Logos.Subscribe()
	defer sub.Unsubscribe()
	next(t, sub.C())

	logo, err := s.UploadLogo(context.Background(), "Office", "image/png", []byte("\x89PNG\r\n\x1a\n"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(logo.URL, "data:image/png;base64,"))
	assert.Len(t, next(t, sub.C()), 1)

	_, err = s.UploadLogo(context.Background(), "Notes", "text/plain", []byte("hello"))
	assert.ErrorIs(t, err, blob.ErrNotImage)

	_, err = s.AddLogoURL("Hosted", "https://example.com/hosted.png")
	require.NoError(t, err)
	assert.Len(t, next(t, sub.C()), 2)

	require.NoError(t, s.DeleteLogo(logo.ID))
	assert.Len(t, next(t, sub.C()), 1)
}

func TestCreateLink(t *testing.T) {
	s, _ := testService(t)

	l, err := s.CreateLink("Ben Fields", "4D/238 The Esplanade")
	require.NoError(t, err)
	assert.False(t, l.Fallback)
	assert.Len(t, l.ID, shortlink.IDLength)
	assert.Equal(t, "https://offers.example.com/?id="+l.ID, l.URL)
	assert.Equal(t, "QR_4D_238_The_Espl.png", l.QRFilename)
	assert.Contains(t, l.QRURL, "api.qrserver.com")

	links, err := s.ListLinks(10)
	require.NoError(t, err)
	assert.Len(t, links, 1)

	_, err = s.CreateLink("", "1 Main St")
	assert.Error(t, err)
}

func TestCreateLinkFallback(t *testing.T) {
	s, d := testService(t)
	_, err := d.Exec("DROP TABLE submissions")
	require.NoError(t, err)
	_, err = d.Exec("DROP TABLE shortlinks")
	require.NoError(t, err)

	l, err := s.CreateLink("Ben Fields", "1 Main St")
	require.NoError(t, err)
	assert.True(t, l.Fallback)
	assert.Empty(t, l.ID)
	assert.Equal(t, "https://offers.example.com/?a=Ben+Fields&p=1+Main+St", l.URL)
}
