// Package admin applies admin writes to the roster, settings and links and
// publishes the results to live subscribers.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/evcraddock/offer-form/internal/blob"
	"github.com/evcraddock/offer-form/internal/live"
	"github.com/evcraddock/offer-form/internal/qr"
	"github.com/evcraddock/offer-form/internal/roster"
	"github.com/evcraddock/offer-form/internal/settings"
	"github.com/evcraddock/offer-form/internal/shortlink"
)

// ErrLinkFields is returned when a link lacks an agent or address.
var ErrLinkFields = errors.New("agent and address are required")

// Service provides admin operations.
type Service struct {
	agents   *roster.Store
	settings *settings.Store
	links    *shortlink.Store
	uploader *blob.Uploader
	qr       *qr.Client
	hub      *live.Hub
	baseURL  string
}

// NewService creates an admin service. The hub is seeded from the stores.
func NewService(agents *roster.Store, st *settings.Store, links *shortlink.Store,
	uploader *blob.Uploader, qrClient *qr.Client, baseURL string) (*Service, error) {
	list, err := agents.List()
	if err != nil {
		return nil, fmt.Errorf("loading agents: %w", err)
	}
	logos, err := st.ListLogos()
	if err != nil {
		return nil, fmt.Errorf("loading logos: %w", err)
	}
	current, err := st.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	return &Service{
		agents:   agents,
		settings: st,
		links:    links,
		uploader: uploader,
		qr:       qrClient,
		hub:      live.NewHub(list, logos, current),
		baseURL:  baseURL,
	}, nil
}

// Hub returns the live streams.
func (s *Service) Hub() *live.Hub {
	return s.hub
}

// AddAgent creates an agent.
func (s *Service) AddAgent(a roster.Agent) (*roster.Agent, error) {
	out, err := s.agents.Add(a)
	if err != nil {
		return nil, err
	}
	s.publishAgents()
	return out, nil
}

// UpdateAgent replaces agent id.
func (s *Service) UpdateAgent(id int64, a roster.Agent) (*roster.Agent, error) {
	out, err := s.agents.Update(id, a)
	if err != nil {
		return nil, err
	}
	s.publishAgents()
	return out, nil
}

// DeleteAgent removes agent id.
func (s *Service) DeleteAgent(id int64) error {
	if err := s.agents.Delete(id); err != nil {
		return err
	}
	s.publishAgents()
	return nil
}

// SeedAgents inserts the default office roster and returns how many agents
// were added.
func (s *Service) SeedAgents() (int, error) {
	n, err := s.agents.Seed(roster.DefaultAgents)
	if err != nil {
		return 0, err
	}
	s.publishAgents()
	return n, nil
}

// SaveSettings merges p into the settings document.
func (s *Service) SaveSettings(p settings.Patch) (settings.Settings, error) {
	out, err := s.settings.Save(p)
	if err != nil {
		return settings.Settings{}, err
	}
	s.hub.Settings.Publish(out)
	return out, nil
}

// UploadLogo stores an image and adds it to the logo list.
func (s *Service) UploadLogo(ctx context.Context, name, contentType string, data []byte) (*settings.Logo, error) {
	url, err := s.uploader.Upload(ctx, "logos", contentType, data)
	if err != nil {
		return nil, err
	}
	logo, err := s.settings.AddLogo(name, url)
	if err != nil {
		return nil, err
	}
	s.publishLogos()
	return logo, nil
}

// AddLogoURL adds an externally hosted logo.
func (s *Service) AddLogoURL(name, url string) (*settings.Logo, error) {
	logo, err := s.settings.AddLogo(name, url)
	if err != nil {
		return nil, err
	}
	s.publishLogos()
	return logo, nil
}

// DeleteLogo removes logo id.
func (s *Service) DeleteLogo(id int64) error {
	if err := s.settings.DeleteLogo(id); err != nil {
		return err
	}
	s.publishLogos()
	return nil
}

// Link is a generated form link.
type Link struct {
	ID         string `json:"id,omitempty"`
	URL        string `json:"url"`
	QRURL      string `json:"qrUrl"`
	QRFilename string `json:"qrFilename"`
	// Fallback is set when the short link could not be stored and URL
	// carries the agent and address directly.
	Fallback bool `json:"fallback,omitempty"`
}

// CreateLink issues a short link for agent and address.
func (s *Service) CreateLink(agent, address string) (*Link, error) {
	agent, address = strings.TrimSpace(agent), strings.TrimSpace(address)
	if agent == "" || address == "" {
		return nil, ErrLinkFields
	}

	out := &Link{QRFilename: qr.Filename(address)}
	l, err := s.links.Create(agent, address)
	if err != nil {
		zap.L().Warn("storing short link, using direct link", zap.Error(err))
		out.URL = shortlink.DirectURL(s.baseURL, agent, address)
		out.Fallback = true
	} else {
		out.ID = l.ID
		out.URL = shortlink.URL(s.baseURL, l.ID)
	}
	out.QRURL = s.qr.ImageURL(out.URL)
	return out, nil
}

// ListLinks returns recent short links.
func (s *Service) ListLinks(limit int) ([]shortlink.Link, error) {
	return s.links.List(limit)
}

// QRCode fetches the QR image for data.
func (s *Service) QRCode(ctx context.Context, data string) ([]byte, error) {
	return s.qr.Fetch(ctx, data)
}

func (s *Service) publishAgents() {
	list, err := s.agents.List()
	if err != nil {
		zap.L().Error("reloading agents", zap.Error(err))
		return
	}
	s.hub.Agents.Publish(list)
}

func (s *Service) publishLogos() {
	logos, err := s.settings.ListLogos()
	if err != nil {
		zap.L().Error("reloading logos", zap.Error(err))
		return
	}
	s.hub.Logos.Publish(logos)
}
