package live

import (
	"github.com/evcraddock/offer-form/internal/offer"
	"github.com/evcraddock/offer-form/internal/roster"
	"github.com/evcraddock/offer-form/internal/settings"
)

// Stream names used on the wire.
const (
	StreamAgents   = "agents"
	StreamLogos    = "logos"
	StreamSettings = "settings"
)

// Hub owns the three independent admin-managed streams.
type Hub struct {
	Agents   *Feed[[]roster.Agent]
	Logos    *Feed[[]settings.Logo]
	Settings *Feed[settings.Settings]
}

// NewHub creates a hub seeded with the given snapshots.
func NewHub(agents []roster.Agent, logos []settings.Logo, s settings.Settings) *Hub {
	return &Hub{
		Agents:   NewFeed(StreamAgents, agents),
		Logos:    NewFeed(StreamLogos, logos),
		Settings: NewFeed(StreamSettings, s),
	}
}

// LookupAgent resolves name against the current roster snapshot.
func (h *Hub) LookupAgent(name string) (offer.Agent, bool) {
	return roster.Lookup(h.Agents.Current()).LookupAgent(name)
}

// Defaults returns the current placeholder defaults.
func (h *Hub) Defaults() offer.Defaults {
	return h.Settings.Current().Placeholders
}
