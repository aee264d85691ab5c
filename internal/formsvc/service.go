// Package formsvc holds the in-memory form sessions behind the HTTP API.
// Each session owns one offer.Form and the autosaver for its draft.
package formsvc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evcraddock/offer-form/internal/draft"
	"github.com/evcraddock/offer-form/internal/metrics"
	"github.com/evcraddock/offer-form/internal/offer"
	"github.com/evcraddock/offer-form/internal/shortlink"
	"github.com/evcraddock/offer-form/internal/submit"
)

// DefaultIdleTimeout is how long an untouched session is kept.
const DefaultIdleTimeout = 2 * time.Hour

// ErrNotFound is returned for unknown or evicted sessions.
var ErrNotFound = errors.New("form session not found")

// Links resolves short link ids.
type Links interface {
	Resolve(id string) (*shortlink.Link, error)
}

// Environment supplies the live roster and defaults.
type Environment interface {
	offer.AgentLookup
	Defaults() offer.Defaults
}

// Submitter runs a form through submission.
type Submitter interface {
	Submit(ctx context.Context, f *offer.Form, req submit.Request) submit.Result
}

// Renderer draws a preview of the letter of offer.
type Renderer interface {
	Render(ctx context.Context, p offer.Payload, logoURL string) ([]byte, error)
}

// Deps are the collaborators of a Service.
type Deps struct {
	Env       Environment
	Links     Links
	Drafts    draft.Store // nil disables autosave and restore
	Submitter Submitter
	Renderer  Renderer
	LogoURL   func() string

	Debounce    time.Duration
	DraftWindow time.Duration
	IdleTimeout time.Duration
}

// Start describes how a session is seeded.
type Start struct {
	Link    shortlink.Params
	DraftID string
}

// Progress counts completed required items.
type Progress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// View is a session's state as returned to clients.
type View struct {
	ID           string            `json:"id"`
	Record       offer.Record      `json:"record"`
	Errors       offer.Errors      `json:"errors"`
	Status       offer.Status      `json:"status"`
	Progress     Progress          `json:"progress"`
	Placeholders map[string]string `json:"placeholders"`
	AutoBalance  bool              `json:"autoBalance"`
	Restored     bool              `json:"restored,omitempty"`
	ShortlinkID  string            `json:"shortlinkId,omitempty"`
	SavedAt      *time.Time        `json:"savedAt,omitempty"`
}

type session struct {
	id          string
	shortlinkID string
	restored    bool

	mu       sync.Mutex
	form     *offer.Form
	saver    *draft.Autosaver
	lastUsed time.Time
}

// Service manages form sessions.
type Service struct {
	deps Deps
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// NewService creates a service.
func NewService(deps Deps) *Service {
	if deps.IdleTimeout <= 0 {
		deps.IdleTimeout = DefaultIdleTimeout
	}
	if deps.DraftWindow <= 0 {
		deps.DraftWindow = draft.DefaultWindow
	}
	if deps.LogoURL == nil {
		deps.LogoURL = func() string { return "" }
	}
	return &Service{deps: deps, now: time.Now, sessions: make(map[string]*session)}
}

// Start opens a session. A draft is only restored when the start carries no
// link values; an unknown short link yields a blank form.
func (s *Service) Start(ctx context.Context, st Start) (View, error) {
	now := s.now()
	sess := &session{id: uuid.NewString(), lastUsed: now}
	rec := offer.NewAt(now)

	if id := strings.TrimSpace(st.DraftID); id != "" && st.Link.Empty() && s.deps.Drafts != nil {
		restored, err := draft.Restore(ctx, s.deps.Drafts, id, s.deps.DraftWindow, now)
		switch {
		case err == nil:
			rec = restored
			sess.id = id
			sess.restored = true
		case errors.Is(err, draft.ErrNotFound):
		default:
			zap.L().Warn("restoring draft", zap.String("draft", id), zap.Error(err))
		}
	}

	if !sess.restored {
		var err error
		rec, sess.shortlinkID, err = s.prefill(rec, st.Link)
		if err != nil {
			return View{}, err
		}
	}

	sess.form = offer.NewForm(rec, s.deps.Env.Defaults())
	sess.form.SetClock(s.now)
	if s.deps.Drafts != nil {
		sess.saver = draft.NewAutosaver(s.deps.Drafts, sess.id, s.deps.Debounce)
	}

	s.mu.Lock()
	if old, ok := s.sessions[sess.id]; ok {
		old.stop()
	}
	s.sessions[sess.id] = sess
	metrics.FormSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.view(), nil
}

func (s *Service) prefill(rec offer.Record, p shortlink.Params) (offer.Record, string, error) {
	agentName, address, linkID := p.Agent, p.Address, ""

	if p.ID != "" && s.deps.Links != nil {
		link, err := s.deps.Links.Resolve(p.ID)
		switch {
		case err == nil:
			agentName, address, linkID = link.Agent, link.Address, link.ID
		case errors.Is(err, shortlink.ErrNotFound):
			zap.L().Info("unknown short link", zap.String("id", p.ID))
			return rec, "", nil
		default:
			return rec, "", fmt.Errorf("resolving link: %w", err)
		}
	}

	if agentName == "" && address == "" {
		return rec, "", nil
	}

	agent, ok := s.deps.Env.LookupAgent(agentName)
	if !ok {
		agent = offer.Agent{Name: agentName}
	}
	if agentName != "" && address != "" {
		return rec.Prefill(agent, address), linkID, nil
	}

	// A partial link fills what it has and leaves both fields editable.
	if agentName != "" {
		rec.Agent = agent
	}
	rec.Property.Address = address
	return rec, linkID, nil
}

// Get returns the session's state.
func (s *Service) Get(id string) (View, error) {
	return s.update(id, false, func(*offer.Form) error { return nil })
}

// SetField sets a scalar field.
func (s *Service) SetField(id, path, value string) (View, error) {
	return s.update(id, true, func(f *offer.Form) error { return f.SetField(path, value) })
}

// SetBuyerField sets a field of buyer i.
func (s *Service) SetBuyerField(id string, i int, field, value string) (View, error) {
	return s.update(id, true, func(f *offer.Form) error { return f.SetBuyerField(i, field, value) })
}

// ToggleBuyerEntity switches buyer i between individual and entity.
func (s *Service) ToggleBuyerEntity(id string, i int) (View, error) {
	return s.update(id, true, func(f *offer.Form) error { return f.ToggleBuyerEntity(i) })
}

// AddBuyer appends a buyer.
func (s *Service) AddBuyer(id string) (View, error) {
	return s.update(id, true, func(f *offer.Form) error {
		f.AddBuyer()
		return nil
	})
}

// RemoveBuyer removes buyer i.
func (s *Service) RemoveBuyer(id string, i int) (View, error) {
	return s.update(id, true, func(f *offer.Form) error { return f.RemoveBuyer(i) })
}

// SelectAgent picks an agent from the roster by name.
func (s *Service) SelectAgent(id, name string) (View, error) {
	return s.update(id, true, func(f *offer.Form) error { return f.SelectAgent(s.deps.Env, name) })
}

// Replace swaps in a whole record.
func (s *Service) Replace(id string, r offer.Record) (View, error) {
	return s.update(id, true, func(f *offer.Form) error {
		if len(r.Buyers) == 0 {
			return offer.ErrLastBuyer
		}
		f.Replace(r)
		return nil
	})
}

// Clear resets the form and forgets its draft.
func (s *Service) Clear(ctx context.Context, id string) (View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return View{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	s.refresh(sess)
	sess.form.Clear()
	if sess.saver != nil {
		s.resetSaver(sess)
		if err := s.deps.Drafts.Delete(ctx, id); err != nil {
			zap.L().Warn("deleting draft", zap.String("draft", id), zap.Error(err))
		}
	}
	return sess.view(), nil
}

// Validate returns the current validation errors without changing status.
func (s *Service) Validate(id string) (offer.Errors, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	s.refresh(sess)
	return sess.form.Validate(), nil
}

// Submit runs the session's form through submission. The session is
// locked for the duration.
func (s *Service) Submit(ctx context.Context, id string) (submit.Result, View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return submit.Result{}, View{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	s.refresh(sess)

	// A pending save must not recreate a draft the pipeline deletes.
	if sess.saver != nil {
		sess.saver.Stop()
	}

	res := s.deps.Submitter.Submit(ctx, sess.form, submit.Request{
		FormID:      sess.id,
		ShortlinkID: sess.shortlinkID,
		LogoURL:     s.deps.LogoURL(),
	})

	if sess.saver != nil {
		s.resetSaver(sess)
		if res.Outcome != submit.OutcomeSuccess {
			sess.saver.Schedule(sess.form.Record)
		}
	}
	return res, sess.view(), nil
}

// PDF renders a preview of the letter and its filename.
func (s *Service) PDF(ctx context.Context, id string) ([]byte, string, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, "", err
	}

	sess.mu.Lock()
	s.refresh(sess)
	p := offer.BuildPayload(sess.form.Record, sess.form.Defaults, nil, s.now())
	sess.mu.Unlock()

	data, err := s.deps.Renderer.Render(ctx, p, s.deps.LogoURL())
	if err != nil {
		return nil, "", fmt.Errorf("rendering preview: %w", err)
	}
	return data, p.PDFFilename, nil
}

// Close saves any pending draft and ends the session.
func (s *Service) Close(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	metrics.FormSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	sess.flushAndStop()
	return nil
}

// Len returns the number of open sessions.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep ends sessions idle for longer than the idle timeout and returns how
// many were removed.
func (s *Service) Sweep() int {
	cutoff := s.now().Add(-s.deps.IdleTimeout)

	s.mu.Lock()
	var idle []*session
	for id, sess := range s.sessions {
		sess.mu.Lock()
		stale := sess.lastUsed.Before(cutoff)
		sess.mu.Unlock()
		if stale {
			idle = append(idle, sess)
			delete(s.sessions, id)
		}
	}
	metrics.FormSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	for _, sess := range idle {
		sess.flushAndStop()
	}
	return len(idle)
}

// Run sweeps idle sessions every interval until ctx is done, then closes
// every remaining session.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				zap.L().Debug("evicted idle form sessions", zap.Int("count", n))
			}
		case <-ctx.Done():
			s.closeAll()
			return
		}
	}
}

func (s *Service) closeAll() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*session)
	metrics.FormSessions.Set(0)
	s.mu.Unlock()

	for _, sess := range all {
		sess.flushAndStop()
	}
}

func (s *Service) lookup(id string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// update applies fn under the session lock. When changed is set and fn
// succeeds, the record is queued for autosave.
func (s *Service) update(id string, changed bool, fn func(*offer.Form) error) (View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return View{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	s.refresh(sess)
	if err := fn(sess.form); err != nil {
		return sess.view(), err
	}
	if changed && sess.saver != nil {
		sess.saver.Schedule(sess.form.Record)
	}
	return sess.view(), nil
}

// resetSaver replaces a stopped autosaver. Called with sess.mu held.
func (s *Service) resetSaver(sess *session) {
	sess.saver.Stop()
	sess.saver = draft.NewAutosaver(s.deps.Drafts, sess.id, s.deps.Debounce)
}

// refresh picks up the latest defaults and marks the session used. Called
// with sess.mu held.
func (s *Service) refresh(sess *session) {
	sess.form.Defaults = s.deps.Env.Defaults()
	sess.lastUsed = s.now()
}

// view snapshots the session. Called with mu held.
func (sess *session) view() View {
	f := sess.form
	done, total := f.Progress()
	v := View{
		ID:           sess.id,
		Record:       f.Record.Clone(),
		Errors:       append(offer.Errors{}, f.Errors...),
		Status:       f.Status,
		Progress:     Progress{Done: done, Total: total},
		Placeholders: offer.Placeholders(f.Record, f.Defaults),
		AutoBalance:  f.AutoBalance(),
		Restored:     sess.restored,
		ShortlinkID:  sess.shortlinkID,
	}
	if sess.saver != nil {
		if t := sess.saver.SavedAt(); !t.IsZero() {
			v.SavedAt = &t
		}
	}
	return v
}

func (sess *session) stop() {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.saver != nil {
		sess.saver.Stop()
	}
}

func (sess *session) flushAndStop() {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.saver != nil {
		sess.saver.Flush()
		sess.saver.Stop()
	}
}
