// Package submit runs a completed offer through validation, PDF rendering
// and webhook delivery.
package submit

import (
	"context"
	"encoding/base64"
	"time"

	"go.uber.org/zap"

	"github.com/evcraddock/offer-form/internal/draft"
	"github.com/evcraddock/offer-form/internal/email"
	"github.com/evcraddock/offer-form/internal/metrics"
	"github.com/evcraddock/offer-form/internal/offer"
)

// DefaultDemoDelay is how long a submission takes when no webhook is set.
const DefaultDemoDelay = time.Second

const notifyTimeout = 15 * time.Second

// Outcome is the result of a submission attempt.
type Outcome string

const (
	OutcomeBlocked Outcome = "blocked"
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// Renderer draws the letter of offer.
type Renderer interface {
	Render(ctx context.Context, p offer.Payload, logoURL string) ([]byte, error)
}

// Deliverer sends the payload to the receiving system.
type Deliverer interface {
	Deliver(ctx context.Context, payload any) error
}

// Deps are the collaborators of a Pipeline. Only Renderer is required.
type Deps struct {
	Renderer Renderer
	Webhook  Deliverer    // nil runs in demo mode
	Drafts   draft.Store  // draft deleted on success
	Notifier email.Sender // agent notification on success
	Audit    *AuditLog
	// DemoDelay applies when Webhook is nil.
	DemoDelay time.Duration
}

// Request identifies the form being submitted.
type Request struct {
	FormID      string
	ShortlinkID string
	LogoURL     string
}

// Result reports a submission attempt.
type Result struct {
	Outcome Outcome      `json:"outcome"`
	Errors  offer.Errors `json:"errors,omitempty"`
	// ScrollToTop asks the UI to bring the error summary into view.
	ScrollToTop bool           `json:"scrollToTop,omitempty"`
	Message     string         `json:"message,omitempty"`
	Payload     *offer.Payload `json:"-"`
}

// Pipeline submits offers.
type Pipeline struct {
	deps Deps
	now  func() time.Time
}

// NewPipeline creates a pipeline.
func NewPipeline(deps Deps) *Pipeline {
	if deps.DemoDelay < 0 {
		deps.DemoDelay = 0
	}
	return &Pipeline{deps: deps, now: time.Now}
}

// Submit validates f and, when complete, delivers it. The form's status
// follows the attempt: blocked, then success or error.
func (p *Pipeline) Submit(ctx context.Context, f *offer.Form, req Request) Result {
	errs := f.BeginSubmit()
	if errs.Len() > 0 {
		metrics.ValidationBlocks.Inc()
		p.finish(req, f.Record, OutcomeBlocked, "", "")
		return Result{Outcome: OutcomeBlocked, Errors: errs, ScrollToTop: true}
	}

	now := p.now()
	payload := offer.BuildPayload(f.Record, f.Defaults, nil, now)
	if pdf, err := p.deps.Renderer.Render(ctx, payload, req.LogoURL); err != nil {
		zap.L().Warn("rendering offer pdf", zap.String("form", req.FormID), zap.Error(err))
	} else {
		encoded := base64.StdEncoding.EncodeToString(pdf)
		payload.PDFBase64 = &encoded
	}

	if err := p.deliver(ctx, payload); err != nil {
		zap.L().Error("submitting offer", zap.String("form", req.FormID), zap.Error(err))
		f.FinishSubmit(false)
		p.finish(req, f.Record, OutcomeError, err.Error(), payload.PDFFilename)
		return Result{Outcome: OutcomeError, Message: "Failed to send offer", Payload: &payload}
	}

	f.FinishSubmit(true)
	p.finish(req, f.Record, OutcomeSuccess, "", payload.PDFFilename)

	if p.deps.Drafts != nil && req.FormID != "" {
		if err := p.deps.Drafts.Delete(ctx, req.FormID); err != nil {
			zap.L().Warn("deleting draft", zap.String("form", req.FormID), zap.Error(err))
		}
	}
	p.notify(ctx, payload)

	return Result{Outcome: OutcomeSuccess, Message: "Offer sent", Payload: &payload}
}

func (p *Pipeline) deliver(ctx context.Context, payload offer.Payload) error {
	if p.deps.Webhook != nil {
		return p.deps.Webhook.Deliver(ctx, payload)
	}

	zap.L().Info("no webhook configured, simulating delivery", zap.String("address", payload.Property.Address))
	t := time.NewTimer(p.deps.DemoDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) notify(ctx context.Context, payload offer.Payload) {
	if p.deps.Notifier == nil || payload.Agent.Email == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	err := p.deps.Notifier.Send(ctx, []string{payload.Agent.Email}, email.Subject(payload), email.FormatOffer(payload))
	if err != nil {
		zap.L().Warn("notifying agent", zap.String("agent", payload.Agent.Email), zap.Error(err))
	}
}

func (p *Pipeline) finish(req Request, r offer.Record, outcome Outcome, errMsg, pdfFilename string) {
	metrics.Submissions.WithLabelValues(string(outcome)).Inc()
	if p.deps.Audit == nil {
		return
	}

	e := &Entry{
		FormID:      req.FormID,
		ShortlinkID: req.ShortlinkID,
		Agent:       r.Agent.Name,
		Address:     r.Property.Address,
		Outcome:     outcome,
		Error:       errMsg,
		PDFFilename: pdfFilename,
		SubmittedAt: p.now().UTC(),
	}
	if err := p.deps.Audit.Record(e); err != nil {
		zap.L().Warn("recording submission", zap.String("form", req.FormID), zap.Error(err))
	}
}
