// Package email formats and sends the agent notification for a submitted
// offer.
package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/evcraddock/offer-form/internal/offer"
)

// Sender delivers a plain-text message.
type Sender interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// SMTPConfig holds SMTP connection settings.
type SMTPConfig struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

// IsConfigured returns true if SMTP settings are present.
func (c SMTPConfig) IsConfigured() bool {
	return c.Host != "" && c.From != ""
}

// Subject returns the notification subject for p.
func Subject(p offer.Payload) string {
	address := p.Property.Address
	if address == "" {
		address = "property"
	}
	return "New offer: " + address
}

// FormatOffer builds a plain-text summary of a submitted offer.
func FormatOffer(p offer.Payload) string {
	var buf bytes.Buffer

	name := p.Agent.Name
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&buf, "Hi %s,\n\nA new offer has been submitted for %s.\n\n", name, p.Property.Address)

	fmt.Fprintf(&buf, "Purchase price:  $%s\n", p.Financials.PurchasePrice)
	fmt.Fprintf(&buf, "Initial deposit: $%s\n", p.Financials.InitialDeposit)
	fmt.Fprintf(&buf, "Balance deposit: $%s", p.Financials.BalanceDeposit)
	if p.Financials.BalanceDepositTerms != "" {
		fmt.Fprintf(&buf, " (%s)", p.Financials.BalanceDepositTerms)
	}
	fmt.Fprintln(&buf)
	fmt.Fprintln(&buf)

	fmt.Fprintf(&buf, "Buyers:\n")
	for i, b := range p.Buyers {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, b.Name)

		var details []string
		for _, d := range []string{b.Email, b.Phone} {
			if d != "" {
				details = append(details, d)
			}
		}
		if len(details) > 0 {
			fmt.Fprintf(&buf, "   %s\n", strings.Join(details, " | "))
		}
		if b.Kind == offer.KindEntity && b.ABN != "" {
			fmt.Fprintf(&buf, "   ABN %s\n", b.ABN)
		}
	}
	fmt.Fprintln(&buf)

	if p.Solicitor.ToBeAdvised {
		fmt.Fprintf(&buf, "Solicitor: to be advised\n")
	} else {
		fmt.Fprintf(&buf, "Solicitor: %s\n", strings.Join(nonBlank(p.Solicitor.Company, p.Solicitor.Email, p.Solicitor.Phone), " | "))
	}

	fmt.Fprintf(&buf, "Finance:    %s\n", p.Conditions.FinanceDate)
	fmt.Fprintf(&buf, "Inspection: %s\n", p.Conditions.InspectionDate)
	fmt.Fprintf(&buf, "Settlement: %s\n", p.Conditions.SettlementDate)
	if p.Conditions.WaiverCoolingOff {
		fmt.Fprintf(&buf, "Cooling-off period waived.\n")
	}
	if p.Conditions.SpecialConditions != "" {
		fmt.Fprintf(&buf, "\nSpecial conditions:\n%s\n", p.Conditions.SpecialConditions)
	}

	if p.PDFBase64 != nil {
		fmt.Fprintf(&buf, "\nThe signed letter of offer (%s) was sent with the submission.\n", p.PDFFilename)
	}

	fmt.Fprintf(&buf, "\nSubmitted %s\n", p.SubmittedAt)
	return buf.String()
}

func nonBlank(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

// SMTPSender sends mail through an SMTP relay.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender creates an SMTP sender.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if !cfg.IsConfigured() {
		return nil, fmt.Errorf("SMTP not configured")
	}
	return &SMTPSender{cfg: cfg}, nil
}

// Send sends an email via SMTP.
// Supports both port 465 (implicit TLS) and port 587 (STARTTLS).
func (s *SMTPSender) Send(_ context.Context, to []string, subject, body string) error {
	msg := buildMessage(s.cfg.From, to, subject, body)
	addr := s.cfg.Host + ":" + s.cfg.Port

	if s.cfg.Port == "465" {
		return sendImplicitTLS(s.cfg, addr, to, msg)
	}
	return sendSTARTTLS(s.cfg, addr, to, msg)
}

func buildMessage(from string, to []string, subject, body string) string {
	return fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		from,
		strings.Join(to, ", "),
		subject,
		body,
	)
}

// sendImplicitTLS connects over TLS directly (port 465/SMTPS).
func sendImplicitTLS(cfg SMTPConfig, addr string, to []string, msg string) (err error) {
	tlsCfg := &tls.Config{ServerName: cfg.Host}
	conn, err := tls.Dial("tcp", addr, tlsCfg)
	if err != nil {
		return fmt.Errorf("TLS dial: %w", err)
	}

	c, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer func() {
		if quitErr := c.Quit(); quitErr != nil && err == nil {
			err = fmt.Errorf("quit: %w", quitErr)
		}
	}()

	if cfg.User != "" {
		auth := smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := c.Mail(cfg.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt to %s: %w", rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data: %w", err)
	}

	return nil
}

// sendSTARTTLS connects plain then upgrades to TLS (port 587).
func sendSTARTTLS(cfg SMTPConfig, addr string, to []string, msg string) error {
	var auth smtp.Auth
	if cfg.User != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, cfg.From, to, []byte(msg)); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}
