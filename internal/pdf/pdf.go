// Package pdf renders the letter of offer attached to a submission.
package pdf

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"

	"github.com/evcraddock/offer-form/internal/offer"
)

const (
	pageMargin  = 15.0
	labelWidth  = 45.0
	lineHeight  = 6.0
	maxLogoSize = 5 << 20

	disclaimer = "IMPORTANT NOTICE: This document is a non-binding expression of interest only and does not " +
		"constitute a legally binding contract. Any offer to purchase is subject to the execution of a formal " +
		"contract of sale and completion of all necessary legal requirements. Both parties reserve the right " +
		"to withdraw at any time prior to exchange of contracts."
)

// Renderer produces offer letters.
type Renderer struct {
	httpClient *http.Client
}

// NewRenderer creates a renderer that fetches logos with a short timeout.
func NewRenderer() *Renderer {
	return &Renderer{httpClient: &http.Client{Timeout: 10 * time.Second}}
}

// Render draws the letter for p. A logo that cannot be fetched is left out.
func (r *Renderer) Render(ctx context.Context, p offer.Payload, logoURL string) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(pageMargin, pageMargin, pageMargin)
	doc.SetAutoPageBreak(true, pageMargin)
	doc.AddPage()

	w := &writer{doc: doc, tr: doc.UnicodeTranslatorFromDescriptor("")}

	w.header(r.logo(ctx, doc, logoURL))

	w.section("Property Details")
	w.row("Property Address:", p.Property.Address)
	w.row("Agent:", p.Agent.Name)

	w.section("Buyer Details")
	for i, b := range p.Buyers {
		w.subtitle(fmt.Sprintf("Buyer %d", i+1))
		if b.Kind == offer.KindEntity {
			w.row("Entity Name:", b.EntityName)
			w.row("ABN:", b.ABN)
			w.row("ACN:", b.ACN)
		} else {
			w.row("Full Name:", b.Name)
		}
		w.row("Email:", b.Email)
		w.row("Phone:", b.Phone)
		w.row("Address:", b.Address)
	}

	w.section("Buyer's Solicitor")
	if p.Solicitor.ToBeAdvised {
		w.row("Status:", "Solicitor: To Be Advised")
	} else {
		w.row("Company:", orDefault(p.Solicitor.Company, "Not provided"))
		w.row("Contact Person:", orDefault(p.Solicitor.Contact, "Not provided"))
		w.row("Email:", p.Solicitor.Email)
		w.row("Phone:", p.Solicitor.Phone)
	}

	fin := p.Financials
	w.section("Price & Deposit")
	w.row("Purchase Price:", "$"+fin.PurchasePrice)
	w.row("Initial Deposit:", "$"+fin.InitialDeposit)
	w.note("Payable immediately upon contract date")
	w.row("Balance Deposit:", "$"+fin.BalanceDeposit)
	if fin.BalanceDepositTerms != "" {
		w.note(fin.BalanceDepositTerms)
	}
	total := offer.AmountOf(fin.InitialDeposit) + offer.AmountOf(fin.BalanceDeposit)
	w.boldRow("Total Deposit:", "$"+offer.FormatAmount(total))

	cond := p.Conditions
	w.section("Conditions")
	if cond.WaiverCoolingOff {
		w.boldRow("Cooling Off Period:", "WAIVED")
	}
	finance := cond.FinanceDate
	if cond.FinancePreApproved {
		finance += " (Pre-Approved)"
	}
	w.row("Finance Date:", finance)
	w.row("Building & Pest:", orDefault(cond.InspectionDate, "Not specified"))
	w.row("Settlement Date:", orDefault(cond.SettlementDate, "Not specified"))
	if cond.SpecialConditions != "" {
		w.row("Special Conditions:", cond.SpecialConditions)
	}

	w.section("Authorisation")
	for i, b := range p.Buyers {
		w.signature(r.signature(doc, i, b.Signature), b.Name, displayDate(b.SignatureDate))
	}

	w.disclaimer(disclaimer)

	if doc.Err() {
		return nil, fmt.Errorf("rendering pdf: %w", doc.Error())
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// logo registers the logo image and returns its name, or "" when it is
// unavailable.
func (r *Renderer) logo(ctx context.Context, doc *fpdf.Fpdf, logoURL string) string {
	if logoURL == "" {
		return ""
	}

	data, contentType, err := r.fetch(ctx, logoURL)
	if err != nil {
		zap.L().Warn("logo unavailable", zap.String("url", logoURL), zap.Error(err))
		return ""
	}

	imageType := imageTypeFor(contentType)
	if imageType == "" {
		zap.L().Warn("unsupported logo type", zap.String("url", logoURL), zap.String("type", contentType))
		return ""
	}

	info := doc.RegisterImageOptionsReader("logo", fpdf.ImageOptions{ImageType: imageType}, bytes.NewReader(data))
	if info == nil || doc.Err() {
		zap.L().Warn("decoding logo", zap.String("url", logoURL), zap.Error(doc.Error()))
		doc.ClearError()
		return ""
	}
	return "logo"
}

func (r *Renderer) fetch(ctx context.Context, src string) (_ []byte, _ string, err error) {
	if strings.HasPrefix(src, "data:") {
		return decodeDataURL(src)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("sending request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			err = fmt.Errorf("%w (also failed to close body: %v)", err, closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxLogoSize))
	if err != nil {
		return nil, "", fmt.Errorf("reading image: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if imageTypeFor(contentType) == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

// signature registers buyer i's signature and returns its image name, or ""
// when the buyer has not signed.
func (r *Renderer) signature(doc *fpdf.Fpdf, i int, dataURL string) string {
	if dataURL == "" {
		return ""
	}

	data, contentType, err := decodeDataURL(dataURL)
	if err != nil || imageTypeFor(contentType) != "PNG" {
		zap.L().Warn("invalid signature image", zap.Int("buyer", i+1), zap.Error(err))
		return ""
	}

	name := fmt.Sprintf("signature-%d", i)
	info := doc.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(data))
	if info == nil || doc.Err() {
		zap.L().Warn("decoding signature", zap.Int("buyer", i+1), zap.Error(doc.Error()))
		doc.ClearError()
		return ""
	}
	return name
}

func decodeDataURL(s string) ([]byte, string, error) {
	meta, encoded, ok := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data URL")
	}
	contentType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, "", fmt.Errorf("data URL is not base64")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("decoding data URL: %w", err)
	}
	return data, contentType, nil
}

func imageTypeFor(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0])) {
	case "image/png":
		return "PNG"
	case "image/jpeg", "image/jpg":
		return "JPG"
	case "image/gif":
		return "GIF"
	}
	return ""
}

// displayDate turns yyyy-mm-dd into dd-mm-yyyy.
func displayDate(s string) string {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return s
	}
	return t.Format("02-01-2006")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
