package offer

import (
	"regexp"
	"strings"
	"time"
)

// PayloadBuyer is a buyer as submitted. Only the active variant's fields
// are filled.
type PayloadBuyer struct {
	Kind          BuyerKind `json:"kind"`
	Name          string    `json:"name"`
	FirstName     string    `json:"firstName,omitempty"`
	MiddleName    string    `json:"middleName,omitempty"`
	Surname       string    `json:"surname,omitempty"`
	EntityName    string    `json:"entityName,omitempty"`
	ABN           string    `json:"abn,omitempty"`
	ACN           string    `json:"acn,omitempty"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Address       string    `json:"address"`
	Signature     string    `json:"signature,omitempty"`
	SignatureDate string    `json:"signatureDate"`
}

// Payload is the JSON body posted to the webhook.
type Payload struct {
	Agent       Agent          `json:"agent"`
	Property    Property       `json:"property"`
	Buyers      []PayloadBuyer `json:"buyers"`
	Solicitor   Solicitor      `json:"solicitor"`
	Financials  Financials     `json:"financials"`
	Conditions  Conditions     `json:"conditions"`
	SubmittedAt string         `json:"submittedAt"`
	PDFFilename string         `json:"pdfFilename"`
	PDFBase64   *string        `json:"pdfBase64"`
}

// BuildPayload assembles the submitted offer. Blank deposit, terms and date
// fields take their resolved defaults. pdf may be nil when rendering failed.
func BuildPayload(r Record, d Defaults, pdf *string, now time.Time) Payload {
	fin := r.Financials
	fin.InitialDeposit = d.Effective(FieldInitialDeposit, fin.InitialDeposit, r)
	fin.BalanceDeposit = d.Effective(FieldBalanceDeposit, fin.BalanceDeposit, r)
	fin.BalanceDepositTerms = d.Effective(FieldBalanceDepositTerms, fin.BalanceDepositTerms, r)

	cond := r.Conditions
	cond.FinanceDate = d.Effective(FieldFinanceDate, cond.FinanceDate, r)
	cond.InspectionDate = d.Effective(FieldInspectionDate, cond.InspectionDate, r)
	cond.SettlementDate = d.Effective(FieldSettlementDate, cond.SettlementDate, r)

	buyers := make([]PayloadBuyer, len(r.Buyers))
	for i, b := range r.Buyers {
		pb := PayloadBuyer{
			Name:          b.Party().DisplayName(),
			Email:         b.Email,
			Phone:         b.Phone,
			Address:       b.Address,
			Signature:     b.Signature,
			SignatureDate: b.SignatureDate,
		}
		if b.IsEntity() {
			pb.Kind = KindEntity
			pb.EntityName = b.Entity.EntityName
			pb.ABN = b.Entity.ABN
			pb.ACN = b.Entity.ACN
		} else {
			pb.Kind = KindIndividual
			pb.FirstName = b.Individual.FirstName
			pb.MiddleName = b.Individual.MiddleName
			pb.Surname = b.Individual.Surname
		}
		buyers[i] = pb
	}

	return Payload{
		Agent:       r.Agent,
		Property:    r.Property,
		Buyers:      buyers,
		Solicitor:   r.Solicitor,
		Financials:  fin,
		Conditions:  cond,
		SubmittedAt: now.UTC().Format(time.RFC3339),
		PDFFilename: PDFFilename(r.Property.Address, now),
		PDFBase64:   pdf,
	}
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9]+`)

// PDFFilename names the rendered offer after the property and date.
func PDFFilename(address string, now time.Time) string {
	name := strings.Trim(unsafeFilename.ReplaceAllString(address, "_"), "_")
	if name == "" {
		name = "Property"
	}
	return "Offer_" + name + "_" + now.UTC().Format(dateLayout) + ".pdf"
}
