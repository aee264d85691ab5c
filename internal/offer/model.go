// Package offer provides the offer-to-purchase record, its field-level
// transforms, validation rules and derived values.
package offer

import "time"

// BuyerKind selects which variant of a buyer is active.
type BuyerKind string

const (
	KindIndividual BuyerKind = "individual"
	KindEntity     BuyerKind = "entity"
)

// dateLayout is the stored format for signature dates.
const dateLayout = "2006-01-02"

// Agent is a snapshot of a roster entry taken when the agent was selected.
type Agent struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Mobile string `json:"mobile,omitempty"`
	Title  string `json:"title,omitempty"`
	Photo  string `json:"photo,omitempty"`
}

// Property identifies the property being offered on.
type Property struct {
	Address string `json:"address"`
}

// Individual holds the fields of a buyer purchasing in their own name.
type Individual struct {
	FirstName  string `json:"firstName"`
	MiddleName string `json:"middleName,omitempty"`
	Surname    string `json:"surname"`
}

// Entity holds the fields of a buyer purchasing through a company or trust.
type Entity struct {
	EntityName string `json:"entityName"`
	ABN        string `json:"abn"`
	ACN        string `json:"acn"`
}

// Party is the active variant of a buyer.
type Party interface {
	// DisplayName is the name printed against the buyer's signature.
	DisplayName() string
	requirements(prefix, label string) []requirement
}

// DisplayName joins the individual's names, skipping a blank middle name.
func (i Individual) DisplayName() string {
	name := i.FirstName
	if i.MiddleName != "" {
		name += " " + i.MiddleName
	}
	if i.Surname != "" {
		name += " " + i.Surname
	}
	return name
}

func (i Individual) requirements(prefix, label string) []requirement {
	return []requirement{
		{prefix + "firstName", label + "first name", i.FirstName},
		{prefix + "surname", label + "surname", i.Surname},
	}
}

// DisplayName returns the entity name.
func (e Entity) DisplayName() string { return e.EntityName }

func (e Entity) requirements(prefix, label string) []requirement {
	return []requirement{
		{prefix + "entityName", label + "entity name", e.EntityName},
		{prefix + "abn", label + "ABN", e.ABN},
		{prefix + "acn", label + "ACN", e.ACN},
	}
}

// Buyer is one purchaser on the offer. Both variants are stored so that
// toggling Kind never loses typed values; only the active one is used.
type Buyer struct {
	Kind          BuyerKind  `json:"kind"`
	Individual    Individual `json:"individual"`
	Entity        Entity     `json:"entity"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	Address       string     `json:"address"`
	Signature     string     `json:"signature,omitempty"` // PNG data URL
	SignatureDate string     `json:"signatureDate"`
}

// IsEntity reports whether the entity variant is active.
func (b Buyer) IsEntity() bool {
	return b.Kind == KindEntity
}

// Party returns the active variant.
func (b Buyer) Party() Party {
	if b.IsEntity() {
		return b.Entity
	}
	return b.Individual
}

// Solicitor is the buyer's conveyancer. Contact details become optional
// once ToBeAdvised is set.
type Solicitor struct {
	Company     string `json:"company,omitempty"`
	Contact     string `json:"contact,omitempty"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	ToBeAdvised bool   `json:"toBeAdvised"`
}

// Financials are stored as canonical thousands-separated strings because
// they are rendered verbatim into the form and the PDF.
type Financials struct {
	PurchasePrice       string `json:"purchasePrice"`
	InitialDeposit      string `json:"initialDeposit"`
	BalanceDeposit      string `json:"balanceDeposit"`
	BalanceDepositTerms string `json:"balanceDepositTerms,omitempty"`
}

// Conditions are the contract conditions proposed by the buyer.
type Conditions struct {
	FinanceDate        string `json:"financeDate"`
	FinancePreApproved bool   `json:"financePreApproved"`
	WaiverCoolingOff   bool   `json:"waiverCoolingOff"`
	InspectionDate     string `json:"inspectionDate"`
	SettlementDate     string `json:"settlementDate"`
	SpecialConditions  string `json:"specialConditions,omitempty"`
}

// Record is the offer being filled in during one form session.
type Record struct {
	Agent      Agent      `json:"agent"`
	Property   Property   `json:"property"`
	Buyers     []Buyer    `json:"buyers"`
	Solicitor  Solicitor  `json:"solicitor"`
	Financials Financials `json:"financials"`
	Conditions Conditions `json:"conditions"`

	// Prefilled locks the agent and property address, which were seeded
	// from a link.
	Prefilled bool `json:"prefilled"`
}

// New returns an empty record with a single individual buyer.
func New() Record {
	return NewAt(time.Now())
}

// NewAt returns an empty record whose signature dates are set to now.
func NewAt(now time.Time) Record {
	return Record{Buyers: []Buyer{NewBuyer(now)}}
}

// NewBuyer returns an empty individual buyer signing on now's date.
func NewBuyer(now time.Time) Buyer {
	return Buyer{
		Kind:          KindIndividual,
		SignatureDate: now.Format(dateLayout),
	}
}

// Clone returns a copy that shares no mutable state with r.
func (r Record) Clone() Record {
	out := r
	out.Buyers = make([]Buyer, len(r.Buyers))
	copy(out.Buyers, r.Buyers)
	return out
}

// Prefill seeds agent and address from a link and locks both.
func (r Record) Prefill(agent Agent, address string) Record {
	out := r.Clone()
	out.Agent = agent
	out.Property.Address = address
	out.Prefilled = true
	return out
}
