package offer

import "strings"

// Field paths accepted by SetField and used as error keys.
const (
	FieldAgentName   = "agent.name"
	FieldAgentEmail  = "agent.email"
	FieldAgentMobile = "agent.mobile"
	FieldAgentTitle  = "agent.title"
	FieldAgentPhoto  = "agent.photo"

	FieldAddress = "property.address"

	FieldPurchasePrice       = "financials.purchasePrice"
	FieldInitialDeposit      = "financials.initialDeposit"
	FieldBalanceDeposit      = "financials.balanceDeposit"
	FieldBalanceDepositTerms = "financials.balanceDepositTerms"

	FieldFinanceDate        = "conditions.financeDate"
	FieldFinancePreApproved = "conditions.financePreApproved"
	FieldWaiverCoolingOff   = "conditions.waiverCoolingOff"
	FieldInspectionDate     = "conditions.inspectionDate"
	FieldSettlementDate     = "conditions.settlementDate"
	FieldSpecialConditions  = "conditions.specialConditions"

	FieldSolicitorCompany     = "solicitor.company"
	FieldSolicitorContact     = "solicitor.contact"
	FieldSolicitorEmail       = "solicitor.email"
	FieldSolicitorPhone       = "solicitor.phone"
	FieldSolicitorToBeAdvised = "solicitor.toBeAdvised"
)

// Defaults are the admin-managed placeholder values. A percent, when set,
// takes precedence over the fixed amount for that deposit.
type Defaults struct {
	PurchasePrice         string `json:"purchasePrice" yaml:"purchasePrice"`
	InitialDeposit        string `json:"initialDeposit" yaml:"initialDeposit"`
	InitialDepositPercent string `json:"initialDepositPercent" yaml:"initialDepositPercent"`
	BalanceDeposit        string `json:"balanceDeposit" yaml:"balanceDeposit"`
	BalanceDepositPercent string `json:"balanceDepositPercent" yaml:"balanceDepositPercent"`
	BalanceDepositTerms   string `json:"balanceDepositTerms" yaml:"balanceDepositTerms"`
	FinanceDate           string `json:"financeDate" yaml:"financeDate"`
	InspectionDate        string `json:"inspectionDate" yaml:"inspectionDate"`
	SettlementDate        string `json:"settlementDate" yaml:"settlementDate"`
	SpecialConditions     string `json:"specialConditions" yaml:"specialConditions"`
}

// DefaultPlaceholders are used until an admin saves settings.
func DefaultPlaceholders() Defaults {
	return Defaults{
		BalanceDepositTerms: "Payable immediately",
		FinanceDate:         "14 days from contract date",
		InspectionDate:      "14 days from contract date",
		SettlementDate:      "30 days from contract date",
		SpecialConditions:   "e.g. Subject to sale of existing property...",
	}
}

// Resolve returns the value substituted for a blank field at submission.
// The same resolution decides whether a blank required field is satisfied,
// so validation and the submitted payload can never disagree. Fields with no
// substitutable default resolve to "".
func (d Defaults) Resolve(field string, r Record) string {
	switch field {
	case FieldInitialDeposit:
		return resolveDeposit(r.Financials.PurchasePrice, d.InitialDepositPercent, d.InitialDeposit)
	case FieldBalanceDeposit:
		return resolveDeposit(r.Financials.PurchasePrice, d.BalanceDepositPercent, d.BalanceDeposit)
	case FieldBalanceDepositTerms:
		return strings.TrimSpace(d.BalanceDepositTerms)
	case FieldFinanceDate:
		return strings.TrimSpace(d.FinanceDate)
	case FieldInspectionDate:
		return strings.TrimSpace(d.InspectionDate)
	case FieldSettlementDate:
		return strings.TrimSpace(d.SettlementDate)
	}
	return ""
}

// Effective returns value when it is non-blank, else the resolved default.
func (d Defaults) Effective(field, value string, r Record) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return d.Resolve(field, r)
}

func resolveDeposit(price, percent, fixed string) string {
	if strings.TrimSpace(percent) != "" {
		return CalculateDeposit(price, percent)
	}
	return strings.TrimSpace(fixed)
}
