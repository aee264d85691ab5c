package offer

import (
	"fmt"
	"strings"
)

// FieldError is one missing required field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is the ordered result of Validate. Order follows the check order
// so callers can render the list top to bottom.
type Errors []FieldError

// Len returns the number of violations.
func (e Errors) Len() int { return len(e) }

// Has reports whether field has a recorded violation.
func (e Errors) Has(field string) bool {
	for _, fe := range e {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// Messages returns the messages in order.
func (e Errors) Messages() []string {
	out := make([]string, len(e))
	for i, fe := range e {
		out[i] = fe.Message
	}
	return out
}

// Map returns the errors keyed by field.
func (e Errors) Map() map[string]string {
	out := make(map[string]string, len(e))
	for _, fe := range e {
		out[fe.Field] = fe.Message
	}
	return out
}

// Without returns a copy of e with field removed.
func (e Errors) Without(field string) Errors {
	out := make(Errors, 0, len(e))
	for _, fe := range e {
		if fe.Field != field {
			out = append(out, fe)
		}
	}
	return out
}

type requirement struct {
	field string
	label string
	value string
}

func (q requirement) satisfied() bool {
	return strings.TrimSpace(q.value) != ""
}

// requirements lists every required item in check order. Values already
// account for defaults, so a field with a resolvable default is satisfied.
func requirements(r Record, d Defaults) []requirement {
	reqs := []requirement{
		{FieldAgentName, "Agent", r.Agent.Name},
		{FieldAddress, "Property address", r.Property.Address},
		{FieldPurchasePrice, "Purchase price", r.Financials.PurchasePrice},
		{FieldInitialDeposit, "Initial deposit", d.Effective(FieldInitialDeposit, r.Financials.InitialDeposit, r)},
		{FieldBalanceDeposit, "Balance deposit", d.Effective(FieldBalanceDeposit, r.Financials.BalanceDeposit, r)},
	}

	if !r.Solicitor.ToBeAdvised {
		reqs = append(reqs,
			requirement{FieldSolicitorEmail, "Solicitor email", r.Solicitor.Email},
			requirement{FieldSolicitorPhone, "Solicitor phone", r.Solicitor.Phone},
		)
	}

	dates := []struct{ field, label, value string }{
		{FieldFinanceDate, "Finance date", r.Conditions.FinanceDate},
		{FieldInspectionDate, "Inspection date", r.Conditions.InspectionDate},
		{FieldSettlementDate, "Settlement date", r.Conditions.SettlementDate},
	}
	for _, dt := range dates {
		if d.Resolve(dt.field, r) != "" {
			continue
		}
		reqs = append(reqs, requirement{dt.field, dt.label, dt.value})
	}

	for i, b := range r.Buyers {
		prefix := BuyerKey(i, "")
		label := fmt.Sprintf("Buyer %d: ", i+1)
		reqs = append(reqs, b.Party().requirements(prefix, label)...)
		reqs = append(reqs,
			requirement{prefix + "email", label + "email", b.Email},
			requirement{prefix + "phone", label + "phone", b.Phone},
			requirement{prefix + "address", label + "address", b.Address},
			requirement{prefix + "signature", label + "signature", b.Signature},
		)
	}

	return reqs
}

// Validate returns every missing required field in one pass. Blank deposit
// and date fields are satisfied when d resolves a default for them.
func Validate(r Record, d Defaults) Errors {
	var errs Errors
	for _, q := range requirements(r, d) {
		if q.satisfied() {
			continue
		}
		errs = append(errs, FieldError{Field: q.field, Message: q.label + " is required"})
	}
	return errs
}

// Progress returns how many required items are complete out of the total.
func Progress(r Record, d Defaults) (done, total int) {
	for _, q := range requirements(r, d) {
		total++
		if q.satisfied() {
			done++
		}
	}
	return done, total
}

// BuyerKey returns the error key for a buyer field, or the key prefix when
// field is empty.
func BuyerKey(i int, field string) string {
	return fmt.Sprintf("buyers[%d].%s", i, field)
}
