package offer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrUnknownField is returned for a field path the record does not have.
	ErrUnknownField = errors.New("unknown field")
	// ErrPrefilled is returned when changing the agent or address of a
	// record seeded from a link.
	ErrPrefilled = errors.New("agent and address are locked by the offer link")
	// ErrBuyerIndex is returned for a buyer index outside the list.
	ErrBuyerIndex = errors.New("buyer index out of range")
	// ErrLastBuyer is returned when removing the only buyer.
	ErrLastBuyer = errors.New("at least one buyer is required")
	// ErrInvalidValue is returned when a value cannot be parsed for its field.
	ErrInvalidValue = errors.New("invalid value")
)

// AgentLookup resolves a roster entry by name.
type AgentLookup interface {
	LookupAgent(name string) (Agent, bool)
}

// AgentList is an in-memory roster.
type AgentList []Agent

// LookupAgent returns the first agent with the given name.
func (l AgentList) LookupAgent(name string) (Agent, bool) {
	for _, a := range l {
		if a.Name == name {
			return a, true
		}
	}
	return Agent{}, false
}

// SetField returns a copy of r with the scalar field at path set to value.
func (r Record) SetField(path, value string) (Record, error) {
	out := r.Clone()

	switch path {
	case FieldAgentName, FieldAgentEmail, FieldAgentMobile, FieldAgentTitle, FieldAgentPhoto, FieldAddress:
		if r.Prefilled {
			return r, ErrPrefilled
		}
	}

	var err error
	switch path {
	case FieldAgentName:
		out.Agent.Name = value
	case FieldAgentEmail:
		out.Agent.Email = value
	case FieldAgentMobile:
		out.Agent.Mobile = value
	case FieldAgentTitle:
		out.Agent.Title = value
	case FieldAgentPhoto:
		out.Agent.Photo = value
	case FieldAddress:
		out.Property.Address = value
	case FieldPurchasePrice:
		out.Financials.PurchasePrice = FormatCurrency(value)
	case FieldInitialDeposit:
		out.Financials.InitialDeposit = FormatCurrency(value)
	case FieldBalanceDeposit:
		out.Financials.BalanceDeposit = FormatCurrency(value)
	case FieldBalanceDepositTerms:
		out.Financials.BalanceDepositTerms = value
	case FieldFinanceDate:
		out.Conditions.FinanceDate = value
	case FieldFinancePreApproved:
		out.Conditions.FinancePreApproved, err = parseBool(value)
	case FieldWaiverCoolingOff:
		out.Conditions.WaiverCoolingOff, err = parseBool(value)
	case FieldInspectionDate:
		out.Conditions.InspectionDate = value
	case FieldSettlementDate:
		out.Conditions.SettlementDate = value
	case FieldSpecialConditions:
		out.Conditions.SpecialConditions = value
	case FieldSolicitorCompany:
		out.Solicitor.Company = value
	case FieldSolicitorContact:
		out.Solicitor.Contact = value
	case FieldSolicitorEmail:
		out.Solicitor.Email = value
	case FieldSolicitorPhone:
		out.Solicitor.Phone = value
	case FieldSolicitorToBeAdvised:
		out.Solicitor.ToBeAdvised, err = parseBool(value)
	default:
		return r, fmt.Errorf("%w: %s", ErrUnknownField, path)
	}
	if err != nil {
		return r, fmt.Errorf("%s: %w", path, err)
	}

	return out, nil
}

// SetBuyerField returns a copy of r with one buyer field set. Variant
// fields are stored whichever variant is active.
func (r Record) SetBuyerField(i int, field, value string) (Record, error) {
	if i < 0 || i >= len(r.Buyers) {
		return r, fmt.Errorf("%w: %d", ErrBuyerIndex, i)
	}

	out := r.Clone()
	b := &out.Buyers[i]
	switch field {
	case "firstName":
		b.Individual.FirstName = value
	case "middleName":
		b.Individual.MiddleName = value
	case "surname":
		b.Individual.Surname = value
	case "entityName":
		b.Entity.EntityName = value
	case "abn":
		b.Entity.ABN = value
	case "acn":
		b.Entity.ACN = value
	case "email":
		b.Email = value
	case "phone":
		b.Phone = value
	case "address":
		b.Address = value
	case "signature":
		b.Signature = value
	case "signatureDate":
		if value != "" {
			if _, err := time.Parse(dateLayout, value); err != nil {
				return r, fmt.Errorf("signatureDate: %w: %q", ErrInvalidValue, value)
			}
		}
		b.SignatureDate = value
	default:
		return r, fmt.Errorf("%w: buyer %s", ErrUnknownField, field)
	}

	return out, nil
}

// ToggleBuyerEntity flips buyer i between individual and entity. Values of
// the inactive variant are kept.
func (r Record) ToggleBuyerEntity(i int) (Record, error) {
	if i < 0 || i >= len(r.Buyers) {
		return r, fmt.Errorf("%w: %d", ErrBuyerIndex, i)
	}
	out := r.Clone()
	if out.Buyers[i].IsEntity() {
		out.Buyers[i].Kind = KindIndividual
	} else {
		out.Buyers[i].Kind = KindEntity
	}
	return out, nil
}

// AddBuyer appends an empty individual buyer.
func (r Record) AddBuyer(now time.Time) Record {
	out := r.Clone()
	out.Buyers = append(out.Buyers, NewBuyer(now))
	return out
}

// RemoveBuyer removes buyer i. The last remaining buyer cannot be removed.
func (r Record) RemoveBuyer(i int) (Record, error) {
	if i < 0 || i >= len(r.Buyers) {
		return r, fmt.Errorf("%w: %d", ErrBuyerIndex, i)
	}
	if len(r.Buyers) == 1 {
		return r, ErrLastBuyer
	}
	out := r.Clone()
	out.Buyers = append(out.Buyers[:i], out.Buyers[i+1:]...)
	return out, nil
}

// SelectAgent copies the roster entry for name into the record. An unknown
// name is kept with the contact details cleared.
func (r Record) SelectAgent(roster AgentLookup, name string) (Record, error) {
	if r.Prefilled {
		return r, ErrPrefilled
	}
	out := r.Clone()
	if a, ok := roster.LookupAgent(name); ok {
		out.Agent = a
	} else {
		out.Agent = Agent{Name: name}
	}
	return out, nil
}

func parseBool(v string) (bool, error) {
	if strings.TrimSpace(v) == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("%w: %q", ErrInvalidValue, v)
	}
	return b, nil
}

// Status is the submission state of a form.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusValidating Status = "validating"
	StatusBlocked    Status = "blocked"
	StatusSubmitting Status = "submitting"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

// Form is the mutable state of one form session: the record, the errors
// shown against it and where it is in submission. A Form is not safe for
// concurrent use.
type Form struct {
	Record   Record
	Errors   Errors
	Status   Status
	Defaults Defaults

	// autoBalance is set while the balance deposit holds a value computed
	// from the purchase price rather than one the user typed.
	autoBalance bool
	now         func() time.Time
}

// NewForm returns an idle form over r.
func NewForm(r Record, d Defaults) *Form {
	return &Form{Record: r, Status: StatusIdle, Defaults: d, now: time.Now}
}

// SetClock overrides the clock used for new signature dates.
func (f *Form) SetClock(now func() time.Time) {
	f.now = now
}

// AutoBalance reports whether the balance deposit was filled in from the
// configured percentage.
func (f *Form) AutoBalance() bool { return f.autoBalance }

// SetField applies Record.SetField and clears the error recorded for path.
// Changing the purchase price refreshes an auto-populated balance deposit.
func (f *Form) SetField(path, value string) error {
	r, err := f.Record.SetField(path, value)
	if err != nil {
		return err
	}
	f.Record = r

	switch path {
	case FieldPurchasePrice:
		f.refreshBalance()
	case FieldBalanceDeposit:
		f.autoBalance = false
	}

	f.touch(path)
	return nil
}

// refreshBalance fills the balance deposit from the configured percentage.
// A value the user typed is never overwritten.
func (f *Form) refreshBalance() {
	if strings.TrimSpace(f.Defaults.BalanceDepositPercent) == "" {
		return
	}
	if f.Record.Financials.BalanceDeposit != "" && !f.autoBalance {
		return
	}
	f.Record.Financials.BalanceDeposit = CalculateDeposit(f.Record.Financials.PurchasePrice, f.Defaults.BalanceDepositPercent)
	f.autoBalance = f.Record.Financials.BalanceDeposit != ""
	f.Errors = f.Errors.Without(FieldBalanceDeposit)
}

// SetBuyerField updates one buyer and clears that field's error.
func (f *Form) SetBuyerField(i int, field, value string) error {
	r, err := f.Record.SetBuyerField(i, field, value)
	if err != nil {
		return err
	}
	f.Record = r
	f.touch(BuyerKey(i, field))
	return nil
}

// ToggleBuyerEntity switches buyer i's variant and drops errors recorded
// against either variant's fields.
func (f *Form) ToggleBuyerEntity(i int) error {
	r, err := f.Record.ToggleBuyerEntity(i)
	if err != nil {
		return err
	}
	f.Record = r
	for _, field := range []string{"firstName", "surname", "entityName", "abn", "acn"} {
		f.Errors = f.Errors.Without(BuyerKey(i, field))
	}
	f.touch("")
	return nil
}

// AddBuyer appends an empty buyer.
func (f *Form) AddBuyer() {
	f.Record = f.Record.AddBuyer(f.now())
	f.touch("")
}

// RemoveBuyer removes buyer i and renumbers the errors of the buyers after it.
func (f *Form) RemoveBuyer(i int) error {
	r, err := f.Record.RemoveBuyer(i)
	if err != nil {
		return err
	}
	f.Record = r
	f.Errors = reindexBuyerErrors(f.Errors, i)
	f.touch("")
	return nil
}

// SelectAgent snapshots the named roster entry into the record.
func (f *Form) SelectAgent(roster AgentLookup, name string) error {
	r, err := f.Record.SelectAgent(roster, name)
	if err != nil {
		return err
	}
	f.Record = r
	f.touch(FieldAgentName)
	return nil
}

// Replace swaps in a whole record, as uploaded or restored from a draft.
func (f *Form) Replace(r Record) {
	f.Record = r.Clone()
	f.Errors = nil
	f.autoBalance = false
	f.touch("")
}

// Clear resets the form to a new record.
func (f *Form) Clear() {
	f.Record = NewAt(f.now())
	f.Errors = nil
	f.Status = StatusIdle
	f.autoBalance = false
}

// Validate runs the validation rules without changing the status.
func (f *Form) Validate() Errors {
	return Validate(f.Record, f.Defaults)
}

// Progress reports completed and total required items.
func (f *Form) Progress() (done, total int) {
	return Progress(f.Record, f.Defaults)
}

// BeginSubmit moves the form through validating. It returns the errors and
// leaves the form blocked when any are found, otherwise the form is
// submitting.
func (f *Form) BeginSubmit() Errors {
	f.Status = StatusValidating
	errs := Validate(f.Record, f.Defaults)
	f.Errors = errs
	if errs.Len() > 0 {
		f.Status = StatusBlocked
		return errs
	}
	f.Status = StatusSubmitting
	return nil
}

// FinishSubmit records the submission outcome.
func (f *Form) FinishSubmit(ok bool) {
	if ok {
		f.Status = StatusSuccess
		return
	}
	f.Status = StatusError
}

// touch clears the error for key and returns a blocked or failed form to idle.
func (f *Form) touch(key string) {
	if key != "" {
		f.Errors = f.Errors.Without(key)
	}
	if f.Status == StatusBlocked || f.Status == StatusError {
		f.Status = StatusIdle
	}
}

func reindexBuyerErrors(errs Errors, removed int) Errors {
	var out Errors
	for _, fe := range errs {
		idx, field, ok := splitBuyerKey(fe.Field)
		switch {
		case !ok || idx < removed:
			out = append(out, fe)
		case idx == removed:
			continue
		default:
			out = append(out, FieldError{
				Field:   BuyerKey(idx-1, field),
				Message: strings.Replace(fe.Message, fmt.Sprintf("Buyer %d:", idx+1), fmt.Sprintf("Buyer %d:", idx), 1),
			})
		}
	}
	return out
}

func splitBuyerKey(key string) (int, string, bool) {
	rest, ok := strings.CutPrefix(key, "buyers[")
	if !ok {
		return 0, "", false
	}
	num, field, ok := strings.Cut(rest, "].")
	if !ok {
		return 0, "", false
	}
	i, err := strconv.Atoi(num)
	if err != nil {
		return 0, "", false
	}
	return i, field, true
}
