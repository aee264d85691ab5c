package offer

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed record.schema.json
var recordSchema []byte

var schemaLoader = gojsonschema.NewBytesLoader(recordSchema)

// ErrSchema is returned when an uploaded record has the wrong shape.
var ErrSchema = errors.New("record does not match schema")

// CheckSchema validates the structure of a JSON-encoded record.
func CheckSchema(data []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validating record: %w", err)
	}

	if !result.Valid() {
		msgs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			msgs[i] = desc.String()
		}
		return fmt.Errorf("%w: %s", ErrSchema, strings.Join(msgs, "; "))
	}

	return nil
}

// DecodeRecord checks data against the record schema and decodes it.
// Price-like fields are normalized the same way SetField does.
func DecodeRecord(data []byte) (Record, error) {
	if err := CheckSchema(data); err != nil {
		return Record{}, err
	}

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("decoding record: %w", err)
	}

	for i := range r.Buyers {
		if r.Buyers[i].Kind == "" {
			r.Buyers[i].Kind = KindIndividual
		}
	}
	r.Financials.PurchasePrice = FormatCurrency(r.Financials.PurchasePrice)
	r.Financials.InitialDeposit = FormatCurrency(r.Financials.InitialDeposit)
	r.Financials.BalanceDeposit = FormatCurrency(r.Financials.BalanceDeposit)

	return r, nil
}
