package weaverpack

import (
	"encoding/json"
	"os"
	"strconv"

	"weaver.dev/core/primitives"
)

// GateStatus is the outcome of one gate check within a receipt.
type GateStatus string

const (
	GatePass GateStatus = "pass"
	GateFail GateStatus = "fail"
	GateSkip GateStatus = "skip"
)

// Gate is one named check result recorded in a receipt.
type Gate struct {
	Name   string     `json:"gate"`
	Status GateStatus `json:"status"`
	Detail string     `json:"detail"`
}

// NewGate builds a Gate, rejecting any status outside pass/fail/skip.
func NewGate(name string, status GateStatus, detail string) (Gate, error) {
	switch status {
	case GatePass, GateFail, GateSkip:
		return Gate{Name: name, Status: status, Detail: detail}, nil
	default:
		return Gate{}, wpErr(ErrInvalidGate, "invalid gate status: %s", status)
	}
}

// Receipt is the audit-trail record every governed operation emits.
type Receipt struct {
	SchemaVersion     string         `json:"schema_version"`
	ReceiptID         string         `json:"receipt_id"`
	Operation         string         `json:"operation"`
	Timestamp         string         `json:"timestamp"`
	OperatorID        string         `json:"operator_id"`
	Inputs            map[string]any `json:"inputs"`
	Outputs           map[string]any `json:"outputs"`
	Gates             []Gate         `json:"gates"`
	Passed            bool           `json:"passed"`
	InvariantsChecked []string       `json:"invariants_checked"`
	Error             *string        `json:"error,omitempty"`
}

// EmitReceipt builds a Receipt for a governed operation. Passed is true
// only if no gate failed and no error string was supplied.
func EmitReceipt(operation, operatorID string, inputs, outputs map[string]any, gates []Gate, invariantsChecked []string, errMsg string) Receipt {
	passed := true
	for _, g := range gates {
		if g.Status == GateFail {
			passed = false
			break
		}
	}
	var errPtr *string
	if errMsg != "" {
		passed = false
		errPtr = &errMsg
	}

	return Receipt{
		SchemaVersion:     SchemaVersion,
		ReceiptID:         primitives.GenerateID("RWRC"),
		Operation:         operation,
		Timestamp:         primitives.NowUTC(),
		OperatorID:        operatorID,
		Inputs:            inputs,
		Outputs:           outputs,
		Gates:             gates,
		Passed:            passed,
		InvariantsChecked: invariantsChecked,
		Error:             errPtr,
	}
}

// WriteReceipt writes a receipt to a JSON file in pretty-canonical form.
func WriteReceipt(receipt Receipt, path string) error {
	data, err := primitives.CanonicalJSONPretty(receipt)
	if err != nil {
		return wpErr(ErrLoad, "marshal receipt: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return wpErr(ErrLoad, "write receipt: %v", err)
	}
	return nil
}

// LoadReceipt reads a receipt from a JSON file.
func LoadReceipt(path string) (Receipt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Receipt{}, wpErr(ErrLoad, "read receipt: %v", err)
	}
	var r Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return Receipt{}, wpErr(ErrLoad, "parse receipt: %v", err)
	}
	return r, nil
}

var requiredReceiptFields = []string{
	"schema_version", "receipt_id", "operation", "timestamp",
	"operator_id", "inputs", "outputs", "gates", "passed",
	"invariants_checked",
}

// VerifyReceiptSchema checks a raw decoded receipt document for every
// required field, including per-gate required subfields.
func VerifyReceiptSchema(raw map[string]any) []string {
	var errs []string
	for _, field := range requiredReceiptFields {
		if _, ok := raw[field]; !ok {
			errs = append(errs, "Missing required field: "+field)
		}
	}
	if gatesAny, ok := raw["gates"]; ok {
		if gates, isArr := gatesAny.([]any); isArr {
			for i, gAny := range gates {
				g, isObj := gAny.(map[string]any)
				if !isObj {
					continue
				}
				for _, gf := range []string{"gate", "status", "detail"} {
					if _, ok := g[gf]; !ok {
						errs = append(errs, "Gate "+strconv.Itoa(i)+" missing field: "+gf)
					}
				}
			}
		}
	}
	return errs
}
