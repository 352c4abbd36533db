// Package monitor guards the boundary of the payment core: a JSON
// schema contract check applied to incoming payment requests before
// they reach the orchestrator, and prometheus metrics recording what
// the orchestrator and gateways did.
package monitor

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// PaymentRequestSchema is the contract for the POST /payments body.
const PaymentRequestSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"title": "PaymentRequest",
	"type": "object",
	"properties": {
		"order_ref": { "type": "string", "minLength": 1 },
		"provider": { "type": "string", "enum": ["SADAD", "SEP", "CASH", "CARD", "WALLET", "CRYPTO"] },
		"card_number": { "type": "string" },
		"national_id": { "type": "string" },
		"iban": { "type": "string" }
	},
	"required": ["order_ref", "provider"],
	"additionalProperties": false
}`

// ContractMonitor validates request bodies against a JSON schema.
type ContractMonitor struct {
	schema *gojsonschema.Schema
}

// NewContractMonitor compiles the given schema document.
func NewContractMonitor(schemaJSON string) (*ContractMonitor, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("monitor: compiling schema: %w", err)
	}
	return &ContractMonitor{schema: schema}, nil
}

// Validate checks the request body against the schema. It returns true
// when valid, or false with the list of violations.
func (cm *ContractMonitor) Validate(requestBody []byte) (bool, []string, error) {
	result, err := cm.schema.Validate(gojsonschema.NewBytesLoader(requestBody))
	if err != nil {
		return false, nil, fmt.Errorf("monitor: validation: %w", err)
	}
	if result.Valid() {
		return true, nil, nil
	}
	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return false, violations, nil
}

// FormatErrors joins validation violations into a single message.
func FormatErrors(violations []string) string {
	if len(violations) == 0 {
		return ""
	}
	return "Validation errors: " + strings.Join(violations, "; ")
}
