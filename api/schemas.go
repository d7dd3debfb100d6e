package api

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Request bodies are schema-checked before binding so a caller gets one
// precise complaint about a missing or mistyped field instead of a zero-value
// slipping through into signature recovery.

const addressPattern = `^0x[0-9a-fA-F]{40}$`
const wordPattern = `^(0x)?[0-9a-fA-F]{64}$`
const amountPattern = `^[0-9]+$`

const payPermitSchema = `{
  "type": "object",
  "required": ["caller", "requestType", "signature", "permit", "to", "requestedAmount", "signer", "transactionId"],
  "properties": {
    "caller": {"type": "string", "pattern": "` + addressPattern + `"},
    "requestType": {"type": "string", "enum": ["sponsored", "direct"]},
    "signature": {"type": "string"},
    "permit": {
      "type": "object",
      "required": ["token", "spender", "value", "deadline", "v", "r", "s"],
      "properties": {
        "token": {"type": "string", "pattern": "` + addressPattern + `"},
        "spender": {"type": "string", "pattern": "` + addressPattern + `"},
        "value": {"type": "string", "pattern": "` + amountPattern + `"},
        "deadline": {"type": "string", "pattern": "` + amountPattern + `"},
        "v": {"type": "integer", "minimum": 0, "maximum": 255},
        "r": {"type": "string", "pattern": "` + wordPattern + `"},
        "s": {"type": "string", "pattern": "` + wordPattern + `"}
      }
    },
    "to": {"type": "string", "pattern": "` + addressPattern + `"},
    "requestedAmount": {"type": "string", "pattern": "` + amountPattern + `"},
    "signer": {"type": "string", "pattern": "` + addressPattern + `"},
    "transactionId": {"type": "string", "pattern": "` + wordPattern + `"}
  }
}`

const payPermit2Schema = `{
  "type": "object",
  "required": ["caller", "requestType", "signature", "permit", "to", "requestedAmount", "signer", "transactionId"],
  "properties": {
    "caller": {"type": "string", "pattern": "` + addressPattern + `"},
    "requestType": {"type": "string", "enum": ["sponsored", "direct"]},
    "signature": {"type": "string"},
    "permit": {
      "type": "object",
      "required": ["token", "amount", "expiration", "nonce", "spender", "sigDeadline", "signature"],
      "properties": {
        "token": {"type": "string", "pattern": "` + addressPattern + `"},
        "amount": {"type": "string", "pattern": "` + amountPattern + `"},
        "expiration": {"type": "integer", "minimum": 0},
        "nonce": {"type": "integer", "minimum": 0},
        "spender": {"type": "string", "pattern": "` + addressPattern + `"},
        "sigDeadline": {"type": "string", "pattern": "` + amountPattern + `"},
        "signature": {"type": "string"}
      }
    },
    "to": {"type": "string", "pattern": "` + addressPattern + `"},
    "requestedAmount": {"type": "string", "pattern": "` + amountPattern + `"},
    "signer": {"type": "string", "pattern": "` + addressPattern + `"},
    "transactionId": {"type": "string", "pattern": "` + wordPattern + `"}
  }
}`

const refundSchema = `{
  "type": "object",
  "required": ["caller", "payer", "transactionId"],
  "properties": {
    "caller": {"type": "string", "pattern": "` + addressPattern + `"},
    "payer": {"type": "string", "pattern": "` + addressPattern + `"},
    "transactionId": {"type": "string", "pattern": "` + wordPattern + `"}
  }
}`

var (
	payPermitValidator  = mustCompileSchema(payPermitSchema)
	payPermit2Validator = mustCompileSchema(payPermit2Schema)
	refundValidator     = mustCompileSchema(refundSchema)
)

func mustCompileSchema(raw string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid request schema: %v", err))
	}
	return schema
}

// validateBody checks a raw JSON body against a compiled schema and returns a
// single aggregated message on failure.
func validateBody(schema *gojsonschema.Schema, body []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
