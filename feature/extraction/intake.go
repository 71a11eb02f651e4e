package extraction

import (
	"encoding/json"
	"errors"
	"fmt"

	"listing-manager/feature/extraction/models"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalidPayload marks schema and decoding failures so transport layers
// can answer with a client error instead of a server one.
var ErrInvalidPayload = errors.New("invalid payload")

// payloadSchemaJSON guards the envelope shape before the lenient record
// decoding runs: a dealer with a code, and a records array. Per-record
// problems are deliberately not rejected here; they are counted during
// classification instead of failing the whole batch.
const payloadSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["dealer", "records"],
  "properties": {
    "dealer": {
      "type": "object",
      "required": ["code"],
      "properties": {
        "code": {"type": "string", "minLength": 1},
        "name": {"type": "string"}
      }
    },
    "source": {"type": "string"},
    "records": {
      "type": "array",
      "items": {"type": "object"}
    }
  }
}`

var payloadSchema = jsonschema.MustCompileString("payload.json", payloadSchemaJSON)

// DecodePayload validates raw extraction output against the payload schema
// and decodes it. Validation happens on the generic JSON value so schema
// errors name the offending path rather than surfacing as decode failures.
func DecodePayload(data []byte) (*models.ExtractionPayload, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: not valid JSON: %v", ErrInvalidPayload, err)
	}
	if err := payloadSchema.Validate(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	var payload models.ExtractionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return &payload, nil
}
