package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/harun/chronicle/pkg/model"
	"github.com/xeipuuv/gojsonschema"
)

// RecordSchema is the JSON schema every stored record must satisfy.
const RecordSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "title": {"type": "string"},
    "project_path": {"type": "string"},
    "model": {"type": "string"},
    "pinned": {"type": "boolean"},
    "tags": {
      "type": ["array", "null"],
      "items": {"type": "string"}
    },
    "messages": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["role", "content"],
        "properties": {
          "role": {"type": "string"},
          "content": {"type": "string"},
          "thinking": {"type": "string"},
          "tool_name": {"type": "string"},
          "cost_usd": {"type": "number"},
          "timestamp": {"type": "string"}
        }
      }
    },
    "total_cost_usd": {"type": "number", "minimum": 0},
    "created_at": {"type": "string"},
    "updated_at": {"type": "string"}
  }
}`

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func recordSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(RecordSchema))
	})
	return schema, schemaErr
}

// EncodeRecord serializes p in its canonical stored form.
func EncodeRecord(p model.PersistedSession) ([]byte, error) {
	p.Normalize()
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return data, nil
}

// DecodeRecord parses and validates a stored record. key is the id the backend filed the
// record under; a record whose own id differs is rejected. Every failure wraps
// model.ErrCorruptRecord.
func DecodeRecord(key string, data []byte) (model.PersistedSession, error) {
	var p model.PersistedSession

	if err := validateRecord(data); err != nil {
		return p, model.CorruptRecordError(key, err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, model.CorruptRecordError(key, fmt.Errorf("failed to parse record: %w", err))
	}
	if err := model.ValidateID(p.ID); err != nil {
		return p, model.CorruptRecordError(key, err)
	}
	if key != "" && p.ID != key {
		return p, model.CorruptRecordError(key, fmt.Errorf("record id %q does not match key", p.ID))
	}

	p.Normalize()
	return p, nil
}

func validateRecord(data []byte) error {
	s, err := recordSchema()
	if err != nil {
		return fmt.Errorf("record schema: %w", err)
	}

	result, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return errors.New("schema validation errors: " + strings.Join(msgs, "; "))
	}
	return nil
}
