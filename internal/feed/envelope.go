package feed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/jonathan/applypilot/internal/types"
)

// envelopeSchema is the JSON Schema every inbound change-feed payload must
// satisfy before it is decoded. Rows pushed by the backend are never trusted
// as pre-validated.
const envelopeSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["op", "kind", "row_id", "ts"],
  "properties": {
    "op":     {"type": "string", "enum": ["insert", "update", "delete"]},
    "kind":   {"type": "string", "enum": ["profile", "resume", "application", "wishlist_item"]},
    "row_id": {"type": "string", "minLength": 1},
    "ts":     {"type": "string", "format": "date-time"},
    "row":    {"type": "object"}
  }
}`

var envelopeSchemaLoader = gojsonschema.NewStringLoader(envelopeSchema)

// Envelope is the wire form of one change-feed notification.
type Envelope struct {
	Op    types.ChangeOp  `json:"op"`
	Kind  types.Kind      `json:"kind"`
	RowID string          `json:"row_id"`
	TS    time.Time       `json:"ts"`
	Row   json.RawMessage `json:"row,omitempty"`
}

// DecodeEnvelope validates a raw payload against the envelope schema and
// decodes it into a ChangeEvent with a typed row image.
func DecodeEnvelope(payload []byte) (types.ChangeEvent, error) {
	result, err := gojsonschema.Validate(envelopeSchemaLoader, gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return types.ChangeEvent{}, fmt.Errorf("failed to validate envelope: %w", err)
	}
	if !result.Valid() {
		return types.ChangeEvent{}, fmt.Errorf("invalid envelope: %s", result.Errors()[0].String())
	}

	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return types.ChangeEvent{}, fmt.Errorf("failed to decode envelope: %w", err)
	}

	rowID, err := uuid.Parse(env.RowID)
	if err != nil {
		return types.ChangeEvent{}, fmt.Errorf("invalid row_id: %w", err)
	}

	ev := types.ChangeEvent{
		Op:    env.Op,
		Kind:  env.Kind,
		RowID: rowID,
		At:    env.TS,
	}

	if env.Op == types.OpDelete {
		return ev, nil
	}
	if len(env.Row) == 0 {
		return types.ChangeEvent{}, fmt.Errorf("envelope %s/%s is missing the row image", env.Op, env.Kind)
	}

	row, err := decodeRow(env.Kind, env.Row)
	if err != nil {
		return types.ChangeEvent{}, err
	}
	if row.EntityID() != rowID {
		return types.ChangeEvent{}, fmt.Errorf("row image id %s does not match envelope row_id %s", row.EntityID(), rowID)
	}
	ev.Row = row
	return ev, nil
}

// decodeRow unmarshals the row image into the tagged entity variant for its
// kind, enforcing required fields at the boundary.
func decodeRow(kind types.Kind, raw json.RawMessage) (types.Row, error) {
	switch kind {
	case types.KindProfile:
		var p types.Profile
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to decode profile row: %w", err)
		}
		if p.ID.IsZero() {
			return nil, fmt.Errorf("profile row is missing id")
		}
		return p, nil
	case types.KindResume:
		var r types.Resume
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("failed to decode resume row: %w", err)
		}
		if r.ID == uuid.Nil || r.UserID.IsZero() {
			return nil, fmt.Errorf("resume row is missing id or user_id")
		}
		return r, nil
	case types.KindApplication:
		var a types.Application
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("failed to decode application row: %w", err)
		}
		if a.ID == uuid.Nil {
			return nil, fmt.Errorf("application row is missing id")
		}
		return a, nil
	case types.KindWishlistItem:
		var w types.WishlistItem
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("failed to decode wishlist row: %w", err)
		}
		if w.ID == uuid.Nil {
			return nil, fmt.Errorf("wishlist row is missing id")
		}
		return w, nil
	default:
		return nil, fmt.Errorf("unknown entity kind: %s", kind)
	}
}

// EncodeEnvelope builds the wire form of a change event. Used by publishers
// and tests.
func EncodeEnvelope(ev types.ChangeEvent) ([]byte, error) {
	env := Envelope{
		Op:    ev.Op,
		Kind:  ev.Kind,
		RowID: ev.RowID.String(),
		TS:    ev.At,
	}
	if ev.Row != nil {
		raw, err := json.Marshal(ev.Row)
		if err != nil {
			return nil, fmt.Errorf("failed to encode row image: %w", err)
		}
		env.Row = raw
	}
	return json.Marshal(env)
}
