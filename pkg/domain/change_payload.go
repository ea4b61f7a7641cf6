package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ChangePayload is the JSON form of a Change, carried as the data of change
// notifications. Before and After hold the entity snapshots verbatim.
type ChangePayload struct {
	Entity EntityType      `json:"entity"`
	Action Action          `json:"action"`
	ID     string          `json:"id"`
	Before json.RawMessage `json:"before,omitempty"`
	After  json.RawMessage `json:"after,omitempty"`
}

// EntityID returns the id of the changed entity: the brand key for logo
// entries, the record id otherwise. The After state wins when both are set.
func (c Change) EntityID() string {
	for _, state := range []any{c.After, c.Before} {
		switch v := state.(type) {
		case Pen:
			return v.ID
		case Ink:
			return v.ID
		case BrandLogo:
			return v.BrandKey
		}
	}
	return ""
}

// NewChangePayload snapshots a change as JSON.
func NewChangePayload(c Change) (ChangePayload, error) {
	payload := ChangePayload{Entity: c.Entity, Action: c.Action, ID: c.EntityID()}
	var err error
	if payload.Before, err = marshalState(c.Before); err != nil {
		return ChangePayload{}, fmt.Errorf("encode before: %w", err)
	}
	if payload.After, err = marshalState(c.After); err != nil {
		return ChangePayload{}, fmt.Errorf("encode after: %w", err)
	}
	return payload, nil
}

func marshalState(state any) (json.RawMessage, error) {
	if state == nil {
		return nil, nil
	}
	return json.Marshal(state)
}

// DecodeAfter unmarshals the After snapshot into out.
func (p ChangePayload) DecodeAfter(out any) error {
	return decodeState(p.After, out)
}

// DecodeBefore unmarshals the Before snapshot into out.
func (p ChangePayload) DecodeBefore(out any) error {
	return decodeState(p.Before, out)
}

var errEmptyState = errors.New("change state not set")

func decodeState(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return errEmptyState
	}
	return json.Unmarshal(raw, out)
}
